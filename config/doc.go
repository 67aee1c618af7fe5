// Package config holds the nested configuration record a Worker is
// constructed from, built with the same functional-options pattern the
// device package uses for its own config: Option funcs mutate a
// *WorkerConfig while it is being built. WorkerConfig is an exported
// struct with exported fields and is passed around by value.
package config
