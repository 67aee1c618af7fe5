// Package worker implements the production line's source-side Worker
// hierarchy: concrete types that know how to open a file or stream and
// deliver frames into a buffer.Pool, plus a factory and facade so callers
// never need to know which concrete Worker they are driving.
package worker
