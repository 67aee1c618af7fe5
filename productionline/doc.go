// Package productionline drives a Worker over its working BufferPool as a
// continuous fill pipeline: N producer goroutines pull or inject frames,
// a consumer drains the filled queue on its own, and a handful of atomics
// track progress without a mutex on the hot path.
package productionline
