// Package monitor holds the two off-data-path reporting helpers:
// Timer, a deadline-ordered callback scheduler, and PerformanceMonitor, a
// named-metric counter/latency tracker that ProductionLine uses when
// EnableMonitor is set. Neither type sits in the buffer fill loop.
package monitor
