package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/iobuf"
)

const defaultLatencySamples = 64

// Metric is a named counter plus a bounded ring of recent latency
// samples. Count and Total are atomic, so once Record has looked the
// metric up under the PerformanceMonitor's read lock, updating it takes no
// lock; only the ring itself needs the slot bookkeeping that
// iobuf.BoundedPool already provides.
type Metric struct {
	Count atomic.Int64
	Total atomic.Int64 // nanoseconds

	ring   *iobuf.BoundedPool[int64]
	cursor atomic.Int64
}

func newMetric() *Metric {
	m := &Metric{ring: iobuf.NewBoundedPool[int64](defaultLatencySamples)}
	m.ring.Fill(func() int64 { return 0 })
	return m
}

// record adds one latency sample, both to the running total/count and to
// the bounded recent-samples ring (overwriting the oldest slot once full).
func (m *Metric) record(d time.Duration) {
	m.Count.Add(1)
	m.Total.Add(int64(d))

	slot := int(m.cursor.Add(1)-1) % m.ring.Cap()
	m.ring.SetValue(slot, int64(d))
}

// Average returns the mean latency across every sample recorded, or 0 if
// none have been recorded yet.
func (m *Metric) Average() time.Duration {
	n := m.Count.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.Total.Load() / n)
}

// RecentSamples returns the defaultLatencySamples ring slots, oldest first,
// for callers that want a rough distribution rather than just a running
// average. Until the ring has wrapped, the slots not yet written read as 0
// and come before the recorded samples.
func (m *Metric) RecentSamples() []time.Duration {
	n := m.ring.Cap()
	start := int(m.cursor.Load()) % n
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, time.Duration(m.ring.Value((start+i)%n)))
	}
	return out
}

// PerformanceMonitor is a named-metric registry: counters and latency
// accumulators keyed by name, protected by a single RWMutex since metric
// registration is rare relative to Record calls.
type PerformanceMonitor struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
}

// NewPerformanceMonitor returns an empty PerformanceMonitor.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{metrics: make(map[string]*Metric)}
}

// RegisterMetric creates metric name if it does not already exist. It is
// idempotent.
func (p *PerformanceMonitor) RegisterMetric(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.metrics[name]; ok {
		return
	}
	p.metrics[name] = newMetric()
}

// Record appends a latency sample to metric name, registering it first if
// necessary.
func (p *PerformanceMonitor) Record(name string, d time.Duration) {
	p.mu.RLock()
	m, ok := p.metrics[name]
	p.mu.RUnlock()
	if !ok {
		p.RegisterMetric(name)
		p.mu.RLock()
		m = p.metrics[name]
		p.mu.RUnlock()
	}
	m.record(d)
}

// Metric returns the named metric, or (nil, false) if it has never been
// registered.
func (p *PerformanceMonitor) Metric(name string) (*Metric, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.metrics[name]
	return m, ok
}

// Names returns every currently registered metric name.
func (p *PerformanceMonitor) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.metrics))
	for n := range p.metrics {
		names = append(names, n)
	}
	return names
}
