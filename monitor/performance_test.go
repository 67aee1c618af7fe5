package monitor

import (
	"sync"
	"testing"
	"time"
)

func TestPerformanceMonitorRecordAndAverage(t *testing.T) {
	pm := NewPerformanceMonitor()
	pm.RegisterMetric("fill")

	pm.Record("fill", 10*time.Millisecond)
	pm.Record("fill", 20*time.Millisecond)
	pm.Record("fill", 30*time.Millisecond)

	m, ok := pm.Metric("fill")
	if !ok {
		t.Fatal("metric fill not found")
	}
	if m.Count.Load() != 3 {
		t.Fatalf("Count = %d, want 3", m.Count.Load())
	}
	if avg := m.Average(); avg != 20*time.Millisecond {
		t.Fatalf("Average() = %v, want 20ms", avg)
	}
}

func TestPerformanceMonitorRecordAutoRegisters(t *testing.T) {
	pm := NewPerformanceMonitor()
	pm.Record("produce", 5*time.Millisecond)

	m, ok := pm.Metric("produce")
	if !ok {
		t.Fatal("Record did not auto-register metric")
	}
	if m.Count.Load() != 1 {
		t.Fatalf("Count = %d, want 1", m.Count.Load())
	}
}

func TestPerformanceMonitorConcurrentRecord(t *testing.T) {
	pm := NewPerformanceMonitor()
	pm.RegisterMetric("fill")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pm.Record("fill", time.Millisecond)
		}()
	}
	wg.Wait()

	m, _ := pm.Metric("fill")
	if m.Count.Load() != 50 {
		t.Fatalf("Count = %d, want 50", m.Count.Load())
	}
	samples := m.RecentSamples()
	if len(samples) != defaultLatencySamples {
		t.Fatalf("RecentSamples len = %d, want %d", len(samples), defaultLatencySamples)
	}
}
