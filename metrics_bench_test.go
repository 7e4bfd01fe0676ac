package goShop

import (
	"sync/atomic"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.Inc(MetricRequest)
	}
}

func BenchmarkMetricsIncDisabledParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricRequest)
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricRequestLatency, d)
		}
	})
}

type packedBenchmarkMetrics struct {
	counters [metricIDCount]uint64
}

func (m *packedBenchmarkMetrics) Inc(id MetricID) {
	atomic.AddUint64(&m.counters[id], 1)
}

// The counters every authenticated call touches.
var requestPathMetricIDs = [...]MetricID{
	MetricRequest,
	MetricCacheMiss,
	MetricCacheHit,
	MetricUnauthorized,
	MetricRetry,
	MetricRefreshSuccess,
}

type incrementer interface{ Inc(MetricID) }

func benchmarkRoundRobin(b *testing.B, m incrementer) {
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(requestPathMetricIDs[idx])
			idx++
			if idx == len(requestPathMetricIDs) {
				idx = 0
			}
		}
	})
}

func BenchmarkMetricsIncRequestPathPadded(b *testing.B) {
	benchmarkRoundRobin(b, NewMetrics(MetricsConfig{Enabled: true}))
}

func BenchmarkMetricsIncRequestPathPacked(b *testing.B) {
	benchmarkRoundRobin(b, &packedBenchmarkMetrics{})
}
