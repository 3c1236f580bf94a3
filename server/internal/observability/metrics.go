package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects request counts and latencies per operation.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	operations map[string]*OperationMetrics

	// durations keeps the most recent request durations for percentiles.
	durations    []time.Duration
	maxDurations int
}

// OperationMetrics represents metrics for one operation, e.g. "query".
type OperationMetrics struct {
	count         atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		operations:   make(map[string]*OperationMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordRequest records a request.
func (m *Metrics) RecordRequest(operation string) {
	m.requestTotal.Add(1)
	m.operation(operation).count.Add(1)
}

// RecordFailure records a failed request.
func (m *Metrics) RecordFailure(operation string) {
	m.requestFailed.Add(1)
	m.operation(operation).errorCount.Add(1)
}

// RecordDuration records a request duration.
func (m *Metrics) RecordDuration(operation string, duration time.Duration) {
	om := m.operation(operation)
	om.totalDuration.Add(duration.Milliseconds())

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

func (m *Metrics) operation(name string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.operations[name]
	if !ok {
		om = &OperationMetrics{}
		m.operations[name] = om
	}
	return om
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)

	m.mu.Lock()
	m.operations = make(map[string]*OperationMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]*OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		snap := &OperationSnapshot{
			Count:      om.count.Load(),
			ErrorCount: om.errorCount.Load(),
		}
		if snap.Count > 0 {
			snap.AvgLatencyMs = om.totalDuration.Load() / snap.Count
		}
		ops[name] = snap
	}

	sorted := make([]time.Duration, len(m.durations))
	copy(sorted, m.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		P50LatencyMs:  percentile(sorted, 0.50).Milliseconds(),
		P95LatencyMs:  percentile(sorted, 0.95).Milliseconds(),
		Operations:    ops,
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                         `json:"request_total"`
	RequestFailed int64                         `json:"request_failed"`
	P50LatencyMs  int64                         `json:"p50_latency_ms"`
	P95LatencyMs  int64                         `json:"p95_latency_ms"`
	Operations    map[string]*OperationSnapshot `json:"operations"`
}

// OperationSnapshot represents metrics for a single operation.
type OperationSnapshot struct {
	Count        int64 `json:"count"`
	ErrorCount   int64 `json:"error_count"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}
