// Package monitoring records what frame operations did: how long they ran,
// how many rows went in and out, and whether they failed.
package monitoring

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of operations a collector keeps
const DefaultCapacity = 10000

// OperationMetrics describes one recorded operation
type OperationMetrics struct {
	ID        string        `json:"id"`
	Operation string        `json:"operation"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	RowsIn    int           `json:"rows_in"`
	RowsOut   int           `json:"rows_out"`
	Error     string        `json:"error,omitempty"`
}

// Failed reports whether the operation returned an error
func (m OperationMetrics) Failed() bool {
	return m.Error != ""
}

// MetricsCollector keeps the most recent operations up to its capacity.
// It is safe for concurrent use.
type MetricsCollector struct {
	mu       sync.Mutex
	capacity int
	dropped  int
	records  []OperationMetrics
}

// NewMetricsCollector creates a collector keeping at most capacity
// operations; capacity <= 0 means DefaultCapacity
func NewMetricsCollector(capacity int) *MetricsCollector {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MetricsCollector{capacity: capacity}
}

// Record runs fn as operation and stores the outcome. fn reports the rows
// it produced; the error from fn is returned unchanged.
func (mc *MetricsCollector) Record(operation string, rowsIn int, fn func() (int, error)) error {
	start := time.Now()
	rowsOut, err := fn()
	m := OperationMetrics{
		ID:        uuid.NewString(),
		Operation: operation,
		Started:   start,
		Duration:  time.Since(start),
		RowsIn:    rowsIn,
		RowsOut:   rowsOut,
	}
	if err != nil {
		m.Error = err.Error()
		m.RowsOut = 0
	}

	mc.mu.Lock()
	if len(mc.records) == mc.capacity {
		copy(mc.records, mc.records[1:])
		mc.records = mc.records[:len(mc.records)-1]
		mc.dropped++
	}
	mc.records = append(mc.records, m)
	mc.mu.Unlock()
	return err
}

// Metrics returns the kept operations, oldest first
func (mc *MetricsCollector) Metrics() []OperationMetrics {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return append([]OperationMetrics(nil), mc.records...)
}

// Reset forgets every recorded operation
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.records = nil
	mc.dropped = 0
}

// OperationStats aggregates the calls of one operation
type OperationStats struct {
	Calls    int           `json:"calls"`
	Failures int           `json:"failures"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Selectivity is the share of input rows that came out of successful
// calls. It is 0 when no rows went in.
func (s OperationStats) Selectivity() float64 {
	if s.RowsIn == 0 {
		return 0
	}
	return float64(s.RowsOut) / float64(s.RowsIn)
}

// MetricsSummary aggregates the kept operations by name
type MetricsSummary struct {
	Operations  int                       `json:"operations"`
	Failures    int                       `json:"failures"`
	Dropped     int                       `json:"dropped"`
	Elapsed     time.Duration             `json:"elapsed"`
	ByOperation map[string]OperationStats `json:"by_operation"`
}

// Summary groups the kept operations by name. Dropped counts operations
// pushed out by the capacity limit.
func (mc *MetricsCollector) Summary() MetricsSummary {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	out := MetricsSummary{
		Operations:  len(mc.records),
		Dropped:     mc.dropped,
		ByOperation: make(map[string]OperationStats),
	}
	for _, m := range mc.records {
		stats := out.ByOperation[m.Operation]
		stats.Calls++
		stats.Elapsed += m.Duration
		if m.Failed() {
			stats.Failures++
			out.Failures++
		} else {
			stats.RowsIn += m.RowsIn
			stats.RowsOut += m.RowsOut
		}
		out.ByOperation[m.Operation] = stats
		out.Elapsed += m.Duration
	}
	return out
}
