// Package metrics exposes the Prometheus metrics of graphkv.
//
// Every metric is registered with the default registry on package load.
// Store operations report through Observe:
//
//	timer := metrics.NewTimer("add_elements")
//	err := backend.Put(ctx, records)
//	timer.ObserveDuration("memory", err)
//
// and conversions through RecordConversion.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// ElementsConverted counts elements encoded to or decoded from records.
	// Labels: direction (encode/decode), kind (entity/edge), status
	ElementsConverted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphkv_elements_converted_total",
			Help: "Total number of elements converted",
		},
		[]string{"direction", "kind", "status"},
	)

	// ConversionErrors counts failed conversions by error type.
	ConversionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphkv_conversion_errors_total",
			Help: "Total number of conversion errors",
		},
		[]string{"type"},
	)

	// RecordsWritten counts records handed to a backend.
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphkv_records_written_total",
			Help: "Total number of records written",
		},
		[]string{"backend"},
	)

	// RecordsScanned counts records read back from a backend.
	RecordsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphkv_records_scanned_total",
			Help: "Total number of records scanned",
		},
		[]string{"backend"},
	)

	// Aggregations counts records merged into an existing record.
	Aggregations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphkv_aggregations_total",
			Help: "Total number of records merged by aggregation",
		},
		[]string{"group"},
	)

	// OperationLatency tracks store operation latency in seconds.
	// Labels: operation, backend, status
	OperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "graphkv_operation_latency_seconds",
			Help: "Store operation latency in seconds",
			Buckets: []float64{
				1e-5, // 10μs - in-memory point operations
				1e-4, // 100μs
				1e-3, // 1ms
				1e-2, // 10ms - database round trips
				1e-1, // 100ms - batches
				1,    // 1s - large loads
			},
		},
		[]string{"operation", "backend", "status"},
	)

	// Throughput tracks elements per second of the last bulk load.
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphkv_throughput_elements_per_second",
			Help: "Current throughput in elements per second",
		},
		[]string{"graph"},
	)
)

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// RecordConversion counts one converted element.
func RecordConversion(direction, kind string, err error) {
	ElementsConverted.WithLabelValues(direction, kind, Status(err)).Inc()
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name becomes the operation label when the duration is observed.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in OperationLatency and returns
// it.
func (t *Timer) ObserveDuration(backend string, err error) time.Duration {
	d := t.Stop()
	OperationLatency.WithLabelValues(t.name, backend, Status(err)).Observe(d.Seconds())
	return d
}

// ThroughputTracker tracks throughput (elements per second) over time
// windows. Safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Elements processed since last reset
	lastReset time.Time // Time of last reset
	graph     string
}

// NewThroughputTracker creates a throughput tracker for graph.
func NewThroughputTracker(graph string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		graph:     graph,
	}
}

// Increment adds n to the element count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput, updates the Prometheus
// gauge, resets the counter and returns the throughput.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	// Reset for next period
	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.graph).Set(throughput)

	return throughput
}
