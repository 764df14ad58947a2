package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Timecode operation metrics
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smpte_timecode_operations_total",
		Help: "Total timecode operations by operation and rate mode",
	}, []string{"op", "mode"})

	operationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smpte_timecode_operation_errors_total",
		Help: "Total failed timecode operations by operation and error code",
	}, []string{"op", "code"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smpte_timecode_operation_duration_seconds",
		Help:    "Timecode operation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0000001, 10, 7), // 100ns to 100ms
	}, []string{"op"})

	// Batch metrics
	batchJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smpte_batch_jobs_total",
		Help: "Total batch jobs by outcome",
	}, []string{"status"})

	batchOperations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smpte_batch_operations",
		Help:    "Number of operations per batch job",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16k
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smpte_batch_duration_seconds",
		Help:    "Batch job duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	batchInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smpte_batch_in_flight",
		Help: "Number of batch jobs currently running",
	})

	// Preset store metrics
	presetOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smpte_preset_operations_total",
		Help: "Total preset store operations by backend, operation and result",
	}, []string{"backend", "op", "result"})

	presetsStored = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smpte_presets_stored",
		Help: "Number of presets in the store",
	}, []string{"backend"})

	// Rate limiting
	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smpte_rate_limited_requests_total",
		Help: "Total requests rejected by the rate limiter",
	})

	rateLimitClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smpte_rate_limit_clients",
		Help: "Number of clients tracked by the rate limiter",
	})
)

// Mode returns the mode label for a drop frame flag.
func Mode(drop bool) string {
	if drop {
		return "df"
	}
	return "ndf"
}

// ObserveOperation records a completed timecode operation. An empty code
// means the operation succeeded.
func ObserveOperation(op string, drop bool, code string, elapsed time.Duration) {
	operationsTotal.WithLabelValues(op, Mode(drop)).Inc()
	operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if code != "" {
		operationErrorsTotal.WithLabelValues(op, code).Inc()
	}
}

// BatchStarted marks a batch job as running.
func BatchStarted() {
	batchInFlight.Inc()
}

// BatchFinished records the outcome of a batch job.
func BatchFinished(status string, operations int, elapsed time.Duration) {
	batchInFlight.Dec()
	batchJobsTotal.WithLabelValues(status).Inc()
	batchOperations.Observe(float64(operations))
	batchDuration.Observe(elapsed.Seconds())
}

// IncrementPresetOperation counts a preset store call.
func IncrementPresetOperation(backend, op, result string) {
	presetOperationsTotal.WithLabelValues(backend, op, result).Inc()
}

// SetPresetsStored sets the number of presets held by a backend.
func SetPresetsStored(backend string, count int) {
	presetsStored.WithLabelValues(backend).Set(float64(count))
}

// IncrementRateLimited counts a rejected request.
func IncrementRateLimited() {
	rateLimitedTotal.Inc()
}

// SetRateLimitClients sets the number of tracked clients.
func SetRateLimitClients(count int) {
	rateLimitClients.Set(float64(count))
}
