package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture metrics
	framesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translive_frames_captured_total",
		Help: "Total number of audio frames pushed by the capture source",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translive_frames_dropped_total",
		Help: "Frames discarded because the capture queue was full",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "translive_queue_depth",
		Help: "Frames waiting between capture and segmentation",
	})

	// Segmentation metrics
	utterancesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translive_utterances_total",
		Help: "Total number of utterances emitted by the segmenter",
	})

	utteranceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "translive_utterance_duration_seconds",
		Help:    "Audio duration of emitted utterances",
		Buckets: []float64{0.5, 1, 2, 3.5, 5, 10, 20, 30},
	})

	silenceDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translive_silence_buffers_discarded_total",
		Help: "Silence-only buffers discarded instead of emitted",
	})

	// Pipeline metrics
	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "translive_stage_latency_seconds",
		Help:    "Latency of each pipeline stage",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage", "status"})

	utteranceOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translive_utterance_outcomes_total",
		Help: "Per-utterance pipeline outcomes",
	}, []string{"outcome"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translive_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Speech output metrics
	speechJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translive_speech_jobs_total",
		Help: "Speech output jobs by result",
	}, []string{"status"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "translive_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translive_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordFrameCaptured counts a frame accepted by the capture queue
func RecordFrameCaptured() {
	framesCaptured.Inc()
}

// RecordFrameDropped counts a frame evicted from a full capture queue
func RecordFrameDropped() {
	framesDropped.Inc()
}

// SetQueueDepth reports the current capture queue length
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// RecordUtterance records an emitted utterance and its audio duration
func RecordUtterance(duration time.Duration) {
	utterancesEmitted.Inc()
	utteranceDuration.Observe(duration.Seconds())
}

// RecordSilenceDiscarded counts a silence-only buffer that was not emitted
func RecordSilenceDiscarded() {
	silenceDiscarded.Inc()
}

// ObserveStage records the latency of a pipeline stage
func ObserveStage(stage string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	stageLatency.WithLabelValues(stage, status).Observe(time.Since(started).Seconds())
}

// RecordOutcome records the final outcome of an utterance
func RecordOutcome(outcome string) {
	utteranceOutcomes.WithLabelValues(outcome).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordSpeechJob records a speech output job result
func RecordSpeechJob(status string) {
	speechJobs.WithLabelValues(status).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
