// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "narration_timeline"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Run metrics
	RunsTotal    *prometheus.CounterVec
	RunsActive   prometheus.Gauge
	RunsFailed   *prometheus.CounterVec
	StageLatency *prometheus.HistogramVec

	// Segmenter metrics
	AudioSegmentsDetected prometheus.Counter
	AudioFilesWritten     prometheus.Counter
	AudioSecondsScanned   prometheus.Counter

	// Aligner metrics
	TranscriptRows    *prometheus.CounterVec
	TranscriptSeconds prometheus.Histogram

	// Splitter metrics
	SlidesEmitted prometheus.Counter
	SlideOverflow *prometheus.CounterVec

	// Planner metrics
	PlansBuilt    *prometheus.CounterVec
	PlanSegments  prometheus.Counter
	PlanScaleRate prometheus.Histogram

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs started",
		}, []string{"kind"}),
		RunsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of pipeline runs in progress",
		}),
		RunsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of failed pipeline runs",
		}, []string{"stage", "error_kind"}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Wall time spent per pipeline stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"stage"}),

		// Segmenter metrics
		AudioSegmentsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_segments_detected_total",
			Help:      "Total number of audio segments produced by silence detection",
		}),
		AudioFilesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_files_written_total",
			Help:      "Total number of segment files written",
		}),
		AudioSecondsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_seconds_scanned_total",
			Help:      "Total seconds of audio scanned for silence",
		}),

		// Aligner metrics
		TranscriptRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_rows_total",
			Help:      "Total number of transcript rows aligned",
		}, []string{"mode"}),
		TranscriptSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcript_duration_seconds",
			Help:      "Total duration of aligned transcripts",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
		}),

		// Splitter metrics
		SlidesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slides_emitted_total",
			Help:      "Total number of slides emitted",
		}),
		SlideOverflow: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slide_overflow_total",
			Help:      "Total number of splits that hit the slide cap",
		}, []string{"policy"}),

		// Planner metrics
		PlansBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_built_total",
			Help:      "Total number of timeline plans built",
		}, []string{"mode"}),
		PlanSegments: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_segments_total",
			Help:      "Total number of timeline plan segments emitted",
		}),
		PlanScaleRate: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_scale_factor",
			Help:      "Ratio of measured audio duration to declared script duration",
			Buckets:   []float64{0.25, 0.5, 0.75, 0.9, 1, 1.1, 1.25, 1.5, 2, 4},
		}),

		// Request metrics
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"transport", "method", "code"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "API request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"transport", "method"}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordRunStart records a pipeline run starting.
func (m *Metrics) RecordRunStart(kind string) {
	m.RunsTotal.WithLabelValues(kind).Inc()
	m.RunsActive.Inc()
}

// RecordRunEnd records a pipeline run ending.
func (m *Metrics) RecordRunEnd() {
	m.RunsActive.Dec()
}

// RecordRunFailed records a run failing in the given stage.
func (m *Metrics) RecordRunFailed(stage, errorKind string) {
	m.RunsFailed.WithLabelValues(stage, errorKind).Inc()
}

// RecordStage records how long a stage took.
func (m *Metrics) RecordStage(stage string, seconds float64) {
	m.StageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordSegmentation records a silence split outcome.
func (m *Metrics) RecordSegmentation(segments, filesWritten int, scannedSeconds float64) {
	m.AudioSegmentsDetected.Add(float64(segments))
	m.AudioFilesWritten.Add(float64(filesWritten))
	m.AudioSecondsScanned.Add(scannedSeconds)
}

// RecordAlignment records an aligned transcript.
func (m *Metrics) RecordAlignment(mode string, rows int, totalSeconds float64) {
	m.TranscriptRows.WithLabelValues(mode).Add(float64(rows))
	m.TranscriptSeconds.Observe(totalSeconds)
}

// RecordSlides records emitted slides.
func (m *Metrics) RecordSlides(count int) {
	m.SlidesEmitted.Add(float64(count))
}

// RecordSlideOverflow records a split that reached the slide cap.
func (m *Metrics) RecordSlideOverflow(policy string) {
	m.SlideOverflow.WithLabelValues(policy).Inc()
}

// RecordPlan records a built timeline plan.
func (m *Metrics) RecordPlan(mode string, segments int, scale float64) {
	m.PlansBuilt.WithLabelValues(mode).Inc()
	m.PlanSegments.Add(float64(segments))
	if scale > 0 {
		m.PlanScaleRate.Observe(scale)
	}
}

// RecordRequest records an API request.
func (m *Metrics) RecordRequest(transport, method, code string, seconds float64) {
	m.RequestsTotal.WithLabelValues(transport, method, code).Inc()
	m.RequestDuration.WithLabelValues(transport, method).Observe(seconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
