package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

// TaggingMetrics records workflow stages, run outcomes and breaker state.
type TaggingMetrics struct {
	service string

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	tagsPerPhoto  *prometheus.HistogramVec
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
}

func NewTaggingMetrics(service string, registerer prometheus.Registerer) *TaggingMetrics {
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phototagger",
			Subsystem: "tagging",
			Name:      "runs_total",
			Help:      "Total upload-and-tag runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phototagger",
			Subsystem: "tagging",
			Name:      "run_duration_seconds",
			Help:      "Upload-and-tag run duration in seconds by outcome.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"service", "outcome"},
	)
	tagsPerPhoto := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phototagger",
			Subsystem: "tagging",
			Name:      "tags_per_photo",
			Help:      "Distribution of tags returned per successful run.",
			Buckets:   []float64{0, 1, 5, 10, 20, 40, 80},
		},
		[]string{"service"},
	)
	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phototagger",
			Subsystem: "tagging",
			Name:      "stage_total",
			Help:      "Total workflow stage executions by status.",
		},
		[]string{"service", "stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phototagger",
			Subsystem: "tagging",
			Name:      "stage_duration_seconds",
			Help:      "Workflow stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "phototagger",
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 when the circuit breaker for an operation is open, 0.5 half-open, 0 closed.",
		},
		[]string{"service", "operation"},
	)

	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	registerer.MustRegister(runsTotal, runDuration, tagsPerPhoto, stageTotal, stageDuration, breakerState)

	return &TaggingMetrics{
		service:       service,
		runsTotal:     runsTotal,
		runDuration:   runDuration,
		tagsPerPhoto:  tagsPerPhoto,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		breakerState:  breakerState,
	}
}

func (m *TaggingMetrics) ObserveStage(stage domain.TaggingStage, status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.stageTotal.WithLabelValues(m.service, string(stage), status).Inc()
	m.stageDuration.WithLabelValues(m.service, string(stage)).Observe(duration.Seconds())
}

func (m *TaggingMetrics) ObserveRun(outcome domain.TaggingOutcome, tagCount int, duration time.Duration) {
	m.runsTotal.WithLabelValues(m.service, string(outcome)).Inc()
	m.runDuration.WithLabelValues(m.service, string(outcome)).Observe(duration.Seconds())
	if outcome != domain.OutcomeFailed {
		m.tagsPerPhoto.WithLabelValues(m.service).Observe(float64(tagCount))
	}
}

// ObserveBreakerState matches resilience.Config.OnStateChange.
func (m *TaggingMetrics) ObserveBreakerState(operation, _, to string) {
	value := 0.0
	switch to {
	case "open":
		value = 1
	case "half-open":
		value = 0.5
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(value)
}
