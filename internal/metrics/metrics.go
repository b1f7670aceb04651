// Package metrics exposes prometheus collectors for assessments and matching.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "riasec"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	answers            *prometheus.CounterVec
	staleSubmissions   prometheus.Counter
	tieBreakInjected   *prometheus.CounterVec
	assessmentsDone    *prometheus.CounterVec
	jobsScored         *prometheus.CounterVec
	embeddingFailures  prometheus.Counter
	catalogReadErrors  prometheus.Counter
	scoringDuration    prometheus.Histogram
	recommendationSize prometheus.Histogram
}

// New registers all collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		answers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_submitted_total",
			Help:      "Answers accepted by the assessment engine by phase.",
		}, []string{"phase"}),
		staleSubmissions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_submissions_total",
			Help:      "Answers rejected because the session expected another question.",
		}),
		tieBreakInjected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiebreak_questions_injected_total",
			Help:      "Tie-breaker questions queued per category pair.",
		}, []string{"pair"}),
		assessmentsDone: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_finished_total",
			Help:      "Finalized assessments by resulting category code.",
		}, []string{"code"}),
		jobsScored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_scored_total",
			Help:      "Jobs scored by the matcher by outcome.",
		}, []string{"outcome"}),
		embeddingFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Job scorings that failed because the embedding provider returned an error.",
		}),
		catalogReadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_read_errors_total",
			Help:      "Job records skipped because they could not be read.",
		}),
		scoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_scoring_duration_seconds",
			Help:      "Time spent scoring a single job.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		recommendationSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommended_jobs",
			Help:      "Jobs returned per recommendation request.",
			Buckets:   prometheus.LinearBuckets(0, 5, 10),
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AnswerSubmitted(phase string) {
	if m != nil {
		m.answers.WithLabelValues(phase).Inc()
	}
}

func (m *Metrics) StaleSubmission() {
	if m != nil {
		m.staleSubmissions.Inc()
	}
}

func (m *Metrics) TieBreakInjected(pair string, n int) {
	if m != nil && n > 0 {
		m.tieBreakInjected.WithLabelValues(pair).Add(float64(n))
	}
}

func (m *Metrics) AssessmentFinished(code string) {
	if m != nil {
		m.assessmentsDone.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) JobScored(failed bool, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
		m.embeddingFailures.Inc()
	}
	m.jobsScored.WithLabelValues(outcome).Inc()
	m.scoringDuration.Observe(took.Seconds())
}

func (m *Metrics) CatalogReadError() {
	if m != nil {
		m.catalogReadErrors.Inc()
	}
}

func (m *Metrics) Recommended(jobs int) {
	if m != nil {
		m.recommendationSize.Observe(float64(jobs))
	}
}

// WriteTextfile writes the current values in the node exporter textfile
// format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
