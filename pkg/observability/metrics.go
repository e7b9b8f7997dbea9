// Package observability holds the Prometheus metrics and OpenTelemetry
// spans emitted while preparing meeting briefs.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "prepbrief"

// Resolution verdicts.
const (
	VerdictFirstTime        = "first_time"
	VerdictDirectFollowUp   = "direct_follow_up"
	VerdictHybrid           = "hybrid"
	VerdictOtherThreadsOnly = "other_threads_only"
)

// Verdict names the outcome of a resolution for metric labels.
func Verdict(isDirectFollowUp, hasOtherThreads bool) string {
	switch {
	case isDirectFollowUp && hasOtherThreads:
		return VerdictHybrid
	case isDirectFollowUp:
		return VerdictDirectFollowUp
	case hasOtherThreads:
		return VerdictOtherThreadsOnly
	default:
		return VerdictFirstTime
	}
}

// Metrics holds the Prometheus metrics for the prep service.
type Metrics struct {
	ResolutionsTotal        *prometheus.CounterVec
	SkipsTotal              *prometheus.CounterVec
	HistoryRowsSkippedTotal *prometheus.CounterVec
	SourceErrorsTotal       *prometheus.CounterVec
	DraftsTotal             *prometheus.CounterVec
	MessagesTotal           *prometheus.CounterVec
	ResolveSeconds          prometheus.Histogram
	DraftSeconds            prometheus.Histogram
}

// DefaultMetrics registers the metrics with the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "resolutions_total",
				Help:      "Meetings resolved, by continuity verdict",
			},
			[]string{"verdict"},
		),
		SkipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "skips_total",
				Help:      "Calendar events skipped before resolution, by reason",
			},
			[]string{"reason"},
		),
		HistoryRowsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "history_rows_skipped_total",
				Help:      "Brand-matching history rows left out of classification, by reason",
			},
			[]string{"reason"},
		),
		SourceErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "source_errors_total",
				Help:      "Failures of external sources, by source and error code",
			},
			[]string{"source", "code"},
		),
		DraftsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "drafts_total",
				Help:      "Brief drafts attempted, by status",
			},
			[]string{"status"},
		),
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "messages_total",
				Help:      "Briefs and admin notices sent by email, by kind and status",
			},
			[]string{"kind", "status"},
		),
		ResolveSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "resolve_seconds",
				Help:      "Time to classify a brand's history and assemble the context",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		DraftSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "draft_seconds",
				Help:      "Brief drafting latency",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 30, 60, 120},
			},
		),
	}
}

// RecordResolution records a completed resolution.
func (m *Metrics) RecordResolution(verdict string, seconds float64) {
	m.ResolutionsTotal.WithLabelValues(verdict).Inc()
	m.ResolveSeconds.Observe(seconds)
}

// RecordSkip records an event skipped by screening.
func (m *Metrics) RecordSkip(reason string) {
	m.SkipsTotal.WithLabelValues(reason).Inc()
}

// RecordRowSkipped records a history row excluded from classification.
func (m *Metrics) RecordRowSkipped(reason string) {
	m.HistoryRowsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordSourceError records a classified source failure.
func (m *Metrics) RecordSourceError(source, code string) {
	m.SourceErrorsTotal.WithLabelValues(source, code).Inc()
}

// RecordDraft records a drafting attempt.
func (m *Metrics) RecordDraft(status string, seconds float64) {
	m.DraftsTotal.WithLabelValues(status).Inc()
	m.DraftSeconds.Observe(seconds)
}

// RecordMessage records an attempt to email a brief or a notice.
func (m *Metrics) RecordMessage(kind, status string) {
	m.MessagesTotal.WithLabelValues(kind, status).Inc()
}
