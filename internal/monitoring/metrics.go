package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	FetchedTotal    *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	ClassifiedTotal *prometheus.CounterVec
	LLMCallsTotal   *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		FetchedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "discovery_urls_fetched_total",
			Help: "The total number of candidate URLs fetched, by outcome",
		}, []string{"status"}), // 'ok', 'failed', 'skipped'
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "discovery_errors_total",
			Help: "The total number of per-URL errors, by kind",
		}, []string{"kind"}),
		ClassifiedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "discovery_pages_classified_total",
			Help: "The total number of pages classified, by label",
		}, []string{"label"}),
		LLMCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "discovery_llm_calls_total",
			Help: "The total number of model calls issued, by outcome",
		}, []string{"outcome"}), // 'ok', 'retried', 'failed'
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "discovery_runs_total",
			Help: "The total number of pipeline runs, by outcome",
		}, []string{"outcome"}),
	}
}

// All increment helpers tolerate a nil receiver so components can run
// without a metric set wired in (tests, library use).

func (m *Metrics) IncFetched(status string) {
	if m == nil {
		return
	}
	m.FetchedTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncClassified(label string) {
	if m == nil {
		return
	}
	m.ClassifiedTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) IncLLMCall(outcome string) {
	if m == nil {
		return
	}
	m.LLMCallsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRun(outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}
