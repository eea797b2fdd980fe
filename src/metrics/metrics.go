package metrics

import (
	"net/http"
	"time"

	"stock-screener/src/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the screener. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Retrieval
	ResolvedTotal   *prometheus.CounterVec   // labels: kind=price|fundamentals, source
	ProviderResults *prometheus.CounterVec   // labels: provider, outcome
	ProviderLatency *prometheus.HistogramVec // labels: provider
	CacheLookups    *prometheus.CounterVec   // labels: result=hit|miss|stale|error

	// Screener
	ScreenRuns     prometheus.Counter
	ScreenDuration prometheus.Histogram
	ScreenActions  *prometheus.CounterVec // labels: action

	// Watchlist
	WatchlistClients prometheus.Gauge
}

// -----------------------------------------------------------------------------

// NewMetrics builds the collectors on a private registry so several
// instances can coexist in one process.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ResolvedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_requests_resolved_total",
			Help: "Requests by the tier that finally served them",
		}, []string{"kind", "source"}),
		ProviderResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_provider_results_total",
			Help: "Provider calls by outcome",
		}, []string{"provider", "outcome"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "screener_provider_latency_seconds",
			Help:    "Provider call latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 9),
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		ScreenRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_batch_runs_total",
			Help: "Completed screener batch runs",
		}),
		ScreenDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_batch_duration_seconds",
			Help:    "Wall time of a screener batch",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ScreenActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_actions_total",
			Help: "Final actions emitted by the screener",
		}, []string{"action"}),
		WatchlistClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_watchlist_clients",
			Help: "Connected watchlist websocket clients",
		}),
	}

	m.Registry.MustRegister(
		m.ResolvedTotal,
		m.ProviderResults,
		m.ProviderLatency,
		m.CacheLookups,
		m.ScreenRuns,
		m.ScreenDuration,
		m.ScreenActions,
		m.WatchlistClients,
		collectors.NewGoCollector(),
	)
	return m
}

// -----------------------------------------------------------------------------

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// -----------------------------------------------------------------------------

func (m *Metrics) ObserveResolved(kind string, source models.MSourceTag) {
	if m == nil {
		return
	}
	m.ResolvedTotal.WithLabelValues(kind, string(source)).Inc()
}

// -----------------------------------------------------------------------------

func (m *Metrics) ObserveProvider(provider string, outcome models.MFetchKind, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderResults.WithLabelValues(provider, string(outcome)).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// -----------------------------------------------------------------------------

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// -----------------------------------------------------------------------------

func (m *Metrics) ObserveScreen(summary models.MScreenSummary) {
	if m == nil {
		return
	}
	m.ScreenRuns.Inc()
	m.ScreenDuration.Observe(summary.Elapsed)
	for action, n := range summary.ByAction {
		m.ScreenActions.WithLabelValues(string(action)).Add(float64(n))
	}
}

// -----------------------------------------------------------------------------

func (m *Metrics) SetWatchlistClients(n int) {
	if m == nil {
		return
	}
	m.WatchlistClients.Set(float64(n))
}
