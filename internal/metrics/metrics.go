package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wallet_activity"

// Refresh holds the refresh coordinator instruments
type Refresh struct {
	Started    prometheus.Counter
	Superseded prometheus.Counter
	Completed  prometheus.Counter
	Published  *prometheus.CounterVec
	Summaries  prometheus.Gauge
	Duration   prometheus.Histogram
	FetchFails *prometheus.CounterVec
}

// NewRefresh creates the refresh instruments and registers them on reg (when non-nil)
func NewRefresh(reg prometheus.Registerer) *Refresh {
	m := &Refresh{
		Started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_started_total",
			Help:      "Refresh generations started.",
		}),
		Superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_superseded_total",
			Help:      "Refresh generations cancelled by a newer generation.",
		}),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_completed_total",
			Help:      "Refresh generations that ran to completion.",
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Summary snapshots published, by pass.",
		}, []string{"pass"}),
		Summaries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summaries",
			Help:      "Number of summaries in the latest published snapshot.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of completed refresh generations.",
			Buckets:   prometheus.DefBuckets,
		}),
		FetchFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Collaborator calls that failed and were treated as empty results.",
		}, []string{"source"}),
	}

	if reg != nil {
		reg.MustRegister(m.Started, m.Superseded, m.Completed, m.Published, m.Summaries, m.Duration, m.FetchFails)
	}
	return m
}

// Handler exposes the registry in the Prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
