package analysis

import (
	"time"

	"logreplay/share"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what analyses do. One Metrics is shared by every run of a
// process.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
	links    *prometheus.CounterVec
	unknown  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logreplay",
				Name:      "analysis_runs_total",
				Help:      "Analyses by profile and outcome (ok, error, canceled).",
			},
			[]string{"profile", "outcome"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logreplay",
				Name:      "analysis_duration_seconds",
				Help:      "Wall time of one analysis.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"profile"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logreplay",
				Name:      "events_total",
				Help:      "Events read, skipped, written and fabricated.",
			},
			[]string{"kind"},
		),
		links: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logreplay",
				Name:      "links_total",
				Help:      "Links created by the link engine, per relation.",
			},
			[]string{"relation"},
		),
		unknown: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logreplay",
				Name:      "unknown_attributions_total",
				Help:      "Pool events no row claimed, per resource table.",
			},
			[]string{"table"},
		),
	}
}

func (m *Metrics) observe(profile string, r *Result, err error, elapsed time.Duration) {
	switch {
	case err == nil:
		m.runs.WithLabelValues(profile, "ok").Inc()
	case share.IsContextClosedError(err):
		m.runs.WithLabelValues(profile, "canceled").Inc()
		return
	default:
		m.runs.WithLabelValues(profile, "error").Inc()
		return
	}

	m.duration.WithLabelValues(profile).Observe(elapsed.Seconds())

	m.events.WithLabelValues("in").Add(float64(r.Statistic.EventsIn))
	m.events.WithLabelValues("skipped").Add(float64(r.Statistic.Skipped))
	m.events.WithLabelValues("out").Add(float64(r.Statistic.EventsOut))
	m.events.WithLabelValues("fabricated").Add(float64(r.Statistic.Fabricated))

	for rel, n := range r.LinkStats {
		m.links.WithLabelValues(string(rel)).Add(float64(n))
	}
	for _, a := range r.Attributions {
		m.unknown.WithLabelValues(a.Table).Add(float64(a.Unknown.Events))
	}
}
