// Package metrics exposes Prometheus collectors for index rebuilds and jumps.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rebuild outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeUnchanged = "unchanged"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	jumps           *prometheus.CounterVec
	notes           prometheus.Gauge
	links           prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		rebuilds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zettelnav_index_rebuilds_total",
			Help: "Index rebuilds by outcome",
		}, []string{"outcome"}),
		rebuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zettelnav_index_rebuild_duration_seconds",
			Help:    "Time spent rebuilding the index",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		jumps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zettelnav_jumps_total",
			Help: "Jump requests by result kind",
		}, []string{"result"}),
		notes: f.NewGauge(prometheus.GaugeOpts{
			Name: "zettelnav_index_notes",
			Help: "Notes in the current index",
		}),
		links: f.NewGauge(prometheus.GaugeOpts{
			Name: "zettelnav_index_links",
			Help: "Links in the current index",
		}),
	}
}

// ObserveRebuild records one rebuild attempt.
func (m *Metrics) ObserveRebuild(outcome string, d time.Duration) {
	m.rebuilds.WithLabelValues(outcome).Inc()
	if outcome != OutcomeUnchanged {
		m.rebuildDuration.Observe(d.Seconds())
	}
}

// SetIndexSize updates the note and link gauges.
func (m *Metrics) SetIndexSize(notes, links int) {
	m.notes.Set(float64(notes))
	m.links.Set(float64(links))
}

// ObserveJump records a jump result, labelled by target or error kind.
func (m *Metrics) ObserveJump(result string) {
	m.jumps.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
