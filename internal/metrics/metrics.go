// Package metrics exposes playback engine counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lullaby"

// Metrics holds the engine collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	trackLoads     *prometheus.CounterVec
	tierChanges    *prometheus.CounterVec
	playbackErrors *prometheus.CounterVec
	buffering      prometheus.Gauge
	state          *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		trackLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "track_loads_total",
			Help:      "Track loads by selected quality tier",
		}, []string{"tier"}),
		tierChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_changes_total",
			Help:      "Quality tier changes detected by the adaptive loop",
		}, []string{"from", "to"}),
		playbackErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_errors_total",
			Help:      "Playback failures by error kind",
		}, []string{"kind"}),
		buffering: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffering",
			Help:      "1 while the buffered-ahead margin is below the threshold",
		}),
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_state",
			Help:      "1 for the current playback state",
		}, []string{"state"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TrackLoaded(tier string) {
	if m == nil {
		return
	}
	m.trackLoads.WithLabelValues(tier).Inc()
}

func (m *Metrics) TierChanged(from, to string) {
	if m == nil {
		return
	}
	m.tierChanges.WithLabelValues(from, to).Inc()
}

func (m *Metrics) PlaybackError(kind string) {
	if m == nil {
		return
	}
	m.playbackErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetBuffering(buffering bool) {
	if m == nil {
		return
	}
	if buffering {
		m.buffering.Set(1)
	} else {
		m.buffering.Set(0)
	}
}

// StateChanged moves the state gauge from prev to next.
func (m *Metrics) StateChanged(prev, next string) {
	if m == nil {
		return
	}
	if prev != "" {
		m.state.WithLabelValues(prev).Set(0)
	}
	m.state.WithLabelValues(next).Set(1)
}
