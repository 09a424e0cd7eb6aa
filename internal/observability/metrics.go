package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the player-side Prometheus metrics.
type Metrics struct {
	// Rotations counts rotate-loop ticks (one tick = one item shown).
	Rotations prometheus.Counter

	// Reloads counts configuration reload transactions.
	// Labels: result (applied|failed)
	Reloads *prometheus.CounterVec

	// ReloadDuration measures reload transaction time in seconds.
	ReloadDuration prometheus.Histogram

	// SurfaceErrors counts render surface operation failures.
	// Labels: op (open|sync|show|reload|close)
	SurfaceErrors *prometheus.CounterVec

	// ContentItems is the current playlist length.
	ContentItems prometheus.Gauge

	// CurrentIndex is the playlist position currently shown.
	CurrentIndex prometheus.Gauge
}

// NewMetrics registers the player metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the player metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Rotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "marquee_rotations_total",
			Help: "Total number of rotation ticks (items shown)",
		}),

		Reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marquee_reloads_total",
				Help: "Total number of configuration reload transactions by result",
			},
			[]string{"result"},
		),

		ReloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "marquee_reload_duration_seconds",
			Help:    "Duration of configuration reload transactions in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),

		SurfaceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marquee_surface_errors_total",
				Help: "Total number of render surface operation failures by op",
			},
			[]string{"op"},
		),

		ContentItems: factory.NewGauge(prometheus.GaugeOpts{
			Name: "marquee_content_items",
			Help: "Number of items in the active playlist",
		}),

		CurrentIndex: factory.NewGauge(prometheus.GaugeOpts{
			Name: "marquee_current_index",
			Help: "Playlist position currently shown",
		}),
	}
}

// HubMetrics collects the hub-side Prometheus metrics.
type HubMetrics struct {
	// Requests counts HTTP requests by path and status code.
	Requests *prometheus.CounterVec

	// Players is the number of registered players.
	Players prometheus.Gauge
}

// NewHubMetrics registers the hub metrics with the default registry.
func NewHubMetrics() *HubMetrics {
	return NewHubMetricsWith(prometheus.DefaultRegisterer)
}

// NewHubMetricsWith registers the hub metrics with reg.
func NewHubMetricsWith(reg prometheus.Registerer) *HubMetrics {
	factory := promauto.With(reg)
	return &HubMetrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marquee_hub_requests_total",
				Help: "Total number of hub HTTP requests by path and status code",
			},
			[]string{"path", "code"},
		),

		Players: factory.NewGauge(prometheus.GaugeOpts{
			Name: "marquee_hub_players",
			Help: "Number of registered players",
		}),
	}
}
