package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chefmate"

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	registry *prometheus.Registry

	Turns            *prometheus.CounterVec
	TurnDuration     *prometheus.HistogramVec
	TurnsInFlight    prometheus.Gauge
	SearchCalls      *prometheus.CounterVec
	SearchDuration   prometheus.Histogram
	VoiceTransitions *prometheus.CounterVec
	Events           *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry, so tests and
// multiple servers in one process don't collide on the global one.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Settled turns by intent and outcome.",
		}, []string{"intent", "outcome"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time from input to settled outcome.",
			Buckets:   []float64{.005, .05, .25, 1, 2.5, 5, 10, 30},
		}, []string{"intent"}),
		TurnsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "turns_in_flight",
			Help:      "Turns currently waiting on the search service.",
		}),
		SearchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_calls_total",
			Help:      "Search service calls by request kind and result.",
		}, []string{"kind", "result"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search service latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		VoiceTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_transitions_total",
			Help:      "Voice session state changes.",
		}, []string{"from", "to"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Render events emitted, by type.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		m.Turns, m.TurnDuration, m.TurnsInFlight,
		m.SearchCalls, m.SearchDuration,
		m.VoiceTransitions, m.Events,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry exposes the private registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(string(e.Intent.Kind), string(e.Outcome)).Inc()
			m.TurnDuration.WithLabelValues(string(e.Intent.Kind)).Observe(e.Duration.Seconds())
		},
		OnSearchCall: func(ctx context.Context, e *domain.SearchEvent) {
			m.TurnsInFlight.Inc()
		},
		OnSearchReturn: func(ctx context.Context, e *domain.SearchEvent) {
			m.TurnsInFlight.Dec()
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.SearchCalls.WithLabelValues(requestKind(e.Request), result).Inc()
			m.SearchDuration.Observe(e.Duration.Seconds())
		},
		OnVoiceTransition: func(ctx context.Context, e *domain.VoiceEvent) {
			m.VoiceTransitions.WithLabelValues(e.From, e.To).Inc()
		},
	}
}

// Sink counts emitted events. Processing toggles are not counted.
func (m *Metrics) Sink() ports.EventSink {
	return ports.EventSinkFunc(func(ctx context.Context, e domain.Event) {
		if e.Type == domain.EventProcessingChanged {
			return
		}
		m.Events.WithLabelValues(string(e.Type)).Inc()
	})
}

func requestKind(req domain.SearchRequest) string {
	switch {
	case req.IsModification:
		return "modify"
	case req.IsFollowUp:
		return "follow_up"
	default:
		return "search"
	}
}
