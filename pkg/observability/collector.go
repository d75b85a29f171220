package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/maquette/pkg/domain"
)

// Collector holds the Prometheus metrics for the correction loop. Obtain one
// with NewCollector and attach its Hooks to the agent.
type Collector struct {
	turns           *prometheus.CounterVec
	turnDuration    prometheus.Histogram
	observations    *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	budgetExhausted prometheus.Counter
}

// NewCollector builds a Collector and registers its metrics on reg. Passing
// the same registry twice panics, as with prometheus.MustRegister.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maquette_turns_total",
				Help: "Turns completed, labelled by error classification.",
			},
			[]string{"kind"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "maquette_turn_duration_seconds",
				Help:    "Wall time from script dispatch to verdict.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		observations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maquette_observations_total",
				Help: "Observations pulled from the host, by kind.",
			},
			[]string{"kind"},
		),
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maquette_sessions_total",
				Help: "Sessions reaching a terminal status.",
			},
			[]string{"status"},
		),
		budgetExhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "maquette_budget_exhausted_total",
				Help: "Sessions that failed because the retry budget ran out.",
			},
		),
	}
	reg.MustRegister(c.turns, c.turnDuration, c.observations, c.sessions, c.budgetExhausted)
	return c
}

// Hooks returns a LifecycleHooks set that feeds the collector. Merge it with
// any other hooks via domain.MergeLifecycleHooks.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			c.turns.WithLabelValues(string(e.Kind)).Inc()
			if e.Duration > 0 {
				c.turnDuration.Observe(e.Duration.Seconds())
			}
		},
		OnObservation: func(_ context.Context, e *domain.ObservationEvent) {
			c.observations.WithLabelValues(string(e.Kind)).Inc()
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			c.sessions.WithLabelValues(string(e.Status)).Inc()
			if e.FailureKind == domain.KindBudgetExhausted {
				c.budgetExhausted.Inc()
			}
		},
	}
}
