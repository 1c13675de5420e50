// Package metrics exposes prometheus collectors fed by the agent's
// dispatch hooks.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/voxlane/vox/pkg/domain"
)

// Metrics holds the agent's prometheus collectors.
type Metrics struct {
	commands   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	spoolOps   *prometheus.CounterVec
	spoolDepth prometheus.Gauge
}

// New registers the collectors on reg and returns the set.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vox_commands_total",
				Help: "Total dispatched commands",
			},
			[]string{"method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "vox_dispatch_duration_seconds",
				Help: "Duration of command dispatches",
			},
			[]string{"method"},
		),
		spoolOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vox_spool_writes_total",
				Help: "Write spool activity",
			},
			[]string{"action", "kind"},
		),
		spoolDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vox_spool_depth",
				Help: "Pending writes waiting for reconciliation",
			},
		),
	}
	reg.MustRegister(m.commands, m.duration, m.spoolOps, m.spoolDepth)
	return m
}

// Hooks returns dispatch hooks that feed the collectors.
func (m *Metrics) Hooks() domain.DispatchHooks {
	return domain.DispatchHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			outcome := "ok"
			if !e.OK {
				outcome = e.ErrorType
			}
			m.commands.WithLabelValues(string(e.Method), outcome).Inc()
			m.duration.WithLabelValues(string(e.Method)).Observe(e.Duration.Seconds())
		},
		OnSpool: func(_ context.Context, e *domain.SpoolEvent) {
			m.spoolOps.WithLabelValues(string(e.Action), string(e.Kind)).Inc()
			if e.Depth >= 0 {
				m.spoolDepth.Set(float64(e.Depth))
			}
		},
	}
}
