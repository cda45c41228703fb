package access

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Surface names which guard evaluated a navigation.
type Surface string

const (
	SurfaceServer Surface = "server"
	SurfaceClient Surface = "client"
)

// Metrics counts decisions. A nil *Metrics is a no-op.
type Metrics struct {
	decisions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		decisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_decisions_total",
				Help: "Route-access decisions by evaluating surface, action and reason",
			},
			[]string{"surface", "action", "reason"},
		),
	}
}

func (m *Metrics) Observe(s Surface, d Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(s), string(d.Action), string(d.Reason)).Inc()
}
