package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Completion outcomes.
const (
	OutcomeVerified     = "verified"
	OutcomeMissingToken = "missing_token"
	OutcomeInvalidToken = "invalid_token"
	OutcomeDegraded     = "degraded"
	OutcomeStoreFailure = "store_error"
)

type Metrics struct {
	completions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		completions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "verification_completions_total",
			Help: "Email verification completions by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(outcome).Inc()
}
