package expiry

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts check outcomes.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_expiry_checks_total",
				Help: "Expiry notification checks by outcome.",
			},
			[]string{"outcome"},
		),
	}
	if err := reg.Register(m.outcomes); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(s Status) {
	m.outcomes.WithLabelValues(string(s)).Inc()
}
