// Package metrics defines the Prometheus collectors for payout operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Calculation outcomes. Failures use the CalculationError reason.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the payout collectors.
type Metrics struct {
	Calculations        *prometheus.CounterVec
	CalculationDuration prometheus.Histogram
	AdvanceRecovered    prometheus.Counter
	StatusTransitions   *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Calculations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "showpayouts",
			Name:      "calculations_total",
			Help:      "Payout calculations by outcome.",
		}, []string{"outcome"}),
		CalculationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "showpayouts",
			Name:      "calculation_duration_seconds",
			Help:      "Time to calculate and persist a show payout.",
			Buckets:   prometheus.DefBuckets,
		}),
		AdvanceRecovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "showpayouts",
			Name:      "advance_recovered_total",
			Help:      "Currency recovered from line items against person advances.",
		}),
		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "showpayouts",
			Name:      "status_transitions_total",
			Help:      "Payout status transitions by target status.",
		}, []string{"to"}),
	}
}

// Discard returns collectors registered nowhere, for callers that do not
// export metrics.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveRecovered adds a recovered amount. Negative amounts come from
// reversals and are not counted.
func (m *Metrics) ObserveRecovered(amount decimal.Decimal) {
	if amount.Sign() <= 0 {
		return
	}
	m.AdvanceRecovered.Add(amount.InexactFloat64())
}
