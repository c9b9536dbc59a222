package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AutoCleared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wire_payments_auto_cleared_total",
		Help: "Payments transitioned to AUTO_CLEARED by the listing evaluator.",
	})

	ManualPostings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wire_payments_manual_postings_total",
		Help: "Manual posting attempts by outcome.",
	}, []string{"outcome"})

	Reversals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wire_payments_reversals_total",
		Help: "Reversal attempts by outcome.",
	}, []string{"outcome"})
)
