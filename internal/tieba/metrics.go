package tieba

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tiebaRequestsTotal counts individual request attempts by outcome.
	tiebaRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieba_requests_total",
			Help: "Total number of Tieba request attempts",
		},
		[]string{"operation", "status"},
	)

	// tiebaRequestDuration measures request attempt duration.
	tiebaRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tieba_request_duration_seconds",
			Help:    "Duration of Tieba request attempts in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// tiebaRetriesTotal counts retry attempts by failure class.
	tiebaRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieba_retries_total",
			Help: "Total number of Tieba retry attempts",
		},
		[]string{"operation", "class"},
	)

	// tiebaBreakerTransitions counts circuit breaker state transitions.
	tiebaBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieba_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)
)
