package tieba

import (
	"github.com/sony/gobreaker"

	"github.com/tiebatools/autosign/internal/observability"
)

// breakerName identifies the single breaker guarding the platform.
const breakerName = "tieba"

// newBreaker creates the circuit breaker guarding the platform. A fully
// retried operation counts as one failure; sustained failures open the
// circuit and short-circuit the remaining work instead of burning the whole
// retry budget per call.
func newBreaker(cfg *BreakerConfig, logger observability.Logger) *gobreaker.CircuitBreaker {
	threshold := cfg.GetThreshold()
	timeout := cfg.GetTimeout()

	//nolint:gosec // threshold is validated positive and small
	thresholdU32 := uint32(threshold)

	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: thresholdU32,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= thresholdU32 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			tiebaBreakerTransitions.WithLabelValues(from.String(), to.String()).Inc()
		},
	}

	return gobreaker.NewCircuitBreaker(settings)
}
