package signer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// checkinsTotal counts per-forum check-in outcomes.
var checkinsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autosign_checkins_total",
		Help: "Total number of per-forum check-in attempts by outcome",
	},
	[]string{"outcome"},
)
