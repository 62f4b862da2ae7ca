package profiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exposed on the /metrics endpoint, incremented by the daemon's
// repository event handlers.
var (
	ProposalsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lumenvault",
		Name:      "proposals_created_total",
		Help:      "Number of proposals created.",
	})
	ProposalsApproved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lumenvault",
		Name:      "proposals_approved_total",
		Help:      "Number of proposals that reached their approval threshold.",
	})
	ProposalsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lumenvault",
		Name:      "proposals_executed_total",
		Help:      "Number of proposals successfully broadcast to the network.",
	})
)
