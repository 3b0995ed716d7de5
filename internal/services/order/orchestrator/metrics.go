package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sagaTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "order_saga_transitions_total",
		Help: "Total number of saga leg transitions applied by the order service",
	},
	[]string{"saga", "event", "status"},
)
