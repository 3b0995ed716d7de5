package send

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultCompleted = "completed"
	resultFailed    = "failed"
	resultRetry     = "retry"
	resultStale     = "stale"
)

var relayMessages = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "outbox_relay_messages_total",
		Help: "Total number of outbox rows handled by the relay, by message type and result",
	},
	[]string{"type", "result"},
)
