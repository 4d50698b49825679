package erl

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	spawnedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "erl",
			Subsystem: "process",
			Name:      "spawned_total",
			Help:      "The number of processes spawned.",
		})
	exitedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "erl",
			Subsystem: "process",
			Name:      "exited_total",
			Help:      "The number of processes that exited, by exit reason.",
		}, []string{"reason"})
	aliveGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "erl",
			Subsystem: "process",
			Name:      "alive",
			Help:      "The number of live processes, including the root process.",
		})
	sentCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "erl",
			Subsystem: "mailbox",
			Name:      "messages_sent_total",
			Help:      "The number of messages put into a mailbox.",
		})
	receivedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "erl",
			Subsystem: "mailbox",
			Name:      "messages_received_total",
			Help:      "The number of messages taken out of a mailbox by a receiver.",
		})
	receiveTimeoutCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "erl",
			Subsystem: "mailbox",
			Name:      "receive_timeouts_total",
			Help:      "The number of receives that ended in a timeout.",
		})
)

// InitMetrics registers all metrics in this file
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(spawnedCounter)
	registry.MustRegister(exitedCounter)
	registry.MustRegister(aliveGauge)
	registry.MustRegister(sentCounter)
	registry.MustRegister(receivedCounter)
	registry.MustRegister(receiveTimeoutCounter)
}
