package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	Connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Open websocket connections",
		},
	)
	MessagesIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_in_total",
			Help: "Inbound websocket messages by type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(Connections)
	prometheus.MustRegister(MessagesIn)
}
