package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StoreWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_store_writes_total",
			Help: "Profile writes by operation and result",
		},
		[]string{"op", "result"},
	)
	StoreNotifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_store_notifications_total",
			Help: "Change notifications received from the broker",
		},
	)
)

func init() {
	prometheus.MustRegister(StoreWrites)
	prometheus.MustRegister(StoreNotifications)
}

func writeResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
