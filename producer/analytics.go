package producer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ForwarderMetrics struct {
	Published *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
}

var forwarderMetrics = ForwarderMetrics{
	Published: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crust_producer_published_total",
		Help: "Events published to the message queue",
	}, []string{"producer", "event_type"}),
	Failed: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crust_producer_failures_total",
		Help: "Events that failed to publish",
	}, []string{"producer", "event_type"}),
	Dropped: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crust_producer_dropped_total",
		Help: "Events dropped because the forwarding queue was full",
	}, []string{"producer"}),
}
