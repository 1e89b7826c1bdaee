package voice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PacketMetrics tracks voice packet throughput.
var PacketMetrics = struct {
	Sent     prometheus.Counter
	Received prometheus.Counter
	Dropped  prometheus.Counter
}{
	Sent: promauto.NewCounter(prometheus.CounterOpts{
		Name: "crust_voice_packets_sent_total",
		Help: "Total number of voice packets sent",
	}),
	Received: promauto.NewCounter(prometheus.CounterOpts{
		Name: "crust_voice_packets_received_total",
		Help: "Total number of voice packets received and decrypted",
	}),
	Dropped: promauto.NewCounter(prometheus.CounterOpts{
		Name: "crust_voice_packets_dropped_total",
		Help: "Total number of received voice packets that could not be opened or decoded",
	}),
}

// EncoderMetrics tracks encoder processes.
var EncoderMetrics = struct {
	Spawned  prometheus.Counter
	Failures prometheus.Counter
}{
	Spawned: promauto.NewCounter(prometheus.CounterOpts{
		Name: "crust_voice_encoder_spawned_total",
		Help: "Total number of encoder processes started",
	}),
	Failures: promauto.NewCounter(prometheus.CounterOpts{
		Name: "crust_voice_encoder_failures_total",
		Help: "Total number of encoder processes that exited abnormally",
	}),
}
