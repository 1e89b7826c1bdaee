package crust

import (
	"github.com/WelcomerTeam/Crust/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EventMetrics tracks event-related metrics
var EventMetrics = struct {
	EventsTotal    *prometheus.CounterVec
	GatewayLatency *prometheus.GaugeVec
}{
	EventsTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crust_events_total",
			Help: "Total number of dispatch events processed, split by client and event type",
		},
		[]string{"client", "event_type"},
	),
	GatewayLatency: promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crust_gateway_latency_seconds",
			Help: "Gateway latency in seconds, averaged over recent heartbeats",
		},
		[]string{"client"},
	),
}

func RecordEvent(client, eventType string) {
	EventMetrics.EventsTotal.WithLabelValues(client, eventType).Inc()
}

func UpdateGatewayLatency(client string, latency float64) {
	EventMetrics.GatewayLatency.WithLabelValues(client).Set(latency)
}

// GatewayMetrics tracks connection-related metrics
var GatewayMetrics = struct {
	Status     *prometheus.GaugeVec
	Reconnects *prometheus.CounterVec
}{
	Status: promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crust_gateway_status",
			Help: "Status of the gateway connection",
		},
		[]string{"client"},
	),
	Reconnects: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crust_gateway_reconnects_total",
			Help: "Total number of reconnect attempts",
		},
		[]string{"client"},
	),
}

func UpdateGatewayStatus(client string, status GatewayStatus) {
	GatewayMetrics.Status.WithLabelValues(client).Set(float64(status))
}

func RecordReconnect(client string) {
	GatewayMetrics.Reconnects.WithLabelValues(client).Inc()
}

// StateMetrics tracks state-related metrics
var StateMetrics = struct {
	Servers        prometheus.Gauge
	Channels       prometheus.Gauge
	Users          prometheus.Gauge
	Members        prometheus.Gauge
	DirectMessages prometheus.Gauge
	CachedMessages prometheus.Gauge
	VoiceSessions  prometheus.Gauge
}{
	Servers: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crust_state_servers",
			Help: "Total number of servers in state",
		},
	),
	Channels: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crust_state_channels",
			Help: "Total number of server channels in state",
		},
	),
	Users: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crust_state_users",
			Help: "Total number of users in state",
		},
	),
	Members: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crust_state_members",
			Help: "Total number of server members in state",
		},
	),
	DirectMessages: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crust_state_direct_messages",
			Help: "Total number of direct message channels in state",
		},
	),
	CachedMessages: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crust_message_cache_size",
			Help: "Total number of cached messages",
		},
	),
	VoiceSessions: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crust_voice_sessions_active",
			Help: "Number of active voice sessions",
		},
	),
}

func UpdateStateMetrics(counts state.Counts, cachedMessages int) {
	StateMetrics.Servers.Set(float64(counts.Servers))
	StateMetrics.Channels.Set(float64(counts.Channels))
	StateMetrics.Users.Set(float64(counts.Users))
	StateMetrics.Members.Set(float64(counts.Members))
	StateMetrics.DirectMessages.Set(float64(counts.DirectMessages))
	StateMetrics.CachedMessages.Set(float64(cachedMessages))
}

func UpdateVoiceSessions(count int) {
	StateMetrics.VoiceSessions.Set(float64(count))
}
