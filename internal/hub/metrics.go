package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide hub metrics, exposed through the server's /metrics endpoint.
var (
	metricActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "beacon",
		Name:      "active_connections",
		Help:      "Number of currently registered connections.",
	})

	metricRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "beacon",
		Name:      "rooms",
		Help:      "Number of rooms known to the directory.",
	})

	metricMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beacon",
		Name:      "messages_total",
		Help:      "Chat messages routed by the coordinator, by scope.",
	}, []string{"scope"})

	metricDroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beacon",
		Name:      "dropped_frames_total",
		Help:      "Outbound frames dropped because a client buffer was full or gone.",
	})

	metricTelemetryEmits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beacon",
		Name:      "telemetry_emits_total",
		Help:      "Telemetry snapshots pushed to streaming subscribers.",
	})
)

const (
	scopeGlobal  = "global"
	scopeRoom    = "room"
	scopePrivate = "private"
)
