package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectedClients is the number of live websocket connections.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_connected_clients",
		Help: "Number of live websocket connections.",
	})

	// ActiveRooms is the number of rooms with at least one member.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_active_rooms",
		Help: "Number of rooms with at least one member.",
	})

	// MessagesTotal counts inbound messages by kind.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_messages_total",
		Help: "Inbound signaling messages by kind.",
	}, []string{"kind"})

	// RelayDrops counts targeted relays dropped because the target was
	// unknown or no longer live.
	RelayDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_relay_drops_total",
		Help: "Relays dropped due to an unknown or dead target.",
	})

	// TransmitFailures counts per-recipient send failures during
	// broadcasts and relays.
	TransmitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_transmit_failures_total",
		Help: "Per-recipient send failures.",
	})
)

// Handler exposes Prometheus metrics at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
