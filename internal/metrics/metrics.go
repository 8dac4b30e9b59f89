// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesSent counts framed buffers handed to the transport, by
	// addressing mode.
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewsync_messages_sent_total",
		Help: "Framed game-data buffers handed to the transport, by addressing mode.",
	}, []string{"mode"})

	// RoutingSkips counts sweep recipients skipped because their
	// character had no resolvable connection.
	RoutingSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewsync_routing_skips_total",
		Help: "Sweep recipients skipped due to unresolvable connections.",
	})

	// DeliveryFailures counts sends the transport reported as failed.
	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewsync_delivery_failures_total",
		Help: "Sends the transport reported as failed.",
	})
)

// Addressing mode labels.
const (
	ModeBroadcast = "broadcast"
	ModeTargeted  = "targeted"
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
