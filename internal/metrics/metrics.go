// Package metrics exposes the prometheus gauges/counters the rest of the
// module increments, served at /metrics by api.Server's router via promhttp —
// generalized from the single handshake-duration histogram the teacher's
// internal/federation package registered into a module-wide set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ofscp_http_request_duration_seconds",
		Help: "HTTP request latency by route and status code.",
	}, []string{"route", "method", "status"})

	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ofscp_websocket_connections",
		Help: "Number of currently open WebSocket connections.",
	})

	BroadcastDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ofscp_broadcast_drops_total",
		Help: "Envelopes dropped because a subscriber's queue was full.",
	})

	FederationOutboundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ofscp_federation_outbound_total",
		Help: "Outbound federation calls by remote domain and outcome.",
	}, []string{"remote_domain", "outcome"})
)
