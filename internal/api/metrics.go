package api

import "github.com/prometheus/client_golang/prometheus"

// Collector exports the number of connected WebSocket clients.
func (h *Hub) Collector() prometheus.Collector {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "garagedoor",
			Name:      "websocket_clients",
			Help:      "Number of connected WebSocket status clients",
		},
		func() float64 { return float64(h.ClientCount()) },
	)
}
