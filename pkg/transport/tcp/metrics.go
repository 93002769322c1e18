package tcp

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// ConnectionsInbound is the total number of incoming connections.
	ConnectionsInbound prometheus.Counter

	// ConnectionsOutbound is the total number of outgoing connections.
	ConnectionsOutbound prometheus.Counter

	// BytesInbound is the total number of read bytes.
	BytesInbound prometheus.Counter

	// BytesOutbound is the total number of written bytes.
	BytesOutbound prometheus.Counter

	// RequestErrors is the total number of failed requests, labelled by
	// message type and direction.
	RequestErrors *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionsInbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "transport",
				Name:      "connections_inbound_total",
				Help:      "Total number of incoming connections",
			},
		),
		ConnectionsOutbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "transport",
				Name:      "connections_outbound_total",
				Help:      "Total number of outgoing connections",
			},
		),
		BytesInbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "transport",
				Name:      "bytes_inbound_total",
				Help:      "Total number of read bytes",
			},
		),
		BytesOutbound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "transport",
				Name:      "bytes_outbound_total",
				Help:      "Total number of written bytes",
			},
		),
		RequestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "epidemic",
				Subsystem: "transport",
				Name:      "request_errors_total",
				Help:      "Total number of failed requests",
			},
			[]string{"message_type", "direction"},
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.ConnectionsInbound,
		m.ConnectionsOutbound,
		m.BytesInbound,
		m.BytesOutbound,
		m.RequestErrors,
	)
}
