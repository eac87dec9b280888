package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the relay. All methods are
// safe on a nil receiver, so components can record unconditionally whether
// or not metrics were configured.
type Metrics struct {
	framesOffered     prometheus.Counter
	framesDropped     prometheus.Counter
	framesTransmitted prometheus.Counter
	bytesTransmitted  prometheus.Counter
	noClientDrops     prometheus.Counter
	pingsReceived     prometheus.Counter
	transportErrors   *prometheus.CounterVec
	connectsTotal     prometheus.Counter
	replacementsTotal prometheus.Counter
	clientConnected   prometheus.Gauge
}

// NewMetrics creates the relay collectors registered with the given
// registry. A nil registry uses prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	const namespace = "relay"

	return &Metrics{
		framesOffered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_offered_total",
			Help:      "Total frames offered to the active session's send queue",
		}),

		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total frames evicted by the drop-oldest queue policy",
		}),

		framesTransmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_transmitted_total",
			Help:      "Total frames fully written to the client socket",
		}),

		bytesTransmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_transmitted_total",
			Help:      "Total bytes written to the client socket",
		}),

		noClientDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_client_broadcasts_total",
			Help:      "Broadcasts that were a no-op because no client was connected",
		}),

		pingsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_received_total",
			Help:      "Inbound ping frames observed on the receive loop",
		}),

		transportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Session read/write errors by operation",
		}, []string{"op"}),

		connectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_connects_total",
			Help:      "Total accepted client connections",
		}),

		replacementsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_replacements_total",
			Help:      "Connections that evicted a prior active client",
		}),

		clientConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "client_connected",
			Help:      "1 when a client session is alive, 0 otherwise",
		}),
	}
}

// RecordOffered records a frame offered to the send queue.
func (m *Metrics) RecordOffered() {
	if m != nil {
		m.framesOffered.Inc()
	}
}

// RecordDropped records a frame evicted at capacity.
func (m *Metrics) RecordDropped() {
	if m != nil {
		m.framesDropped.Inc()
	}
}

// RecordTransmitted records a frame written to the socket.
func (m *Metrics) RecordTransmitted(bytes int) {
	if m != nil {
		m.framesTransmitted.Inc()
		m.bytesTransmitted.Add(float64(bytes))
	}
}

// RecordNoClientDrop records a broadcast with no client connected.
func (m *Metrics) RecordNoClientDrop() {
	if m != nil {
		m.noClientDrops.Inc()
	}
}

// RecordPing records an inbound ping frame.
func (m *Metrics) RecordPing() {
	if m != nil {
		m.pingsReceived.Inc()
	}
}

// RecordTransportError records a read or write failure.
func (m *Metrics) RecordTransportError(op string) {
	if m != nil {
		m.transportErrors.WithLabelValues(op).Inc()
	}
}

// RecordConnect records an accepted connection, replaced reports whether it
// evicted a prior client.
func (m *Metrics) RecordConnect(replaced bool) {
	if m != nil {
		m.connectsTotal.Inc()
		if replaced {
			m.replacementsTotal.Inc()
		}
		m.clientConnected.Set(1)
	}
}

// RecordDisconnect records the active session going away.
func (m *Metrics) RecordDisconnect() {
	if m != nil {
		m.clientConnected.Set(0)
	}
}
