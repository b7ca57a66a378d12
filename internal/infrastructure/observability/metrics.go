// Package observability provides Prometheus metrics for the chat socket,
// the notification fan-out and the cross-node relay.
//
// All metric operations are thread-safe. Methods on a nil *ChatMetrics are
// no-ops so components can run uninstrumented in tests.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "jobboard"
	chatSubsystem    = "chat"
)

// Delivery outcomes.
const (
	DeliveryDelivered = "delivered"
	DeliveryDropped   = "dropped"
	DeliveryFailed    = "failed"
)

// Relay directions.
const (
	RelayPublished = "published"
	RelayReceived  = "received"
	RelayFailed    = "failed"
)

// ChatMetrics holds every chat metric.
type ChatMetrics struct {
	// ConnectionsActive tracks open websocket connections on this node.
	ConnectionsActive prometheus.Gauge

	// EventsTotal counts inbound socket events.
	// Labels: event (join, startChat, sendMessage, unknown)
	EventsTotal *prometheus.CounterVec

	// ErrorsTotal counts chatError frames sent.
	// Labels: code (unauthorized, not_found, internal_error, bad_request, rate_limited)
	ErrorsTotal *prometheus.CounterVec

	// DeliveriesTotal counts per-room fan-out results.
	// Labels: outcome (delivered, dropped, failed)
	DeliveriesTotal *prometheus.CounterVec

	// RelayMessagesTotal counts envelopes crossing the node relay.
	// Labels: direction (published, received, failed)
	RelayMessagesTotal *prometheus.CounterVec
}

// NewChatMetrics creates the chat metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	factory := promauto.With(reg)
	return &ChatMetrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "connections_active",
			Help:      "Number of open chat websocket connections",
		}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "events_total",
			Help:      "Inbound chat socket events by type",
		}, []string{"event"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "errors_total",
			Help:      "chatError frames sent by code",
		}, []string{"code"}),
		DeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "deliveries_total",
			Help:      "Per-room notification deliveries by outcome",
		}, []string{"outcome"}),
		RelayMessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "relay_messages_total",
			Help:      "Cross-node relay envelopes by direction",
		}, []string{"direction"}),
	}
}

func (m *ChatMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Inc()
}

func (m *ChatMetrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
}

func (m *ChatMetrics) RecordEvent(event string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(event).Inc()
}

func (m *ChatMetrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(code).Inc()
}

// RecordDelivery records one room delivery. A room with no connections
// counts as dropped.
func (m *ChatMetrics) RecordDelivery(delivered, failed int) {
	if m == nil {
		return
	}
	if delivered == 0 && failed == 0 {
		m.DeliveriesTotal.WithLabelValues(DeliveryDropped).Inc()
		return
	}
	if delivered > 0 {
		m.DeliveriesTotal.WithLabelValues(DeliveryDelivered).Add(float64(delivered))
	}
	if failed > 0 {
		m.DeliveriesTotal.WithLabelValues(DeliveryFailed).Add(float64(failed))
	}
}

func (m *ChatMetrics) RecordRelay(direction string) {
	if m == nil {
		return
	}
	m.RelayMessagesTotal.WithLabelValues(direction).Inc()
}
