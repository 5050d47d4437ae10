package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/mbox-go/core/mailbox"
	"github.com/codewandler/mbox-go/core/metrics"
)

// mailboxMetrics implements mailbox.MailboxMetrics using Prometheus.
type mailboxMetrics struct {
	mailboxesActive    prometheus.Gauge
	messagesSent       *prometheus.CounterVec
	messagesDropped    *prometheus.CounterVec
	messagesDispatched *prometheus.CounterVec
	handlerDuration    *prometheus.HistogramVec
	protocolErrors     prometheus.Counter
}

// NewMailboxMetrics creates a new Prometheus implementation of MailboxMetrics.
func NewMailboxMetrics(reg prometheus.Registerer) mailbox.MailboxMetrics {
	m := &mailboxMetrics{
		mailboxesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mbox_mailboxes_active",
			Help: "Number of registered mailboxes",
		}),

		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbox_messages_sent_total",
			Help: "Total number of messages handed to the transport",
		}, []string{"success"}),

		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbox_messages_dropped_total",
			Help: "Total number of outbound messages dropped",
		}, []string{"reason"}),

		messagesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbox_messages_dispatched_total",
			Help: "Total number of inbound messages by outcome",
		}, []string{"outcome"}),

		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mbox_handler_duration_seconds",
			Help:    "Mailbox callback execution time in seconds",
			Buckets: defaultBuckets,
		}, []string{"mode"}),

		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mbox_protocol_errors_total",
			Help: "Total number of malformed frames and payloads received",
		}),
	}

	reg.MustRegister(
		m.mailboxesActive,
		m.messagesSent,
		m.messagesDropped,
		m.messagesDispatched,
		m.handlerDuration,
		m.protocolErrors,
	)

	return m
}

func (m *mailboxMetrics) MailboxesActive(count int) {
	m.mailboxesActive.Set(float64(count))
}

func (m *mailboxMetrics) MessageSent(success bool) {
	m.messagesSent.WithLabelValues(boolToStr(success)).Inc()
}

func (m *mailboxMetrics) MessageDropped(reason string) {
	m.messagesDropped.WithLabelValues(reason).Inc()
}

func (m *mailboxMetrics) MessageDispatched(outcome string) {
	m.messagesDispatched.WithLabelValues(outcome).Inc()
}

func (m *mailboxMetrics) HandlerDuration(mode string) metrics.Timer {
	return newTimer(m.handlerDuration.WithLabelValues(mode))
}

func (m *mailboxMetrics) ProtocolError() {
	m.protocolErrors.Inc()
}

var _ mailbox.MailboxMetrics = (*mailboxMetrics)(nil)
