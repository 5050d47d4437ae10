package mailbox

import "github.com/codewandler/mbox-go/core/metrics"

// MailboxMetrics defines the metrics interface for the mailbox layer.
// All methods are thread-safe.
type MailboxMetrics interface {
	// Registry
	MailboxesActive(count int)

	// Outbound: sent or dropped (unreachable, realm_mismatch)
	MessageSent(success bool)
	MessageDropped(reason string)

	// Inbound: delivered, not_found, realm_mismatch
	MessageDispatched(outcome string)
	HandlerDuration(mode string) metrics.Timer

	// Malformed frames and payloads
	ProtocolError()
}

// nopMailboxMetrics is a no-op implementation of MailboxMetrics.
type nopMailboxMetrics struct{}

func (nopMailboxMetrics) MailboxesActive(int) {}

func (nopMailboxMetrics) MessageSent(bool)      {}
func (nopMailboxMetrics) MessageDropped(string) {}

func (nopMailboxMetrics) MessageDispatched(string)             {}
func (nopMailboxMetrics) HandlerDuration(string) metrics.Timer { return metrics.NopTimer() }

func (nopMailboxMetrics) ProtocolError() {}

// NopMailboxMetrics returns a no-op MailboxMetrics implementation.
func NopMailboxMetrics() MailboxMetrics { return nopMailboxMetrics{} }
