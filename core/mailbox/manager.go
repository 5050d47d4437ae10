package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/codewandler/mbox-go/core/cluster"
	"github.com/codewandler/mbox-go/core/codec"
	"github.com/codewandler/mbox-go/core/perkey"
	"github.com/codewandler/mbox-go/internal/compress"
)

// Writer produces the payload of an outbound message.
type Writer func(w io.Writer) error

type (
	ManagerOptions struct {
		Log *slog.Logger

		// Realm of the manager (default: DefaultRealm). Managers exchanging
		// messages must share it.
		Realm Realm

		// Codec for typed mailbox arguments (default: codec.Default).
		Codec codec.Codec

		// Executor for Scheduled mailboxes. If nil the manager runs its own
		// perkey scheduler and closes it on Close.
		Executor Executor

		// ContextBufferSize is the initial queue capacity of each execution
		// context of the manager's own scheduler (default: 64). Queues grow
		// past it; it is ignored when Executor is set.
		ContextBufferSize int

		// CompressThreshold enables zstd for payloads of at least this many
		// bytes. Zero disables compression.
		CompressThreshold int

		// ReportUnreachable makes Send return cluster.ErrPeerUnreachable
		// instead of dropping the message.
		ReportUnreachable bool

		// OnProtocolError is called for malformed frames and payloads
		// received from a peer. The default logs the error.
		OnProtocolError func(from cluster.PeerID, err error)

		Metrics MailboxMetrics
	}

	// Manager connects the mailboxes of one node to the cluster: it sends
	// messages to addresses and dispatches inbound messages to the registry.
	Manager struct {
		log      *slog.Logger
		node     *cluster.Node
		realm    Realm
		codec    codec.Codec
		registry *Registry
		exec     Executor
		ownExec  *perkey.Scheduler[int]
		metrics  MailboxMetrics

		compressThreshold int
		reportUnreachable bool
		onProtocolError   func(from cluster.PeerID, err error)

		closed  atomic.Bool
		closeMu sync.Mutex
	}
)

// NewManager creates the manager for node. Call Run to start receiving.
func NewManager(node *cluster.Node, opts ManagerOptions) *Manager {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("node", node.Name()))

	realm := opts.Realm
	if realm == 0 {
		realm = DefaultRealm
	}

	c := opts.Codec
	if c == nil {
		c = codec.Default
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NopMailboxMetrics()
	}

	m := &Manager{
		log:               log,
		node:              node,
		realm:             realm,
		codec:             c,
		exec:              opts.Executor,
		metrics:           metrics,
		compressThreshold: opts.CompressThreshold,
		reportUnreachable: opts.ReportUnreachable,
		onProtocolError:   opts.OnProtocolError,
	}
	if m.exec == nil {
		m.ownExec = perkey.New[int](perkey.WithLogger(log), perkey.WithBufferSize(opts.ContextBufferSize))
		m.exec = m.ownExec
	}
	if m.onProtocolError == nil {
		m.onProtocolError = func(from cluster.PeerID, err error) {
			m.log.Error("protocol violation", slog.String("peer", from.String()), slog.Any("error", err))
		}
	}

	m.registry = NewRegistry(m.exec)
	m.registry.metrics = metrics
	m.registry.log = log
	m.registry.onError = m.callbackFailed

	return m
}

// Run binds the manager to its node as the consumer of inbound frames.
func (m *Manager) Run(ctx context.Context) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	return m.node.Run(ctx, m.handleInbound)
}

func (m *Manager) Node() *cluster.Node    { return m.node }
func (m *Manager) Realm() Realm           { return m.realm }
func (m *Manager) Codec() codec.Codec     { return m.codec }
func (m *Manager) Registry() *Registry    { return m.registry }
func (m *Manager) Metrics() MailboxMetrics { return m.metrics }

// Send writes the payload produced by w to the mailbox at addr. Sending to
// the nil address does nothing. Send returns once the message is handed to
// the transport; it never waits for delivery.
func (m *Manager) Send(ctx context.Context, addr Address, w Writer) error {
	if addr.IsNil() {
		return nil
	}
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if addr.realm != m.realm {
		m.metrics.MessageDropped("realm_mismatch")
		return fmt.Errorf("%w: %s, manager realm %s", ErrRealmMismatch, addr, m.realm)
	}

	var buf bytes.Buffer
	if err := w(&buf); err != nil {
		m.metrics.MessageSent(false)
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	payload := buf.Bytes()
	var flags byte
	if m.compressThreshold > 0 && len(payload) >= m.compressThreshold {
		c, err := compress.Compress(nil, payload)
		if err != nil {
			m.metrics.MessageSent(false)
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
		payload, flags = c, flagZstd
	}

	frame, err := appendFrame(make([]byte, 0, headerSize+len(payload)), addr.realm, addr.id, flags, payload)
	if err != nil {
		m.metrics.MessageSent(false)
		return err
	}

	sink, err := m.node.Stream(ctx, addr.peer)
	if err == nil {
		err = sink.Write(ctx, frame)
	}
	if err != nil {
		if errors.Is(err, cluster.ErrPeerUnreachable) && !m.reportUnreachable {
			m.metrics.MessageDropped("unreachable")
			m.log.Debug("dropping message for unreachable peer", slog.String("address", addr.String()))
			return nil
		}
		m.metrics.MessageSent(false)
		return fmt.Errorf("send to %s: %w", addr, err)
	}

	m.metrics.MessageSent(true)
	return nil
}

// Sync blocks until everything scheduled on execution context n before the
// call has run.
func (m *Manager) Sync(ctx context.Context, n int) error {
	if m.ownExec != nil {
		return m.ownExec.DoContext(ctx, n, func() error { return nil })
	}

	done := make(chan struct{})
	if err := m.exec.Go(n, func() { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches the manager from its node and stops the execution
// contexts it owns. Mailboxes still open stop receiving.
func (m *Manager) Close() {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.closed.Swap(true) {
		return
	}

	m.node.Close()
	if m.ownExec != nil {
		m.ownExec.Close()
	}
	m.log.Debug("manager closed")
}

/* ---------------------- internals ---------------------- */

func (m *Manager) handleInbound(from cluster.PeerID, frame []byte) {
	for len(frame) > 0 {
		h, payload, rest, err := readFrame(frame)
		if err != nil {
			// the remainder cannot be resynchronized
			m.protocolError(from, err)
			return
		}
		frame = rest

		if h.realm != m.realm {
			m.metrics.MessageDispatched("realm_mismatch")
			m.log.Debug("dropping message of foreign realm", slog.String("peer", from.String()), slog.String("realm", h.realm.String()))
			continue
		}

		if h.flags&flagZstd != 0 {
			payload, err = compress.Decompress(nil, payload)
			if err != nil {
				m.protocolError(from, fmt.Errorf("%w: %w", ErrDecode, err))
				continue
			}
		}

		outcome, err := m.registry.Dispatch(from, h.id, payload)
		m.metrics.MessageDispatched(outcome.String())
		if err != nil {
			m.callbackFailed(from, h.id, err)
		}
	}
}

func (m *Manager) callbackFailed(from cluster.PeerID, id ID, err error) {
	switch {
	case errors.Is(err, ErrCallbackPanicked):
		// already logged with its stack
	case errors.Is(err, perkey.ErrSchedulerClosed):
		m.log.Debug("dropping message, execution context closed", slog.Uint64("mailbox", uint64(id)))
	default:
		m.protocolError(from, fmt.Errorf("mailbox %d: %w", id, err))
	}
}

func (m *Manager) protocolError(from cluster.PeerID, err error) {
	m.metrics.ProtocolError()
	m.onProtocolError(from, err)
}

func (m *Manager) encodeArgs(args ...any) Writer {
	return func(w io.Writer) error {
		enc := m.codec.NewEncoder(w)
		for i, a := range args {
			if err := enc.Encode(a); err != nil {
				return fmt.Errorf("arg %d: %w", i, err)
			}
		}
		return nil
	}
}

func (m *Manager) decodeArgs(sig string, payload []byte, ptrs ...any) error {
	dec := m.codec.NewDecoder(payload)
	for i, p := range ptrs {
		if err := dec.Decode(p); err != nil {
			return fmt.Errorf("%w: %s arg %d: %w", ErrDecode, sig, i, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: %s", ErrTrailingBytes, sig)
	}
	return nil
}
