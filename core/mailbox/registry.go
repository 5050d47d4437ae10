package mailbox

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/codewandler/mbox-go/core/cluster"
)

// RawCallback receives the payload of one message. A non-nil error means
// the payload could not be understood and is reported as a protocol
// violation of the sending peer.
type RawCallback func(payload []byte) error

// Outcome is the result of dispatching a message to a mailbox id.
type Outcome int

const (
	// NotFound means no live mailbox holds the id. The message is dropped.
	NotFound Outcome = iota
	// Delivered means the callback ran (Inline) or was queued (Scheduled).
	Delivered
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	default:
		return "not_found"
	}
}

type entry struct {
	id   ID
	cb   RawCallback
	mode CallbackMode

	// run is held shared while the callback executes and exclusively while
	// the entry is closed; closed is guarded by it.
	run    sync.RWMutex
	closed bool
}

// Registry maps mailbox ids of one node to their callbacks. Lookups for an
// id that was never registered or has been deregistered always miss.
type Registry struct {
	mu      sync.RWMutex
	next    ID
	entries map[ID]*entry

	exec    Executor
	metrics MailboxMetrics
	log     *slog.Logger

	// onError receives callback errors of scheduled deliveries, together
	// with the peer the message came from.
	onError func(from cluster.PeerID, id ID, err error)
}

// NewRegistry creates an empty registry. Scheduled mailboxes run on exec;
// a nil exec makes scheduled dispatch fail with ErrNoExecutor.
func NewRegistry(exec Executor) *Registry {
	r := &Registry{
		entries: make(map[ID]*entry),
		exec:    exec,
		metrics: NopMailboxMetrics(),
		log:     slog.Default(),
	}
	r.onError = func(from cluster.PeerID, id ID, err error) {
		r.log.Error("scheduled callback failed",
			slog.String("peer", from.String()),
			slog.Uint64("mailbox", uint64(id)),
			slog.Any("error", err),
		)
	}
	return r
}

// Register installs cb under a fresh id.
func (r *Registry) Register(cb RawCallback, mode CallbackMode) ID {
	r.mu.Lock()
	r.next++
	id := r.next
	r.entries[id] = &entry{id: id, cb: cb, mode: mode}
	count := len(r.entries)
	r.mu.Unlock()

	r.metrics.MailboxesActive(count)
	return id
}

// Deregister removes id. When it returns, no callback of id is running and
// none will start; scheduled deliveries still queued are dropped when their
// turn comes. Deregister must not be called from inside the callback of id.
func (r *Registry) Deregister(id ID) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	count := len(r.entries)
	r.mu.Unlock()

	if !ok {
		return
	}
	r.metrics.MailboxesActive(count)

	// waits for running invocations
	e.run.Lock()
	e.closed = true
	e.run.Unlock()
}

// Dispatch hands payload, received from peer from, to the mailbox
// registered under id. For Inline mailboxes the callback error is returned;
// for Scheduled ones it is reported with from once the callback has run.
// Dispatch never waits for a scheduled callback.
func (r *Registry) Dispatch(from cluster.PeerID, id ID, payload []byte) (Outcome, error) {
	e := r.lookup(id)
	if e == nil {
		return NotFound, nil
	}

	if !e.mode.scheduled {
		return r.invoke(e, payload)
	}

	if r.exec == nil {
		return NotFound, ErrNoExecutor
	}
	err := r.exec.Go(e.mode.context, func() {
		if _, err := r.invoke(e, payload); err != nil {
			r.onError(from, e.id, err)
		}
	})
	if err != nil {
		return NotFound, fmt.Errorf("schedule on context %d: %w", e.mode.context, err)
	}
	return Delivered, nil
}

// Len returns the number of live mailboxes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) lookup(id ID) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

// invoke runs the callback unless the entry was closed in the meantime.
// No registry lock is held while the callback runs.
func (r *Registry) invoke(e *entry, payload []byte) (outcome Outcome, err error) {
	e.run.RLock()
	defer e.run.RUnlock()
	if e.closed {
		return NotFound, nil
	}

	defer r.metrics.HandlerDuration(e.mode.label()).ObserveDuration()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("mailbox callback panicked", slog.Any("recovered", rec), slog.String("stack", string(debug.Stack())))
			outcome, err = Delivered, fmt.Errorf("%w: %v", ErrCallbackPanicked, rec)
		}
	}()
	return Delivered, e.cb(payload)
}
