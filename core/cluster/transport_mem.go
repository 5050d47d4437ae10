package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

type MemoryTransportOpts struct {
	// QueueSize is the per-peer inbound queue length (default: 1024).
	// Writers block while the queue of the target peer is full.
	QueueSize int
}

// MemoryTransport connects any number of in-process peers. A single instance
// plays the role of the network: every Node sharing it can reach every other.
type MemoryTransport struct {
	mu  sync.RWMutex
	log *slog.Logger

	closed bool

	peers    map[PeerID]*memPeer
	watchers map[uint64]func(PeerEvent)

	queueSize int
	seq       atomic.Uint64
	wg        sync.WaitGroup
}

type memFrame struct {
	from PeerID
	data []byte
}

type memPeer struct {
	id    PeerID
	h     InboundFunc
	queue chan memFrame
	done  chan struct{}
	once  sync.Once
}

func NewInMemoryTransport(opts ...MemoryTransportOpts) *MemoryTransport {
	var o MemoryTransportOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	return &MemoryTransport{
		log:       slog.New(slog.DiscardHandler),
		peers:     make(map[PeerID]*memPeer),
		watchers:  make(map[uint64]func(PeerEvent)),
		queueSize: o.QueueSize,
	}
}

func (t *MemoryTransport) WithLog(log *slog.Logger) *MemoryTransport {
	t.log = log.With(slog.String("transport", "mem"))
	return t
}

func (t *MemoryTransport) Attach(ctx context.Context, self PeerID, h InboundFunc) (Subscription, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTransportClosed
	}
	if _, ok := t.peers[self]; ok {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAttached, self)
	}

	p := &memPeer{
		id:    self,
		h:     h,
		queue: make(chan memFrame, t.queueSize),
		done:  make(chan struct{}),
	}
	t.peers[self] = p
	t.wg.Add(1)
	go t.pump(p)
	watchers := t.copyWatchersLocked()
	t.mu.Unlock()

	t.log.Debug("attached", slog.String("peer", self.String()))
	notify(watchers, PeerEvent{Peer: self, Up: true})

	s := &subscription{t: t, p: p}
	context.AfterFunc(ctx, func() {
		_ = s.Unsubscribe()
	})
	return s, nil
}

func (t *MemoryTransport) Open(_ context.Context, from, to PeerID) (Sink, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, ErrTransportClosed
	}
	p, ok := t.peers[to]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPeerUnreachable, to)
	}
	return &memSink{from: from, to: p}, nil
}

func (t *MemoryTransport) Reachable(peer PeerID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.peers[peer]
	return ok
}

func (t *MemoryTransport) Watch(fn func(PeerEvent)) Subscription {
	id := t.seq.Add(1)
	t.mu.Lock()
	t.watchers[id] = fn
	t.mu.Unlock()
	return &watchSubscription{cancel: func() {
		t.mu.Lock()
		delete(t.watchers, id)
		t.mu.Unlock()
	}}
}

// Close detaches every peer and waits until in-flight deliveries return.
// It must not be called from inside an InboundFunc.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	peers := make([]*memPeer, 0, len(t.peers))
	for id, p := range t.peers {
		peers = append(peers, p)
		delete(t.peers, id)
	}
	watchers := t.copyWatchersLocked()
	t.mu.Unlock()

	for _, p := range peers {
		p.stop()
		notify(watchers, PeerEvent{Peer: p.id, Up: false})
	}
	t.wg.Wait()

	t.log.Debug("closed")
	return nil
}

/* ---------------------- internals ---------------------- */

func (t *MemoryTransport) pump(p *memPeer) {
	defer t.wg.Done()
	for {
		// detach wins over queued frames
		select {
		case <-p.done:
			return
		default:
		}
		select {
		case <-p.done:
			return
		case f := <-p.queue:
			p.h(f.from, f.data)
		}
	}
}

func (t *MemoryTransport) detach(p *memPeer) {
	t.mu.Lock()
	if cur, ok := t.peers[p.id]; !ok || cur != p {
		t.mu.Unlock()
		return
	}
	delete(t.peers, p.id)
	watchers := t.copyWatchersLocked()
	t.mu.Unlock()

	p.stop()
	t.log.Debug("detached", slog.String("peer", p.id.String()))
	notify(watchers, PeerEvent{Peer: p.id, Up: false})
}

func (t *MemoryTransport) copyWatchersLocked() []func(PeerEvent) {
	out := make([]func(PeerEvent), 0, len(t.watchers))
	for _, fn := range t.watchers {
		out = append(out, fn)
	}
	return out
}

func notify(watchers []func(PeerEvent), ev PeerEvent) {
	for _, fn := range watchers {
		fn(ev)
	}
}

func (p *memPeer) stop() {
	p.once.Do(func() { close(p.done) })
}

type memSink struct {
	from PeerID
	to   *memPeer
}

func (s *memSink) Write(ctx context.Context, frame []byte) error {
	// frames are handed over by value
	data := make([]byte, len(frame))
	copy(data, frame)

	select {
	case <-s.to.done:
		return fmt.Errorf("%w: %s", ErrPeerUnreachable, s.to.id)
	default:
	}
	select {
	case <-s.to.done:
		return fmt.Errorf("%w: %s", ErrPeerUnreachable, s.to.id)
	case <-ctx.Done():
		return ctx.Err()
	case s.to.queue <- memFrame{from: s.from, data: data}:
		return nil
	}
}

type subscription struct {
	t    *MemoryTransport
	p    *memPeer
	once sync.Once
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.t.detach(s.p)
	})
	return nil
}

type watchSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *watchSubscription) Unsubscribe() error {
	s.once.Do(s.cancel)
	return nil
}

var _ Transport = (*MemoryTransport)(nil)
