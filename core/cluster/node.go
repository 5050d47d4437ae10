package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/mbox-go/core/ds"
	"github.com/codewandler/mbox-go/core/sf"
)

type (
	NodeOptions struct {
		Log       *slog.Logger
		ID        PeerID // random if nil
		Name      string // label for logs and metrics
		Transport Transport
		Metrics   ClusterMetrics
	}

	// Node is the local peer: its identity, its view of the other peers and
	// the cache of outbound streams towards them.
	Node struct {
		log     *slog.Logger
		id      PeerID
		name    string
		t       Transport
		metrics ClusterMetrics

		mu      sync.Mutex
		running bool
		subs    []Subscription
		sinks   map[PeerID]Sink
		peers   *ds.Set[PeerID]
		downFns map[uint64]func(PeerID)

		opens *sf.Singleflight[Sink]
		seq   atomic.Uint64
	}
)

func NewNode(opts NodeOptions) *Node {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	id := opts.ID
	if id.IsNil() {
		id = NewPeerID()
	}

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("node-%s", gonanoid.Must(6))
	}

	m := opts.Metrics
	if m == nil {
		m = NopClusterMetrics()
	}

	return &Node{
		log:     log.With(slog.String("node", name)),
		id:      id,
		name:    name,
		t:       opts.Transport,
		metrics: m,
		sinks:   make(map[PeerID]Sink),
		peers:   ds.NewSet[PeerID](),
		downFns: make(map[uint64]func(PeerID)),
		opens:   sf.New[Sink](),
	}
}

// ID returns the identity of the local peer.
func (n *Node) ID() PeerID { return n.id }

func (n *Node) Name() string { return n.name }

// Reachable reports whether peer can currently be reached. The local peer
// is reachable once the node runs.
func (n *Node) Reachable(peer PeerID) bool {
	if n.t == nil {
		return false
	}
	return n.t.Reachable(peer)
}

// Run attaches the node to its transport; every inbound frame is passed to h.
func (n *Node) Run(ctx context.Context, h InboundFunc) error {
	if n.t == nil {
		return ErrNoTransport
	}

	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return ErrNodeRunning
	}
	n.running = true
	n.mu.Unlock()

	n.log.Info("starting node", slog.String("peer", n.id.String()))

	watch := n.t.Watch(n.onPeerEvent)
	sub, err := n.t.Attach(ctx, n.id, func(from PeerID, frame []byte) {
		n.metrics.FrameReceived(len(frame))
		h(from, frame)
	})
	if err != nil {
		_ = watch.Unsubscribe()
		n.mu.Lock()
		n.running = false
		n.mu.Unlock()
		return fmt.Errorf("failed to attach peer %s: %w", n.id, err)
	}

	n.mu.Lock()
	n.subs = append(n.subs, watch, sub)
	n.mu.Unlock()

	context.AfterFunc(ctx, n.Close)
	return nil
}

// Stream returns the outbound stream towards peer, opening it on first use.
// Concurrent callers share a single open.
func (n *Node) Stream(ctx context.Context, peer PeerID) (Sink, error) {
	if n.t == nil {
		return nil, ErrNoTransport
	}

	n.mu.Lock()
	s, ok := n.sinks[peer]
	n.mu.Unlock()
	if ok {
		n.metrics.StreamEvent("reused")
		return s, nil
	}

	return n.opens.Do(peer.String(), func() (Sink, error) {
		raw, err := n.t.Open(ctx, n.id, peer)
		if err != nil {
			n.recordErr(err)
			return nil, err
		}
		s := &nodeSink{n: n, peer: peer, s: raw}
		n.mu.Lock()
		n.sinks[peer] = s
		n.mu.Unlock()
		n.metrics.StreamEvent("opened")
		n.log.Debug("stream opened", slog.String("peer", peer.String()))
		return s, nil
	})
}

// OnPeerDown registers fn to be called whenever a peer leaves.
func (n *Node) OnPeerDown(fn func(PeerID)) Subscription {
	id := n.seq.Add(1)
	n.mu.Lock()
	n.downFns[id] = fn
	n.mu.Unlock()
	return &watchSubscription{cancel: func() {
		n.mu.Lock()
		delete(n.downFns, id)
		n.mu.Unlock()
	}}
}

// Close detaches the node from the transport. It is safe to call more than once.
func (n *Node) Close() {
	n.mu.Lock()
	subs := n.subs
	n.subs = nil
	n.sinks = make(map[PeerID]Sink)
	n.running = false
	n.mu.Unlock()

	for _, s := range subs {
		_ = s.Unsubscribe()
	}
}

/* ---------------------- internals ---------------------- */

func (n *Node) onPeerEvent(ev PeerEvent) {
	n.mu.Lock()
	if ev.Up {
		n.peers.Add(ev.Peer)
	} else {
		n.peers.Remove(ev.Peer)
		delete(n.sinks, ev.Peer)
	}
	count := n.peers.Len()
	var fns []func(PeerID)
	if !ev.Up {
		fns = make([]func(PeerID), 0, len(n.downFns))
		for _, fn := range n.downFns {
			fns = append(fns, fn)
		}
	}
	n.mu.Unlock()

	n.metrics.PeersReachable(n.name, count)
	n.log.Debug("peer event", slog.String("peer", ev.Peer.String()), slog.Bool("up", ev.Up))

	for _, fn := range fns {
		fn(ev.Peer)
	}
}

func (n *Node) evict(peer PeerID, s Sink) {
	n.mu.Lock()
	if cur, ok := n.sinks[peer]; ok && cur == s {
		delete(n.sinks, peer)
		n.metrics.StreamEvent("evicted")
	}
	n.mu.Unlock()
}

func (n *Node) recordErr(err error) {
	switch {
	case errors.Is(err, ErrPeerUnreachable):
		n.metrics.TransportError("unreachable")
	case errors.Is(err, ErrTransportClosed):
		n.metrics.TransportError("closed")
	default:
		n.metrics.TransportError("write")
	}
}

// nodeSink drops itself from the stream cache once the transport reports
// the peer gone, so the next Stream call opens a fresh one.
type nodeSink struct {
	n    *Node
	peer PeerID
	s    Sink
}

func (s *nodeSink) Write(ctx context.Context, frame []byte) error {
	timer := s.n.metrics.FrameWriteDuration()
	err := s.s.Write(ctx, frame)
	timer.ObserveDuration()
	s.n.metrics.FrameWritten(err == nil)
	if err != nil {
		s.n.recordErr(err)
		if errors.Is(err, ErrPeerUnreachable) || errors.Is(err, ErrTransportClosed) {
			s.n.evict(s.peer, s)
		}
		return err
	}
	return nil
}
