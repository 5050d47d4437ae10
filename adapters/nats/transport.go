package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	natsgo "github.com/nats-io/nats.go"

	"github.com/codewandler/mbox-go/core/cluster"
	"github.com/codewandler/mbox-go/core/ds"
)

// HeaderFrom carries the sending peer of a frame.
const HeaderFrom = "Mbox-From"

type TransportConfig struct {
	Connect       Connector    // Connect is used to create the underlying NATS connection. If nil, ConnectDefault() is used.
	Log           *slog.Logger // Log for diagnostics (optional)
	SubjectPrefix string       // SubjectPrefix for peer subjects, e.g. "mbox" -> mbox.peer.<id>

	// PresenceInterval is how often attached peers are announced (default: 2s).
	PresenceInterval time.Duration
	// PresenceTimeout marks a remote peer down when it was not announced
	// for this long (default: 3 * PresenceInterval).
	PresenceTimeout time.Duration
}

// Transport connects peers through a NATS server. Frames for a peer are
// published on its own subject; attached peers announce themselves on a
// shared presence subject so every transport knows who is reachable.
type Transport struct {
	nc       *natsgo.Conn
	closeNc  closeFunc
	log      *slog.Logger
	prefix   string
	instance string

	interval time.Duration
	timeout  time.Duration

	mu       sync.Mutex
	local    map[cluster.PeerID]*localPeer
	remote   *ds.Map[cluster.PeerID, remotePeer]
	watchers map[uint64]func(cluster.PeerEvent)
	presence *natsgo.Subscription

	seq    atomic.Uint64
	closed atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

type localPeer struct {
	id  cluster.PeerID
	sub *natsgo.Subscription
}

type remotePeer struct {
	ID   cluster.PeerID
	Seen time.Time
}

// announcement is published on the presence subject.
type announcement struct {
	Peer     cluster.PeerID `json:"peer"`
	Up       bool           `json:"up"`
	Instance string         `json:"instance"`
	// Probe asks every transport to announce its peers right away.
	Probe bool `json:"probe,omitempty"`
}

func NewTransport(cfg TransportConfig) (*Transport, error) {
	connFn := cfg.Connect
	if connFn == nil {
		connFn = ConnectDefault()
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "mbox"
	}

	interval := cfg.PresenceInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := cfg.PresenceTimeout
	if timeout <= 0 {
		timeout = 3 * interval
	}

	nc, closeNc, err := connFn()
	if err != nil {
		return nil, err
	}

	instance := gonanoid.Must(10)
	t := &Transport{
		nc:       nc,
		closeNc:  closeNc,
		log:      log.With(slog.String("transport", "nats"), slog.String("instance", instance)),
		prefix:   prefix,
		instance: instance,
		interval: interval,
		timeout:  timeout,
		local:    make(map[cluster.PeerID]*localPeer),
		remote:   ds.NewMap(func(id cluster.PeerID) *remotePeer { return &remotePeer{ID: id} }),
		watchers: make(map[uint64]func(cluster.PeerEvent)),
		stop:     make(chan struct{}),
	}

	t.presence, err = nc.Subscribe(t.subjectPresence(), t.onPresence)
	if err != nil {
		closeNc()
		return nil, fmt.Errorf("nats: subscribe presence: %w", err)
	}

	t.publish(announcement{Instance: instance, Probe: true})

	t.wg.Add(1)
	go t.heartbeat()

	return t, nil
}

func (t *Transport) subjectPeer(p cluster.PeerID) string {
	return t.prefix + ".peer." + p.String()
}

func (t *Transport) subjectPresence() string {
	return t.prefix + ".presence"
}

func (t *Transport) Attach(ctx context.Context, self cluster.PeerID, h cluster.InboundFunc) (cluster.Subscription, error) {
	if t.closed.Load() {
		return nil, cluster.ErrTransportClosed
	}

	t.mu.Lock()
	if _, ok := t.local[self]; ok {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", cluster.ErrAlreadyAttached, self)
	}

	sub, err := t.nc.Subscribe(t.subjectPeer(self), func(msg *natsgo.Msg) {
		from, err := cluster.ParsePeerID(msg.Header.Get(HeaderFrom))
		if err != nil {
			t.log.Error("dropping frame", slog.Any("error", fmt.Errorf("%w: %w", cluster.ErrInvalidFrame, err)))
			return
		}
		h(from, msg.Data)
	})
	if err != nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("nats: subscribe peer: %w", err)
	}
	p := &localPeer{id: self, sub: sub}
	t.local[self] = p
	watchers := t.copyWatchersLocked()
	t.mu.Unlock()

	// the subscription must be known to the server before peers learn about it
	if err := t.nc.Flush(); err != nil {
		t.log.Warn("flush failed", slog.Any("error", err))
	}
	t.announce(self, true)
	t.log.Debug("attached", slog.String("peer", self.String()))
	notify(watchers, cluster.PeerEvent{Peer: self, Up: true})

	s := &subscription{t: t, p: p}
	context.AfterFunc(ctx, func() {
		_ = s.Unsubscribe()
	})
	return s, nil
}

func (t *Transport) Open(_ context.Context, from, to cluster.PeerID) (cluster.Sink, error) {
	if t.closed.Load() {
		return nil, cluster.ErrTransportClosed
	}
	if !t.Reachable(to) {
		return nil, fmt.Errorf("%w: %s", cluster.ErrPeerUnreachable, to)
	}
	return &sink{t: t, from: from, to: to, subject: t.subjectPeer(to)}, nil
}

func (t *Transport) Reachable(peer cluster.PeerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.local[peer]; ok {
		return true
	}
	return t.remote.Has(peer)
}

func (t *Transport) Watch(fn func(cluster.PeerEvent)) cluster.Subscription {
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

// Close detaches all local peers and releases the connection.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.stop)
	t.wg.Wait()

	t.mu.Lock()
	peers := make([]*localPeer, 0, len(t.local))
	for _, p := range t.local {
		peers = append(peers, p)
	}
	t.mu.Unlock()

	for _, p := range peers {
		t.detach(p)
	}
	_ = t.presence.Unsubscribe()

	if t.nc != nil {
		_ = t.nc.Flush()
		t.closeNc()
	}
	t.log.Debug("closed")
	return nil
}

/* ---------------------- internals ---------------------- */

func (t *Transport) detach(p *localPeer) {
	t.mu.Lock()
	if cur, ok := t.local[p.id]; !ok || cur != p {
		t.mu.Unlock()
		return
	}
	delete(t.local, p.id)
	watchers := t.copyWatchersLocked()
	t.mu.Unlock()

	_ = p.sub.Unsubscribe()
	t.announce(p.id, false)
	t.log.Debug("detached", slog.String("peer", p.id.String()))
	notify(watchers, cluster.PeerEvent{Peer: p.id, Up: false})
}

func (t *Transport) announce(peer cluster.PeerID, up bool) {
	t.publish(announcement{Peer: peer, Up: up, Instance: t.instance})
}

func (t *Transport) publish(a announcement) {
	b, err := json.Marshal(a)
	if err != nil {
		t.log.Error("encode announcement", slog.Any("error", err))
		return
	}
	if err := t.nc.Publish(t.subjectPresence(), b); err != nil {
		t.log.Warn("announce failed", slog.String("peer", a.Peer.String()), slog.Any("error", err))
	}
}

func (t *Transport) announceLocal() {
	t.mu.Lock()
	ids := make([]cluster.PeerID, 0, len(t.local))
	for id := range t.local {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	for _, id := range ids {
		t.announce(id, true)
	}
}

func (t *Transport) onPresence(msg *natsgo.Msg) {
	var a announcement
	if err := json.Unmarshal(msg.Data, &a); err != nil {
		t.log.Error("dropping announcement", slog.Any("error", err))
		return
	}
	if a.Instance == t.instance {
		return
	}
	if a.Probe {
		t.announceLocal()
		return
	}
	if a.Peer.IsNil() {
		return
	}

	key := a.Peer.String()
	t.mu.Lock()
	known := t.remote.Has(a.Peer)
	if a.Up {
		t.remote.Ensure(a.Peer).Seen = time.Now()
	} else {
		t.remote.Remove(a.Peer)
	}
	watchers := t.copyWatchersLocked()
	t.mu.Unlock()

	switch {
	case a.Up && !known:
		t.log.Debug("peer up", slog.String("peer", key))
		notify(watchers, cluster.PeerEvent{Peer: a.Peer, Up: true})
		// newcomers learn about us without waiting for the next heartbeat
		t.announceLocal()
	case !a.Up && known:
		t.log.Debug("peer down", slog.String("peer", key))
		notify(watchers, cluster.PeerEvent{Peer: a.Peer, Up: false})
	}
}

func (t *Transport) heartbeat() {
	defer t.wg.Done()
	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-tick.C:
		}
		t.announceLocal()
		t.expire(time.Now().Add(-t.timeout))
	}
}

func (t *Transport) expire(before time.Time) {
	t.mu.Lock()
	var gone []cluster.PeerID
	for id, p := range t.remote.All() {
		if p.Seen.Before(before) {
			gone = append(gone, id)
			t.remote.Remove(id)
		}
	}
	watchers := t.copyWatchersLocked()
	t.mu.Unlock()

	for _, id := range gone {
		t.log.Debug("peer expired", slog.String("peer", id.String()))
		notify(watchers, cluster.PeerEvent{Peer: id, Up: false})
	}
}

func (t *Transport) copyWatchersLocked() []func(cluster.PeerEvent) {
	out := make([]func(cluster.PeerEvent), 0, len(t.watchers))
	for _, fn := range t.watchers {
		out = append(out, fn)
	}
	return out
}

func notify(watchers []func(cluster.PeerEvent), ev cluster.PeerEvent) {
	for _, fn := range watchers {
		fn(ev)
	}
}

type sink struct {
	t       *Transport
	from    cluster.PeerID
	to      cluster.PeerID
	subject string
}

func (s *sink) Write(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.t.closed.Load() {
		return cluster.ErrTransportClosed
	}
	if !s.t.Reachable(s.to) {
		return fmt.Errorf("%w: %s", cluster.ErrPeerUnreachable, s.to)
	}

	msg := natsgo.NewMsg(s.subject)
	msg.Header.Set(HeaderFrom, s.from.String())
	msg.Data = frame
	if err := s.t.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats: publish: %w", err)
	}
	return nil
}

type subscription struct {
	t    *Transport
	p    *localPeer
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

var _ cluster.Transport = &Transport{}
