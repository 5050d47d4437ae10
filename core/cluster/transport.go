package cluster

import (
	"context"
)

type Subscription interface {
	Unsubscribe() error
}

// InboundFunc consumes a frame that arrived for the local peer.
// Frames from the same sender arrive in the order they were written.
type InboundFunc = func(from PeerID, frame []byte)

// PeerEvent reports a membership change observed by a transport.
type PeerEvent struct {
	Peer PeerID
	Up   bool
}

// Sink is an ordered outbound byte stream towards one peer.
type Sink interface {
	// Write hands one frame to the transport. It does not wait for the
	// remote side to process the frame.
	Write(ctx context.Context, frame []byte) error
}

// Transport is the connectivity substrate: reliable, ordered frame delivery
// per peer plus a membership view.
type Transport interface {
	// Attach makes self reachable and routes frames addressed to it to h.
	// Unsubscribing the returned subscription detaches the peer.
	Attach(ctx context.Context, self PeerID, h InboundFunc) (Subscription, error)

	// Open returns a sink from one attached peer to another.
	// It fails with ErrPeerUnreachable if the target is not attached.
	Open(ctx context.Context, from, to PeerID) (Sink, error)

	// Reachable reports whether peer is currently attached.
	Reachable(peer PeerID) bool

	// Watch calls fn for every peer that comes up or goes down.
	Watch(fn func(PeerEvent)) Subscription

	Close() error
}
