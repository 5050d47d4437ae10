package cluster

import (
	"fmt"

	"github.com/google/uuid"
)

// PeerID identifies a node for the lifetime of its process.
// The zero value is the nil peer.
type PeerID uuid.UUID

// NilPeer is the zero PeerID.
var NilPeer PeerID

// NewPeerID returns a fresh random peer identifier.
func NewPeerID() PeerID { return PeerID(uuid.New()) }

// ParsePeerID parses the canonical textual form produced by String.
func ParsePeerID(s string) (PeerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilPeer, fmt.Errorf("parse peer id %q: %w", s, err)
	}
	return PeerID(u), nil
}

// MustParsePeerID is like ParsePeerID but panics on error.
func MustParsePeerID(s string) PeerID {
	p, err := ParsePeerID(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p PeerID) IsNil() bool    { return p == NilPeer }
func (p PeerID) String() string { return uuid.UUID(p).String() }

func (p PeerID) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PeerID) UnmarshalText(b []byte) error {
	v, err := ParsePeerID(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p PeerID) MarshalBinary() ([]byte, error) {
	out := make([]byte, len(p))
	copy(out, p[:])
	return out, nil
}

func (p *PeerID) UnmarshalBinary(b []byte) error {
	if len(b) != len(p) {
		return fmt.Errorf("peer id: invalid length %d", len(b))
	}
	copy(p[:], b)
	return nil
}
