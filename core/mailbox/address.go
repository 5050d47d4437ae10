package mailbox

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/codewandler/mbox-go/core/cluster"
)

// ID identifies a mailbox within the registry of one node. Zero is never
// allocated.
type ID uint64

const (
	addressScheme = "mbox://"
	addressSize   = 16 + 8 + 8
)

// Address locates a mailbox anywhere in the cluster. It is a plain value:
// it holds no reference to the mailbox and stays valid, if useless, after
// the mailbox is closed. The zero Address is the nil address.
type Address struct {
	peer  cluster.PeerID
	id    ID
	realm Realm
}

// IsNil reports whether a is the nil address.
func (a Address) IsNil() bool { return a.id == 0 }

// Peer returns the node hosting the mailbox.
func (a Address) Peer() cluster.PeerID { return a.peer }

func (a Address) MailboxID() ID { return a.id }

func (a Address) Realm() Realm { return a.realm }

// String returns mbox://<peer>/<id>@<realm>, or "mbox://nil".
func (a Address) String() string {
	if a.IsNil() {
		return addressScheme + "nil"
	}
	return fmt.Sprintf("%s%s/%d@%s", addressScheme, a.peer, a.id, a.realm)
}

// ParseAddress parses the form produced by String.
func ParseAddress(s string) (Address, error) {
	rest, ok := strings.CutPrefix(s, addressScheme)
	if !ok {
		return Address{}, fmt.Errorf("%w: %q: missing scheme", ErrInvalidAddress, s)
	}
	if rest == "nil" {
		return Address{}, nil
	}

	peerPart, rest, ok := strings.Cut(rest, "/")
	if !ok {
		return Address{}, fmt.Errorf("%w: %q: missing mailbox id", ErrInvalidAddress, s)
	}
	idPart, realmPart, ok := strings.Cut(rest, "@")
	if !ok {
		return Address{}, fmt.Errorf("%w: %q: missing realm", ErrInvalidAddress, s)
	}

	peer, err := cluster.ParsePeerID(peerPart)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return Address{}, fmt.Errorf("%w: %q: bad mailbox id", ErrInvalidAddress, s)
	}
	realm, err := strconv.ParseUint(realmPart, 16, 64)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: bad realm", ErrInvalidAddress, s)
	}

	return Address{peer: peer, id: ID(id), realm: Realm(realm)}, nil
}

// MarshalBinary encodes a as 32 bytes: peer, mailbox id and realm, the
// integers big endian.
func (a Address) MarshalBinary() ([]byte, error) {
	out := make([]byte, addressSize)
	copy(out[:16], a.peer[:])
	binary.BigEndian.PutUint64(out[16:24], uint64(a.id))
	binary.BigEndian.PutUint64(out[24:32], uint64(a.realm))
	return out, nil
}

func (a *Address) UnmarshalBinary(b []byte) error {
	if len(b) != addressSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(b))
	}
	var v Address
	copy(v.peer[:], b[:16])
	v.id = ID(binary.BigEndian.Uint64(b[16:24]))
	v.realm = Realm(binary.BigEndian.Uint64(b[24:32]))
	if v.id == 0 {
		v = Address{}
	}
	*a = v
	return nil
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(b []byte) error {
	v, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
