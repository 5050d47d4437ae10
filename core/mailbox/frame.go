package mailbox

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame layout, big endian:
//
//	offset size field
//	0      8    realm tag
//	8      8    mailbox id
//	16     1    flags
//	17     4    payload length
//	21     n    payload
//
// A transport frame may hold several messages back to back.
const headerSize = 8 + 8 + 1 + 4

const (
	flagZstd byte = 1 << iota

	knownFlags = flagZstd
)

type header struct {
	realm  Realm
	id     ID
	flags  byte
	length uint32
}

func appendFrame(dst []byte, realm Realm, id ID, flags byte, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrEncode, len(payload))
	}
	var h [headerSize]byte
	binary.BigEndian.PutUint64(h[0:8], uint64(realm))
	binary.BigEndian.PutUint64(h[8:16], uint64(id))
	h[16] = flags
	binary.BigEndian.PutUint32(h[17:21], uint32(len(payload)))
	dst = append(dst, h[:]...)
	return append(dst, payload...), nil
}

// readFrame splits the first message off b.
func readFrame(b []byte) (h header, payload, rest []byte, err error) {
	if len(b) < headerSize {
		return h, nil, nil, fmt.Errorf("%w: %d bytes left, header needs %d", ErrMalformedFrame, len(b), headerSize)
	}
	h = header{
		realm:  Realm(binary.BigEndian.Uint64(b[0:8])),
		id:     ID(binary.BigEndian.Uint64(b[8:16])),
		flags:  b[16],
		length: binary.BigEndian.Uint32(b[17:21]),
	}
	if h.flags&^knownFlags != 0 {
		return h, nil, nil, fmt.Errorf("%w: unknown flags %#x", ErrMalformedFrame, h.flags)
	}
	body := b[headerSize:]
	if uint64(h.length) > uint64(len(body)) {
		return h, nil, nil, fmt.Errorf("%w: payload length %d exceeds %d remaining bytes", ErrMalformedFrame, h.length, len(body))
	}
	return h, body[:h.length], body[h.length:], nil
}
