package codec

import (
	"fmt"
	"io"
)

// Codec turns values into a byte stream and back. Values are written and
// read one after another; the reading side must decode them in the same
// order and with the same types.
type Codec interface {
	Name() string
	NewEncoder(w io.Writer) Encoder
	NewDecoder(data []byte) Decoder
}

type Encoder interface {
	Encode(v any) error
}

type Decoder interface {
	// Decode reads the next value into v, which must be a pointer.
	Decode(v any) error
	// More reports whether unread input remains.
	More() bool
}

// Default is the codec used when none is configured.
var Default Codec = Msgpack{}

// ByName returns the codec registered under name ("msgpack", "json", "cbor").
// An empty name selects Default.
func ByName(name string) (Codec, error) {
	switch name {
	case "":
		return Default, nil
	case Msgpack{}.Name():
		return Msgpack{}, nil
	case JSON{}.Name():
		return JSON{}, nil
	case CBOR{}.Name():
		return CBOR{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
