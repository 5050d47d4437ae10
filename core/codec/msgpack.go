package codec

import (
	"bytes"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a compact binary codec. Types implementing
// encoding.BinaryMarshaler are encoded through it.
type Msgpack struct{}

func (Msgpack) Name() string { return "msgpack" }

func (Msgpack) NewEncoder(w io.Writer) Encoder { return msgpack.NewEncoder(w) }

func (Msgpack) NewDecoder(data []byte) Decoder {
	// bytes.Reader is an io.ByteScanner, so the decoder reads from it
	// directly and r.Len() is exact.
	r := bytes.NewReader(data)
	return &msgpackDecoder{r: r, d: msgpack.NewDecoder(r)}
}

type msgpackDecoder struct {
	r *bytes.Reader
	d *msgpack.Decoder
}

func (d *msgpackDecoder) Decode(v any) error { return d.d.Decode(v) }
func (d *msgpackDecoder) More() bool         { return d.r.Len() > 0 }
