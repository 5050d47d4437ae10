package codec

import (
	"bytes"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is the RFC 8949 binary codec.
type CBOR struct{}

func (CBOR) Name() string { return "cbor" }

func (CBOR) NewEncoder(w io.Writer) Encoder { return cbor.NewEncoder(w) }

func (CBOR) NewDecoder(data []byte) Decoder {
	return &cborDecoder{d: cbor.NewDecoder(bytes.NewReader(data)), size: len(data)}
}

type cborDecoder struct {
	d    *cbor.Decoder
	size int
}

func (d *cborDecoder) Decode(v any) error { return d.d.Decode(v) }

// More uses the decoder's consumed byte count; the decoder buffers its input.
func (d *cborDecoder) More() bool { return d.d.NumBytesRead() < d.size }
