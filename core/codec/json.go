package codec

import (
	"bytes"
	"encoding/json"
	"io"
)

// JSON writes one JSON document per value. It is readable on the wire and
// slower than Msgpack.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) NewEncoder(w io.Writer) Encoder { return json.NewEncoder(w) }

func (JSON) NewDecoder(data []byte) Decoder {
	return &jsonDecoder{d: json.NewDecoder(bytes.NewReader(data)), data: data}
}

type jsonDecoder struct {
	d    *json.Decoder
	data []byte
}

func (d *jsonDecoder) Decode(v any) error { return d.d.Decode(v) }

// More reports whether anything but whitespace follows the last decoded
// value. json.Decoder.More treats a closing '}' or ']' as the end of input.
func (d *jsonDecoder) More() bool {
	rest := d.data[min(int(d.d.InputOffset()), len(d.data)):]
	return len(bytes.TrimLeft(rest, " \t\r\n")) > 0
}
