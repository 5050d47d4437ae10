// Package codec provides the generic value codecs used to marshal mailbox
// message arguments.
//
// A [Codec] writes a sequence of values into a stream and reads them back in
// the same order:
//
//	var buf bytes.Buffer
//	enc := codec.Default.NewEncoder(&buf)
//	_ = enc.Encode("hello")
//	_ = enc.Encode(42)
//
//	dec := codec.Default.NewDecoder(buf.Bytes())
//	var s string
//	var n int
//	_ = dec.Decode(&s)
//	_ = dec.Decode(&n)
//	trailing := dec.More() // false
//
// Available codecs are [Msgpack] (the default), [JSON] and [CBOR]. Both ends
// of a mailbox conversation must use the same codec.
package codec
