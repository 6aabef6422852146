// Package wire implements the canonical serialization used for wire
// payloads and composite cache-key suffixes.
//
// Values are encoded as canonical JSON (sorted map keys), so equal argument
// values always produce the same key text.
package wire

import (
	"io"
	"sync"

	"github.com/strand/strand-go/src/internal/bufferpool"
	ucodec "github.com/ugorji/go/codec"
)

var encoders sync.Pool
var decoders sync.Pool

// Encode writes v to w as canonical JSON.
func Encode(w io.Writer, v interface{}) error {
	e := encoders.Get().(*ucodec.Encoder)
	defer encoders.Put(e)

	e.Reset(w)
	return e.Encode(v)
}

// Decode reads JSON from r and unpacks into v.
func Decode(r io.Reader, v interface{}) error {
	d := decoders.Get().(*ucodec.Decoder)
	defer decoders.Put(d)

	d.Reset(r)
	return d.Decode(v)
}

// DecodeBytes parses the JSON in b and unpacks into v.
func DecodeBytes(b []byte, v interface{}) error {
	d := decoders.Get().(*ucodec.Decoder)
	defer decoders.Put(d)

	d.ResetBytes(b)
	return d.Decode(v)
}

// Codec is the default Serializer implementation.
type Codec struct{}

// EncodeKey returns the canonical JSON text of v, used as the argument
// suffix of composite cache keys.
func (Codec) EncodeKey(v any) (string, error) {
	buf := bufferpool.Get()
	defer bufferpool.Put(buf)

	if err := Encode(buf, v); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// DecodeKey parses a composite-key suffix back into out.
func (Codec) DecodeKey(s string, out any) error {
	return DecodeBytes([]byte(s), out)
}

// Marshal returns the canonical JSON encoding of v.
func (Codec) Marshal(v any) ([]byte, error) {
	buf := bufferpool.Get()
	defer bufferpool.Put(buf)

	if err := Encode(buf, v); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return out, nil
}

// Unmarshal parses JSON data into out. Empty input decodes as JSON null.
func (Codec) Unmarshal(b []byte, out any) error {
	if len(b) == 0 {
		b = []byte("null")
	}

	return DecodeBytes(b, out)
}

func init() {
	var handle ucodec.JsonHandle
	handle.Canonical = true

	encoders.New = func() interface{} {
		return ucodec.NewEncoder(nil, &handle)
	}

	decoders.New = func() interface{} {
		return ucodec.NewDecoder(nil, &handle)
	}
}
