package auth

import (
	"encoding/binary"

	"github.com/xraph/unlocker/types"
)

// Encoder builds the canonical byte form of a typed payload. Every field is
// length- or width-fixed so two encodings are equal iff every field is equal.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder { return &Encoder{buf: make([]byte, 0, 128)} }

// Bytes returns the accumulated encoding.
func (e *Encoder) Bytes() []byte { return e.buf }

// Uint64 appends a big-endian 8-byte value.
func (e *Encoder) Uint64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

// Int64 appends a big-endian 8-byte two's-complement value.
func (e *Encoder) Int64(v int64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(v))
}

// Bool appends a single 0/1 byte.
func (e *Encoder) Bool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// String appends a 4-byte big-endian length prefix followed by the bytes.
func (e *Encoder) String(s string) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// Address appends the address in its canonical lowercase form.
func (e *Encoder) Address(a types.Address) {
	e.String(string(types.Addr(string(a))))
}
