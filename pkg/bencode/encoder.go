package bencode

import "strconv"

// Encoder appends bencoded values to a growing buffer. It does not sort
// dictionary keys or check structure; callers emit tokens in the order they
// want them on the wire. It exists to build fixtures and synthetic corpora.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with capacity bytes preallocated.
func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, 0, capacity)}
}

// Int appends v as i<v>e.
func (e *Encoder) Int(v int64) *Encoder {
	e.buf = append(e.buf, 'i')
	e.buf = strconv.AppendInt(e.buf, v, 10)
	e.buf = append(e.buf, 'e')
	return e
}

// String appends s as a length-prefixed byte string.
func (e *Encoder) String(s string) *Encoder {
	e.buf = strconv.AppendInt(e.buf, int64(len(s)), 10)
	e.buf = append(e.buf, ':')
	e.buf = append(e.buf, s...)
	return e
}

// Bytes appends b as a length-prefixed byte string.
func (e *Encoder) Bytes(b []byte) *Encoder {
	e.buf = strconv.AppendInt(e.buf, int64(len(b)), 10)
	e.buf = append(e.buf, ':')
	e.buf = append(e.buf, b...)
	return e
}

// List, Dict and End append the container markers. Keys and values
// between them are the caller's responsibility.
func (e *Encoder) List() *Encoder { e.buf = append(e.buf, 'l'); return e }
func (e *Encoder) Dict() *Encoder { e.buf = append(e.buf, 'd'); return e }
func (e *Encoder) End() *Encoder  { e.buf = append(e.buf, 'e'); return e }

// Raw appends b verbatim.
func (e *Encoder) Raw(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// Encoded returns the buffer built so far. It aliases the encoder's storage.
func (e *Encoder) Encoded() []byte { return e.buf }

// Reset truncates the buffer for reuse. Slices returned by Encoded before
// the call are overwritten by later appends.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }
