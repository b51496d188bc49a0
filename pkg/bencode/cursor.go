package bencode

import "github.com/rawbytedev/benscan/internal/common"

// Span is a half-open byte range [Start, End) into a document. It carries
// no bytes of its own and is only meaningful next to the buffer it came from.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by s.
func (s Span) Len() int { return s.End - s.Start }

// Cursor is a bounds-checked read position over an immutable buffer.
// None of its methods allocate or copy.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor at the start of buf.
func NewCursor(buf []byte) Cursor {
	return Cursor{buf: buf}
}

// Reset points c at the start of buf.
func (c *Cursor) Reset(buf []byte) {
	c.buf = buf
	c.pos = 0
}

// Pos, Len and Remaining report the read offset, the buffer length and
// the bytes left after the offset.
func (c *Cursor) Pos() int       { return c.pos }
func (c *Cursor) Len() int       { return len(c.buf) }
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Peek returns the byte at the current position.
func (c *Cursor) Peek() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, ErrEndOfInput
	}
	return c.buf[c.pos], nil
}

// Advance moves forward n bytes. It is the only guard between a declared
// length and the end of the buffer.
func (c *Cursor) Advance(n int) error {
	if n < 0 || n > len(c.buf)-c.pos {
		return ErrTruncated
	}
	c.pos += n
	return nil
}

// SkipDigits consumes a run of decimal digits and returns its span. It
// returns ErrEndOfInput when the run reaches the end of the buffer, since a
// digit run is always followed by a delimiter.
func (c *Cursor) SkipDigits() (Span, error) {
	start := c.pos
	c.pos += common.CountDigits(c.buf[c.pos:])
	if c.pos == len(c.buf) {
		return Span{start, c.pos}, ErrEndOfInput
	}
	return Span{start, c.pos}, nil
}

// Bytes returns the sub-slice covered by s without copying. The result is
// capped so appends cannot write into the document.
func (c *Cursor) Bytes(s Span) []byte {
	return c.buf[s.Start:s.End:s.End]
}
