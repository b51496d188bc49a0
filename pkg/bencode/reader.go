package bencode

import (
	"github.com/rawbytedev/benscan/internal/common"
)

// Kind classifies a token by its leading byte.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInteger      // 'i' digits 'e'
	KindString       // length ':' payload
	KindList         // 'l'
	KindDict         // 'd'
	KindEnd          // 'e' closing a list or dictionary
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dictionary"
	case KindEnd:
		return "end"
	default:
		return "invalid"
	}
}

// Token is one lexical element. For integers Span covers the digits and
// sign, for strings only the payload, for containers and End the marker byte.
// Containers are unresolved: their children follow as further tokens.
type Token struct {
	Kind Kind
	Span Span
}

// DefaultMaxDepth bounds container nesting when no other bound is given.
const DefaultMaxDepth = 64

// Reader tokenizes a document in place. The zero value is not usable; call
// Reset or NewReader first. A Reader is not safe for concurrent use.
type Reader struct {
	cur      Cursor
	depth    int
	maxDepth int
}

func NewReader(buf []byte, maxDepth int) *Reader {
	r := &Reader{}
	r.Reset(buf, maxDepth)
	return r
}

// Reset rewinds r onto buf. maxDepth <= 0 selects DefaultMaxDepth.
func (r *Reader) Reset(buf []byte, maxDepth int) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	r.cur.Reset(buf)
	r.depth = 0
	r.maxDepth = maxDepth
}

// Pos returns the offset of the next unread byte.
func (r *Reader) Pos() int { return r.cur.Pos() }

// Len returns the document length.
func (r *Reader) Len() int { return r.cur.Len() }

// Depth returns the number of containers currently open.
func (r *Reader) Depth() int { return r.depth }

// ReadToken consumes the next token.
func (r *Reader) ReadToken() (Token, error) {
	start := r.cur.Pos()
	c, err := r.cur.Peek()
	if err != nil {
		return Token{}, Truncated(start, "expected value")
	}
	switch {
	case c == 'i':
		return r.readInt()
	case common.IsDigit(c):
		return r.readString()
	case c == 'l' || c == 'd':
		if r.depth >= r.maxDepth {
			return Token{}, Malformed(start, "max depth exceeded")
		}
		_ = r.cur.Advance(1)
		r.depth++
		kind := KindList
		if c == 'd' {
			kind = KindDict
		}
		return Token{Kind: kind, Span: Span{start, start + 1}}, nil
	case c == 'e':
		if r.depth == 0 {
			return Token{}, Malformed(start, "end marker outside container")
		}
		_ = r.cur.Advance(1)
		r.depth--
		return Token{Kind: KindEnd, Span: Span{start, start + 1}}, nil
	default:
		return Token{}, Malformed(start, "unexpected byte")
	}
}

func (r *Reader) readInt() (Token, error) {
	start := r.cur.Pos()
	_ = r.cur.Advance(1)
	first := r.cur.Pos()
	c, err := r.cur.Peek()
	if err != nil {
		return Token{}, Truncated(start, "unterminated integer")
	}
	negative := c == '-'
	if negative {
		_ = r.cur.Advance(1)
	}
	digits, err := r.cur.SkipDigits()
	if err != nil {
		return Token{}, Truncated(start, "unterminated integer")
	}
	if digits.Len() == 0 {
		return Token{}, Malformed(digits.Start, "integer has no digits")
	}
	if r.cur.buf[digits.Start] == '0' && (negative || digits.Len() > 1) {
		return Token{}, Malformed(digits.Start, "integer has leading zero")
	}
	if c, _ := r.cur.Peek(); c != 'e' {
		return Token{}, Malformed(r.cur.Pos(), "invalid byte in integer")
	}
	_ = r.cur.Advance(1)
	return Token{Kind: KindInteger, Span: Span{first, digits.End}}, nil
}

func (r *Reader) readString() (Token, error) {
	start := r.cur.Pos()
	prefix, err := r.cur.SkipDigits()
	if err != nil {
		return Token{}, Truncated(start, "unterminated length prefix")
	}
	if prefix.Len() > 1 && r.cur.buf[start] == '0' {
		return Token{}, Malformed(start, "length prefix has leading zero")
	}
	if c, _ := r.cur.Peek(); c != ':' {
		return Token{}, Malformed(r.cur.Pos(), "expected ':' after length prefix")
	}
	_ = r.cur.Advance(1)
	payload := r.cur.Pos()
	length, ok := common.ParseUint(r.cur.Bytes(prefix), uint64(r.cur.Remaining()))
	if !ok {
		return Token{}, Truncated(start, "declared length exceeds input")
	}
	if err := r.cur.Advance(int(length)); err != nil {
		return Token{}, Truncated(start, "declared length exceeds input")
	}
	return Token{Kind: KindString, Span: Span{payload, r.cur.Pos()}}, nil
}

// Skip consumes one complete value without interpreting it. Nesting is
// tracked with the reader's depth counter rather than the call stack, so
// hostile nesting fails at maxDepth. String payloads are stepped over by
// their declared length and never read.
func (r *Reader) Skip() error {
	if c, err := r.cur.Peek(); err != nil {
		return Truncated(r.cur.Pos(), "expected value")
	} else if c == 'e' {
		return Malformed(r.cur.Pos(), "expected value, found end marker")
	}
	base := r.depth
	for {
		if _, err := r.ReadToken(); err != nil {
			return err
		}
		if r.depth == base {
			return nil
		}
	}
}

// Int parses an integer span returned by ReadToken.
func (r *Reader) Int(s Span) (int64, error) {
	v, ok := common.ParseInt(r.cur.Bytes(s))
	if !ok {
		return 0, Malformed(s.Start, "integer out of range")
	}
	return v, nil
}

// Equal reports whether the bytes under s are exactly lit.
func (r *Reader) Equal(s Span, lit string) bool {
	return string(r.cur.Bytes(s)) == lit
}

// Bytes returns the bytes under s without copying.
func (r *Reader) Bytes(s Span) []byte {
	return r.cur.Bytes(s)
}
