package bencode

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfInput is returned by Cursor.Peek when no bytes remain.
	ErrEndOfInput = errors.New("end of input")
	// ErrTruncated reports that the input ended inside a value: a declared
	// length runs past the buffer or a terminator is missing.
	ErrTruncated = errors.New("truncated input")
	// ErrMalformed reports bytes that cannot appear where they do.
	ErrMalformed = errors.New("malformed input")
)

// SyntaxError locates a decoding failure. Err is ErrTruncated or ErrMalformed.
type SyntaxError struct {
	Offset int
	Err    error
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("bencode: %v at offset %d: %s", e.Err, e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Truncated builds a SyntaxError wrapping ErrTruncated.
func Truncated(offset int, msg string) error {
	return &SyntaxError{Offset: offset, Err: ErrTruncated, Msg: msg}
}

// Malformed builds a SyntaxError wrapping ErrMalformed.
func Malformed(offset int, msg string) error {
	return &SyntaxError{Offset: offset, Err: ErrMalformed, Msg: msg}
}
