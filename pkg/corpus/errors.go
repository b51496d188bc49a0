package corpus

import (
	"errors"
	"fmt"

	"github.com/rawbytedev/benscan/pkg/bencode"
)

// LoadError reports a document that could not be read or decompressed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrKind names the class of a per-document failure for logs and metric
// labels.
func ErrKind(err error) string {
	var le *LoadError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, bencode.ErrTruncated):
		return "truncated"
	case errors.Is(err, bencode.ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrTotalsOverflow):
		return "overflow"
	case errors.As(err, &le):
		return "load"
	default:
		return "unknown"
	}
}
