package corpus

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Format selects the encoding of a written Summary.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatCBOR:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or cbor)", s)
	}
}

// summaryEncMode uses Core Deterministic Encoding so the same summary always
// produces identical bytes.
var summaryEncMode cbor.EncMode

func init() {
	var err error
	summaryEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("corpus: CBOR encoder initialization failed: " + err.Error())
	}
}

// WriteSummary encodes s to w.
func WriteSummary(w io.Writer, s Summary, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatCBOR:
		return summaryEncMode.NewEncoder(w).Encode(s)
	case FormatText, "":
		return writeText(w, s)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, s Summary) error {
	ew := &errWriter{w: w}
	ew.printf("=== Results ===\n")
	ew.printf("processed %d documents in %.3f seconds (%.1f/s)\n",
		s.Processed, s.Elapsed.Seconds(), s.DocumentsPerSecond())
	ew.printf("errors: %d\n", s.Errors)
	if s.Duplicates > 0 {
		ew.printf("duplicates: %d\n", s.Duplicates)
	}
	if s.WeightedAverageChunkSize != nil {
		ew.printf("Weighted average piece size: %.2f bytes\n", *s.WeightedAverageChunkSize)
	} else {
		ew.printf("Weighted average piece size: no data\n")
	}
	if s.AverageMultiFileFileSize != nil {
		ew.printf("Average file size (multi-file documents with >= %d files): %.2f bytes\n",
			s.MultiFileThreshold, *s.AverageMultiFileFileSize)
	} else {
		ew.printf("Average file size (multi-file documents with >= %d files): no data\n",
			s.MultiFileThreshold)
	}
	return ew.err
}

// errWriter keeps the first write error and turns later writes into no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
