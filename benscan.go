// Package benscan extracts the handful of scalars corpus statistics need
// from .torrent metadata (chunk size, content length, file count) without
// decoding the rest of the document. The piece-hash blob, which dominates
// document size, is stepped over by its declared length and never read.
package benscan

import (
	"crypto/sha1"

	"github.com/rawbytedev/benscan/pkg/bencode"
)

// Options tune a Scanner.
type Options struct {
	// MaxDepth bounds container nesting; 0 selects bencode.DefaultMaxDepth.
	MaxDepth int
	// Strict keeps walking after the info dictionary and requires the root
	// dictionary to close at the last byte of the document.
	Strict bool
}

// Scanner applies the field extractor to whole documents. It holds no
// per-document state and is safe for concurrent use.
type Scanner struct {
	Opts Options
}

func NewScanner(opts Options) *Scanner {
	return &Scanner{Opts: opts}
}

// Scan extracts a Result from doc. doc is never modified or retained.
func (s *Scanner) Scan(doc []byte) (Result, error) {
	return extract(doc, s.Opts)
}

// Scan runs a default Scanner over doc.
func Scan(doc []byte) (Result, error) {
	return extract(doc, Options{})
}

// Result holds the fields pulled from one document. TotalSize and
// FileCount are accumulated independently: a single-file document counts
// its "length" once, a multi-file document counts every files[*].length.
type Result struct {
	ChunkSize    int64
	HasChunkSize bool
	TotalSize    int64
	FileCount    int64

	// Info is the byte range of the encoded info dictionary.
	Info    bencode.Span
	HasInfo bool
}

// InfoHash returns the BitTorrent v1 infohash, the SHA-1 of the encoded
// info dictionary. doc must be the buffer r was scanned from.
func (r Result) InfoHash(doc []byte) ([sha1.Size]byte, bool) {
	if !r.HasInfo || r.Info.Start < 0 || r.Info.End > len(doc) || r.Info.Start >= r.Info.End {
		return [sha1.Size]byte{}, false
	}
	return sha1.Sum(doc[r.Info.Start:r.Info.End]), true
}
