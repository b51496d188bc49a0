// Package zc (zero-copy) maps corpus documents into memory read-only so the
// scanner works on the page cache directly instead of a heap copy. Only the
// pages the scanner touches are faulted in; a multi-megabyte pieces blob that
// is stepped over by length is never read from disk at all.
//
// The returned bytes alias the mapping. They must not be used after Close.
// If the file shrinks while mapped, touching the lost pages raises SIGBUS,
// which Go cannot turn into an error.
package zc

import (
	"fmt"
	"math"
	"os"
)

// Options contains flags controlling how documents are mapped.
type Options struct {
	// Sequential hints the kernel that the mapping is read front to back.
	Sequential bool
}

// Mapping is one read-only document mapping.
type Mapping struct {
	data  []byte
	unmap func([]byte) error
}

// Map maps the file at path with default options.
func Map(path string) (*Mapping, error) {
	return MapWith(path, Options{})
}

// MapWith maps the file at path. Empty files yield an empty mapping.
func MapWith(path string, opts Options) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("map %s: not a regular file", path)
	}
	size := info.Size()
	if size == 0 {
		return &Mapping{data: []byte{}}, nil
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("map %s: %d bytes exceeds address space", path, size)
	}
	return mapFile(f, int(size), opts)
}

// Bytes returns the mapped document.
func (m *Mapping) Bytes() []byte { return m.data }

// Close releases the mapping. It is safe to call more than once.
func (m *Mapping) Close() error {
	data, unmap := m.data, m.unmap
	m.data, m.unmap = nil, nil
	if unmap == nil {
		return nil
	}
	return unmap(data)
}
