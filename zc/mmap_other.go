//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package zc

import (
	"fmt"
	"io"
	"os"
)

// mapFile falls back to reading the whole file where mmap is unavailable.
func mapFile(f *os.File, size int, _ Options) (*Mapping, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name(), err)
	}
	return &Mapping{data: data}, nil
}
