//go:build linux || darwin || freebsd || netbsd || openbsd

package zc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int, opts Options) (*Mapping, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", f.Name(), err)
	}
	if opts.Sequential {
		// Advisory only; a refused hint changes nothing about correctness.
		_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	}
	return &Mapping{data: data, unmap: unix.Munmap}, nil
}
