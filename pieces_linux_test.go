//go:build linux

package benscan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// TestScanNeverReadsPieces places the pieces payload on its own page and
// revokes all access to that page. Any read of the payload faults the test
// binary, so a passing scan proves only the length prefix was consulted.
func TestScanNeverReadsPieces(t *testing.T) {
	page := unix.Getpagesize()
	mem, err := unix.Mmap(-1, 0, 3*page, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Mprotect(mem, unix.PROT_READ|unix.PROT_WRITE)
		_ = unix.Munmap(mem)
	})

	prefix := fmt.Sprintf("d4:infod6:lengthi5e12:piece lengthi16384e6:pieces%d:", page)
	start := page - len(prefix)
	copy(mem[start:], prefix)
	for i := page; i < 2*page; i++ {
		mem[i] = 'd'
	}
	copy(mem[2*page:], "ee")
	doc := mem[start : 2*page+2]

	require.NoError(t, unix.Mprotect(mem[page:2*page], unix.PROT_NONE))

	res, err := Scan(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(16384), res.ChunkSize)
	assert.Equal(t, int64(5), res.TotalSize)
	assert.Equal(t, int64(1), res.FileCount)
}
