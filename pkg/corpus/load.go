package corpus

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/rawbytedev/benscan/zc"
)

// loader reads whole documents into memory. Reading is the only I/O on the
// scan path; the scanner itself only sees resident bytes.
type loader struct {
	maxSize int64
	mmap    bool
	zstd    *zstd.Decoder
}

func newLoader(maxSize int64, mmap bool) (*loader, error) {
	// DecodeAll on a shared decoder is safe for concurrent use.
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(uint64(maxSize)),
		zstd.WithDecoderConcurrency(0),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &loader{maxSize: maxSize, mmap: mmap, zstd: dec}, nil
}

func (l *loader) Close() {
	l.zstd.Close()
}

func noRelease() {}

// load returns the document at path and a function releasing it. The
// document must not be used after release.
func (l *loader) load(path string) ([]byte, func(), error) {
	doc, release, err := l.read(path)
	if err != nil {
		return nil, nil, &LoadError{Path: path, Err: err}
	}
	return doc, release, nil
}

func (l *loader) read(path string) ([]byte, func(), error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		compressed, err := l.readFile(path)
		if err != nil {
			return nil, nil, err
		}
		doc, err := l.zstd.DecodeAll(compressed, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		if int64(len(doc)) > l.maxSize {
			return nil, nil, fmt.Errorf("decompressed size exceeds %d bytes", l.maxSize)
		}
		return doc, noRelease, nil

	case strings.HasSuffix(path, ".lz4"):
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		doc, err := io.ReadAll(io.LimitReader(lz4.NewReader(f), l.maxSize+1))
		if err != nil {
			return nil, nil, fmt.Errorf("lz4: %w", err)
		}
		if int64(len(doc)) > l.maxSize {
			return nil, nil, fmt.Errorf("decompressed size exceeds %d bytes", l.maxSize)
		}
		return doc, noRelease, nil

	case l.mmap:
		if err := l.checkSize(path); err != nil {
			return nil, nil, err
		}
		m, err := zc.MapWith(path, zc.Options{Sequential: true})
		if err != nil {
			return nil, nil, err
		}
		return m.Bytes(), func() { _ = m.Close() }, nil

	default:
		doc, err := l.readFile(path)
		if err != nil {
			return nil, nil, err
		}
		return doc, noRelease, nil
	}
}

func (l *loader) readFile(path string) ([]byte, error) {
	if err := l.checkSize(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (l *loader) checkSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > l.maxSize {
		return fmt.Errorf("file size %d exceeds %d bytes", info.Size(), l.maxSize)
	}
	return nil
}
