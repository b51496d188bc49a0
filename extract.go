package benscan

import (
	"fmt"
	"math"

	"github.com/rawbytedev/benscan/pkg/bencode"
)

// state names the container the extractor is positioned in. The schema of
// interest is at most four containers deep, so the stack is a fixed array.
type state uint8

const (
	atTopLevel state = iota
	inInfoDictionary
	inFilesList
	inFileEntry
)

const maxFrames = 4

type extractor struct {
	r      bencode.Reader
	stack  [maxFrames]state
	n      int
	res    Result
	strict bool

	infoSeen bool
	done     bool
}

func extract(doc []byte, opts Options) (Result, error) {
	var x extractor
	x.r.Reset(doc, opts.MaxDepth)
	x.strict = opts.Strict
	if err := x.run(); err != nil {
		return Result{}, err
	}
	return x.res, nil
}

func (x *extractor) run() error {
	root, err := x.r.ReadToken()
	if err != nil {
		return err
	}
	if root.Kind != bencode.KindDict {
		return bencode.Malformed(root.Span.Start, "root is not a dictionary")
	}
	x.push(atTopLevel)

	for x.n > 0 && !x.done {
		if x.stack[x.n-1] == inFilesList {
			err = x.fileElement()
		} else {
			err = x.dictEntry()
		}
		if err != nil {
			return err
		}
	}

	if x.strict && x.r.Pos() != x.r.Len() {
		return bencode.Malformed(x.r.Pos(), "trailing data after root dictionary")
	}
	return nil
}

func (x *extractor) push(s state) {
	x.stack[x.n] = s
	x.n++
}

func (x *extractor) pop(end bencode.Token) {
	x.n--
	if x.stack[x.n] != inInfoDictionary {
		return
	}
	x.res.Info.End = end.Span.End
	x.res.HasInfo = true
	if !x.strict {
		x.done = true
	}
}

// dictEntry handles one key/value pair of the dictionary on top of the
// stack, or its closing marker.
func (x *extractor) dictEntry() error {
	tok, err := x.r.ReadToken()
	if err != nil {
		return err
	}
	switch tok.Kind {
	case bencode.KindEnd:
		x.pop(tok)
		return nil
	case bencode.KindString:
	default:
		return bencode.Malformed(tok.Span.Start, "dictionary key is not a string")
	}
	key := tok.Span

	switch x.stack[x.n-1] {
	case atTopLevel:
		if !x.infoSeen && x.r.Equal(key, "info") {
			v, err := x.expect(bencode.KindDict, "info")
			if err != nil {
				return err
			}
			x.infoSeen = true
			x.res.Info.Start = v.Span.Start
			x.push(inInfoDictionary)
			return nil
		}

	case inInfoDictionary:
		switch {
		case x.r.Equal(key, "piece length"):
			v, err := x.count("piece length")
			if err != nil {
				return err
			}
			x.res.ChunkSize = v
			x.res.HasChunkSize = true
			return nil
		case x.r.Equal(key, "length"):
			return x.addLength()
		case x.r.Equal(key, "files"):
			if _, err := x.expect(bencode.KindList, "files"); err != nil {
				return err
			}
			x.push(inFilesList)
			return nil
		case x.r.Equal(key, "pieces"):
			// Only the length prefix is read.
			return x.r.Skip()
		}

	case inFileEntry:
		if x.r.Equal(key, "length") {
			return x.addLength()
		}
	}

	return x.r.Skip()
}

// fileElement handles one element of info.files, or its closing marker.
func (x *extractor) fileElement() error {
	tok, err := x.r.ReadToken()
	if err != nil {
		return err
	}
	switch tok.Kind {
	case bencode.KindEnd:
		x.pop(tok)
	case bencode.KindDict:
		x.push(inFileEntry)
	default:
		return bencode.Malformed(tok.Span.Start, "files entry is not a dictionary")
	}
	return nil
}

func (x *extractor) expect(kind bencode.Kind, field string) (bencode.Token, error) {
	tok, err := x.r.ReadToken()
	if err != nil {
		return tok, err
	}
	if tok.Kind == bencode.KindEnd {
		return tok, bencode.Malformed(tok.Span.Start, "dictionary key without value")
	}
	if tok.Kind != kind {
		return tok, bencode.Malformed(tok.Span.Start, fmt.Sprintf("%q is a %v, want %v", field, tok.Kind, kind))
	}
	return tok, nil
}

// count reads a non-negative integer value.
func (x *extractor) count(field string) (int64, error) {
	tok, err := x.expect(bencode.KindInteger, field)
	if err != nil {
		return 0, err
	}
	v, err := x.r.Int(tok.Span)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, bencode.Malformed(tok.Span.Start, fmt.Sprintf("%q is negative", field))
	}
	return v, nil
}

func (x *extractor) addLength() error {
	v, err := x.count("length")
	if err != nil {
		return err
	}
	if x.res.TotalSize > math.MaxInt64-v {
		return bencode.Malformed(x.r.Pos(), "total size overflows int64")
	}
	x.res.TotalSize += v
	x.res.FileCount++
	return nil
}
