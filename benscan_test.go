package benscan

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/benscan/pkg/bencode"
)

// isbndbDocument is the single-file layout used by the isbndb_2022_09 torrent.
func isbndbDocument(pieces []byte) []byte {
	var b bytes.Buffer
	b.WriteString("d4:infod6:lengthi4372041675e4:name23:isbndb_2022_09.jsonl.gz12:piece lengthi2097152e6:pieces10:")
	b.Write(pieces)
	b.WriteString("ee")
	return b.Bytes()
}

// markerBytes would derail the extractor if the pieces payload were parsed.
var markerBytes = []byte{'e', 'd', 'l', 'i', ':', '9', 0x00, 0xff, 'e', 'e'}

func multiFileDocument(files int, size int64) []byte {
	e := bencode.NewEncoder(1024)
	e.Dict().
		String("announce").String("udp://tracker.example:6969/announce").
		String("info").Dict().
		String("files").List()
	for i := 0; i < files; i++ {
		e.Dict().
			String("length").Int(size).
			String("path").List().String("dir").String("file.bin").End().
			End()
	}
	e.End().
		String("name").String("set").
		String("piece length").Int(1 << 20).
		String("pieces").Bytes(bytes.Repeat([]byte{0xab}, 20*4)).
		End().
		End()
	return e.Encoded()
}

func TestScanSingleFile(t *testing.T) {
	res, err := Scan(isbndbDocument(markerBytes))
	require.NoError(t, err)
	assert.True(t, res.HasChunkSize)
	assert.Equal(t, int64(2097152), res.ChunkSize)
	assert.Equal(t, int64(4372041675), res.TotalSize)
	assert.Equal(t, int64(1), res.FileCount)
}

func TestScanMultiFile(t *testing.T) {
	res, err := Scan(multiFileDocument(150, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), res.ChunkSize)
	assert.Equal(t, int64(15000), res.TotalSize)
	assert.Equal(t, int64(150), res.FileCount)
}

func TestScanIsIdempotent(t *testing.T) {
	doc := multiFileDocument(7, 3)
	first, err := Scan(doc)
	require.NoError(t, err)
	second, err := Scan(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScanWithoutInfo(t *testing.T) {
	doc := bencode.NewEncoder(64).Dict().String("announce").String("x").End().Encoded()
	res, err := Scan(doc)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestScanWithoutChunkSize(t *testing.T) {
	doc := bencode.NewEncoder(64).Dict().String("info").Dict().String("length").Int(10).End().End().Encoded()
	res, err := Scan(doc)
	require.NoError(t, err)
	assert.False(t, res.HasChunkSize)
	assert.Equal(t, int64(10), res.TotalSize)
}

func TestScanLengthAndFilesAreAdditive(t *testing.T) {
	doc := bencode.NewEncoder(128).Dict().String("info").Dict().
		String("files").List().
		Dict().String("length").Int(5).End().
		Dict().String("attr").String("p").String("length").Int(7).End().
		End().
		String("length").Int(10).
		End().End().Encoded()
	res, err := Scan(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(22), res.TotalSize)
	assert.Equal(t, int64(3), res.FileCount)
}

func TestScanRepeatedChunkSizeOverwrites(t *testing.T) {
	doc := bencode.NewEncoder(128).Dict().String("info").Dict().
		String("piece length").Int(16384).
		String("piece length").Int(32768).
		End().End().Encoded()
	res, err := Scan(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(32768), res.ChunkSize)
}

func TestScanIgnoresLengthOutsideInfo(t *testing.T) {
	doc := bencode.NewEncoder(128).Dict().
		String("length").Int(99).
		String("info").Dict().String("length").Int(1).
		String("meta").Dict().String("length").Int(50).End().
		End().End().Encoded()
	res, err := Scan(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalSize)
	assert.Equal(t, int64(1), res.FileCount)
}

func TestScanTruncatedAtEveryOffset(t *testing.T) {
	doc := isbndbDocument(markerBytes)
	piecesEnd := len(doc) - len("ee")
	for k := 0; k < piecesEnd; k++ {
		_, err := Scan(doc[:k])
		require.ErrorIs(t, err, bencode.ErrTruncated, "truncated at %d", k)
	}
}

func TestScanDepthBound(t *testing.T) {
	doc := "d4:infod5:extra" + strings.Repeat("l", 100) + strings.Repeat("e", 100) + "ee"
	_, err := Scan([]byte(doc))
	require.ErrorIs(t, err, bencode.ErrMalformed)
	assert.Contains(t, err.Error(), "max depth exceeded")

	_, err = NewScanner(Options{MaxDepth: 128}).Scan([]byte(doc))
	require.NoError(t, err)
}

func TestScanMalformed(t *testing.T) {
	cases := map[string]string{
		"root list":            "li1ee",
		"root integer":         "i1e",
		"info not dict":        "d4:infoli1eee",
		"piece length string":  "d4:infod12:piece length3:abcee",
		"negative length":      "d4:infod6:lengthi-5eee",
		"files not list":       "d4:infod5:filesi1eee",
		"files entry not dict": "d4:infod5:filesli1eeee",
		"file length string":   "d4:infod5:filesld6:length1:xeeeee",
		"non-string key":       "di1ei2ee",
		"key without value":    "d4:infod4:nameee",
		"length without value": "d4:infod6:lengthee",
		"length overflow":      "d4:infod6:lengthi9223372036854775807e6:lengthi1eee",
		"integer too big":      "d4:infod12:piece lengthi99999999999999999999eee",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Scan([]byte(doc))
			require.ErrorIs(t, err, bencode.ErrMalformed)
			var se *bencode.SyntaxError
			require.True(t, errors.As(err, &se))
		})
	}
}

func TestScanStrict(t *testing.T) {
	doc := append(isbndbDocument(markerBytes), 'x')

	_, err := Scan(doc)
	require.NoError(t, err)

	strict := NewScanner(Options{Strict: true})
	_, err = strict.Scan(doc)
	require.ErrorIs(t, err, bencode.ErrMalformed)

	res, err := strict.Scan(multiFileDocument(2, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(8), res.TotalSize)

	// Root left open after the info dictionary.
	open := []byte("d4:infod6:lengthi1ee")
	_, err = Scan(open)
	require.NoError(t, err)
	_, err = strict.Scan(open)
	require.ErrorIs(t, err, bencode.ErrTruncated)
}

func TestInfoHash(t *testing.T) {
	info := "d6:lengthi1e6:pieces3:abce"
	doc := []byte("d8:announce3:url4:info" + info + "e")
	res, err := Scan(doc)
	require.NoError(t, err)
	require.True(t, res.HasInfo)
	assert.Equal(t, info, string(doc[res.Info.Start:res.Info.End]))

	got, ok := res.InfoHash(doc)
	require.True(t, ok)
	assert.Equal(t, sha1.Sum([]byte(info)), got)

	_, ok = Result{}.InfoHash(doc)
	assert.False(t, ok)
}

func TestScanAllocations(t *testing.T) {
	doc := multiFileDocument(20, 1)
	allocs := testing.AllocsPerRun(100, func() {
		_, _ = Scan(doc)
	})
	assert.Zero(t, allocs)
}

// Every files[*].length is counted once and summed, whatever the sizes and
// however much padding surrounds them.
func TestScanFileSumProperty(t *testing.T) {
	property := func(sizes []uint32, pad uint8) bool {
		e := bencode.NewEncoder(256)
		e.Dict().String("info").Dict().String("files").List()
		var want int64
		for _, s := range sizes {
			e.Dict().
				String("attr").String(strings.Repeat("p", int(pad))).
				String("length").Int(int64(s)).
				End()
			want += int64(s)
		}
		e.End().String("pieces").Bytes(bytes.Repeat(markerBytes, int(pad))).End().End()

		res, err := Scan(e.Encoded())
		return err == nil &&
			res.TotalSize == want &&
			res.FileCount == int64(len(sizes)) &&
			!res.HasChunkSize
	}
	require.NoError(t, quick.Check(property, nil))
}

func FuzzScan(f *testing.F) {
	f.Add(isbndbDocument(markerBytes))
	f.Add(multiFileDocument(3, 9))
	f.Add([]byte("d4:infod5:filesld6:lengthi1eeeee"))
	f.Add([]byte("d4:info"))
	f.Fuzz(func(t *testing.T, doc []byte) {
		res, err := Scan(doc)
		if err != nil {
			if !errors.Is(err, bencode.ErrTruncated) && !errors.Is(err, bencode.ErrMalformed) {
				t.Fatalf("unexpected error class: %v", err)
			}
			return
		}
		require.GreaterOrEqual(t, res.TotalSize, int64(0))
		require.GreaterOrEqual(t, res.FileCount, int64(0))
		if res.HasInfo {
			require.LessOrEqual(t, res.Info.End, len(doc))
		}
	})
}
