package corpus

import (
	"errors"
	"math"
	"math/big"
	"time"

	"github.com/rawbytedev/benscan"
)

// Stats are the running corpus totals. They are owned by a single reducer
// and only ever see complete per-document results.
type Stats struct {
	Processed  int64
	Errors     int64
	Duplicates int64

	// WeightedChunkSum is sum(chunk size * total size). Real corpora push
	// it past int64 (hundreds of MiB chunks times terabyte totals).
	WeightedChunkSum *big.Int
	TotalSizeSum     int64

	MultiFileTotalSize  int64
	MultiFileTotalCount int64
}

func NewStats() *Stats {
	return &Stats{WeightedChunkSum: new(big.Int)}
}

// ErrTotalsOverflow reports a result that would push an int64 total past
// its range. The totals are left unchanged.
var ErrTotalsOverflow = errors.New("corpus totals overflow int64")

// Add folds one successful result into the totals. Sizes and counts are
// non-negative (the scanner rejects negatives), so only the upper bound is
// checked. Either every total is updated or none is.
func (s *Stats) Add(r benscan.Result, threshold int64) error {
	if s.WeightedChunkSum == nil {
		s.WeightedChunkSum = new(big.Int)
	}
	weighted := r.HasChunkSize && r.TotalSize > 0
	multi := r.FileCount >= threshold && r.TotalSize > 0
	if weighted && s.TotalSizeSum > math.MaxInt64-r.TotalSize {
		return ErrTotalsOverflow
	}
	if multi && (s.MultiFileTotalSize > math.MaxInt64-r.TotalSize ||
		s.MultiFileTotalCount > math.MaxInt64-r.FileCount) {
		return ErrTotalsOverflow
	}
	if weighted {
		var term big.Int
		term.Mul(big.NewInt(r.ChunkSize), big.NewInt(r.TotalSize))
		s.WeightedChunkSum.Add(s.WeightedChunkSum, &term)
		s.TotalSizeSum += r.TotalSize
	}
	if multi {
		s.MultiFileTotalSize += r.TotalSize
		s.MultiFileTotalCount += r.FileCount
	}
	return nil
}

// WeightedAverageChunkSize returns sum(chunk*size)/sum(size), or false
// when no document contributed.
func (s *Stats) WeightedAverageChunkSize() (float64, bool) {
	if s.TotalSizeSum == 0 || s.WeightedChunkSum == nil {
		return 0, false
	}
	avg, _ := new(big.Rat).SetFrac(s.WeightedChunkSum, big.NewInt(s.TotalSizeSum)).Float64()
	return avg, true
}

// AverageMultiFileFileSize returns the mean file size over documents at or
// above the multi-file threshold, or false when none qualified.
func (s *Stats) AverageMultiFileFileSize() (float64, bool) {
	if s.MultiFileTotalCount == 0 {
		return 0, false
	}
	return float64(s.MultiFileTotalSize) / float64(s.MultiFileTotalCount), true
}

// Summary is the final report of a scan. Nil averages mean no data.
type Summary struct {
	Processed  int64 `json:"processed"`
	Errors     int64 `json:"errors"`
	Duplicates int64 `json:"duplicates,omitempty"`

	WeightedAverageChunkSize *float64 `json:"weighted_average_chunk_size"`
	AverageMultiFileFileSize *float64 `json:"average_multi_file_file_size"`
	MultiFileThreshold       int64    `json:"multi_file_threshold"`

	Elapsed time.Duration `json:"elapsed_ns"`
}

// Summary snapshots the totals.
func (s *Stats) Summary(threshold int64, elapsed time.Duration) Summary {
	out := Summary{
		Processed:          s.Processed,
		Errors:             s.Errors,
		Duplicates:         s.Duplicates,
		MultiFileThreshold: threshold,
		Elapsed:            elapsed,
	}
	if v, ok := s.WeightedAverageChunkSize(); ok {
		out.WeightedAverageChunkSize = &v
	}
	if v, ok := s.AverageMultiFileFileSize(); ok {
		out.AverageMultiFileFileSize = &v
	}
	return out
}

// DocumentsPerSecond is the scan throughput.
func (s Summary) DocumentsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Processed) / s.Elapsed.Seconds()
}
