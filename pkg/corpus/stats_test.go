package corpus

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/benscan"
)

func TestStatsWeightedAverage(t *testing.T) {
	s := NewStats()
	require.NoError(t, s.Add(benscan.Result{ChunkSize: 100, HasChunkSize: true, TotalSize: 1000, FileCount: 1}, DefaultMultiFileThreshold))
	require.NoError(t, s.Add(benscan.Result{ChunkSize: 200, HasChunkSize: true, TotalSize: 3000, FileCount: 1}, DefaultMultiFileThreshold))
	require.NoError(t, s.Add(benscan.Result{TotalSize: 500, FileCount: 1}, DefaultMultiFileThreshold))

	avg, ok := s.WeightedAverageChunkSize()
	require.True(t, ok)
	assert.Equal(t, 175.0, avg)
	assert.Equal(t, int64(4000), s.TotalSizeSum)

	_, ok = s.AverageMultiFileFileSize()
	assert.False(t, ok, "no document reached the threshold")
}

func TestStatsMultiFileThreshold(t *testing.T) {
	s := NewStats()
	require.NoError(t, s.Add(benscan.Result{TotalSize: 15000, FileCount: 150}, 100))
	require.NoError(t, s.Add(benscan.Result{TotalSize: 5000, FileCount: 5}, 100))
	require.NoError(t, s.Add(benscan.Result{TotalSize: 0, FileCount: 400}, 100))

	avg, ok := s.AverageMultiFileFileSize()
	require.True(t, ok)
	assert.Equal(t, 100.0, avg)
	assert.Equal(t, int64(150), s.MultiFileTotalCount)
}

func TestStatsZeroSizeSkipsWeightedSum(t *testing.T) {
	s := NewStats()
	require.NoError(t, s.Add(benscan.Result{ChunkSize: 1 << 20, HasChunkSize: true}, 100))
	_, ok := s.WeightedAverageChunkSize()
	assert.False(t, ok)
}

func TestStatsWeightedSumExceedsInt64(t *testing.T) {
	s := NewStats()
	r := benscan.Result{ChunkSize: 1 << 28, HasChunkSize: true, TotalSize: math.MaxInt64 / 4, FileCount: 1}
	require.NoError(t, s.Add(r, 100))
	require.NoError(t, s.Add(r, 100))

	want := new(big.Int).Mul(big.NewInt(1<<28), big.NewInt(math.MaxInt64/4))
	want.Mul(want, big.NewInt(2))
	assert.Equal(t, 0, want.Cmp(s.WeightedChunkSum))
	assert.False(t, s.WeightedChunkSum.IsInt64())
}

func TestStatsAddRejectsOverflow(t *testing.T) {
	s := NewStats()
	huge := benscan.Result{ChunkSize: 1, HasChunkSize: true, TotalSize: math.MaxInt64 - 10, FileCount: 200}
	require.NoError(t, s.Add(huge, 100))

	next := benscan.Result{ChunkSize: 1, HasChunkSize: true, TotalSize: 11, FileCount: 1}
	require.ErrorIs(t, s.Add(next, 100), ErrTotalsOverflow)
	assert.Equal(t, int64(math.MaxInt64-10), s.TotalSizeSum)

	multi := benscan.Result{TotalSize: 11, FileCount: 200}
	require.ErrorIs(t, s.Add(multi, 100), ErrTotalsOverflow)
	assert.Equal(t, int64(math.MaxInt64-10), s.MultiFileTotalSize)
	assert.Equal(t, int64(200), s.MultiFileTotalCount)

	require.NoError(t, s.Add(benscan.Result{ChunkSize: 1, HasChunkSize: true, TotalSize: 10, FileCount: 1}, 100))
	assert.Equal(t, int64(math.MaxInt64), s.TotalSizeSum)
}

func TestStatsZeroValueUsable(t *testing.T) {
	var s Stats
	require.NoError(t, s.Add(benscan.Result{ChunkSize: 10, HasChunkSize: true, TotalSize: 10, FileCount: 1}, 100))
	avg, ok := s.WeightedAverageChunkSize()
	require.True(t, ok)
	assert.Equal(t, 10.0, avg)
}

func TestSummary(t *testing.T) {
	s := NewStats()
	s.Processed, s.Errors = 4, 1
	require.NoError(t, s.Add(benscan.Result{ChunkSize: 64, HasChunkSize: true, TotalSize: 640, FileCount: 200}, 100))

	sum := s.Summary(100, 2*time.Second)
	assert.Equal(t, int64(4), sum.Processed)
	assert.Equal(t, int64(1), sum.Errors)
	require.NotNil(t, sum.WeightedAverageChunkSize)
	assert.Equal(t, 64.0, *sum.WeightedAverageChunkSize)
	require.NotNil(t, sum.AverageMultiFileFileSize)
	assert.Equal(t, 3.2, *sum.AverageMultiFileFileSize)
	assert.Equal(t, 2.0, sum.DocumentsPerSecond())

	empty := NewStats().Summary(100, 0)
	assert.Nil(t, empty.WeightedAverageChunkSize)
	assert.Nil(t, empty.AverageMultiFileFileSize)
	assert.Zero(t, empty.DocumentsPerSecond())
}
