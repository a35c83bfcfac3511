package vecindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchEmptyIndex(t *testing.T) {
	idx := New()
	hits, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Nil(t, hits)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, idx.Dim())
}

func TestSearchExactMatch(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Build([][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}))

	hits, err := idx.Search([]float32{0, 5, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Row)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestSearchOrderingAndTies(t *testing.T) {
	idx := New()
	// rows 0 and 2 are identical, so they tie; the lower row wins.
	require.NoError(t, idx.Build([][]float32{
		{1, 0},
		{0, 1},
		{1, 0},
	}))

	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 0, hits[0].Row)
	assert.Equal(t, 2, hits[1].Row)
	assert.Equal(t, 1, hits[2].Row)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.GreaterOrEqual(t, hits[1].Score, hits[2].Score)
}

func TestSearchClampsTopK(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Build([][]float32{{1, 0}, {0, 1}}))

	hits, err := idx.Search([]float32{1, 1}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = idx.Search([]float32{1, 1}, 0)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestBuildDimensionMismatch(t *testing.T) {
	idx := New()
	err := idx.Build([][]float32{{1, 0}, {1, 0, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = idx.Build([][]float32{{1, 0}, {}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Build([][]float32{{1, 0, 0}}))

	_, err := idx.Search([]float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuildReplacesContents(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Build([][]float32{{1, 0}, {0, 1}}))
	assert.Equal(t, 2, idx.Len())

	require.NoError(t, idx.Build([][]float32{{0, 0, 1}}))
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 3, idx.Dim())

	hits, err := idx.Search([]float32{0, 0, 2}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestRowsAreNormalized(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Build([][]float32{{3, 4}}))

	rows := idx.Rows()
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.6, float64(rows[0][0]), 1e-6)
	assert.InDelta(t, 0.8, float64(rows[0][1]), 1e-6)
}

func TestZeroVectorScoresZero(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Build([][]float32{{0, 0}, {1, 0}}))

	hits, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Row)
	assert.InDelta(t, 0.0, hits[1].Score, 1e-9)
}
