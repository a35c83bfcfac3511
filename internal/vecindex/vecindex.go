// Package vecindex implements a flat nearest-neighbor index over
// L2-normalized embeddings. Similarity is the inner product, which equals
// cosine similarity once both sides are unit length.
package vecindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
)

// ErrDimensionMismatch is returned when vectors of differing dimensions are
// offered to one index, or a query does not match the stored dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is one search result: a row position and its similarity score in
// [-1, 1]. Callers must not assume non-negative scores.
type Hit struct {
	Row   int
	Score float64
}

type matrix struct {
	rows [][]float32
	dim  int
}

// Index stores normalized vectors row-major and serves top-k searches.
// Build replaces the whole matrix atomically, so concurrent readers never
// observe partial state.
type Index struct {
	m atomic.Pointer[matrix]
}

// New creates an empty index.
func New() *Index {
	idx := &Index{}
	idx.m.Store(&matrix{})
	return idx
}

// Build normalizes every vector and installs them as the index contents,
// replacing anything built before. All vectors must share one dimension.
func (idx *Index) Build(vectors [][]float32) error {
	m := &matrix{rows: make([][]float32, len(vectors))}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at row %d", ErrDimensionMismatch, i)
		}
		if m.dim == 0 {
			m.dim = len(v)
		} else if len(v) != m.dim {
			return fmt.Errorf("%w: row %d has dim %d, want %d", ErrDimensionMismatch, i, len(v), m.dim)
		}
		m.rows[i] = normalize(v)
	}
	idx.m.Store(m)
	return nil
}

// Len returns the number of stored rows.
func (idx *Index) Len() int {
	return len(idx.m.Load().rows)
}

// Dim returns the stored dimension, 0 when empty.
func (idx *Index) Dim() int {
	return idx.m.Load().dim
}

// Rows exposes the normalized matrix for persistence. Callers must treat
// the returned slices as read-only.
func (idx *Index) Rows() [][]float32 {
	return idx.m.Load().rows
}

// Search returns the topK most similar rows in descending score order, ties
// broken by lower row index. topK larger than the index is clamped; an
// empty index yields an empty result, not an error.
func (idx *Index) Search(query []float32, topK int) ([]Hit, error) {
	m := idx.m.Load()
	if len(m.rows) == 0 || topK <= 0 {
		return nil, nil
	}
	if len(query) != m.dim {
		return nil, fmt.Errorf("%w: query dim %d, index dim %d", ErrDimensionMismatch, len(query), m.dim)
	}

	q := normalize(query)
	hits := make([]Hit, len(m.rows))
	for i, row := range m.rows {
		hits[i] = Hit{Row: i, Score: dot(q, row)}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Row < hits[j].Row
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// normalize returns a unit-length copy. A zero vector is returned as-is; it
// scores 0 against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
