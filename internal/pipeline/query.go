package pipeline

import (
	"context"
	"fmt"
	"sort"

	"coderag/internal/chunker"
)

// Result is one ranked retrieval hit.
type Result struct {
	Chunk chunker.Chunk
	Score float64
}

// Query embeds text and returns the topK most similar chunks, best first.
// It never mutates the index or cache. Before a repository has been
// processed the result is empty; messaging that is the caller's job.
func (p *Pipeline) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	snap := p.published.Load()
	if snap == nil || snap.index.Len() == 0 {
		return nil, nil
	}

	vec, err := p.adapter.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	hits, err := snap.index.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		// Row order equals chunk order, enforced at build time.
		results[i] = Result{Chunk: snap.chunks[h.Row], Score: h.Score}
	}
	return results, nil
}

// Summary describes the published snapshot.
type Summary struct {
	Chunks     int
	Files      int
	TotalBytes int
	Languages  map[string]int
	ChunkTypes map[string]int
}

// Summarize reports what the current snapshot contains. Empty before the
// first successful build or load.
func (p *Pipeline) Summarize() Summary {
	sum := Summary{
		Languages:  map[string]int{},
		ChunkTypes: map[string]int{},
	}
	snap := p.published.Load()
	if snap == nil {
		return sum
	}

	seen := make(map[string]bool)
	for _, c := range snap.chunks {
		sum.Languages[c.Language]++
		sum.ChunkTypes[string(c.Type)]++
		sum.TotalBytes += c.Size
		seen[c.FilePath] = true
	}
	sum.Chunks = len(snap.chunks)
	sum.Files = len(seen)
	return sum
}

// sortedKeys is a display helper for summary maps.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
