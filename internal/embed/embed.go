// Package embed turns chunk text into vectors through an injected provider.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"coderag/internal/chunker"
)

// Embedder is the provider boundary. Implementations must return one vector
// per input text, in input order, with a fixed dimension for the lifetime of
// an index.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Result reports the outcome of embedding one chunk sequence.
type Result struct {
	Embedded int
	// Failed holds the indices of chunks whose batch failed even after the
	// retry. Their Embedding field stays nil; callers exclude them from the
	// index instead of dropping them silently.
	Failed []int
}

// Adapter batches chunk texts, prepends contextual headers and writes the
// returned vectors back into the chunk slots by index.
type Adapter struct {
	embedder  Embedder
	batchSize int
	log       *slog.Logger
}

// NewAdapter creates an Adapter. batchSize bounds provider load and memory.
func NewAdapter(embedder Embedder, batchSize int, log *slog.Logger) *Adapter {
	if batchSize <= 0 {
		batchSize = 32
	}
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{embedder: embedder, batchSize: batchSize, log: log}
}

// BuildText renders the text actually sent to the provider for a chunk.
// Retrieval quality depends on the location context being embedded together
// with the code, so the header travels with the content.
func BuildText(repoID string, c chunker.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", repoID)
	fmt.Fprintf(&b, "File: %s\n", c.FilePath)
	fmt.Fprintf(&b, "Type: %s\n", c.Type)
	fmt.Fprintf(&b, "Language: %s\n", c.Language)
	if name := c.Metadata[chunker.MetaName]; name != "" {
		fmt.Fprintf(&b, "Name: %s\n", name)
	}
	b.WriteString("Content:\n")
	b.WriteString(c.Content)
	return b.String()
}

// EmbedChunks embeds every chunk in batches, mutating chunks[i].Embedding in
// place. A batch that fails is retried once with the same inputs; a second
// failure marks the batch's chunks as failed and the run continues. Only
// context cancellation aborts the whole call.
func (a *Adapter) EmbedChunks(ctx context.Context, repoID string, chunks []chunker.Chunk) (Result, error) {
	var res Result
	for lo := 0; lo < len(chunks); lo += a.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		hi := min(lo+a.batchSize, len(chunks))

		texts := make([]string, hi-lo)
		for i := lo; i < hi; i++ {
			texts[i-lo] = BuildText(repoID, chunks[i])
		}

		vectors, err := a.embedBatch(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			a.log.Warn("embedding batch failed after retry",
				"batch_start", lo, "batch_len", hi-lo, "err", err)
			for i := lo; i < hi; i++ {
				res.Failed = append(res.Failed, i)
			}
			continue
		}

		for i := lo; i < hi; i++ {
			chunks[i].Embedding = vectors[i-lo]
		}
		res.Embedded += hi - lo
	}
	return res, nil
}

// EmbedQuery embeds a single query string with the same retry policy.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vectors[0], nil
}

// embedBatch calls the provider once, retrying a single time on failure.
// A response with the wrong cardinality counts as a failure.
func (a *Adapter) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := a.call(ctx, texts)
	if err == nil {
		return vectors, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	a.log.Debug("embedding batch failed, retrying once", "err", err)
	return a.call(ctx, texts)
}

func (a *Adapter) call(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := a.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
