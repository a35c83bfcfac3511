// Package pipeline builds and queries the semantic index for one
// repository: scan → chunk → embed → index → persist, with cache reuse.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"coderag/internal/cache"
	"coderag/internal/chunker"
	"coderag/internal/chunker/languages"
	"coderag/internal/config"
	"coderag/internal/embed"
	"coderag/internal/language"
	"coderag/internal/scanner"
	"coderag/internal/vecindex"
)

// ErrNeedsRebuild is returned when a previous build failed and the caller
// did not request a forced rebuild.
var ErrNeedsRebuild = errors.New("previous build failed; force a rebuild to recover")

// snapshot is the immutable published result of one successful build.
// Index rows and chunks are aligned: row i belongs to chunks[i].
type snapshot struct {
	chunks    []chunker.Chunk
	index     *vecindex.Index
	histogram map[string]int
}

// Pipeline is bound to one repository root. It is safe for concurrent
// Query calls; BuildOrLoad publishes a fresh snapshot atomically, so
// readers never observe a half-built index.
type Pipeline struct {
	root     string
	locator  string
	identity string

	cfg      *config.Config
	scanner  *scanner.Scanner
	chunk    *chunker.Chunker
	registry *chunker.Registry
	adapter  *embed.Adapter
	store    *cache.Store
	model    string
	log      *slog.Logger

	mu        sync.Mutex
	state     State
	published atomic.Pointer[snapshot]
}

// New creates a pipeline for the repository at root. The embedder is the
// injected provider boundary; cfg.Embedder.Model names it for cache
// invalidation.
func New(root string, cfg *config.Config, embedder embed.Embedder, log *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}

	locator, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}

	registry := chunker.NewRegistry()
	languages.RegisterAll(registry)
	log.Debug("structural grammars registered", "languages", registry.Languages())

	p := &Pipeline{
		root:     root,
		locator:  locator,
		identity: Identity(locator),
		cfg:      cfg,
		scanner: scanner.New(scanner.Options{
			MaxFileSizeBytes:  cfg.MaxFileSizeBytes,
			ExcludeFragments:  cfg.ExcludeFragments,
			IncludeExtensions: cfg.IncludeExtensions,
		}, log),
		chunk: chunker.New(registry, chunker.Options{
			MaxChunkSize: cfg.MaxChunkSize,
			OverlapSize:  cfg.OverlapSize,
			MinChunkSize: cfg.MinChunkSize,
		}),
		registry: registry,
		adapter:  embed.NewAdapter(embedder, cfg.BatchSize, log),
		store:    cache.NewStore(cfg.CacheDir, log),
		model:    cfg.Embedder.Model,
		log:      log.With("identity", Identity(locator)),
		state:    StateUninitialized,
	}
	return p, nil
}

// Identity derives the stable cache key from a repository's source locator.
func Identity(locator string) string {
	sum := sha256.Sum256([]byte(locator))
	return hex.EncodeToString(sum[:8])
}

// Identity returns the cache key for this pipeline's repository.
func (p *Pipeline) Identity() string { return p.identity }

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// BuildOrLoad loads the cached index for this repository, or runs the full
// scan→chunk→embed→index→persist pipeline when the cache misses or force is
// set. Concurrent calls for the same identity are serialized.
func (p *Pipeline) BuildOrLoad(ctx context.Context, force bool) (*BuildReport, error) {
	lock := identityLock(p.identity)
	lock.Lock()
	defer lock.Unlock()

	if p.State() == StateFailed && !force {
		return nil, ErrNeedsRebuild
	}

	start := time.Now()

	if !force {
		if report, ok := p.loadFromCache(); ok {
			report.Duration = time.Since(start)
			return report, nil
		}
	}

	report, err := p.build(ctx)
	if err != nil {
		p.setState(StateFailed)
		return nil, err
	}
	report.Duration = time.Since(start)
	return report, nil
}

// loadFromCache publishes a snapshot from the cache store if a usable
// entry exists. Corrupt entries and entries built with another embedding
// model are misses.
func (p *Pipeline) loadFromCache() (*BuildReport, bool) {
	p.setState(StateLoading)

	entry, ok := p.store.Load(p.identity)
	if !ok {
		return nil, false
	}
	if entry.Model != p.model {
		p.log.Info("embedding model changed, rebuilding",
			"cached", entry.Model, "current", p.model)
		return nil, false
	}

	idx := vecindex.New()
	if err := idx.Build(entry.Vectors); err != nil {
		p.log.Warn("cached vectors unusable, rebuilding", "err", err)
		return nil, false
	}
	if idx.Len() != len(entry.Chunks) {
		p.log.Warn("cached entry misaligned, rebuilding",
			"rows", idx.Len(), "chunks", len(entry.Chunks))
		return nil, false
	}

	p.published.Store(&snapshot{
		chunks:    entry.Chunks,
		index:     idx,
		histogram: entry.Histogram,
	})
	p.setState(StateReady)

	return &BuildReport{
		ChunksCreated:  len(entry.Chunks),
		ChunksEmbedded: len(entry.Chunks),
		FromCache:      true,
		CacheSaved:     true,
	}, true
}

func (p *Pipeline) build(ctx context.Context) (*BuildReport, error) {
	report := &BuildReport{}

	p.setState(StateScanning)
	files, skipped, err := p.scanner.Scan(ctx, p.root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p.root, err)
	}
	report.FilesScanned = len(files)
	report.FilesSkipped = skipped

	p.setState(StateChunking)
	chunks, err := p.chunkFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	report.ChunksCreated = len(chunks)

	histogram := make(map[string]int)
	for _, c := range chunks {
		histogram[c.Language]++
	}

	p.setState(StateEmbedding)
	embedRes, err := p.adapter.EmbedChunks(ctx, p.identity, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	report.ChunksEmbedded = embedRes.Embedded
	report.ChunksFailed = len(embedRes.Failed)

	// Chunks from failed batches are excluded from the snapshot so the
	// index rows and chunk list stay aligned one-to-one.
	kept := chunks
	if len(embedRes.Failed) > 0 {
		failed := make(map[int]bool, len(embedRes.Failed))
		for _, i := range embedRes.Failed {
			failed[i] = true
		}
		kept = make([]chunker.Chunk, 0, len(chunks)-len(embedRes.Failed))
		for i, c := range chunks {
			if !failed[i] {
				kept = append(kept, c)
			}
		}
	}

	p.setState(StateIndexing)
	vectors := make([][]float32, len(kept))
	for i, c := range kept {
		vectors[i] = c.Embedding
	}
	idx := vecindex.New()
	if err := idx.Build(vectors); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if idx.Len() != len(kept) {
		return nil, fmt.Errorf("index has %d rows for %d chunks", idx.Len(), len(kept))
	}

	p.setState(StatePersisting)
	entry := &cache.Entry{
		Chunks:    kept,
		Vectors:   idx.Rows(),
		Histogram: histogram,
		Model:     p.model,
		Source:    p.locator,
	}
	if err := p.store.Save(p.identity, entry); err != nil {
		// The in-memory index stays usable even when persistence fails.
		p.log.Warn("cache save failed", "err", err)
	} else {
		report.CacheSaved = true
	}

	p.published.Store(&snapshot{chunks: kept, index: idx, histogram: histogram})
	p.setState(StateReady)
	return report, nil
}

// chunkFiles chunks every file, fanning out across workers. Results are
// written to per-file slots and merged in discovery order, so the chunk
// sequence is identical however many workers ran.
func (p *Pipeline) chunkFiles(ctx context.Context, files []scanner.File) ([]chunker.Chunk, error) {
	perFile := make([][]chunker.Chunk, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lang := language.Classify(f.RelPath)
			perFile[i] = p.chunk.ChunkFile(f.RelPath, f.Content, lang)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var chunks []chunker.Chunk
	for _, fc := range perFile {
		chunks = append(chunks, fc...)
	}
	return chunks, nil
}
