package chunker

import "strings"

// Options bounds pattern-based chunk sizes. All sizes are bytes of chunk
// content.
type Options struct {
	MaxChunkSize int
	OverlapSize  int
	MinChunkSize int
}

// Chunker turns one file into a chunk sequence. It is safe for concurrent
// use by multiple goroutines chunking different files.
type Chunker struct {
	registry *Registry
	opts     Options
}

// New creates a Chunker backed by the given parser registry.
func New(registry *Registry, opts Options) *Chunker {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = 1000
	}
	if opts.MinChunkSize < 0 {
		opts.MinChunkSize = 0
	}
	return &Chunker{registry: registry, opts: opts}
}

// ChunkFile splits content into chunks using the best available strategy
// for the language. It never fails: a broken parse, an unregistered grammar
// or a structural pass that captures nothing all degrade to the pattern
// scanner. For identical input and options the result is byte-identical on
// every call.
func (c *Chunker) ChunkFile(path string, content []byte, lang string) []Chunk {
	if spec := c.registry.Lookup(lang); spec != nil {
		chunks, err := c.structural(path, content, lang, spec)
		if err == nil && len(chunks) > 0 {
			return chunks
		}
	}
	return c.pattern(path, string(content), lang)
}

// splitLines keeps the exact line count of the source: a trailing newline
// yields a final empty element, which the scanners account for.
func splitLines(content string) []string {
	return strings.Split(content, "\n")
}
