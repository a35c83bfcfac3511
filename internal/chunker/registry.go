package chunker

import (
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageSpec defines the tree-sitter grammar and query for a language.
type LanguageSpec struct {
	Language *sitter.Language
	// Query is a tree-sitter S-expression query that captures top-level
	// definitions. It must use @chunk for the outer node and @name for the
	// identifier (optional).
	Query string
}

// Registry maps language tags (as produced by the language classifier) to
// grammar specs. It is built once at pipeline startup and passed into the
// Chunker; there is no process-wide parser state.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*LanguageSpec)}
}

// Register adds a grammar spec under the given language tag.
func (r *Registry) Register(lang string, spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[lang] = spec
}

// Lookup returns the spec for a language tag, or nil when no grammar is
// registered (caller should use the pattern strategy).
func (r *Registry) Lookup(lang string) *LanguageSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[lang]
}

// Languages returns the tags with a registered grammar, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.specs))
	for lang := range r.specs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
