// Package chunker splits source files into semantically bounded chunks.
//
// Two strategies exist: structural extraction over a tree-sitter parse for
// languages with a registered grammar, and a pattern-based line scanner for
// everything else. Structural extraction that yields nothing degrades to the
// pattern scanner, so chunking never fails for malformed input.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
)

// Type classifies what a chunk predominantly contains.
type Type string

const (
	TypeFunction Type = "function"
	TypeClass    Type = "class"
	TypeModule   Type = "module"
	TypeComment  Type = "comment"
	TypeMixed    Type = "mixed"
)

// Metadata keys set by the extraction strategies.
const (
	MetaName   = "name"   // symbol name (structural only)
	MetaDoc    = "doc"    // leading documentation comment (structural only)
	MetaMethod = "method" // "structural" or "pattern"
)

// Chunk is a contiguous excerpt of one source file.
type Chunk struct {
	Content   string            `json:"content"`
	FilePath  string            `json:"file_path"`
	StartLine int               `json:"start_line"` // 1-based, inclusive
	EndLine   int               `json:"end_line"`   // 1-based, inclusive
	Type      Type              `json:"chunk_type"`
	Language  string            `json:"language"`
	Size      int               `json:"size"` // byte length of Content
	Hash      string            `json:"content_hash"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	// Embedding is populated by the embedding adapter and never persisted
	// with the chunk record.
	Embedding []float32 `json:"-"`
}

// HashContent returns the hex sha256 digest of content. The digest depends
// on content alone, so identical passages hash identically regardless of
// where their boundaries came from.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
