// Package language maps file paths to language tags by extension.
package language

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Fallback is the tag returned when a file's language cannot be determined.
const Fallback = "text"

// extensions is the primary classification table. Tags here are the ones the
// chunker keys its strategies on, so additions to the chunker start with an
// entry in this table.
var extensions = map[string]string{
	".py":    "python",
	".pyi":   "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".go":    "go",
	".java":  "java",
	".c":     "cpp",
	".h":     "cpp",
	".cc":    "cpp",
	".cpp":   "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".scala": "scala",
	".kt":    "kotlin",
	".swift": "swift",
	".sh":    "shell",
	".sql":   "sql",
	".md":    "markdown",
	".yml":   "yaml",
	".yaml":  "yaml",
	".json":  "json",
	".toml":  "toml",
	".html":  "html",
	".css":   "css",
}

// Classify returns the language tag for a file path. Extensions missing from
// the static table are resolved through enry's linguist data before falling
// back to "text". Pure function, no I/O.
func Classify(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Fallback
	}
	if tag, ok := extensions[ext]; ok {
		return tag
	}
	if langs := enry.GetLanguagesByExtension(path, nil, nil); len(langs) > 0 {
		return strings.ToLower(langs[0])
	}
	return Fallback
}

// Known reports whether the tag came from the static table, i.e. the chunker
// has language-specific handling for it.
func Known(tag string) bool {
	for _, t := range extensions {
		if t == tag {
			return true
		}
	}
	return false
}
