package languages

import (
	"coderag/internal/chunker"

	"github.com/smacker/go-tree-sitter/python"
)

func RegisterPython(r *chunker.Registry) {
	r.Register("python", &chunker.LanguageSpec{
		Language: python.GetLanguage(),
		Query: `
			(module (function_definition name: (identifier) @name) @chunk)
			(module (class_definition name: (identifier) @name) @chunk)
			(module (decorated_definition definition: (function_definition name: (identifier) @name)) @chunk)
			(module (decorated_definition definition: (class_definition name: (identifier) @name)) @chunk)
		`,
	})
}
