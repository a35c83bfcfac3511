// Package languages wires tree-sitter grammars into a chunker registry.
package languages

import "coderag/internal/chunker"

// RegisterAll registers every bundled grammar. Adding a language means
// adding one Register file here plus one classifier table entry.
func RegisterAll(r *chunker.Registry) {
	RegisterGo(r)
	RegisterPython(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
}
