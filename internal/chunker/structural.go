package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// structural parses the source with tree-sitter and emits one chunk per
// captured top-level definition. An error or an empty capture set tells the
// caller to fall back to the pattern scanner.
func (c *Chunker) structural(path string, src []byte, lang string, spec *LanguageSpec) ([]Chunk, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", lang, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var captures []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var chunkNode *sitter.Node
		var nameStr string
		for _, cap := range m.Captures {
			switch q.CaptureNameForId(cap.Index) {
			case "chunk":
				chunkNode = cap.Node
			case "name":
				nameStr = cap.Node.Content(src)
			}
		}
		if chunkNode == nil {
			continue
		}
		captures = append(captures, capture{
			name:      nameStr,
			kind:      chunkNode.Type(),
			startLine: int(chunkNode.StartPoint().Row) + 1,
			endLine:   int(chunkNode.EndPoint().Row) + 1,
			startByte: chunkNode.StartByte(),
			endByte:   chunkNode.EndByte(),
		})
	}

	// When captures overlap, keep only the outer (larger) node.
	captures = dedup(captures)

	lines := splitLines(string(src))
	chunks := make([]Chunk, 0, len(captures))
	for _, cap := range captures {
		content := string(src[cap.startByte:cap.endByte])
		meta := map[string]string{MetaMethod: "structural"}
		if cap.name != "" {
			meta[MetaName] = cap.name
		}
		if doc := leadingDoc(lines, cap.startLine, lang); doc != "" {
			meta[MetaDoc] = doc
		}
		chunks = append(chunks, Chunk{
			Content:   content,
			FilePath:  path,
			StartLine: cap.startLine,
			EndLine:   cap.endLine,
			Type:      kindToType(cap.kind),
			Language:  lang,
			Size:      len(content),
			Hash:      HashContent(content),
			Metadata:  meta,
		})
	}
	return chunks, nil
}

type capture struct {
	name      string
	kind      string
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
}

// dedup removes captures that are fully contained within a larger capture.
func dedup(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	// Sort by start byte ascending, then by size descending (larger first).
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		return (caps[i].endByte - caps[i].startByte) > (caps[j].endByte - caps[j].startByte)
	})

	var result []capture
	var lastEnd uint32
	for _, c := range caps {
		if c.startByte >= lastEnd || lastEnd == 0 {
			result = append(result, c)
			if c.endByte > lastEnd {
				lastEnd = c.endByte
			}
		}
		// Skip captures contained within the previous one.
	}
	return result
}

// kindToType maps a tree-sitter node kind to the chunk type enum.
func kindToType(kind string) Type {
	switch {
	case strings.Contains(kind, "class"),
		kind == "type_declaration",
		kind == "interface_declaration",
		kind == "type_alias_declaration":
		return TypeClass
	default:
		return TypeFunction
	}
}

// leadingDoc collects the comment block immediately above startLine.
func leadingDoc(lines []string, startLine int, lang string) string {
	marker := "//"
	switch lang {
	case "python", "ruby", "shell", "yaml":
		marker = "#"
	}

	var doc []string
	for i := startLine - 2; i >= 0; i-- {
		t := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(t, marker) {
			break
		}
		doc = append([]string{strings.TrimSpace(strings.TrimPrefix(t, marker))}, doc...)
	}
	return strings.Join(doc, "\n")
}
