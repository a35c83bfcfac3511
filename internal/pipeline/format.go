package pipeline

import (
	"fmt"
	"strings"

	"coderag/internal/chunker"
)

// FormatResults renders ranked results as markdown with fenced code blocks,
// for the query command and the MCP search tool.
func FormatResults(query string, results []Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(results))

	for i, r := range results {
		c := r.Chunk
		fmt.Fprintf(&sb, "### Result %d (score %.3f): `%s`\n\n", i+1, r.Score, c.FilePath)
		fmt.Fprintf(&sb, "**Type:** %s  \n**Lines:** %d–%d  \n**Language:** %s\n", c.Type, c.StartLine, c.EndLine, c.Language)
		if name := c.Metadata[chunker.MetaName]; name != "" {
			fmt.Fprintf(&sb, "**Name:** %s\n", name)
		}
		fmt.Fprintf(&sb, "\n```%s\n%s\n```\n\n", c.Language, c.Content)
		if doc := c.Metadata[chunker.MetaDoc]; doc != "" {
			fmt.Fprintf(&sb, "**Documentation:** %s\n\n", doc)
		}
	}

	return sb.String()
}

// FormatSummary renders a snapshot summary for CLI and MCP output.
func FormatSummary(sum Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Repository summary\n\n")
	fmt.Fprintf(&sb, "- Chunks: %d\n", sum.Chunks)
	fmt.Fprintf(&sb, "- Files: %d\n", sum.Files)
	fmt.Fprintf(&sb, "- Total size: %d bytes\n", sum.TotalBytes)

	if len(sum.Languages) > 0 {
		sb.WriteString("- Languages:")
		for i, lang := range sortedKeys(sum.Languages) {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, " %s (%d)", lang, sum.Languages[lang])
		}
		sb.WriteString("\n")
	}
	if len(sum.ChunkTypes) > 0 {
		sb.WriteString("- Chunk types:")
		for i, typ := range sortedKeys(sum.ChunkTypes) {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, " %s (%d)", typ, sum.ChunkTypes[typ])
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
