package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternChunker(t *testing.T, opts Options) *Chunker {
	t.Helper()
	return New(NewRegistry(), opts)
}

func TestPatternBoundaryEmission(t *testing.T) {
	c := patternChunker(t, Options{MaxChunkSize: 1000, OverlapSize: 100, MinChunkSize: 1})

	content := strings.Join([]string{
		"import os",
		"",
		"def foo():",
		"    return 1",
		"",
		"def bar():",
		"    return 2",
	}, "\n")

	chunks := c.ChunkFile("a.py", []byte(content), "python")
	require.Len(t, chunks, 3)

	assert.Equal(t, TypeModule, chunks[0].Type)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)

	assert.Equal(t, TypeFunction, chunks[1].Type)
	assert.Equal(t, 3, chunks[1].StartLine)
	assert.Equal(t, 5, chunks[1].EndLine)
	assert.Contains(t, chunks[1].Content, "def foo():")

	assert.Equal(t, TypeFunction, chunks[2].Type)
	assert.Equal(t, 6, chunks[2].StartLine)
	assert.Equal(t, 7, chunks[2].EndLine)

	for _, ch := range chunks {
		assert.Equal(t, "pattern", ch.Metadata[MetaMethod])
		assert.Equal(t, "a.py", ch.FilePath)
		assert.Equal(t, "python", ch.Language)
		assert.Equal(t, len(ch.Content), ch.Size)
		assert.Equal(t, HashContent(ch.Content), ch.Hash)
	}
}

func TestPatternSizeLimitSplitWithOverlap(t *testing.T) {
	c := patternChunker(t, Options{MaxChunkSize: 100, OverlapSize: 20, MinChunkSize: 10})

	// 25 lines of 19 chars with no structural markers; each chunk must stay
	// within the budget and share its first line with the previous chunk's
	// last line.
	line := strings.Repeat("x", 19)
	lines := make([]string, 25)
	for i := range lines {
		lines[i] = line
	}
	content := strings.Join(lines, "\n")

	chunks := c.ChunkFile("notes.txt", []byte(content), "text")
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.LessOrEqual(t, ch.Size, 100, "chunk %d exceeds limit", i)
		if i > 0 {
			prev := chunks[i-1]
			assert.Equal(t, prev.EndLine, ch.StartLine, "chunk %d overlaps predecessor", i)
			assert.Equal(t, "size_limit", prev.Metadata["split_reason"])
			assert.Equal(t, TypeMixed, ch.Type)
		}
	}

	last := chunks[len(chunks)-1]
	assert.Equal(t, 25, last.EndLine)
}

func TestPatternFinalBufferBelowMinDiscarded(t *testing.T) {
	c := patternChunker(t, Options{MaxChunkSize: 1000, OverlapSize: 0, MinChunkSize: 50})

	chunks := c.ChunkFile("tiny.py", []byte("x = 1\n"), "python")
	assert.Empty(t, chunks)
}

func TestPatternDeterministic(t *testing.T) {
	c := patternChunker(t, Options{MaxChunkSize: 120, OverlapSize: 30, MinChunkSize: 5})

	content := strings.Join([]string{
		"// header comment",
		"func alpha() {",
		"\treturn",
		"}",
		"",
		"func beta() {",
		"\treturn",
		"}",
	}, "\n")

	first := c.ChunkFile("m.go", []byte(content), "go")
	second := c.ChunkFile("m.go", []byte(content), "go")
	assert.Equal(t, first, second)
}

func TestPatternUnknownLanguageSingleChunk(t *testing.T) {
	c := patternChunker(t, Options{MaxChunkSize: 1000, OverlapSize: 100, MinChunkSize: 1})

	content := "plain prose with no markers\nsecond line\n"
	chunks := c.ChunkFile("README", []byte(content), "text")
	require.Len(t, chunks, 1)
	assert.Equal(t, TypeMixed, chunks[0].Type)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
}

func TestOverlapTail(t *testing.T) {
	lines := []string{"aaaa", "bbbb", "cccc"}

	assert.Nil(t, overlapTail(lines, 0))
	assert.Equal(t, []string{"cccc"}, overlapTail(lines, 4))
	assert.Equal(t, []string{"bbbb", "cccc"}, overlapTail(lines, 9))
	assert.Equal(t, []string{"aaaa", "bbbb", "cccc"}, overlapTail(lines, 140))

	// a line larger than the bound contributes only its byte suffix
	assert.Equal(t, []string{"line"}, overlapTail([]string{"oversized-line"}, 4))
	assert.Equal(t, []string{"cc"}, overlapTail([]string{"aaaa", "bbcc"}, 2))
}

func TestPatternSplitNearMaxLines(t *testing.T) {
	c := patternChunker(t, Options{MaxChunkSize: 100, OverlapSize: 20, MinChunkSize: 1})

	// Lines near the size bound: no chunk may exceed it, because the carry
	// after a split is capped and dropped when it would not fit.
	content := strings.Join([]string{
		strings.Repeat("a", 90),
		strings.Repeat("b", 95),
		strings.Repeat("c", 10),
		strings.Repeat("d", 10),
	}, "\n")

	chunks := c.ChunkFile("wide.txt", []byte(content), "text")
	require.Len(t, chunks, 3)

	for i, ch := range chunks {
		assert.LessOrEqual(t, ch.Size, 100, "chunk %d exceeds limit", i)
	}

	assert.Equal(t, strings.Repeat("a", 90), chunks[0].Content)
	assert.Equal(t, strings.Repeat("b", 95), chunks[1].Content)

	// the third chunk carries the byte suffix of the previous line
	assert.Equal(t, 2, chunks[2].StartLine)
	assert.Equal(t, 4, chunks[2].EndLine)
	assert.Equal(t,
		strings.Repeat("b", 20)+"\n"+strings.Repeat("c", 10)+"\n"+strings.Repeat("d", 10),
		chunks[2].Content)
}

func TestPatternOnlyAtomicLinesExceedBound(t *testing.T) {
	c := patternChunker(t, Options{MaxChunkSize: 100, OverlapSize: 20, MinChunkSize: 1})

	content := strings.Join([]string{
		strings.Repeat("a", 30),
		strings.Repeat("x", 150), // single line over the bound
		strings.Repeat("b", 30),
	}, "\n")

	chunks := c.ChunkFile("wide.txt", []byte(content), "text")
	require.Len(t, chunks, 3)

	assert.Equal(t, 30, chunks[0].Size)
	assert.Equal(t, 150, chunks[1].Size) // the atomic line, alone
	assert.Equal(t, strings.Repeat("x", 150), chunks[1].Content)
	assert.LessOrEqual(t, chunks[2].Size, 100)
	assert.True(t, strings.HasPrefix(chunks[2].Content, strings.Repeat("x", 20)))
}
