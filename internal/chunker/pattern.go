package chunker

import (
	"regexp"
	"strings"
)

// lineMarkers are the per-language regexes that classify a line as the start
// of a construct. Order of evaluation is fixed: function, class, import,
// comment.
type lineMarkers struct {
	function *regexp.Regexp
	class    *regexp.Regexp
	imports  *regexp.Regexp
	comment  *regexp.Regexp
}

var patternMarkers = map[string]*lineMarkers{
	"python": {
		function: regexp.MustCompile(`^\s*(?:async\s+)?def\s+\w+\s*\(`),
		class:    regexp.MustCompile(`^\s*class\s+\w+\s*[(:]`),
		imports:  regexp.MustCompile(`^\s*(?:from\s+\S+\s+)?import\s+`),
		comment:  regexp.MustCompile(`^\s*#`),
	},
	"javascript": {
		function: regexp.MustCompile(`^\s*(?:function\s+\w+|\w+\s*[:=]\s*function|\w+\s*=>)`),
		class:    regexp.MustCompile(`^\s*class\s+\w+`),
		imports:  regexp.MustCompile(`^\s*(?:import|export|require)\b`),
		comment:  regexp.MustCompile(`^\s*//`),
	},
	"go": {
		function: regexp.MustCompile(`^\s*func\s+`),
		class:    regexp.MustCompile(`^\s*type\s+\w+\s+(?:struct|interface)\b`),
		imports:  regexp.MustCompile(`^\s*import\s*[("]`),
		comment:  regexp.MustCompile(`^\s*//`),
	},
	"java": {
		function: regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+)?\w+(?:<[^>]*>)?\s+\w+\s*\(`),
		class:    regexp.MustCompile(`^\s*(?:public|private)?\s*class\s+\w+`),
		imports:  regexp.MustCompile(`^\s*import\s+`),
		comment:  regexp.MustCompile(`^\s*//`),
	},
	"cpp": {
		function: regexp.MustCompile(`^\s*(?:\w+\s+)*\w+\s*\([^)]*\)\s*\{`),
		class:    regexp.MustCompile(`^\s*class\s+\w+`),
		imports:  regexp.MustCompile(`^\s*#include\s*[<"]`),
		comment:  regexp.MustCompile(`^\s*//`),
	},
	"ruby": {
		function: regexp.MustCompile(`^\s*def\s+\w+`),
		class:    regexp.MustCompile(`^\s*(?:class|module)\s+\w+`),
		imports:  regexp.MustCompile(`^\s*require\b`),
		comment:  regexp.MustCompile(`^\s*#`),
	},
	"rust": {
		function: regexp.MustCompile(`^\s*(?:pub\s+)?(?:async\s+)?fn\s+\w+`),
		class:    regexp.MustCompile(`^\s*(?:pub\s+)?(?:struct|enum|trait|impl)\b`),
		imports:  regexp.MustCompile(`^\s*use\s+`),
		comment:  regexp.MustCompile(`^\s*//`),
	},
}

func init() {
	patternMarkers["typescript"] = patternMarkers["javascript"]
}

// markerType classifies one line. "code" means no marker matched.
func markerType(m *lineMarkers, line string) string {
	if m == nil {
		return "code"
	}
	switch {
	case m.function != nil && m.function.MatchString(line):
		return "function"
	case m.class != nil && m.class.MatchString(line):
		return "class"
	case m.imports != nil && m.imports.MatchString(line):
		return "import"
	case m.comment != nil && m.comment.MatchString(line):
		return "comment"
	}
	return "code"
}

func markerToType(marker string) Type {
	switch marker {
	case "function":
		return TypeFunction
	case "class":
		return TypeClass
	case "import":
		return TypeModule
	case "comment":
		return TypeComment
	}
	return TypeMixed
}

// pattern scans lines and accumulates them into a running buffer. The
// buffer is emitted when a new function/class marker starts, or when adding
// the next line would push it past MaxChunkSize; in the latter case the
// next buffer starts with an overlap of trailing lines and is typed mixed.
// A final buffer smaller than MinChunkSize is discarded.
func (c *Chunker) pattern(path, content, lang string) []Chunk {
	markers := patternMarkers[lang]
	lines := splitLines(content)

	var chunks []Chunk
	var buf []string
	bufSize := 0
	start := 1
	curType := TypeMixed

	emit := func(endLine int, meta map[string]string) {
		body := strings.Join(buf, "\n")
		if meta == nil {
			meta = map[string]string{}
		}
		meta[MetaMethod] = "pattern"
		chunks = append(chunks, Chunk{
			Content:   body,
			FilePath:  path,
			StartLine: start,
			EndLine:   endLine,
			Type:      curType,
			Language:  lang,
			Size:      len(body),
			Hash:      HashContent(body),
			Metadata:  meta,
		})
	}

	for i, line := range lines {
		ln := i + 1
		lt := markerType(markers, line)

		if (lt == "function" || lt == "class") && len(buf) > 0 {
			emit(ln-1, nil)
			buf = []string{line}
			bufSize = len(line)
			start = ln
			curType = markerToType(lt)
			continue
		}

		if len(buf) > 0 && bufSize+1+len(line) > c.opts.MaxChunkSize {
			emit(ln-1, map[string]string{"split_reason": "size_limit"})
			overlap := overlapTail(buf, c.opts.OverlapSize)
			// A carry that would immediately push the next chunk past the
			// bound is dropped; only a single oversized line may exceed it.
			if len(overlap) > 0 && joinedSize(overlap)+1+len(line) > c.opts.MaxChunkSize {
				overlap = nil
			}
			start = ln - len(overlap)
			buf = append(overlap, line)
			bufSize = joinedSize(buf)
			curType = TypeMixed
			continue
		}

		if len(buf) > 0 {
			bufSize++
		}
		bufSize += len(line)
		buf = append(buf, line)
		if lt != "code" && curType == TypeMixed {
			curType = markerToType(lt)
		}
	}

	if len(buf) > 0 {
		body := strings.Join(buf, "\n")
		if len(strings.TrimSpace(body)) >= c.opts.MinChunkSize {
			emit(len(lines), nil)
		}
	}

	return chunks
}

func joinedSize(lines []string) int {
	size := 0
	for i, l := range lines {
		if i > 0 {
			size++
		}
		size += len(l)
	}
	return size
}

// overlapTail returns the carry for the buffer that follows a forced split:
// the longest suffix of whole trailing lines whose joined byte size stays
// within overlapSize. When even the last line alone is larger, its trailing
// overlapSize bytes are carried instead, so consecutive split chunks always
// share a non-empty prefix without the carry itself breaking the bound.
func overlapTail(buf []string, overlapSize int) []string {
	if overlapSize <= 0 || len(buf) == 0 {
		return nil
	}
	size := 0
	i := len(buf)
	for i > 0 {
		n := len(buf[i-1])
		if size > 0 {
			n++ // joining newline
		}
		if size+n > overlapSize {
			break
		}
		size += n
		i--
	}
	if i == len(buf) {
		last := buf[len(buf)-1]
		return []string{last[len(last)-overlapSize:]}
	}
	out := make([]string, len(buf)-i)
	copy(out, buf[i:])
	return out
}
