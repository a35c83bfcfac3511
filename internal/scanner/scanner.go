// Package scanner walks a repository tree and yields readable text files.
package scanner

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is an optional gitignore-style file at the repository root
// with extra exclusion patterns.
const IgnoreFileName = ".coderagignore"

// File is a discovered repository file with its decoded content.
type File struct {
	RelPath string // slash-separated, relative to the scanned root
	Content []byte
}

// Options controls file selection.
type Options struct {
	// MaxFileSizeBytes excludes files larger than this. Zero means no limit.
	MaxFileSizeBytes int64
	// ExcludeFragments are path fragments (directory or file names) that
	// exclude a path when any segment contains one of them.
	ExcludeFragments []string
	// IncludeExtensions, when non-empty, restricts selection to these
	// extensions (with or without leading dot).
	IncludeExtensions []string
}

// Scanner selects files under a root directory.
type Scanner struct {
	opts Options
	log  *slog.Logger

	includeExts map[string]bool
}

// New creates a Scanner. A nil logger falls back to slog.Default.
func New(opts Options, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	s := &Scanner{opts: opts, log: log}
	if len(opts.IncludeExtensions) > 0 {
		s.includeExts = make(map[string]bool, len(opts.IncludeExtensions))
		for _, ext := range opts.IncludeExtensions {
			s.includeExts["."+strings.TrimPrefix(strings.ToLower(ext), ".")] = true
		}
	}
	return s
}

// Scan walks root and returns every selected file in lexical traversal
// order, plus the count of candidate files skipped for content reasons
// (empty, oversized, unreadable, binary). Only a failure to walk the tree
// itself is an error.
func (s *Scanner) Scan(ctx context.Context, root string) ([]File, int, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, 0, err
	}

	matcher := s.loadIgnoreFile(absRoot)

	var files []File
	skipped := 0
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Warn("walk error, skipping", "path", path, "err", err)
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.excluded(rel, matcher) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if s.excluded(rel, matcher) {
			return nil
		}
		if s.includeExts != nil && !s.includeExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			skipped++
			return nil
		}
		if info.Size() == 0 {
			skipped++
			return nil
		}
		if s.opts.MaxFileSizeBytes > 0 && info.Size() > s.opts.MaxFileSizeBytes {
			s.log.Debug("skipping oversized file", "path", rel, "size", info.Size())
			skipped++
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			s.log.Warn("skipping unreadable file", "path", rel, "err", readErr)
			skipped++
			return nil
		}
		if !isText(content) {
			s.log.Warn("skipping binary file", "path", rel)
			skipped++
			return nil
		}

		files = append(files, File{RelPath: rel, Content: content})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return files, skipped, nil
}

func (s *Scanner) excluded(rel string, matcher *ignore.GitIgnore) bool {
	for _, frag := range s.opts.ExcludeFragments {
		for _, seg := range strings.Split(rel, "/") {
			if strings.Contains(seg, frag) {
				return true
			}
		}
	}
	if matcher != nil && matcher.MatchesPath(rel) {
		return true
	}
	return false
}

// loadIgnoreFile compiles the optional root-level ignore file. Absence and
// parse failures both mean no extra patterns.
func (s *Scanner) loadIgnoreFile(absRoot string) *ignore.GitIgnore {
	path := filepath.Join(absRoot, IgnoreFileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		s.log.Warn("ignoring unparsable ignore file", "path", path, "err", err)
		return nil
	}
	return matcher
}

// isText reports whether content decodes as text: valid UTF-8 (modulo a
// truncated trailing rune) and no NUL bytes in the leading window.
func isText(content []byte) bool {
	window := content
	if len(window) > 8000 {
		window = window[:8000]
	}
	if bytes.IndexByte(window, 0) >= 0 {
		return false
	}
	return utf8.Valid(window) || utf8.Valid(window[:lastRuneBoundary(window)])
}

func lastRuneBoundary(b []byte) int {
	// Back off up to 3 bytes so a window cut mid-rune doesn't misclassify.
	n := len(b)
	for i := 0; i < 3 && n > 0; i++ {
		if utf8.RuneStart(b[n-1]) {
			break
		}
		n--
	}
	if n > 0 {
		n--
	}
	return n
}
