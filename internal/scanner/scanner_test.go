package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func relPaths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestScanSelectsTextFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", []byte("package a\n"))
	writeFile(t, root, "sub/b.py", []byte("x = 1\n"))
	writeFile(t, root, "bin.dat", []byte{0x00, 0x01, 0x02, 0xff})
	writeFile(t, root, "empty.txt", nil)
	writeFile(t, root, "node_modules/lib.js", []byte("module.exports = {}\n"))
	writeFile(t, root, ".git/HEAD", []byte("ref: refs/heads/main\n"))

	s := New(Options{ExcludeFragments: []string{"node_modules", ".git"}}, nil)
	files, skipped, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "sub/b.py"}, relPaths(files))
	assert.Equal(t, []byte("package a\n"), files[0].Content)
	assert.Equal(t, 2, skipped) // the binary and the empty file
}

func TestScanDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"z.go", "m/inner.go", "a.go", "b/deep/x.go"} {
		writeFile(t, root, name, []byte("package p\n"))
	}

	s := New(Options{}, nil)
	first, _, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	second, _, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "b/deep/x.go", "m/inner.go", "z.go"}, relPaths(first))
	assert.Equal(t, relPaths(first), relPaths(second))
}

func TestScanMaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", []byte("ok\n"))
	writeFile(t, root, "large.txt", []byte(strings.Repeat("a", 256)))

	s := New(Options{MaxFileSizeBytes: 64}, nil)
	files, _, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"small.txt"}, relPaths(files))
}

func TestScanIncludeExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", []byte("package k\n"))
	writeFile(t, root, "keep.py", []byte("pass\n"))
	writeFile(t, root, "drop.md", []byte("# notes\n"))

	s := New(Options{IncludeExtensions: []string{"go", ".PY"}}, nil)
	files, _, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"keep.go", "keep.py"}, relPaths(files))
}

func TestScanIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, IgnoreFileName, []byte("secret/\n*.log\n"))
	writeFile(t, root, "app.go", []byte("package app\n"))
	writeFile(t, root, "secret/key.pem", []byte("-----BEGIN KEY-----\n"))
	writeFile(t, root, "debug.log", []byte("line\n"))

	s := New(Options{ExcludeFragments: []string{".coderagignore"}}, nil)
	files, _, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"app.go"}, relPaths(files))
}

func TestScanSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.go", []byte("package real\n"))
	if err := os.Symlink(filepath.Join(root, "real.go"), filepath.Join(root, "link.go")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	s := New(Options{}, nil)
	files, _, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"real.go"}, relPaths(files))
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", []byte("package a\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Options{}, nil)
	_, _, err := s.Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsText(t *testing.T) {
	assert.True(t, isText([]byte("hello world")))
	assert.True(t, isText([]byte("héllo wörld")))
	assert.False(t, isText([]byte{0x00, 0x41}))
	assert.False(t, isText([]byte{0xff, 0xfe, 0x41}))
}
