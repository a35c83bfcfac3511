package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(1<<20), cfg.MaxFileSizeBytes)
	assert.Equal(t, 1000, cfg.MaxChunkSize)
	assert.Equal(t, 100, cfg.OverlapSize)
	assert.Equal(t, 50, cfg.MinChunkSize)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Greater(t, cfg.Workers, 0)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Model)
	assert.Equal(t, 120, cfg.Embedder.TimeoutSecs)
	assert.Contains(t, cfg.ExcludeFragments, "node_modules")
	assert.Contains(t, cfg.ExcludeFragments, ".git")
	assert.NotEmpty(t, cfg.CacheDir)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().MaxChunkSize, cfg.MaxChunkSize)
}

func TestLoadAppliesOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coderag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"max_chunk_size: 2000\n"+
			"embedder:\n"+
			"  model: mxbai-embed-large\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.MaxChunkSize)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedder.Model)
	// everything unset still defaults
	assert.Equal(t, 100, cfg.OverlapSize)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, "http://localhost:11434", cfg.Embedder.BaseURL)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_chunk_size: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coderag.yaml")
	want := Default()
	want.MaxChunkSize = 1234
	want.IncludeExtensions = []string{"go", "py"}

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, got.MaxChunkSize)
	assert.Equal(t, []string{"go", "py"}, got.IncludeExtensions)
}
