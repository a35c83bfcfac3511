package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig configures the embedding provider. Only the Ollama
// /api/embed endpoint is supported out of the box; any provider can be
// injected programmatically through the pipeline constructor.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Config is the root configuration for scanning, chunking, embedding and
// caching a repository.
type Config struct {
	// File selection.
	MaxFileSizeBytes  int64    `yaml:"max_file_size_bytes"`
	ExcludeFragments  []string `yaml:"exclude_name_fragments"`
	IncludeExtensions []string `yaml:"include_extensions"`

	// Chunking. Sizes are in bytes of chunk content.
	MaxChunkSize int `yaml:"max_chunk_size"`
	OverlapSize  int `yaml:"overlap_size"`
	MinChunkSize int `yaml:"min_chunk_size"`

	// Embedding.
	BatchSize int            `yaml:"batch_size"`
	Embedder  EmbedderConfig `yaml:"embedder"`

	// Pipeline.
	Workers  int    `yaml:"workers"`
	CacheDir string `yaml:"cache_dir"`
}

// DefaultExcludeFragments are path fragments that mark build output, VCS
// metadata and dependency trees.
var DefaultExcludeFragments = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	".venv",
	".idea",
	".vscode",
	".coderag",
	"dist",
	"build",
	"target",
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a YAML config from path. A missing file is not an error; the
// defaults are returned instead.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyDefaults(cfg *Config) {
	if cfg.MaxFileSizeBytes == 0 {
		cfg.MaxFileSizeBytes = 1 << 20
	}
	if cfg.ExcludeFragments == nil {
		cfg.ExcludeFragments = append([]string(nil), DefaultExcludeFragments...)
	}
	if cfg.MaxChunkSize == 0 {
		cfg.MaxChunkSize = 1000
	}
	if cfg.OverlapSize == 0 {
		cfg.OverlapSize = 100
	}
	if cfg.MinChunkSize == 0 {
		cfg.MinChunkSize = 50
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.CacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.CacheDir = filepath.Join(home, ".coderag")
		} else {
			cfg.CacheDir = ".coderag"
		}
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = os.Getenv("OLLAMA_URL")
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "nomic-embed-text"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 120
	}
}
