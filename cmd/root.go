package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"coderag/internal/config"
	"coderag/internal/embed"
	"coderag/internal/logging"
)

var (
	flagConfig   string
	flagCacheDir string
	flagOllama   string
	flagModel    string
	flagLogJSON  bool
	flagVerbose  bool

	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "coderag",
	Short:         "Code-aware repository indexing and semantic search",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Best effort; a missing .env is the normal case.
		_ = godotenv.Load()

		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		format := "text"
		if flagLogJSON {
			format = "json"
		}
		log = logging.New(logging.Options{Level: level, Format: format})

		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagCacheDir != "" {
			cfg.CacheDir = flagCacheDir
		}
		if flagOllama != "" {
			cfg.Embedder.BaseURL = flagOllama
		}
		if flagModel != "" {
			cfg.Embedder.Model = flagModel
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newEmbedder builds the configured embedding provider.
func newEmbedder() embed.Embedder {
	return embed.NewOllama(
		cfg.Embedder.BaseURL,
		cfg.Embedder.Model,
		time.Duration(cfg.Embedder.TimeoutSecs)*time.Second,
	)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "coderag.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "cache directory (default ~/.coderag)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "ollama base URL (default http://localhost:11434)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "embedding model (default nomic-embed-text)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "log in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}
