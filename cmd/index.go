package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"coderag/internal/pipeline"
)

var (
	flagForce   bool
	flagWorkers int
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Build or load the semantic index for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagWorkers > 0 {
			cfg.Workers = flagWorkers
		}

		p, err := pipeline.New(args[0], cfg, newEmbedder(), log)
		if err != nil {
			return err
		}

		fmt.Printf("Indexing %s (identity %s)...\n", args[0], p.Identity())
		report, err := p.BuildOrLoad(cmd.Context(), flagForce)
		if err != nil {
			return err
		}

		if report.FromCache {
			fmt.Printf("Loaded %d chunks from cache in %s\n",
				report.ChunksCreated, report.Duration.Round(time.Millisecond))
			return nil
		}

		fmt.Printf("\nDone in %s\n", report.Duration.Round(time.Millisecond))
		fmt.Printf("  Files scanned:   %d\n", report.FilesScanned)
		if report.FilesSkipped > 0 {
			fmt.Printf("  Files skipped:   %d\n", report.FilesSkipped)
		}
		fmt.Printf("  Chunks created:  %d\n", report.ChunksCreated)
		fmt.Printf("  Chunks embedded: %d\n", report.ChunksEmbedded)
		if report.ChunksFailed > 0 {
			fmt.Printf("  Chunks failed:   %d (excluded from index)\n", report.ChunksFailed)
		}
		if !report.CacheSaved {
			fmt.Println("  Warning: cache save failed; index is in-memory only")
		}

		fmt.Println()
		fmt.Print(pipeline.FormatSummary(p.Summarize()))
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "rebuild even when a cache entry exists")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel chunking workers (default NumCPU)")
	rootCmd.AddCommand(indexCmd)
}
