package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"coderag/internal/pipeline"
)

var flagTopK int

var queryCmd = &cobra.Command{
	Use:   "query <path> <text>",
	Short: "Search an indexed repository with a natural-language query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, text := args[0], args[1]

		p, err := pipeline.New(root, cfg, newEmbedder(), log)
		if err != nil {
			return err
		}

		// Loads from cache; a cache miss triggers a full build first.
		if _, err := p.BuildOrLoad(cmd.Context(), false); err != nil {
			return err
		}

		results, err := p.Query(cmd.Context(), text, flagTopK)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No relevant code found for your query.")
			return nil
		}

		fmt.Print(pipeline.FormatResults(text, results))
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVarP(&flagTopK, "top-k", "k", 5, "number of results to return")
	rootCmd.AddCommand(queryCmd)
}
