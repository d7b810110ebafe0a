package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [input-dir]",
	Short: "Load embedding sets into the vector store",
	Long: `Upserts every embedding set under the input directory into the vector
store. Point IDs are derived from chunk identity, so re-running the
command replaces existing points instead of duplicating them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	inputDir := defaultEmbeddingsDir
	if len(args) > 0 {
		inputDir = args[0]
	}

	result, err := indexService.IndexDir(cmd.Context(), inputDir)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	printStageResult(cmd, "index", result)
	return nil
}
