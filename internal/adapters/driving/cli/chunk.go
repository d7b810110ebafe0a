package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	chunkOutput string
	chunkForce  bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [input-dir]",
	Short: "Split Markdown manuals into contextualised chunks",
	Long: `Splits each converted Markdown manual into section chunks, generates a
situating context for every chunk, and classifies the manual's brand,
model, and product type. Writes one JSON chunk set per document.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().StringVarP(&chunkOutput, "output", "o", defaultChunksDir, "output directory for chunk sets")
	chunkCmd.Flags().BoolVar(&chunkForce, "force", false, "re-chunk documents even if already done")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	if chunkService == nil {
		return errors.New("chunk service not configured")
	}

	inputDir := defaultExtractionsDir
	if len(args) > 0 {
		inputDir = args[0]
	}

	result, err := chunkService.ChunkDir(cmd.Context(), inputDir, chunkOutput, chunkForce)
	if err != nil {
		return fmt.Errorf("chunk failed: %w", err)
	}

	printStageResult(cmd, "chunk", result)
	return nil
}
