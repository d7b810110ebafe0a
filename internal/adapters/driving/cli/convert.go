package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundbench/soundbench/internal/core/ports/driving"
)

// Default stage directories, relative to the working directory.
const (
	defaultDocumentsDir   = "documents"
	defaultExtractionsDir = "output/extractions"
	defaultChunksDir      = "output/chunks"
	defaultEmbeddingsDir  = "output/embeddings"
)

var (
	convertOutput string
	convertForce  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [input-dir]",
	Short: "Convert PDF manuals to Markdown",
	Long: `Converts every PDF manual under the input directory to Markdown,
preserving heading structure so later stages can chunk by section.
Documents already converted are skipped unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", defaultExtractionsDir, "output directory for Markdown files")
	convertCmd.Flags().BoolVar(&convertForce, "force", false, "re-convert documents even if already done")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if convertService == nil {
		return errors.New("convert service not configured")
	}

	inputDir := defaultDocumentsDir
	if len(args) > 0 {
		inputDir = args[0]
	}

	result, err := convertService.ConvertDir(cmd.Context(), inputDir, convertOutput, convertForce)
	if err != nil {
		return fmt.Errorf("convert failed: %w", err)
	}

	printStageResult(cmd, "convert", result)
	return nil
}

// printStageResult prints the per-stage summary shared by all pipeline
// commands.
func printStageResult(cmd *cobra.Command, stage string, result driving.StageResult) {
	cmd.Printf("%s: %d processed, %d skipped, %d failed\n",
		stage, result.Processed, result.Skipped, result.Failed)
}
