package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	embedOutput string
	embedForce  bool
)

var embedCmd = &cobra.Command{
	Use:   "embed [input-dir]",
	Short: "Generate embeddings for chunk sets",
	Long: `Embeds every chunk set under the input directory in batches, writing
one JSON embedding set per document. Each chunk's context and text are
embedded together so retrieval sees the situated form.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVarP(&embedOutput, "output", "o", defaultEmbeddingsDir, "output directory for embedding sets")
	embedCmd.Flags().BoolVar(&embedForce, "force", false, "re-embed documents even if already done")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	if embedService == nil {
		return errors.New("embed service not configured")
	}

	inputDir := defaultChunksDir
	if len(args) > 0 {
		inputDir = args[0]
	}

	result, err := embedService.EmbedDir(cmd.Context(), inputDir, embedOutput, embedForce)
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}

	printStageResult(cmd, "embed", result)
	return nil
}
