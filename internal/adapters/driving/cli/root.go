// Package cli implements the soundbench command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/soundbench/soundbench/internal/core/ports/driving"
	"github.com/soundbench/soundbench/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by the composition root before Execute runs.
var (
	convertService   driving.ConvertService
	chunkService     driving.ChunkService
	embedService     driving.EmbedService
	indexService     driving.IndexService
	assistantService driving.AssistantService
	statusService    driving.StatusService
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "soundbench",
	Short: "Grounded Q&A over music equipment manuals",
	Long: `Soundbench turns a directory of PDF equipment manuals into a searchable
knowledge base and answers questions about your studio gear.

The offline pipeline runs in stages:
  convert -> chunk -> embed -> index

Each stage reads the previous stage's output directory and records its
progress, so interrupted runs resume where they left off. Once indexed,
'soundbench chat' starts the interactive assistant.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetConvertService sets the service backing the convert command.
func SetConvertService(s driving.ConvertService) {
	convertService = s
}

// SetChunkService sets the service backing the chunk command.
func SetChunkService(s driving.ChunkService) {
	chunkService = s
}

// SetEmbedService sets the service backing the embed command.
func SetEmbedService(s driving.EmbedService) {
	embedService = s
}

// SetIndexService sets the service backing the index command.
func SetIndexService(s driving.IndexService) {
	indexService = s
}

// SetAssistantService sets the service backing the chat command.
func SetAssistantService(s driving.AssistantService) {
	assistantService = s
}

// SetStatusService sets the service backing the status command.
func SetStatusService(s driving.StatusService) {
	statusService = s
}
