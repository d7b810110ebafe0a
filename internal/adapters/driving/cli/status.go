package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundbench/soundbench/internal/core/ports/driven"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-document pipeline progress",
	Long: `Lists every document known to the manifest with its classified brand
and model and a marker per completed pipeline stage.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}

	statuses, err := statusService.Overview(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if len(statuses) == 0 {
		cmd.Println("No documents in the manifest yet. Run 'soundbench convert' first.")
		return nil
	}

	stages := []string{driven.StageConvert, driven.StageChunk, driven.StageEmbed, driven.StageIndex}
	for _, status := range statuses {
		gear := ""
		if status.Brand != "" || status.Model != "" {
			gear = fmt.Sprintf(" (%s %s)", status.Brand, status.Model)
		}
		cmd.Printf("%s%s\n", status.Document, gear)
		for _, stage := range stages {
			marker := " "
			if status.Stages[stage] {
				marker = "x"
			}
			cmd.Printf("  [%s] %s\n", marker, stage)
		}
	}
	return nil
}
