package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/soundbench/soundbench/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive assistant",
	Long: `Starts an interactive chat session grounded in the indexed manuals.

When a question mentions gear present in the index, relevant manual
sections are retrieved and cited in the answer. Questions about unknown
gear are answered from general knowledge.

Controls:
  Enter  - Send message
  Esc    - Cancel the in-flight reply
  Ctrl+C - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	// Surface provider misconfiguration now rather than on the first message.
	if err := assistantService.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("assistant unavailable: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	return tui.Run(assistantService)
}
