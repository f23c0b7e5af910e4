package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Emit debug logs")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "Show token usage and timing after each call")
}

var rootCmd = &cobra.Command{
	Use:   "termbridge",
	Short: "Bridge configured LLM backends and local editing tools",
	Long: `termbridge routes model calls to configured providers and drives a
local aider process for repository edits.

Examples:
  termbridge generate "summarize this diff" --model claude-sonnet-4
  termbridge edit "rename the Server type to Host" -f server.go
  termbridge map                        # repository map from aider
  termbridge sessions                   # recent recorded generations`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var verbose bool
var showStats bool

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
