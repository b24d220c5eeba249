// Package cmd wires the CLI entry points.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nubra-chat",
	Short: "Conversation-memory chat service",
	Long: `nubra-chat serves a multi-turn chat API with session persistence,
bounded conversation memory, and automatic long-term summarization.

Run "nubra-chat serve" to start the HTTP server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
