package main

import (
	"fmt"
	"os"

	"github.com/quorumhq/quorum/internal/cli"
	"github.com/quorumhq/quorum/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "quorum",
		Short: "Quorum CLI - Ask questions about your meetings",
		Long: `Quorum CLI provides commands to ingest meeting material and query it.

Environment variables:
  QUORUM_API_URL   API base URL (default: http://localhost:8080)
  QUORUM_USER_ID   User identifier sent with every request (default: anonymous)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	rootCmd.PersistentFlags().String("user", "", "User identifier (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SourceCmd())
	rootCmd.AddCommand(client.TranscriptCmd())
	rootCmd.AddCommand(client.HistoryCmd())
	rootCmd.AddCommand(client.AgendaCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
