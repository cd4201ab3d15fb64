package main

import (
	"fmt"
	"os"

	"github.com/quorumhq/quorum/internal/cli"
	"github.com/quorumhq/quorum/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quorumd",
		Short: "Quorum daemon",
		Long:  "Quorum daemon for running the API server and the background ingestion worker",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
