// Package main provides the entry point for the tracker CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version         = "0.1.0-dev"
	globalWorkspace string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "tracker",
		Short:   "Tracks judicial collection cases against the court portal",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&globalWorkspace, "workspace", "C", "", "Workspace directory (defaults to the current directory)")

	rootCmd.AddCommand(
		newInitCmd(),
		newCasesCmd(),
		newReconcileCmd(),
		newSuggestionsCmd(),
		newFoliosCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
