package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/pjud-tracker/internal/application/handlers"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/config"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/relationaldb/sqlite"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new tracker workspace",
		Long:  "Creates a .tracker directory with default configuration and the case database.",
		RunE:  runInit,
	}
}

func openSQLite(cfg config.SQLiteConfig) (ports.RelationalDB, error) {
	repo, err := sqlite.NewRepository(cfg)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	base, err := workspacePath()
	if err != nil {
		return err
	}

	result, err := handlers.NewInitHandler(openSQLite).Handle(cmd.Context(), base)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", result.ConfigPath)
	fmt.Fprintf(out, "Created database: %s\n", result.DatabasePath)
	fmt.Fprintln(out, "Tracker initialized successfully!")
	return nil
}
