package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/pjud-tracker/internal/application/handlers"
)

func newFoliosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folios",
		Short: "Inspect the folio ledger",
	}

	cmd.AddCommand(newFoliosListCmd(), newFoliosPurgeCmd())

	return cmd
}

func newFoliosListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list <role> <year>",
		Short: "List ingested folios for a court role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(format) {
				return fmt.Errorf("invalid format %q, valid formats: %v", format, validFormats)
			}
			year, err := handlers.ParseYear(args[1])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				folios, err := d.Ledger.HandleList(cmd.Context(), args[0], year)
				if err != nil {
					return fmt.Errorf("listing folios: %w", err)
				}
				if format == "json" {
					return writeJSON(cmd.OutOrStdout(), folios)
				}
				printFolios(cmd.OutOrStdout(), folios)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func newFoliosPurgeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "purge <role> <year>",
		Short: "Forget ingested folios so they are re-read on the next run",
		Long: `Deletes the ledger rows of a court role. Events already on the chain are
kept, so a later reconcile re-ingests the purged milestones as new events.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("purge is destructive, pass --yes to confirm")
			}
			year, err := handlers.ParseYear(args[1])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				n, err := d.Ledger.HandlePurge(cmd.Context(), args[0], year)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d folios for %s/%d\n", n, args[0], year)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the purge")

	return cmd
}
