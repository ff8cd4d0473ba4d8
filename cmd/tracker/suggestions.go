package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/pjud-tracker/internal/application/handlers"
)

func newSuggestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "List and submit generated suggestions",
	}

	cmd.AddCommand(newSuggestionsListCmd(), newSuggestionsSubmitCmd())

	return cmd
}

func newSuggestionsListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list <case-id>",
		Short: "List the suggestions of a case, by event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(format) {
				return fmt.Errorf("invalid format %q, valid formats: %v", format, validFormats)
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				groups, err := d.Suggestions.HandleList(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("listing suggestions: %w", err)
				}
				if format == "json" {
					return writeJSON(cmd.OutOrStdout(), groups)
				}
				printSuggestions(cmd.OutOrStdout(), groups)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func newSuggestionsSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <suggestion-id>",
		Short: "Submit an accepted suggestion to the portal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubmitHandler(cmd.Context(), func(h *handlers.SuggestionHandler) error {
				result, err := h.HandleSubmit(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted suggestion %s for case %s (%d attempts)\n",
					result.SuggestionID, result.CaseID, result.Attempts)
				return nil
			})
		},
	}
}
