package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/pjud-tracker/internal/application/handlers"
	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

func newCasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Manage tracked cases",
	}

	cmd.AddCommand(
		newCasesCreateCmd(),
		newCasesListCmd(),
		newCasesShowCmd(),
		newCasesStatusCmd(),
		newCasesChainCmd(),
		newCasesVerifyCmd(),
	)

	return cmd
}

type createFlags struct {
	title      string
	city       string
	subject    string
	role       string
	year       string
	court      string
	demandDate string
	simulated  bool
}

func newCasesCreateCmd() *cobra.Command {
	var flags createFlags

	cmd := &cobra.Command{
		Use:   "create <case-id>",
		Short: "Create a case and its demand milestone",
		Long: `Creates a DRAFT case together with the DEMAND_START event at the root of its chain.

Examples:
  tracker cases create banco-soto --title "Banco con Soto" --role C-1234-2023 --year 2023 --demand-date 01/03/2023`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := handlers.ParseYear(flags.year)
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				c, err := d.Cases.HandleCreate(cmd.Context(), handlers.CreateCaseInput{
					ID:           args[0],
					Title:        flags.title,
					City:         flags.city,
					LegalSubject: flags.subject,
					Role:         flags.role,
					Year:         year,
					Court:        flags.court,
					DemandDate:   flags.demandDate,
					Simulated:    flags.simulated,
				})
				if err != nil {
					return fmt.Errorf("creating case: %w", err)
				}
				printCase(cmd.OutOrStdout(), c)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.title, "title", "", "Case title")
	cmd.Flags().StringVar(&flags.city, "city", "", "City")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "Legal subject")
	cmd.Flags().StringVar(&flags.role, "role", "", "Court role, e.g. C-1234-2023 (required)")
	cmd.Flags().StringVar(&flags.year, "year", "", "Court role year (required)")
	cmd.Flags().StringVar(&flags.court, "court", "", "Court name")
	cmd.Flags().StringVar(&flags.demandDate, "demand-date", "", "Demand filing date, dd/mm/yyyy")
	cmd.Flags().BoolVar(&flags.simulated, "simulated", false, "Track the case on the simulated branch")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

func newCasesListCmd() *cobra.Command {
	var (
		status string
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(format) {
				return fmt.Errorf("invalid format %q, valid formats: %v", format, validFormats)
			}
			filter := entities.CaseStatus(strings.ToUpper(status))
			if status != "" && !filter.IsValid() {
				return fmt.Errorf("unknown case status %q", status)
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				cases, err := d.Cases.HandleList(cmd.Context(), filter)
				if err != nil {
					return fmt.Errorf("listing cases: %w", err)
				}
				out := cmd.OutOrStdout()
				if format == "json" {
					return writeJSON(out, cases)
				}
				if len(cases) == 0 {
					fmt.Fprintln(out, "No cases found.")
					return nil
				}
				for _, c := range cases {
					printCase(out, c)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (DRAFT, ACTIVE, ARCHIVED, FINISHED)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func newCasesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <case-id>",
		Short: "Show a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				c, err := d.Cases.HandleGet(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printCase(cmd.OutOrStdout(), c)
				return nil
			})
		},
	}
}

func newCasesStatusCmd() *cobra.Command {
	var winner string

	cmd := &cobra.Command{
		Use:   "status <case-id> <status>",
		Short: "Change the status of a case",
		Long: `Moves a case to DRAFT, ACTIVE, ARCHIVED or FINISHED.
A winner may only be given for FINISHED cases.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := entities.CaseStatus(strings.ToUpper(args[1]))
			party, err := parseParty(winner)
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.Cases.HandleSetStatus(cmd.Context(), args[0], status, party); err != nil {
					return fmt.Errorf("updating status: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Case %s is now %s\n", args[0], status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&winner, "winner", "", "Winning party (PLAINTIFFS, DEFENDANTS, COURT, EXTERNAL_PARTY)")

	return cmd
}

func newCasesChainCmd() *cobra.Command {
	var (
		simulated bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "chain <case-id>",
		Short: "Show the event chain of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(format) {
				return fmt.Errorf("invalid format %q, valid formats: %v", format, validFormats)
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				entries, err := d.Cases.HandleChain(cmd.Context(), args[0], simulated)
				if err != nil {
					return fmt.Errorf("loading chain: %w", err)
				}
				if format == "json" {
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				printChain(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&simulated, "simulated", false, "Show the simulated branch")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func newCasesVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <case-id>",
		Short: "Check the chain invariants of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				violations, err := d.Cases.HandleVerify(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printViolations(cmd.OutOrStdout(), violations)
				if len(violations) > 0 {
					return fmt.Errorf("case %s has %d chain violations", args[0], len(violations))
				}
				return nil
			})
		},
	}
}

func parseParty(s string) (*entities.Party, error) {
	if s == "" {
		return nil, nil
	}
	party := entities.Party(strings.ToUpper(strings.TrimSpace(s)))
	switch party {
	case entities.PartyPlaintiffs, entities.PartyDefendants, entities.PartyCourt, entities.PartyExternalParty:
		return &party, nil
	default:
		return nil, fmt.Errorf("unknown party %q", s)
	}
}
