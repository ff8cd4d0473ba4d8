package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ersonp/pjud-tracker/internal/application/handlers"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/logger"
)

type reconcileFlags struct {
	rows     string
	dir      string
	format   string
	output   string
	parallel int
	every    time.Duration
}

func newReconcileCmd() *cobra.Command {
	var flags reconcileFlags

	cmd := &cobra.Command{
		Use:   "reconcile [case-id]",
		Short: "Ingest new portal milestones into case chains",
		Long: `Reads procedural-log dumps exported from the court portal and merges new
milestones into the case chains, fetching documents and generating suggestions.

A single case reads its rows from --rows. A directory sweep (--dir) reads one
dump per case, named <case-id>.json or <case-id>.csv, and can repeat with --every.

Examples:
  tracker reconcile banco-soto --rows dumps/banco-soto.json
  tracker reconcile --dir dumps --parallel 4
  tracker reconcile --dir dumps --every 1h`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.rows, "rows", "r", "", "Procedural-log dump for a single case")
	cmd.Flags().StringVarP(&flags.dir, "dir", "d", "", "Directory of per-case dumps")
	cmd.Flags().StringVar(&flags.format, "input-format", "auto", "Dump format: json, csv, auto")
	cmd.Flags().StringVarP(&flags.output, "format", "f", "text", "Output format: text, json")
	cmd.Flags().IntVarP(&flags.parallel, "parallel", "p", 0, "Cases reconciled at once in a sweep (defaults to config)")
	cmd.Flags().DurationVar(&flags.every, "every", 0, "Repeat the directory sweep at this interval")

	return cmd
}

func validateReconcileFlags(args []string, flags reconcileFlags) error {
	if !isValidFormat(flags.output) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.output, validFormats)
	}
	switch {
	case flags.dir != "" && (flags.rows != "" || len(args) > 0):
		return errors.New("--dir cannot be combined with a case id or --rows")
	case flags.dir == "" && (flags.rows == "" || len(args) != 1):
		return errors.New("either <case-id> with --rows, or --dir, is required")
	case flags.every != 0 && flags.dir == "":
		return errors.New("--every requires --dir")
	case flags.every != 0 && flags.every < MinSweepInterval:
		return fmt.Errorf("--every must be at least %s", MinSweepInterval)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string, flags reconcileFlags) error {
	if err := validateReconcileFlags(args, flags); err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	return withReconcileHandler(ctx, func(h *handlers.ReconcileHandler, d *Deps) error {
		if flags.dir == "" {
			summary, err := h.Handle(ctx, args[0], flags.rows, handlers.ReconcileOptions{Format: flags.format})
			if summary != nil {
				if flags.output == "json" {
					if jerr := writeJSON(out, summary); jerr != nil {
						return jerr
					}
				} else {
					printSummary(out, summary)
				}
			}
			return err
		}

		parallel := flags.parallel
		if parallel <= 0 {
			parallel = d.Config.Reconcile.Parallel
		}
		if flags.every == 0 {
			return sweep(ctx, h, out, flags.dir, parallel, flags.output)
		}
		return sweepEvery(ctx, h, d.Log, out, flags, parallel)
	})
}

func sweep(ctx context.Context, h *handlers.ReconcileHandler, out io.Writer, dir string, parallel int, format string) error {
	runs, err := h.HandleDirectory(ctx, dir, parallel)
	if format == "json" {
		if jerr := writeJSON(out, sweepReport(runs)); jerr != nil {
			return jerr
		}
	} else {
		printRuns(out, runs)
	}
	if err != nil {
		return err
	}
	failed := 0
	for _, run := range runs {
		if run.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(runs))
	}
	return nil
}

// sweepEvery repeats the sweep until ctx is cancelled. Failed cases are
// logged and retried on the next tick.
func sweepEvery(ctx context.Context, h *handlers.ReconcileHandler, log *logger.Logger, out io.Writer, flags reconcileFlags, parallel int) error {
	ticker := time.NewTicker(flags.every)
	defer ticker.Stop()

	for {
		if err := sweep(ctx, h, out, flags.dir, parallel, flags.output); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("sweep finished with errors", "dir", flags.dir, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type runReport struct {
	CaseID  string `json:"case_id"`
	File    string `json:"file"`
	Summary any    `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

func sweepReport(runs []handlers.CaseRun) []runReport {
	reports := make([]runReport, 0, len(runs))
	for _, run := range runs {
		r := runReport{CaseID: run.CaseID, File: run.File}
		if run.Summary != nil {
			r.Summary = run.Summary
		}
		if run.Err != nil {
			r.Error = run.Err.Error()
		}
		reports = append(reports, r)
	}
	return reports
}

func printRuns(out io.Writer, runs []handlers.CaseRun) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No dumps found.")
		return
	}
	for _, run := range runs {
		if run.Summary != nil {
			printSummary(out, run.Summary)
		}
		if run.Err != nil {
			fmt.Fprintf(out, "Case %s: error: %v\n", run.CaseID, run.Err)
		}
	}
}
