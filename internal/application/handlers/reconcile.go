package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/logger"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/parsers"
)

// DefaultParallelCases bounds how many cases a directory sweep reconciles
// at once.
const DefaultParallelCases = 4

// ReconcileHandler reconciles procedural-log dumps into case chains.
type ReconcileHandler struct {
	engine *services.ReconciliationEngine
	log    *logger.Logger
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(engine *services.ReconciliationEngine, log *logger.Logger) *ReconcileHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ReconcileHandler{
		engine: engine,
		log:    log,
	}
}

// ReconcileOptions controls reconcile behavior.
type ReconcileOptions struct {
	Format string // "json", "csv", or "auto"
}

// Handle reconciles the case against the rows in filePath.
func (h *ReconcileHandler) Handle(ctx context.Context, caseID, filePath string, opts ReconcileOptions) (*services.Summary, error) {
	rows, err := readRows(filePath, opts.Format)
	if err != nil {
		return nil, err
	}
	return h.HandleRows(ctx, caseID, rows)
}

// HandleRows reconciles the case against rows already in memory.
func (h *ReconcileHandler) HandleRows(ctx context.Context, caseID string, rows []entities.RawLogRow) (*services.Summary, error) {
	return h.engine.Reconcile(ctx, caseID, rows)
}

func readRows(filePath, format string) ([]entities.RawLogRow, error) {
	var parser parsers.Parser
	if format == "" || format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(format)
	}

	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	rows, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}
	return rows, nil
}

// CaseRun is the outcome of one case in a directory sweep.
type CaseRun struct {
	CaseID  string
	File    string
	Summary *services.Summary
	Err     error
}

// HandleDirectory reconciles every "<case-id>.json" or "<case-id>.csv" dump
// in dir, up to parallel cases at a time. A failing case does not stop the
// others; its error is reported on its CaseRun. Results follow file name
// order.
func (h *ReconcileHandler) HandleDirectory(ctx context.Context, dir string, parallel int) ([]CaseRun, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var runs []CaseRun
	for _, entry := range entries {
		if entry.IsDir() || parsers.ForFile(entry.Name()) == nil {
			continue
		}
		runs = append(runs, CaseRun{
			CaseID: parsers.CaseIDFromFile(entry.Name()),
			File:   filepath.Join(dir, entry.Name()),
		})
	}

	if parallel <= 0 {
		parallel = DefaultParallelCases
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := range runs {
		run := &runs[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				run.Err = err
				return nil
			}
			run.Summary, run.Err = h.Handle(gctx, run.CaseID, run.File, ReconcileOptions{})
			if run.Err != nil {
				h.log.Warn("case reconciliation failed", "case_id", run.CaseID, "file", run.File, "error", run.Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return runs, ctx.Err()
}
