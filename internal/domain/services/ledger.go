package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

// FolioLedger answers whether a procedural-log entry was already ingested.
// It is append-only in the normal flow; Purge is an administrative action.
type FolioLedger struct{}

// NewFolioLedger creates a new folio ledger.
func NewFolioLedger() *FolioLedger {
	return &FolioLedger{}
}

// KeyFor builds the ledger key of a row on a case.
func (l *FolioLedger) KeyFor(c *entities.Case, r entities.RawLogRow) (entities.FolioKey, error) {
	folio, err := r.FolioNumber()
	if err != nil {
		return entities.FolioKey{}, err
	}
	return entities.FolioKey{
		Folio:       folio,
		CaseNumber:  c.Role,
		Year:        c.Year,
		Description: r.Description,
	}.Canonical(), nil
}

// Exists reports whether the key was already recorded.
func (l *FolioLedger) Exists(ctx context.Context, q ports.Queries, key entities.FolioKey) (bool, error) {
	exists, err := q.FolioExists(ctx, key.Canonical())
	if err != nil {
		return false, fmt.Errorf("checking folio %d: %w", key.Folio, err)
	}
	return exists, nil
}

// Record appends an entry. Callers record only after the matching event is
// written in the same transaction.
func (l *FolioLedger) Record(ctx context.Context, q ports.Queries, entry *entities.FolioEntry) error {
	if strings.TrimSpace(entry.Tag) == "" {
		return errors.New("folio entry requires a milestone tag")
	}
	entry.FolioKey = entry.FolioKey.Canonical()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := q.RecordFolio(ctx, entry); err != nil {
		return fmt.Errorf("recording folio %d: %w", entry.Folio, err)
	}
	return nil
}

// Purge removes every entry for a court role and year.
func (l *FolioLedger) Purge(ctx context.Context, q ports.Queries, caseNumber string, year int) (int, error) {
	caseNumber = strings.TrimSpace(caseNumber)
	if caseNumber == "" {
		return 0, errors.New("case number is required")
	}
	n, err := q.PurgeFolios(ctx, caseNumber, year)
	if err != nil {
		return 0, fmt.Errorf("purging folios for %s/%d: %w", caseNumber, year, err)
	}
	return n, nil
}
