package handlers

import (
	"context"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
)

// LedgerHandler exposes the folio ledger.
type LedgerHandler struct {
	db     ports.RelationalDB
	ledger *services.FolioLedger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(db ports.RelationalDB, ledger *services.FolioLedger) *LedgerHandler {
	if ledger == nil {
		ledger = services.NewFolioLedger()
	}
	return &LedgerHandler{db: db, ledger: ledger}
}

// HandleList lists ledger rows for a court role and year.
func (h *LedgerHandler) HandleList(ctx context.Context, caseNumber string, year int) ([]entities.FolioEntry, error) {
	return h.db.ListFolios(ctx, caseNumber, year)
}

// HandlePurge deletes ledger rows for a court role and year. Events already
// on the chain are left untouched.
func (h *LedgerHandler) HandlePurge(ctx context.Context, caseNumber string, year int) (int, error) {
	var n int
	err := h.db.RunInTx(ctx, func(q ports.Queries) error {
		var err error
		n, err = h.ledger.Purge(ctx, q, caseNumber, year)
		return err
	})
	return n, err
}
