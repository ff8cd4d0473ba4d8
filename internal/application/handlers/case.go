package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
)

// CaseHandler handles case operations at the application layer.
type CaseHandler struct {
	db    ports.RelationalDB
	chain *services.CaseEventChain
}

// NewCaseHandler creates a new CaseHandler.
func NewCaseHandler(db ports.RelationalDB, chain *services.CaseEventChain) *CaseHandler {
	if chain == nil {
		chain = services.NewCaseEventChain()
	}
	return &CaseHandler{
		db:    db,
		chain: chain,
	}
}

// CreateCaseInput describes a new collection case.
type CreateCaseInput struct {
	ID           string
	Title        string
	City         string
	LegalSubject string
	Role         string
	Year         int
	Court        string
	// DemandDate is the filing date of the demand, "dd/mm/yyyy". Optional.
	DemandDate string
	// Simulated cases reconcile onto the simulated branch.
	Simulated bool
}

// HandleCreate creates a DRAFT case together with its DEMAND_START root
// event.
func (h *CaseHandler) HandleCreate(ctx context.Context, in CreateCaseInput) (*entities.Case, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, errors.New("case title is required")
	}
	if strings.TrimSpace(in.Role) == "" {
		return nil, errors.New("court role is required")
	}
	if in.Year <= 0 {
		return nil, errors.New("court role year is required")
	}
	date, err := entities.ParseProcedureDate(in.DemandDate)
	if err != nil {
		return nil, err
	}

	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	c := &entities.Case{
		ID:           id,
		Title:        strings.TrimSpace(in.Title),
		City:         in.City,
		LegalSubject: in.LegalSubject,
		Status:       entities.CaseStatusDraft,
		Role:         strings.TrimSpace(in.Role),
		Year:         in.Year,
		Court:        in.Court,
		Simulated:    in.Simulated,
	}

	spec := entities.Milestones[entities.EventDemandStart]
	err = h.db.RunInTx(ctx, func(q ports.Queries) error {
		existing, err := q.FindCase(ctx, id)
		if err != nil {
			return fmt.Errorf("finding case: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("case %s already exists", id)
		}
		if err := q.SaveCase(ctx, c); err != nil {
			return err
		}
		root := &entities.CaseEvent{
			CaseID:        id,
			Title:         spec.TitleTemplate,
			SourceParty:   spec.Source,
			TargetParty:   spec.Target,
			Type:          entities.EventDemandStart,
			ProcedureDate: date,
			Simulated:     in.Simulated,
		}
		_, err = h.chain.Append(ctx, q, root, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating case: %w", err)
	}
	return c, nil
}

// HandleGet returns a case by id.
func (h *CaseHandler) HandleGet(ctx context.Context, id string) (*entities.Case, error) {
	c, err := h.db.FindCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrCaseNotFound, id)
	}
	return c, nil
}

// HandleList lists cases, optionally filtered by status.
func (h *CaseHandler) HandleList(ctx context.Context, status entities.CaseStatus) ([]*entities.Case, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("unknown case status %q", status)
	}
	return h.db.ListCases(ctx, status)
}

// HandleSetStatus moves a case to status. A winner is recorded only for
// FINISHED cases.
func (h *CaseHandler) HandleSetStatus(ctx context.Context, id string, status entities.CaseStatus, winner *entities.Party) error {
	if !status.IsValid() {
		return fmt.Errorf("unknown case status %q", status)
	}
	if winner != nil && status != entities.CaseStatusFinished {
		return errors.New("a winner can only be set on a finished case")
	}
	return h.db.RunInTx(ctx, func(q ports.Queries) error {
		c, err := q.FindCase(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: %s", entities.ErrCaseNotFound, id)
		}
		c.Status = status
		c.Winner = winner
		return q.SaveCase(ctx, c)
	})
}

// ChainEntry is one event of an ordered branch with its document.
type ChainEntry struct {
	Event    *entities.CaseEvent `json:"event"`
	Document *entities.Document  `json:"document,omitempty"`
}

// HandleChain returns a branch of the case from root to tail.
func (h *CaseHandler) HandleChain(ctx context.Context, caseID string, simulated bool) ([]ChainEntry, error) {
	events, err := h.chain.Ordered(ctx, h.db, caseID, simulated)
	if err != nil {
		return nil, err
	}
	out := make([]ChainEntry, 0, len(events))
	for _, e := range events {
		doc, err := h.db.FindDocumentByEvent(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ChainEntry{Event: e, Document: doc})
	}
	return out, nil
}

// HandleVerify returns every broken chain invariant of the case.
func (h *CaseHandler) HandleVerify(ctx context.Context, caseID string) ([]services.Violation, error) {
	if _, err := h.HandleGet(ctx, caseID); err != nil {
		return nil, err
	}
	return h.chain.Verify(ctx, h.db, caseID)
}

// ParseYear parses a court role year.
func ParseYear(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}
