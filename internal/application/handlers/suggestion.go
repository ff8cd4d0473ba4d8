package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
)

// SuggestionHandler lists and submits suggestions.
type SuggestionHandler struct {
	db        ports.RelationalDB
	submitter *services.SuggestionSubmitter
}

// NewSuggestionHandler creates a new SuggestionHandler. submitter may be nil
// when only listing is needed.
func NewSuggestionHandler(db ports.RelationalDB, submitter *services.SuggestionSubmitter) *SuggestionHandler {
	return &SuggestionHandler{db: db, submitter: submitter}
}

// EventSuggestions groups the suggestions of one event.
type EventSuggestions struct {
	Event       *entities.CaseEvent             `json:"event"`
	Suggestions []*entities.CaseEventSuggestion `json:"suggestions"`
}

// HandleList returns the suggestions of every event of a case, in chain
// order, omitting events without suggestions.
func (h *SuggestionHandler) HandleList(ctx context.Context, caseID string) ([]EventSuggestions, error) {
	c, err := h.db.FindCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrCaseNotFound, caseID)
	}

	events, err := services.NewCaseEventChain().Ordered(ctx, h.db, caseID, false)
	if err != nil {
		return nil, err
	}

	var out []EventSuggestions
	for _, e := range events {
		list, err := h.db.ListSuggestions(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			continue
		}
		out = append(out, EventSuggestions{Event: e, Suggestions: list})
	}
	return out, nil
}

// SubmitResult reports a submission.
type SubmitResult struct {
	SuggestionID string
	CaseID       string
	Attempts     int
}

// HandleSubmit sends an accepted suggestion to the portal.
func (h *SuggestionHandler) HandleSubmit(ctx context.Context, suggestionID string) (*SubmitResult, error) {
	if h.submitter == nil {
		return nil, fmt.Errorf("suggestion submission is not configured")
	}

	s, err := h.db.FindSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrSuggestionNotFound, suggestionID)
	}
	event, err := h.db.FindEvent(ctx, s.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrEventNotFound, s.EventID)
	}
	c, err := h.db.FindCase(ctx, event.CaseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrCaseNotFound, event.CaseID)
	}

	attempts, err := h.submitter.Submit(ctx, h.db, c, suggestionID)
	result := &SubmitResult{SuggestionID: suggestionID, CaseID: c.ID, Attempts: attempts}
	if err != nil {
		return result, err
	}
	return result, nil
}
