package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/logger"
)

// DefaultSubmitAttempts bounds suggestion submission retries.
const DefaultSubmitAttempts = 3

// SuggestionSubmitter delivers accepted suggestions to the portal. Delivery
// is at-least-once: an attempt that timed out may still have landed.
type SuggestionSubmitter struct {
	sender      ports.SuggestionSender
	maxAttempts int
	timeout     time.Duration
	log         *logger.Logger
}

// NewSuggestionSubmitter creates a submitter. maxAttempts <= 0 selects
// DefaultSubmitAttempts.
func NewSuggestionSubmitter(sender ports.SuggestionSender, maxAttempts int, timeout time.Duration, log *logger.Logger) *SuggestionSubmitter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultSubmitAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SuggestionSubmitter{sender: sender, maxAttempts: maxAttempts, timeout: timeout, log: log}
}

// Submit sends the suggestion identified by suggestionID on behalf of c,
// retrying immediately on failure. It returns the number of attempts made.
func (s *SuggestionSubmitter) Submit(ctx context.Context, q ports.Queries, c *entities.Case, suggestionID string) (int, error) {
	suggestion, err := q.FindSuggestion(ctx, suggestionID)
	if err != nil {
		return 0, fmt.Errorf("finding suggestion: %w", err)
	}
	if suggestion == nil {
		return 0, fmt.Errorf("%w: %s", entities.ErrSuggestionNotFound, suggestionID)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		lastErr = s.attempt(ctx, c, suggestion)
		if lastErr == nil {
			s.log.Info("suggestion submitted", "suggestion_id", suggestionID, "attempts", attempt)
			return attempt, nil
		}
		if errors.Is(lastErr, entities.ErrSuggestionNotFound) {
			return attempt, lastErr
		}
		s.log.Warn("suggestion submission failed",
			"suggestion_id", suggestionID,
			"attempt", attempt,
			"max_attempts", s.maxAttempts,
			"error", lastErr,
		)
	}
	return s.maxAttempts, fmt.Errorf("submitting suggestion after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *SuggestionSubmitter) attempt(ctx context.Context, c *entities.Case, suggestion *entities.CaseEventSuggestion) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.sender.SendSuggestion(ctx, c, suggestion)
}
