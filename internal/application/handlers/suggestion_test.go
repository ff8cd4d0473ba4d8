package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/mocks"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
)

// reconciledCase creates a case and ingests one notification, which yields
// one REQUEST suggestion.
func reconciledCase(t *testing.T, db *mocks.RelationalDB) string {
	t.Helper()
	createCase(t, NewCaseHandler(db, nil), "case-1")
	path := writeDump(t, t.TempDir(), "case-1.json", jsonDump)
	_, err := NewReconcileHandler(newTestEngine(t, db), nil).Handle(context.Background(), "case-1", path, ReconcileOptions{})
	require.NoError(t, err)
	return "case-1"
}

func TestSuggestionHandler_HandleList(t *testing.T) {
	db := mocks.NewRelationalDB()
	caseID := reconciledCase(t, db)
	h := NewSuggestionHandler(db, nil)

	groups, err := h.HandleList(context.Background(), caseID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, entities.EventNotification, groups[0].Event.Type)
	require.Len(t, groups[0].Suggestions, 1)
	assert.Equal(t, entities.SuggestionRequest, groups[0].Suggestions[0].Type)

	_, err = h.HandleList(context.Background(), "nope")
	assert.ErrorIs(t, err, entities.ErrCaseNotFound)
}

func TestSuggestionHandler_HandleSubmit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		sender       *mocks.SuggestionSender
		wantAttempts int
		wantErr      error
	}{
		{name: "first attempt", sender: &mocks.SuggestionSender{}, wantAttempts: 1},
		{name: "retries transient failures", sender: &mocks.SuggestionSender{FailTimes: 2}, wantAttempts: 3},
		{
			name:         "gives up after max attempts",
			sender:       &mocks.SuggestionSender{FailTimes: 5},
			wantAttempts: 3,
			wantErr:      errors.New("after 3 attempts"),
		},
		{
			name:         "not found is not retried",
			sender:       &mocks.SuggestionSender{FailTimes: 5, Err: entities.ErrSuggestionNotFound},
			wantAttempts: 1,
			wantErr:      entities.ErrSuggestionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := mocks.NewRelationalDB()
			caseID := reconciledCase(t, db)
			groups, err := NewSuggestionHandler(db, nil).HandleList(ctx, caseID)
			require.NoError(t, err)
			suggestionID := groups[0].Suggestions[0].ID

			h := NewSuggestionHandler(db, services.NewSuggestionSubmitter(tt.sender, 0, 0, nil))
			result, err := h.HandleSubmit(ctx, suggestionID)

			require.NotNil(t, result)
			assert.Equal(t, tt.wantAttempts, result.Attempts)
			assert.Equal(t, caseID, result.CaseID)
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
				assert.Equal(t, []string{suggestionID}, tt.sender.Sent)
			case errors.Is(tt.wantErr, entities.ErrSuggestionNotFound):
				assert.ErrorIs(t, err, entities.ErrSuggestionNotFound)
			default:
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			}
		})
	}
}

func TestSuggestionHandler_HandleSubmit_Errors(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewRelationalDB()

	_, err := NewSuggestionHandler(db, nil).HandleSubmit(ctx, "s-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	h := NewSuggestionHandler(db, services.NewSuggestionSubmitter(&mocks.SuggestionSender{}, 0, 0, nil))
	_, err = h.HandleSubmit(ctx, "s-1")
	assert.ErrorIs(t, err, entities.ErrSuggestionNotFound)
}
