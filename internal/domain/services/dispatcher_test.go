package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/mocks"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

func allGenerators() (map[string]ports.ResponseGenerator, map[string]*mocks.ResponseGenerator) {
	gens := make(map[string]ports.ResponseGenerator)
	raw := make(map[string]*mocks.ResponseGenerator)
	for _, route := range SuggestionRoutes {
		m := &mocks.ResponseGenerator{}
		gens[route.Selector] = m
		raw[route.Selector] = m
	}
	return gens, raw
}

func TestApplicableSuggestions(t *testing.T) {
	tests := []struct {
		name     string
		event    entities.EventType
		payload  entities.Payload
		expected []entities.SuggestionType
	}{
		{
			name:     "exceptions without settlement facts",
			event:    entities.EventExceptions,
			payload:  entities.Payload{},
			expected: []entities.SuggestionType{entities.SuggestionExceptionsResponse},
		},
		{
			name:     "exceptions with explicit flag",
			event:    entities.EventExceptions,
			payload:  entities.Payload{"compromise_eligible": true},
			expected: []entities.SuggestionType{entities.SuggestionExceptionsResponse, entities.SuggestionCompromise},
		},
		{
			name:     "exceptions with outstanding debt",
			event:    entities.EventExceptions,
			payload:  entities.Payload{"debt_amount": 1250000.0},
			expected: []entities.SuggestionType{entities.SuggestionExceptionsResponse, entities.SuggestionCompromise},
		},
		{
			name:     "dispatch resolution with observations",
			event:    entities.EventDispatchResolution,
			payload:  entities.Payload{"observations": "corregir domicilio"},
			expected: []entities.SuggestionType{entities.SuggestionDemandTextCorrection, entities.SuggestionRequest},
		},
		{
			name:     "dispatch resolution without observations",
			event:    entities.EventDispatchResolution,
			payload:  entities.Payload{"observations": ""},
			expected: []entities.SuggestionType{entities.SuggestionRequest},
		},
		{
			name:     "sentence",
			event:    entities.EventSentence,
			expected: []entities.SuggestionType{entities.SuggestionResponse},
		},
		{
			name:  "demand start has none",
			event: entities.EventDemandStart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ApplicableSuggestions(tt.event, tt.payload))
		})
	}
}

func TestSuggestionRoutes_CoverEverySuggestionType(t *testing.T) {
	for _, st := range []entities.SuggestionType{
		entities.SuggestionCompromise,
		entities.SuggestionExceptionsResponse,
		entities.SuggestionDemandTextCorrection,
		entities.SuggestionResponse,
		entities.SuggestionRequest,
		entities.SuggestionOther,
	} {
		route, ok := SuggestionRoutes[st]
		require.True(t, ok, "missing route for %s", st)
		assert.Equal(t, st, route.Type)
		assert.NotEmpty(t, route.Selector)
		assert.Greater(t, route.Weight, 0.0)
	}
}

func TestSuggestionDispatcher_ExceptionsWithCompromise(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewRelationalDB()
	c := setupCase(t, db, "case-1")
	gens, _ := allGenerators()
	dispatcher := NewSuggestionDispatcher(gens, nil, 0, nil)

	event := &entities.CaseEvent{ID: "ev-1", CaseID: c.ID, Type: entities.EventExceptions}
	suggestions, err := dispatcher.Dispatch(ctx, db, c, event, entities.Payload{"compromise_eligible": true})
	require.NoError(t, err)

	var compromise *entities.CaseEventSuggestion
	for _, s := range suggestions {
		if s.Type == entities.SuggestionCompromise {
			compromise = s
		}
	}
	require.NotNil(t, compromise)
	assert.Equal(t, "ev-1", compromise.EventID)
	assert.InDelta(t, SuggestionRoutes[entities.SuggestionCompromise].Weight, compromise.Score, 1e-9)

	stored, err := db.ListSuggestions(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	// Highest score first.
	assert.Equal(t, entities.SuggestionExceptionsResponse, stored[0].Type)
}

func TestSuggestionDispatcher_FailuresAreIndependent(t *testing.T) {
	ctx := context.Background()
	db := mocks.NewRelationalDB()
	c := setupCase(t, db, "case-1")
	gens, raw := allGenerators()
	raw[SelectorExceptionsResponse].Err = errors.New("model overloaded")
	dispatcher := NewSuggestionDispatcher(gens, nil, 0, nil)

	event := &entities.CaseEvent{ID: "ev-1", CaseID: c.ID, Type: entities.EventExceptions}
	suggestions, err := dispatcher.Dispatch(ctx, db, c, event, entities.Payload{"debt_amount": 10})

	require.Error(t, err)
	assert.ErrorContains(t, err, "model overloaded")
	require.Len(t, suggestions, 1)
	assert.Equal(t, entities.SuggestionCompromise, suggestions[0].Type)
	assert.Equal(t, 1, raw[SelectorCompromise].Calls)
}

func TestSuggestionDispatcher_MissingGenerator(t *testing.T) {
	db := mocks.NewRelationalDB()
	c := setupCase(t, db, "case-1")
	dispatcher := NewSuggestionDispatcher(map[string]ports.ResponseGenerator{}, nil, 0, nil)

	event := &entities.CaseEvent{ID: "ev-1", CaseID: c.ID, Type: entities.EventSentence}
	suggestions, err := dispatcher.Dispatch(context.Background(), db, c, event, nil)
	assert.Error(t, err)
	assert.Empty(t, suggestions)
}

func TestSuggestionDispatcher_UsesConfidence(t *testing.T) {
	db := mocks.NewRelationalDB()
	c := setupCase(t, db, "case-1")
	half := 0.5
	gens := map[string]ports.ResponseGenerator{
		SelectorResponse: &mocks.ResponseGenerator{Name: "Apelación", Confidence: &half},
	}
	dispatcher := NewSuggestionDispatcher(gens, WeightedScorer{}, 0, nil)

	event := &entities.CaseEvent{ID: "ev-1", CaseID: c.ID, Type: entities.EventSentence}
	suggestions, err := dispatcher.Dispatch(context.Background(), db, c, event, nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Apelación", suggestions[0].Name)
	assert.InDelta(t, 0.35, suggestions[0].Score, 1e-9)
}
