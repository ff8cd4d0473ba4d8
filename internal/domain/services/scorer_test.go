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

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expected: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, expected: -1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1}, expected: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, expected: 0},
		{name: "empty", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestWeightedScorer(t *testing.T) {
	route := SuggestionRoute{Weight: 0.8}
	low, high := 0.25, 2.0

	score, err := WeightedScorer{}.Score(context.Background(), nil, nil, route, &ports.GeneratedSuggestion{})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, score, 1e-9)

	score, _ = WeightedScorer{}.Score(context.Background(), nil, nil, route, &ports.GeneratedSuggestion{Confidence: &low})
	assert.InDelta(t, 0.2, score, 1e-9)

	score, _ = WeightedScorer{}.Score(context.Background(), nil, nil, route, &ports.GeneratedSuggestion{Confidence: &high})
	assert.InDelta(t, 0.8, score, 1e-9)
}

func TestEmbeddingScorer(t *testing.T) {
	event := &entities.CaseEvent{Title: "Oposición de excepciones"}
	payload := entities.Payload{"summary": "opone prescripción"}
	suggestion := &ports.GeneratedSuggestion{Name: "Respuesta", Content: entities.Payload{"text": "contesta"}}
	route := SuggestionRoute{Weight: 1}

	embedder := &mocks.Embedder{EmbeddingResult: []float32{1, 0, 0}}
	scorer := NewEmbeddingScorer(embedder, 0.5)

	score, err := scorer.Score(context.Background(), event, payload, route, suggestion)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-6)

	embedder.Vectors = map[string][]float32{
		event.Title + "\n" + payloadText(payload): {0, 1, 0},
	}
	score, err = scorer.Score(context.Background(), event, payload, route, suggestion)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-6)

	embedder.Err = errors.New("quota")
	_, err = scorer.Score(context.Background(), event, payload, route, suggestion)
	assert.Error(t, err)
}

func TestPayloadText_SortedKeys(t *testing.T) {
	text := payloadText(entities.Payload{"b": 2, "a": "uno", "c": []any{"x"}})
	assert.Equal(t, "a: uno\nb: 2\nc: [\"x\"]\n", text)
}
