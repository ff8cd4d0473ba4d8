package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

// Scorer assigns a usefulness score in [0,1] to a generated suggestion.
type Scorer interface {
	Score(ctx context.Context, event *entities.CaseEvent, payload entities.Payload, route SuggestionRoute, s *ports.GeneratedSuggestion) (float64, error)
}

// WeightedScorer scores a suggestion as its route weight times the
// generator's confidence. A missing confidence counts as 1.
type WeightedScorer struct{}

// Score implements Scorer.
func (WeightedScorer) Score(_ context.Context, _ *entities.CaseEvent, _ entities.Payload, route SuggestionRoute, s *ports.GeneratedSuggestion) (float64, error) {
	confidence := 1.0
	if s.Confidence != nil {
		confidence = clamp01(*s.Confidence)
	}
	return clamp01(route.Weight * confidence), nil
}

// EmbeddingScorer blends the route weight with the cosine similarity of the
// event payload and the suggestion content.
type EmbeddingScorer struct {
	embedder ports.Embedder
	// Blend is the share of the score taken by similarity (0..1).
	Blend float64
}

// NewEmbeddingScorer creates an embedding-based scorer.
func NewEmbeddingScorer(embedder ports.Embedder, blend float64) *EmbeddingScorer {
	return &EmbeddingScorer{embedder: embedder, Blend: clamp01(blend)}
}

// Score implements Scorer.
func (e *EmbeddingScorer) Score(ctx context.Context, event *entities.CaseEvent, payload entities.Payload, route SuggestionRoute, s *ports.GeneratedSuggestion) (float64, error) {
	base, _ := WeightedScorer{}.Score(ctx, event, payload, route, s)

	vectors, err := e.embedder.EmbedBatch(ctx, []string{
		event.Title + "\n" + payloadText(payload),
		s.Name + "\n" + payloadText(s.Content),
	})
	if err != nil {
		return 0, fmt.Errorf("embedding suggestion: %w", err)
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("expected 2 embeddings, got %d", len(vectors))
	}

	similarity := clamp01(CosineSimilarity(vectors[0], vectors[1]))
	return clamp01((1-e.Blend)*base + e.Blend*similarity), nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either is empty, zero, or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// payloadText flattens a payload into "key: value" lines in key order.
func payloadText(p entities.Payload) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		var v string
		switch val := p[k].(type) {
		case string:
			v = val
		default:
			raw, err := json.Marshal(val)
			if err != nil {
				continue
			}
			v = string(raw)
		}
		fmt.Fprintf(&sb, "%s: %s\n", k, v)
	}
	return sb.String()
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
