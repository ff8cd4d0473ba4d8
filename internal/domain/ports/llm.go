package ports

import (
	"context"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

// GenerationRequest is the input of the content generator for one milestone.
type GenerationRequest struct {
	Case      entities.Case
	Tag       entities.MilestoneTag
	Row       entities.RawLogRow
	Milestone entities.MilestoneSpec
	// Document holds the fetched PDF bytes, if the milestone required one.
	Document []byte
}

// GeneratedContent is the structured extraction for a milestone.
type GeneratedContent struct {
	Title   string
	Payload entities.Payload
}

// ContentGenerator extracts structured facts for a new milestone.
type ContentGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GeneratedContent, error)
}

// SuggestionRequest is the input of a response generator.
type SuggestionRequest struct {
	Case    entities.Case
	Event   entities.CaseEvent
	Type    entities.SuggestionType
	Payload entities.Payload
}

// GeneratedSuggestion is a candidate response. Confidence is the
// generator's own estimate in [0,1]; nil when the generator gives none.
type GeneratedSuggestion struct {
	Name       string
	Content    entities.Payload
	Confidence *float64
}

// ResponseGenerator produces one kind of suggestion.
type ResponseGenerator interface {
	GenerateSuggestion(ctx context.Context, req SuggestionRequest) (*GeneratedSuggestion, error)
}

// ResponseGeneratorFunc adapts a function to ResponseGenerator.
type ResponseGeneratorFunc func(ctx context.Context, req SuggestionRequest) (*GeneratedSuggestion, error)

// GenerateSuggestion calls f.
func (f ResponseGeneratorFunc) GenerateSuggestion(ctx context.Context, req SuggestionRequest) (*GeneratedSuggestion, error) {
	return f(ctx, req)
}
