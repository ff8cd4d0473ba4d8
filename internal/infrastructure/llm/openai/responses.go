package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

const responsePromptHeader = `You draft filings for the plaintiff's lawyer in a Chilean judicial collection case.

Return ONLY a valid JSON object, no other text, with:
- name: a short Spanish name for the draft
- content: an object with "text" (the full draft in Spanish) and optionally "basis" (array of strings citing the facts used)
- confidence: how useful this draft is for the case right now (0.0-1.0)

Task: `

// responseTasks describes what each suggestion type drafts.
var responseTasks = map[entities.SuggestionType]string{
	entities.SuggestionCompromise:           "propose a settlement (avenimiento) to the defendant based on the debt and the exceptions raised.",
	entities.SuggestionExceptionsResponse:   "answer the exceptions opposed by the defendant, rebutting each one.",
	entities.SuggestionDemandTextCorrection: "correct the demand text addressing each observation of the court.",
	entities.SuggestionResponse:             "respond to the court's latest resolution.",
	entities.SuggestionRequest:              "request the next procedural step that moves the case forward.",
	entities.SuggestionOther:                "draft the most useful filing for the current state of the case.",
}

type rawSuggestion struct {
	Name       string           `json:"name"`
	Content    entities.Payload `json:"content"`
	Confidence *float64         `json:"confidence"`
}

// ResponseGenerator returns a generator for one suggestion type.
func (c *Client) ResponseGenerator(t entities.SuggestionType) ports.ResponseGenerator {
	task, ok := responseTasks[t]
	if !ok {
		task = responseTasks[entities.SuggestionOther]
	}
	system := responsePromptHeader + task

	return ports.ResponseGeneratorFunc(func(ctx context.Context, req ports.SuggestionRequest) (*ports.GeneratedSuggestion, error) {
		var out rawSuggestion
		if err := c.complete(ctx, system, suggestionInput(req), &out); err != nil {
			return nil, fmt.Errorf("generating %s suggestion: %w", t, err)
		}
		if out.Content == nil || out.Content.String("text") == "" {
			return nil, fmt.Errorf("generating %s suggestion: empty draft", t)
		}
		if out.Confidence != nil {
			v := min(max(*out.Confidence, 0), 1)
			out.Confidence = &v
		}
		return &ports.GeneratedSuggestion{
			Name:       strings.TrimSpace(out.Name),
			Content:    out.Content,
			Confidence: out.Confidence,
		}, nil
	})
}

func suggestionInput(req ports.SuggestionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case: %s (%s, %s)\n", req.Case.Title, req.Case.Role, req.Case.Court)
	fmt.Fprintf(&b, "Event: %s (%s)\n", req.Event.Title, req.Event.Type)
	if req.Event.ProcedureDate != nil {
		fmt.Fprintf(&b, "Date: %s\n", req.Event.ProcedureDate.Format("02/01/2006"))
	}
	fmt.Fprintf(&b, "Facts: %s\n", payloadJSON(req.Payload))
	return b.String()
}
