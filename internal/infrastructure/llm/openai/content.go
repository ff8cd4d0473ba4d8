package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

const contentPrompt = `You read entries of a Chilean judicial collection case (juicio ejecutivo) and extract structured facts about one procedural milestone.

Return ONLY a valid JSON object, no other text, with:
- title: a short Spanish title for the milestone
- payload: an object with the facts you can support from the entry and the document text. Use these keys when applicable:
  - debtor (string), creditor (string)
  - debt_amount (number, CLP)
  - observations (array of strings; defects the court asks the plaintiff to fix)
  - exceptions (array of strings; exceptions opposed by the defendant)
  - compromise_eligible (boolean; whether a settlement looks viable)
  - notification_result ("positive" | "negative")
  - summary (string)

Example:
{"title": "Oposición de excepciones", "payload": {"exceptions": ["prescripción"], "compromise_eligible": true, "summary": "El ejecutado opone excepción de prescripción."}}`

type rawContent struct {
	Title   string           `json:"title"`
	Payload entities.Payload `json:"payload"`
}

// Generate extracts the title and payload of a milestone.
func (c *Client) Generate(ctx context.Context, req ports.GenerationRequest) (*ports.GeneratedContent, error) {
	var out rawContent
	if err := c.complete(ctx, contentPrompt, contentInput(req), &out); err != nil {
		return nil, fmt.Errorf("generating %s content: %w", req.Tag, err)
	}
	if out.Payload == nil {
		out.Payload = entities.Payload{}
	}
	return &ports.GeneratedContent{
		Title:   strings.TrimSpace(out.Title),
		Payload: out.Payload,
	}, nil
}

func contentInput(req ports.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case: %s (%s, %s)\n", req.Case.Title, req.Case.Role, req.Case.Court)
	fmt.Fprintf(&b, "Milestone: %s\n", req.Tag)
	fmt.Fprintf(&b, "Folio: %s\nDate: %s\nProcedure: %s\nDescription: %s\n",
		req.Row.Folio, req.Row.Date, req.Row.Procedure, req.Row.Description)

	if len(req.Document) > 0 {
		// Unreadable documents are sent without text; the entry still
		// carries enough to title the milestone.
		if text, err := extractPDFText(req.Document); err == nil && text != "" {
			b.WriteString("\nDocument text:\n")
			b.WriteString(truncate(text, maxDocumentChars))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// payloadJSON renders a payload for a prompt.
func payloadJSON(p entities.Payload) string {
	if len(p) == 0 {
		return "{}"
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(data)
}
