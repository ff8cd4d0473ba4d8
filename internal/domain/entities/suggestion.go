package entities

import "time"

// SuggestionType categorizes a generated candidate response.
type SuggestionType string

const (
	SuggestionCompromise           SuggestionType = "COMPROMISE"
	SuggestionExceptionsResponse   SuggestionType = "EXCEPTIONS_RESPONSE"
	SuggestionDemandTextCorrection SuggestionType = "DEMAND_TEXT_CORRECTION"
	SuggestionResponse             SuggestionType = "RESPONSE"
	SuggestionRequest              SuggestionType = "REQUEST"
	SuggestionOther                SuggestionType = "OTHER"
)

// CaseEventSuggestion is a scored candidate response offered after a new
// milestone.
type CaseEventSuggestion struct {
	ID        string         `json:"id"`
	EventID   string         `json:"event_id"`
	Name      string         `json:"name"`
	Type      SuggestionType `json:"type"`
	Content   Payload        `json:"content"`
	Score     float64        `json:"score"`
	CreatedAt time.Time      `json:"created_at"`
}
