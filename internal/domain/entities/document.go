package entities

import "time"

// Payload is a structured extraction payload produced by the content
// generator. The ledger treats it as opaque.
type Payload map[string]any

// Bool returns the boolean stored under key, or false.
func (p Payload) Bool(key string) bool {
	v, ok := p[key].(bool)
	return ok && v
}

// String returns the string stored under key, or "".
func (p Payload) String(key string) string {
	v, _ := p[key].(string)
	return v
}

// Number returns the numeric value stored under key. JSON numbers decode as
// float64; integer values set in code are accepted too.
func (p Payload) Number(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Document is the single document attached to an event at creation time.
type Document struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	Content    Payload   `json:"content"`
	StorageKey *string   `json:"storage_key,omitempty"`
	Generated  bool      `json:"generated"`
	Simulated  bool      `json:"simulated"`
	CreatedAt  time.Time `json:"created_at"`
}
