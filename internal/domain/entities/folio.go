package entities

import (
	"strings"
	"time"
)

// FolioKey identifies one procedural-log entry on the portal. Matching is
// identifier-exact; only surrounding whitespace is ignored.
type FolioKey struct {
	Folio       int    `json:"folio"`
	CaseNumber  string `json:"case_number"`
	Year        int    `json:"year"`
	Description string `json:"description"`
}

// Canonical returns the key with its string parts trimmed.
func (k FolioKey) Canonical() FolioKey {
	k.CaseNumber = strings.TrimSpace(k.CaseNumber)
	k.Description = strings.TrimSpace(k.Description)
	return k
}

// FolioEntry is an append-only ledger row recording that a log entry was
// ingested.
type FolioEntry struct {
	FolioKey
	Tag       string    `json:"tag"`
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
