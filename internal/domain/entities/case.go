// Package entities contains core domain data structures.
package entities

import "time"

// CaseStatus is the lifecycle state of a collection case.
type CaseStatus string

const (
	CaseStatusDraft    CaseStatus = "DRAFT"
	CaseStatusActive   CaseStatus = "ACTIVE"
	CaseStatusArchived CaseStatus = "ARCHIVED"
	CaseStatusFinished CaseStatus = "FINISHED"
)

// IsValid reports whether s is a known case status.
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusDraft, CaseStatusActive, CaseStatusArchived, CaseStatusFinished:
		return true
	}
	return false
}

// Party identifies a side of the procedure, or the court itself.
type Party string

const (
	PartyPlaintiffs    Party = "PLAINTIFFS"
	PartyDefendants    Party = "DEFENDANTS"
	PartyCourt         Party = "COURT"
	PartyExternalParty Party = "EXTERNAL_PARTY"
)

// Case is a judicial-collection case tracked against the court portal.
type Case struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	City         string     `json:"city"`
	LegalSubject string     `json:"legal_subject"`
	Status       CaseStatus `json:"status"`
	Winner       *Party     `json:"winner,omitempty"`
	Simulated    bool       `json:"simulated"`

	// Role is the court role string (e.g. "C-1234-2023") and, together with
	// Year, scopes the folio ledger for this case.
	Role      string    `json:"role"`
	Year      int       `json:"year"`
	Court     string    `json:"court,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
