// Package ports defines interfaces for external service communication.
package ports

import (
	"context"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

// Queries is the set of storage operations available both on the database
// handle and inside a transaction. Components receive a Queries value
// explicitly; there is no ambient session.
type Queries interface {
	// Case operations

	// SaveCase inserts or updates a case.
	SaveCase(ctx context.Context, c *entities.Case) error

	// FindCase finds a case by id. Returns nil if not found.
	FindCase(ctx context.Context, id string) (*entities.Case, error)

	// ListCases lists cases, optionally filtered by status ("" for all).
	ListCases(ctx context.Context, status entities.CaseStatus) ([]*entities.Case, error)

	// UpdateCaseStatus sets the status of a case.
	UpdateCaseStatus(ctx context.Context, id string, status entities.CaseStatus) error

	// Event operations

	// InsertEvent inserts a new event with the pointers it carries.
	InsertEvent(ctx context.Context, event *entities.CaseEvent) error

	// FindEvent finds an event by id. Returns nil if not found.
	FindEvent(ctx context.Context, id string) (*entities.CaseEvent, error)

	// ListEvents lists every event of a case in creation order.
	ListEvents(ctx context.Context, caseID string) ([]*entities.CaseEvent, error)

	// SetNextEvent sets the successor pointer of an event.
	SetNextEvent(ctx context.Context, eventID string, nextID *string) error

	// SetPreviousEvent sets the predecessor pointer of an event.
	SetPreviousEvent(ctx context.Context, eventID string, previousID *string) error

	// Document operations

	// InsertDocument inserts the document of an event.
	InsertDocument(ctx context.Context, doc *entities.Document) error

	// FindDocumentByEvent finds the document attached to an event.
	FindDocumentByEvent(ctx context.Context, eventID string) (*entities.Document, error)

	// Folio ledger operations

	// FolioExists reports whether a ledger row matches the key.
	FolioExists(ctx context.Context, key entities.FolioKey) (bool, error)

	// RecordFolio appends a ledger row.
	RecordFolio(ctx context.Context, entry *entities.FolioEntry) error

	// ListFolios lists ledger rows for a court role and year.
	ListFolios(ctx context.Context, caseNumber string, year int) ([]entities.FolioEntry, error)

	// PurgeFolios deletes ledger rows for a court role and year and returns
	// how many were removed.
	PurgeFolios(ctx context.Context, caseNumber string, year int) (int, error)

	// Suggestion operations

	// InsertSuggestion inserts a suggestion.
	InsertSuggestion(ctx context.Context, s *entities.CaseEventSuggestion) error

	// FindSuggestion finds a suggestion by id. Returns nil if not found.
	FindSuggestion(ctx context.Context, id string) (*entities.CaseEventSuggestion, error)

	// ListSuggestions lists the suggestions of an event, highest score first.
	ListSuggestions(ctx context.Context, eventID string) ([]*entities.CaseEventSuggestion, error)
}

// RelationalDB is the transactional store behind the ledger.
type RelationalDB interface {
	Queries

	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// RunInTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(q Queries) error) error

	// Close closes the database connection.
	Close() error
}
