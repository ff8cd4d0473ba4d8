// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

// state is the copyable content of the in-memory database.
type state struct {
	cases       map[string]entities.Case
	events      map[string]entities.CaseEvent
	eventOrder  []string
	documents   map[string]entities.Document // keyed by event id
	folios      []entities.FolioEntry
	suggestions map[string]entities.CaseEventSuggestion
	suggOrder   []string
}

func newState() *state {
	return &state{
		cases:       make(map[string]entities.Case),
		events:      make(map[string]entities.CaseEvent),
		documents:   make(map[string]entities.Document),
		suggestions: make(map[string]entities.CaseEventSuggestion),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.cases {
		c.cases[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	for k, v := range s.suggestions {
		c.suggestions[k] = v
	}
	c.eventOrder = append([]string(nil), s.eventOrder...)
	c.folios = append([]entities.FolioEntry(nil), s.folios...)
	c.suggOrder = append([]string(nil), s.suggOrder...)
	return c
}

// RelationalDB is an in-memory implementation of ports.RelationalDB.
// RunInTx works on a copy of the data and swaps it in on success, so a
// failing transaction leaves no trace.
type RelationalDB struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state

	// Err, when set, is returned by every operation.
	Err error
	// FailInsertDocument makes InsertDocument fail, to exercise rollbacks.
	FailInsertDocument error
	// FailInsertSuggestion makes InsertSuggestion fail.
	FailInsertSuggestion error

	// Commits counts successful transactions.
	Commits int
}

// NewRelationalDB creates a new mock RelationalDB.
func NewRelationalDB() *RelationalDB {
	return &RelationalDB{st: newState()}
}

// EnsureSchema creates the database schema if it doesn't exist.
func (m *RelationalDB) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close closes the database connection.
func (m *RelationalDB) Close() error {
	return nil
}

// RunInTx runs fn on a snapshot and commits it if fn succeeds.
func (m *RelationalDB) RunInTx(ctx context.Context, fn func(q ports.Queries) error) error {
	if m.Err != nil {
		return m.Err
	}
	// Transactions are serialized so concurrent snapshots cannot overwrite
	// each other.
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	tx := &txQueries{db: m, st: snapshot}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.st = snapshot
	m.Commits++
	m.mu.Unlock()
	return nil
}

func (m *RelationalDB) direct() *txQueries {
	return &txQueries{db: m, st: nil}
}

// Counts returns the number of events, documents, folio entries and
// suggestions stored.
func (m *RelationalDB) Counts() (events, documents, folios, suggestions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.events), len(m.st.documents), len(m.st.folios), len(m.st.suggestions)
}

// txQueries implements ports.Queries over a snapshot (inside RunInTx) or
// over the live state (st == nil).
type txQueries struct {
	db *RelationalDB
	st *state
}

func (q *txQueries) with(fn func(st *state) error) error {
	if q.db.Err != nil {
		return q.db.Err
	}
	if q.st != nil {
		return fn(q.st)
	}
	q.db.txMu.Lock()
	defer q.db.txMu.Unlock()
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	return fn(q.db.st)
}

// Queries delegated to the live state.

func (m *RelationalDB) SaveCase(ctx context.Context, c *entities.Case) error {
	return m.direct().SaveCase(ctx, c)
}

func (m *RelationalDB) FindCase(ctx context.Context, id string) (*entities.Case, error) {
	return m.direct().FindCase(ctx, id)
}

func (m *RelationalDB) ListCases(ctx context.Context, status entities.CaseStatus) ([]*entities.Case, error) {
	return m.direct().ListCases(ctx, status)
}

func (m *RelationalDB) UpdateCaseStatus(ctx context.Context, id string, status entities.CaseStatus) error {
	return m.direct().UpdateCaseStatus(ctx, id, status)
}

func (m *RelationalDB) InsertEvent(ctx context.Context, e *entities.CaseEvent) error {
	return m.direct().InsertEvent(ctx, e)
}

func (m *RelationalDB) FindEvent(ctx context.Context, id string) (*entities.CaseEvent, error) {
	return m.direct().FindEvent(ctx, id)
}

func (m *RelationalDB) ListEvents(ctx context.Context, caseID string) ([]*entities.CaseEvent, error) {
	return m.direct().ListEvents(ctx, caseID)
}

func (m *RelationalDB) SetNextEvent(ctx context.Context, eventID string, nextID *string) error {
	return m.direct().SetNextEvent(ctx, eventID, nextID)
}

func (m *RelationalDB) SetPreviousEvent(ctx context.Context, eventID string, previousID *string) error {
	return m.direct().SetPreviousEvent(ctx, eventID, previousID)
}

func (m *RelationalDB) InsertDocument(ctx context.Context, d *entities.Document) error {
	return m.direct().InsertDocument(ctx, d)
}

func (m *RelationalDB) FindDocumentByEvent(ctx context.Context, eventID string) (*entities.Document, error) {
	return m.direct().FindDocumentByEvent(ctx, eventID)
}

func (m *RelationalDB) FolioExists(ctx context.Context, key entities.FolioKey) (bool, error) {
	return m.direct().FolioExists(ctx, key)
}

func (m *RelationalDB) RecordFolio(ctx context.Context, e *entities.FolioEntry) error {
	return m.direct().RecordFolio(ctx, e)
}

func (m *RelationalDB) ListFolios(ctx context.Context, caseNumber string, year int) ([]entities.FolioEntry, error) {
	return m.direct().ListFolios(ctx, caseNumber, year)
}

func (m *RelationalDB) PurgeFolios(ctx context.Context, caseNumber string, year int) (int, error) {
	return m.direct().PurgeFolios(ctx, caseNumber, year)
}

func (m *RelationalDB) InsertSuggestion(ctx context.Context, s *entities.CaseEventSuggestion) error {
	return m.direct().InsertSuggestion(ctx, s)
}

func (m *RelationalDB) FindSuggestion(ctx context.Context, id string) (*entities.CaseEventSuggestion, error) {
	return m.direct().FindSuggestion(ctx, id)
}

func (m *RelationalDB) ListSuggestions(ctx context.Context, eventID string) ([]*entities.CaseEventSuggestion, error) {
	return m.direct().ListSuggestions(ctx, eventID)
}

// Case operations.

func (q *txQueries) SaveCase(_ context.Context, c *entities.Case) error {
	return q.with(func(st *state) error {
		st.cases[c.ID] = *c
		return nil
	})
}

func (q *txQueries) FindCase(_ context.Context, id string) (*entities.Case, error) {
	var out *entities.Case
	err := q.with(func(st *state) error {
		if c, ok := st.cases[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (q *txQueries) ListCases(_ context.Context, status entities.CaseStatus) ([]*entities.Case, error) {
	var out []*entities.Case
	err := q.with(func(st *state) error {
		for _, c := range st.cases {
			if status == "" || c.Status == status {
				c := c
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (q *txQueries) UpdateCaseStatus(_ context.Context, id string, status entities.CaseStatus) error {
	return q.with(func(st *state) error {
		c, ok := st.cases[id]
		if !ok {
			return fmt.Errorf("%w: %s", entities.ErrCaseNotFound, id)
		}
		c.Status = status
		st.cases[id] = c
		return nil
	})
}

// Event operations.

func (q *txQueries) InsertEvent(_ context.Context, e *entities.CaseEvent) error {
	return q.with(func(st *state) error {
		if _, dup := st.events[e.ID]; dup {
			return fmt.Errorf("event %s already exists", e.ID)
		}
		st.events[e.ID] = copyEvent(*e)
		st.eventOrder = append(st.eventOrder, e.ID)
		return nil
	})
}

func (q *txQueries) FindEvent(_ context.Context, id string) (*entities.CaseEvent, error) {
	var out *entities.CaseEvent
	err := q.with(func(st *state) error {
		if e, ok := st.events[id]; ok {
			e = copyEvent(e)
			out = &e
		}
		return nil
	})
	return out, err
}

func (q *txQueries) ListEvents(_ context.Context, caseID string) ([]*entities.CaseEvent, error) {
	var out []*entities.CaseEvent
	err := q.with(func(st *state) error {
		for _, id := range st.eventOrder {
			e := st.events[id]
			if e.CaseID == caseID {
				e = copyEvent(e)
				out = append(out, &e)
			}
		}
		return nil
	})
	return out, err
}

func (q *txQueries) SetNextEvent(_ context.Context, eventID string, nextID *string) error {
	return q.with(func(st *state) error {
		e, ok := st.events[eventID]
		if !ok {
			return fmt.Errorf("%w: %s", entities.ErrEventNotFound, eventID)
		}
		e.NextEventID = copyString(nextID)
		st.events[eventID] = e
		return nil
	})
}

func (q *txQueries) SetPreviousEvent(_ context.Context, eventID string, previousID *string) error {
	return q.with(func(st *state) error {
		e, ok := st.events[eventID]
		if !ok {
			return fmt.Errorf("%w: %s", entities.ErrEventNotFound, eventID)
		}
		e.PreviousEventID = copyString(previousID)
		st.events[eventID] = e
		return nil
	})
}

// Document operations.

func (q *txQueries) InsertDocument(_ context.Context, d *entities.Document) error {
	if q.db.FailInsertDocument != nil {
		return q.db.FailInsertDocument
	}
	return q.with(func(st *state) error {
		if _, dup := st.documents[d.EventID]; dup {
			return fmt.Errorf("event %s already has a document", d.EventID)
		}
		st.documents[d.EventID] = *d
		return nil
	})
}

func (q *txQueries) FindDocumentByEvent(_ context.Context, eventID string) (*entities.Document, error) {
	var out *entities.Document
	err := q.with(func(st *state) error {
		if d, ok := st.documents[eventID]; ok {
			out = &d
		}
		return nil
	})
	return out, err
}

// Folio ledger operations.

func (q *txQueries) FolioExists(_ context.Context, key entities.FolioKey) (bool, error) {
	found := false
	err := q.with(func(st *state) error {
		for _, f := range st.folios {
			if f.FolioKey == key {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (q *txQueries) RecordFolio(_ context.Context, e *entities.FolioEntry) error {
	return q.with(func(st *state) error {
		for _, f := range st.folios {
			if f.FolioKey == e.FolioKey {
				return fmt.Errorf("folio %d already recorded", e.Folio)
			}
		}
		st.folios = append(st.folios, *e)
		return nil
	})
}

func (q *txQueries) ListFolios(_ context.Context, caseNumber string, year int) ([]entities.FolioEntry, error) {
	var out []entities.FolioEntry
	err := q.with(func(st *state) error {
		for _, f := range st.folios {
			if f.CaseNumber == caseNumber && f.Year == year {
				out = append(out, f)
			}
		}
		return nil
	})
	return out, err
}

func (q *txQueries) PurgeFolios(_ context.Context, caseNumber string, year int) (int, error) {
	removed := 0
	err := q.with(func(st *state) error {
		kept := st.folios[:0]
		for _, f := range st.folios {
			if f.CaseNumber == caseNumber && f.Year == year {
				removed++
				continue
			}
			kept = append(kept, f)
		}
		st.folios = kept
		return nil
	})
	return removed, err
}

// Suggestion operations.

func (q *txQueries) InsertSuggestion(_ context.Context, s *entities.CaseEventSuggestion) error {
	if q.db.FailInsertSuggestion != nil {
		return q.db.FailInsertSuggestion
	}
	return q.with(func(st *state) error {
		st.suggestions[s.ID] = *s
		st.suggOrder = append(st.suggOrder, s.ID)
		return nil
	})
}

func (q *txQueries) FindSuggestion(_ context.Context, id string) (*entities.CaseEventSuggestion, error) {
	var out *entities.CaseEventSuggestion
	err := q.with(func(st *state) error {
		if s, ok := st.suggestions[id]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

func (q *txQueries) ListSuggestions(_ context.Context, eventID string) ([]*entities.CaseEventSuggestion, error) {
	var out []*entities.CaseEventSuggestion
	err := q.with(func(st *state) error {
		for _, id := range st.suggOrder {
			s := st.suggestions[id]
			if s.EventID == eventID {
				out = append(out, &s)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, err
}

func copyEvent(e entities.CaseEvent) entities.CaseEvent {
	e.PreviousEventID = copyString(e.PreviousEventID)
	e.NextEventID = copyString(e.NextEventID)
	if e.ProcedureDate != nil {
		d := *e.ProcedureDate
		e.ProcedureDate = &d
	}
	return e
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
