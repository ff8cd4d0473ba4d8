package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// queries implements ports.Queries on a connection or a transaction.
type queries struct {
	q querier
}

// Case operations

const caseColumns = `id, title, city, legal_subject, status, winner, simulated, role, year, court, created_at, updated_at`

// SaveCase inserts or updates a case.
func (s *queries) SaveCase(ctx context.Context, c *entities.Case) error {
	now := timeNow().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT INTO cases (` + caseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			city = excluded.city,
			legal_subject = excluded.legal_subject,
			status = excluded.status,
			winner = excluded.winner,
			simulated = excluded.simulated,
			role = excluded.role,
			year = excluded.year,
			court = excluded.court,
			updated_at = excluded.updated_at
	`
	var winner sql.NullString
	if c.Winner != nil {
		winner = sql.NullString{String: string(*c.Winner), Valid: true}
	}
	_, err := s.q.ExecContext(ctx, query,
		c.ID,
		c.Title,
		c.City,
		c.LegalSubject,
		c.Status,
		winner,
		c.Simulated,
		c.Role,
		c.Year,
		c.Court,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving case: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*entities.Case, error) {
	var (
		c      entities.Case
		winner sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.City,
		&c.LegalSubject,
		&c.Status,
		&winner,
		&c.Simulated,
		&c.Role,
		&c.Year,
		&c.Court,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if winner.Valid {
		party := entities.Party(winner.String)
		c.Winner = &party
	}
	return &c, nil
}

// FindCase finds a case by id. Returns nil if not found.
func (s *queries) FindCase(ctx context.Context, id string) (*entities.Case, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = ?`, id)
	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning case: %w", err)
	}
	return c, nil
}

// ListCases lists cases, optionally filtered by status.
func (s *queries) ListCases(ctx context.Context, status entities.CaseStatus) ([]*entities.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cases: %w", err)
	}
	defer rows.Close()

	var result []*entities.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// UpdateCaseStatus sets the status of a case.
func (s *queries) UpdateCaseStatus(ctx context.Context, id string, status entities.CaseStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE cases SET status = ?, updated_at = ? WHERE id = ?`,
		status, timeNow().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating case status: %w", err)
	}
	return requireAffected(res, entities.ErrCaseNotFound, id)
}

// Event operations

const eventColumns = `id, case_id, title, source_party, target_party, type, simulated, procedure_date, created_at, previous_event_id, next_event_id`

// InsertEvent inserts a new event with the pointers it carries.
func (s *queries) InsertEvent(ctx context.Context, e *entities.CaseEvent) error {
	var date sql.NullTime
	if e.ProcedureDate != nil {
		date = sql.NullTime{Time: *e.ProcedureDate, Valid: true}
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO case_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.CaseID,
		e.Title,
		e.SourceParty,
		e.TargetParty,
		e.Type,
		e.Simulated,
		date,
		e.CreatedAt,
		nullString(e.PreviousEventID),
		nullString(e.NextEventID),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func scanEvent(row rowScanner) (*entities.CaseEvent, error) {
	var (
		e          entities.CaseEvent
		date       sql.NullTime
		prev, next sql.NullString
	)
	err := row.Scan(
		&e.ID,
		&e.CaseID,
		&e.Title,
		&e.SourceParty,
		&e.TargetParty,
		&e.Type,
		&e.Simulated,
		&date,
		&e.CreatedAt,
		&prev,
		&next,
	)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		d := date.Time
		e.ProcedureDate = &d
	}
	e.PreviousEventID = stringPtr(prev)
	e.NextEventID = stringPtr(next)
	return &e, nil
}

// FindEvent finds an event by id. Returns nil if not found.
func (s *queries) FindEvent(ctx context.Context, id string) (*entities.CaseEvent, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM case_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	return e, nil
}

// ListEvents lists every event of a case in insertion order.
func (s *queries) ListEvents(ctx context.Context, caseID string) ([]*entities.CaseEvent, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM case_events WHERE case_id = ? ORDER BY rowid ASC`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var result []*entities.CaseEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// SetNextEvent sets the successor pointer of an event.
func (s *queries) SetNextEvent(ctx context.Context, eventID string, nextID *string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE case_events SET next_event_id = ? WHERE id = ?`, nullString(nextID), eventID)
	if err != nil {
		return fmt.Errorf("setting next event: %w", err)
	}
	return requireAffected(res, entities.ErrEventNotFound, eventID)
}

// SetPreviousEvent sets the predecessor pointer of an event.
func (s *queries) SetPreviousEvent(ctx context.Context, eventID string, previousID *string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE case_events SET previous_event_id = ? WHERE id = ?`, nullString(previousID), eventID)
	if err != nil {
		return fmt.Errorf("setting previous event: %w", err)
	}
	return requireAffected(res, entities.ErrEventNotFound, eventID)
}

// Document operations

// InsertDocument inserts the document of an event.
func (s *queries) InsertDocument(ctx context.Context, d *entities.Document) error {
	content, err := json.Marshal(d.Content)
	if err != nil {
		return fmt.Errorf("marshaling document content: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO documents (id, event_id, type, content, storage_key, generated, simulated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID,
		d.EventID,
		d.Type,
		string(content),
		nullString(d.StorageKey),
		d.Generated,
		d.Simulated,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// FindDocumentByEvent finds the document attached to an event. Returns nil
// if not found.
func (s *queries) FindDocumentByEvent(ctx context.Context, eventID string) (*entities.Document, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, event_id, type, content, storage_key, generated, simulated, created_at
		FROM documents
		WHERE event_id = ?
	`, eventID)

	var (
		d          entities.Document
		content    string
		storageKey sql.NullString
	)
	err := row.Scan(&d.ID, &d.EventID, &d.Type, &content, &storageKey, &d.Generated, &d.Simulated, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if err := json.Unmarshal([]byte(content), &d.Content); err != nil {
		return nil, fmt.Errorf("unmarshaling document content: %w", err)
	}
	d.StorageKey = stringPtr(storageKey)
	return &d, nil
}

// Folio ledger operations

// FolioExists reports whether a ledger row matches the key.
func (s *queries) FolioExists(ctx context.Context, key entities.FolioKey) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM folio_ledger
		WHERE folio = ? AND case_number = ? AND year = ? AND description = ?
	`, key.Folio, key.CaseNumber, key.Year, key.Description).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking folio: %w", err)
	}
	return n > 0, nil
}

// RecordFolio appends a ledger row.
func (s *queries) RecordFolio(ctx context.Context, e *entities.FolioEntry) error {
	var eventID sql.NullString
	if e.EventID != "" {
		eventID = sql.NullString{String: e.EventID, Valid: true}
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO folio_ledger (folio, case_number, year, description, tag, session_id, event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Folio,
		e.CaseNumber,
		e.Year,
		e.Description,
		e.Tag,
		e.SessionID,
		eventID,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording folio: %w", err)
	}
	return nil
}

// ListFolios lists ledger rows for a court role and year in folio order.
func (s *queries) ListFolios(ctx context.Context, caseNumber string, year int) ([]entities.FolioEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT folio, case_number, year, description, tag, session_id, event_id, created_at
		FROM folio_ledger
		WHERE case_number = ? AND year = ?
		ORDER BY folio ASC, id ASC
	`, caseNumber, year)
	if err != nil {
		return nil, fmt.Errorf("querying folios: %w", err)
	}
	defer rows.Close()

	var result []entities.FolioEntry
	for rows.Next() {
		var (
			e       entities.FolioEntry
			eventID sql.NullString
		)
		if err := rows.Scan(&e.Folio, &e.CaseNumber, &e.Year, &e.Description, &e.Tag, &e.SessionID, &eventID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning folio: %w", err)
		}
		e.EventID = eventID.String
		result = append(result, e)
	}
	return result, rows.Err()
}

// PurgeFolios deletes ledger rows for a court role and year.
func (s *queries) PurgeFolios(ctx context.Context, caseNumber string, year int) (int, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM folio_ledger WHERE case_number = ? AND year = ?`, caseNumber, year)
	if err != nil {
		return 0, fmt.Errorf("purging folios: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged folios: %w", err)
	}
	return int(n), nil
}

// Suggestion operations

const suggestionColumns = `id, event_id, name, type, content, score, created_at`

// InsertSuggestion inserts a suggestion.
func (s *queries) InsertSuggestion(ctx context.Context, sg *entities.CaseEventSuggestion) error {
	content, err := json.Marshal(sg.Content)
	if err != nil {
		return fmt.Errorf("marshaling suggestion content: %w", err)
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO case_event_suggestions (`+suggestionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sg.ID,
		sg.EventID,
		sg.Name,
		sg.Type,
		string(content),
		sg.Score,
		sg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting suggestion: %w", err)
	}
	return nil
}

func scanSuggestion(row rowScanner) (*entities.CaseEventSuggestion, error) {
	var (
		sg      entities.CaseEventSuggestion
		content string
	)
	if err := row.Scan(&sg.ID, &sg.EventID, &sg.Name, &sg.Type, &content, &sg.Score, &sg.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(content), &sg.Content); err != nil {
		return nil, fmt.Errorf("unmarshaling suggestion content: %w", err)
	}
	return &sg, nil
}

// FindSuggestion finds a suggestion by id. Returns nil if not found.
func (s *queries) FindSuggestion(ctx context.Context, id string) (*entities.CaseEventSuggestion, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+suggestionColumns+` FROM case_event_suggestions WHERE id = ?`, id)
	sg, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning suggestion: %w", err)
	}
	return sg, nil
}

// ListSuggestions lists the suggestions of an event, highest score first.
func (s *queries) ListSuggestions(ctx context.Context, eventID string) ([]*entities.CaseEventSuggestion, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+suggestionColumns+` FROM case_event_suggestions WHERE event_id = ? ORDER BY score DESC, rowid ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying suggestions: %w", err)
	}
	defer rows.Close()

	var result []*entities.CaseEventSuggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		result = append(result, sg)
	}
	return result, rows.Err()
}

func requireAffected(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
