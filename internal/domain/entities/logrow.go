package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadHandle is the opaque reference to a row's download control as
// extracted by the portal client. Only the portal session knows how to turn
// it into a request.
type DownloadHandle struct {
	Ref    string            `json:"ref"`
	Params map[string]string `json:"params,omitempty"`
}

// IsZero reports whether the handle carries no reference.
func (h *DownloadHandle) IsZero() bool {
	return h == nil || strings.TrimSpace(h.Ref) == ""
}

// RawLogRow is one row of the portal's procedural log, as scraped.
type RawLogRow struct {
	Folio         string          `json:"folio"`
	DocumentLabel string          `json:"document"`
	Stage         string          `json:"stage"`
	Procedure     string          `json:"procedure"`
	Description   string          `json:"description"`
	Date          string          `json:"date"`
	Page          string          `json:"page"`
	Download      *DownloadHandle `json:"download,omitempty"`
}

// FolioNumber parses the folio column.
func (r RawLogRow) FolioNumber() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.Folio))
	if err != nil {
		return 0, fmt.Errorf("%w: folio %q is not a number", ErrMalformedRow, r.Folio)
	}
	return n, nil
}

// ProcedureDate parses the date column. An empty date yields nil.
func (r RawLogRow) ProcedureDate() (*time.Time, error) {
	return ParseProcedureDate(r.Date)
}

// Validate checks the numeric and date columns.
func (r RawLogRow) Validate() error {
	if _, err := r.FolioNumber(); err != nil {
		return err
	}
	if page := strings.TrimSpace(r.Page); page != "" {
		if _, err := strconv.Atoi(page); err != nil {
			return fmt.Errorf("%w: page %q is not a number", ErrMalformedRow, r.Page)
		}
	}
	if _, err := r.ProcedureDate(); err != nil {
		return err
	}
	return nil
}

var procedureDateLayouts = []string{"02/01/2006", "02/01/06"}

// ParseProcedureDate accepts "dd/mm/yyyy" and "dd/mm/yy".
func ParseProcedureDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range procedureDateLayouts {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: date %q", ErrMalformedRow, s)
}

// MilestoneTag is the canonical milestone assigned to a log row. Ordinal is
// non-zero only for repeatable milestones (NOTIFICATION.1, NOTIFICATION.2, ...).
type MilestoneTag struct {
	Type    EventType `json:"type"`
	Ordinal int       `json:"ordinal,omitempty"`
}

// String renders the tag as stored in the folio ledger.
func (t MilestoneTag) String() string {
	if t.Ordinal > 0 {
		return fmt.Sprintf("%s.%d", t.Type, t.Ordinal)
	}
	return string(t.Type)
}

// ParseMilestoneTag is the inverse of MilestoneTag.String.
func ParseMilestoneTag(s string) (MilestoneTag, error) {
	name, ord, found := strings.Cut(strings.TrimSpace(s), ".")
	tag := MilestoneTag{Type: EventType(name)}
	if !tag.Type.IsValid() {
		return MilestoneTag{}, fmt.Errorf("unknown milestone %q", s)
	}
	if found {
		n, err := strconv.Atoi(ord)
		if err != nil || n <= 0 {
			return MilestoneTag{}, fmt.Errorf("invalid milestone ordinal in %q", s)
		}
		tag.Ordinal = n
	}
	return tag, nil
}

// TaggedRow is a raw row annotated by the classifier. Position is the row's
// chronological index (0 = oldest) and is the only ordering used past the
// classifier.
type TaggedRow struct {
	Row      RawLogRow     `json:"row"`
	Tag      *MilestoneTag `json:"tag,omitempty"`
	Position int           `json:"position"`
}
