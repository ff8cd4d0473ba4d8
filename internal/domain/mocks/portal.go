package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

// PortalDocument is a canned response for one download handle.
type PortalDocument struct {
	ContentType string
	Body        []byte
	ProbeErr    error
	OpenErr     error
	// UnknownLength makes Probe report no content length.
	UnknownLength bool
}

// PortalSession is a mock implementation of ports.PortalSession keyed by
// handle reference.
type PortalSession struct {
	mu         sync.Mutex
	Documents  map[string]PortalDocument
	ResolveErr error

	// Opened counts Open calls per handle reference.
	Opened map[string]int
}

// NewPortalSession creates a new mock portal session.
func NewPortalSession() *PortalSession {
	return &PortalSession{
		Documents: make(map[string]PortalDocument),
		Opened:    make(map[string]int),
	}
}

// AddPDF registers a well-formed pdf under ref.
func (m *PortalSession) AddPDF(ref string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Documents[ref] = PortalDocument{ContentType: "application/pdf", Body: body}
}

// Resolve maps the handle to a fake URL.
func (m *PortalSession) Resolve(_ context.Context, handle entities.DownloadHandle) (*ports.Retrieval, error) {
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	return &ports.Retrieval{URL: "mock://" + handle.Ref, Header: http.Header{}}, nil
}

func (m *PortalSession) lookup(r *ports.Retrieval) (PortalDocument, string, error) {
	ref := r.URL[len("mock://"):]
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.Documents[ref]
	if !ok {
		return PortalDocument{}, ref, fmt.Errorf("no document for %s", ref)
	}
	return doc, ref, nil
}

// Probe returns the configured content type.
func (m *PortalSession) Probe(_ context.Context, r *ports.Retrieval) (*ports.Probe, error) {
	doc, _, err := m.lookup(r)
	if err != nil {
		return nil, err
	}
	if doc.ProbeErr != nil {
		return nil, doc.ProbeErr
	}
	length := int64(len(doc.Body))
	if doc.UnknownLength {
		length = -1
	}
	return &ports.Probe{StatusCode: http.StatusOK, ContentType: doc.ContentType, ContentLength: length}, nil
}

// Open returns the configured body.
func (m *PortalSession) Open(_ context.Context, r *ports.Retrieval) (io.ReadCloser, error) {
	doc, ref, err := m.lookup(r)
	if err != nil {
		return nil, err
	}
	if doc.OpenErr != nil {
		return nil, doc.OpenErr
	}
	m.mu.Lock()
	m.Opened[ref]++
	m.mu.Unlock()
	return io.NopCloser(bytes.NewReader(doc.Body)), nil
}

// SuggestionSender is a mock implementation of ports.SuggestionSender that
// fails the first FailTimes calls.
type SuggestionSender struct {
	mu        sync.Mutex
	FailTimes int
	Err       error
	Calls     int
	Sent      []string
}

// SendSuggestion records the call.
func (m *SuggestionSender) SendSuggestion(_ context.Context, _ *entities.Case, s *entities.CaseEventSuggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Calls <= m.FailTimes {
		if m.Err != nil {
			return m.Err
		}
		return fmt.Errorf("portal unavailable")
	}
	m.Sent = append(m.Sent, s.ID)
	return nil
}
