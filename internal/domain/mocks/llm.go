package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

// ContentGenerator is a mock implementation of ports.ContentGenerator.
type ContentGenerator struct {
	mu sync.Mutex

	// Payloads returns a payload per milestone type; missing types get an
	// empty payload.
	Payloads map[entities.EventType]entities.Payload
	// Title is returned for every request when set.
	Title string
	// Errs fails requests for the given folios.
	Errs map[string]error

	Requests []ports.GenerationRequest
}

// Generate returns the configured content or error.
func (m *ContentGenerator) Generate(_ context.Context, req ports.GenerationRequest) (*ports.GeneratedContent, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if err, ok := m.Errs[req.Row.Folio]; ok {
		return nil, err
	}
	payload := entities.Payload{}
	for k, v := range m.Payloads[req.Tag.Type] {
		payload[k] = v
	}
	return &ports.GeneratedContent{Title: m.Title, Payload: payload}, nil
}

// Calls returns how many requests were received.
func (m *ContentGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// ResponseGenerator is a mock implementation of ports.ResponseGenerator.
type ResponseGenerator struct {
	mu         sync.Mutex
	Name       string
	Confidence *float64
	Err        error
	Calls      int
}

// GenerateSuggestion returns the configured suggestion or error.
func (m *ResponseGenerator) GenerateSuggestion(_ context.Context, req ports.SuggestionRequest) (*ports.GeneratedSuggestion, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	name := m.Name
	if name == "" {
		name = string(req.Type)
	}
	return &ports.GeneratedSuggestion{
		Name:       name,
		Content:    entities.Payload{"text": "suggested " + string(req.Type)},
		Confidence: m.Confidence,
	}, nil
}
