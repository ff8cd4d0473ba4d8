// Package pjud provides an HTTP session on the court portal.
package pjud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/config"
)

// SessionCookie is the portal's session cookie name.
const SessionCookie = "PHPSESSID"

const defaultTimeout = 30 * time.Second

// Session implements ports.PortalSession and ports.SuggestionSender.
type Session struct {
	httpClient *http.Client
	base       *url.URL
	token      string
	userAgent  string
}

var (
	_ ports.PortalSession    = (*Session)(nil)
	_ ports.SuggestionSender = (*Session)(nil)
)

// NewSession creates a portal session from configuration.
func NewSession(cfg config.PortalConfig) (*Session, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("portal base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing portal base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("portal base URL must be http or https, got %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Session{
		httpClient: &http.Client{Timeout: timeout},
		base:       base,
		token:      cfg.SessionToken,
		userAgent:  cfg.UserAgent,
	}, nil
}

// Resolve turns a download handle into a URL on the portal. Relative
// references are resolved against the base URL; handle params become query
// parameters. Credentials are attached only for the portal host.
func (s *Session) Resolve(_ context.Context, handle entities.DownloadHandle) (*ports.Retrieval, error) {
	if handle.IsZero() {
		return nil, entities.ErrMalformedRow
	}
	ref, err := url.Parse(strings.TrimSpace(handle.Ref))
	if err != nil {
		return nil, fmt.Errorf("parsing download reference: %w", err)
	}
	target := s.base.ResolveReference(ref)

	if len(handle.Params) > 0 {
		q := target.Query()
		for k, v := range handle.Params {
			q.Set(k, v)
		}
		target.RawQuery = q.Encode()
	}

	header := http.Header{}
	if s.userAgent != "" {
		header.Set("User-Agent", s.userAgent)
	}
	if s.token != "" && target.Host == s.base.Host {
		header.Set("Cookie", (&http.Cookie{Name: SessionCookie, Value: s.token}).String())
	}

	return &ports.Retrieval{URL: target.String(), Header: header}, nil
}

// Probe issues a HEAD request. Servers that reject HEAD are probed with a
// GET whose body is discarded.
func (s *Session) Probe(ctx context.Context, r *ports.Retrieval) (*ports.Probe, error) {
	resp, err := s.do(ctx, http.MethodHead, r)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = s.do(ctx, http.MethodGet, r)
		if err != nil {
			return nil, err
		}
		resp.Body.Close()
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("probing %s: portal returned status %d", r.URL, resp.StatusCode)
	}

	return &ports.Probe{
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

// Open retrieves the document body. The caller closes it.
func (s *Session) Open(ctx context.Context, r *ports.Retrieval) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: portal returned status %d", r.URL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *Session) do(ctx context.Context, method string, r *ports.Retrieval) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, r.URL, err)
	}
	return resp, nil
}

// suggestionBody is the submission payload.
type suggestionBody struct {
	ID      string           `json:"id"`
	EventID string           `json:"event_id"`
	Type    string           `json:"type"`
	Name    string           `json:"name"`
	Content entities.Payload `json:"content"`
	Role    string           `json:"role"`
	Year    int              `json:"year"`
	Court   string           `json:"court,omitempty"`
}

// SendSuggestion posts an accepted suggestion to the case's filing
// endpoint. A 404 means the portal does not know the case or suggestion.
func (s *Session) SendSuggestion(ctx context.Context, c *entities.Case, sg *entities.CaseEventSuggestion) error {
	buf := &bytes.Buffer{}
	err := json.NewEncoder(buf).Encode(suggestionBody{
		ID:      sg.ID,
		EventID: sg.EventID,
		Type:    string(sg.Type),
		Name:    sg.Name,
		Content: sg.Content,
		Role:    c.Role,
		Year:    c.Year,
		Court:   c.Court,
	})
	if err != nil {
		return fmt.Errorf("encoding suggestion: %w", err)
	}

	target := s.base.JoinPath("api", "cases", c.ID, "suggestions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), buf)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if s.token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: s.token})
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending suggestion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("sending suggestion %s: %w", sg.ID, entities.ErrSuggestionNotFound)
	case resp.StatusCode >= 400:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("portal error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return nil
}
