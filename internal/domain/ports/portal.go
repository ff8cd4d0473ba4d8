package ports

import (
	"context"
	"io"
	"net/http"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

// Retrieval is a resolved download: a concrete URL plus the session's
// authentication context.
type Retrieval struct {
	URL    string
	Header http.Header
}

// Probe is the result of a content-type probe.
type Probe struct {
	StatusCode    int
	ContentType   string
	ContentLength int64
}

// PortalSession is an authenticated session on the court portal.
type PortalSession interface {
	// Resolve turns a download handle into a retrieval.
	Resolve(ctx context.Context, handle entities.DownloadHandle) (*Retrieval, error)

	// Probe issues a HEAD-equivalent request for the retrieval.
	Probe(ctx context.Context, r *Retrieval) (*Probe, error)

	// Open retrieves the body of the retrieval. The caller closes it.
	Open(ctx context.Context, r *Retrieval) (io.ReadCloser, error)
}

// SuggestionSender delivers an accepted suggestion to the external system.
type SuggestionSender interface {
	SendSuggestion(ctx context.Context, c *entities.Case, s *entities.CaseEventSuggestion) error
}
