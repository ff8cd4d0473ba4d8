package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
)

var pdfMagic = []byte("%PDF")

// maxDocumentBytes bounds a single download.
const maxDocumentBytes = 64 << 20

// FetchedDocument is a verified PDF. It must be released with
// DocumentFetcher.Release once the row is done.
type FetchedDocument struct {
	TempID string
	Bytes  []byte
	// Path is the spool file holding Bytes, empty when spooling is off.
	Path string
}

// DocumentFetcher retrieves and verifies the documents attached to log rows.
// It never retries; a failure is local to the row.
type DocumentFetcher struct {
	session  ports.PortalSession
	tempDir  string
	maxBytes int64

	mu    sync.Mutex
	spool map[string]string
}

// NewDocumentFetcher creates a fetcher. When tempDir is non-empty fetched
// bytes are spooled there until released.
func NewDocumentFetcher(session ports.PortalSession, tempDir string) *DocumentFetcher {
	return &DocumentFetcher{
		session:  session,
		tempDir:  tempDir,
		maxBytes: maxDocumentBytes,
		spool:    make(map[string]string),
	}
}

// Fetch downloads the document behind handle. Milestones that do not
// require a document return nil without touching the portal.
func (f *DocumentFetcher) Fetch(ctx context.Context, handle *entities.DownloadHandle, milestone entities.EventType) (*FetchedDocument, error) {
	spec, ok := entities.MilestoneFor(milestone)
	if !ok || !spec.RequiresDocument {
		return nil, nil
	}
	if f.session == nil {
		return nil, errors.New("no portal session configured")
	}
	if handle.IsZero() {
		return nil, fmt.Errorf("%w: row has no download handle", entities.ErrMalformedRow)
	}

	retrieval, err := f.session.Resolve(ctx, *handle)
	if err != nil {
		return nil, fmt.Errorf("resolving download: %w", err)
	}

	probe, err := f.session.Probe(ctx, retrieval)
	if err != nil {
		return nil, fmt.Errorf("probing download: %w", err)
	}
	if !isPDFContentType(probe.ContentType) {
		return nil, fmt.Errorf("%w: declared %q", entities.ErrNotAPDF, probe.ContentType)
	}
	if probe.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes", entities.ErrDocumentTooLarge, probe.ContentLength)
	}

	body, err := f.session.Open(ctx, retrieval)
	if err != nil {
		return nil, fmt.Errorf("downloading document: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", entities.ErrDocumentTooLarge, f.maxBytes)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%w: missing %%PDF signature", entities.ErrCorruptDocument)
	}

	doc := &FetchedDocument{TempID: uuid.New().String(), Bytes: data}
	if f.tempDir != "" {
		path := filepath.Join(f.tempDir, doc.TempID+".pdf")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, fmt.Errorf("spooling document: %w", err)
		}
		doc.Path = path
		f.mu.Lock()
		f.spool[doc.TempID] = path
		f.mu.Unlock()
	}
	return doc, nil
}

// Release discards the temporary copy of a fetched document. Releasing an
// unknown id is a no-op.
func (f *DocumentFetcher) Release(tempID string) error {
	f.mu.Lock()
	path, ok := f.spool[tempID]
	delete(f.spool, tempID)
	f.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing spooled document: %w", err)
	}
	return nil
}

// Pending returns the number of fetched documents not yet released.
func (f *DocumentFetcher) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spool)
}

func isPDFContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	return mediaType == "application/pdf"
}
