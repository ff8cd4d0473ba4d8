// Package gcs provides a Google Cloud Storage BlobStore.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/config"
)

// Store keeps blobs as objects in one bucket.
type Store struct {
	client *storage.Client
	bucket string
}

var _ ports.BlobStore = (*Store)(nil)

// NewStore creates a storage client for the configured bucket. A
// credentials file is used when set; otherwise application default
// credentials apply. STORAGE_EMULATOR_HOST disables authentication.
func NewStore(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	switch {
	case os.Getenv("STORAGE_EMULATOR_HOST") != "":
		opts = append(opts, option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return NewStoreWithClient(client, cfg.Bucket), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *storage.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Close closes the storage client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) object(key string) (*storage.ObjectHandle, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return nil, errors.New("blob key is required")
	}
	return s.client.Bucket(s.bucket).Object(key), nil
}

// Put uploads r under key.
func (s *Store) Put(ctx context.Context, key string, contentType string, r io.Reader) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}
	w := obj.NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing object writer %s: %w", key, err)
	}
	return nil
}

// Get opens the object under key.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.object(key)
	if err != nil {
		return nil, err
	}
	rc, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return rc, nil
}

// Delete removes the object under key. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}
