package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// BlobStore is an in-memory implementation of ports.BlobStore.
type BlobStore struct {
	mu     sync.Mutex
	Blobs  map[string][]byte
	PutErr error
}

// NewBlobStore creates a new mock blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{Blobs: make(map[string][]byte)}
}

// Put stores the content under key.
func (m *BlobStore) Put(_ context.Context, key string, _ string, r io.Reader) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Blobs[key] = data
	return nil
}

// Get returns the content stored under key.
func (m *BlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes key.
func (m *BlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Blobs, key)
	return nil
}

// Len returns the number of stored blobs.
func (m *BlobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Blobs)
}
