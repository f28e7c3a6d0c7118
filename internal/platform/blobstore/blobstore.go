// Package blobstore stores document binary content. Document metadata (owner
// clinic, patient, filename, content type) lives in the relational store; this
// package only holds the bytes, keyed by blob id.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrBlobNotFound is returned when no content exists for a blob id.
var ErrBlobNotFound = errors.New("blob not found")

// MaxBlobSize is the maximum allowed blob size in bytes (100 MB).
const MaxBlobSize = 100 * 1024 * 1024

// ErrBlobTooLarge is returned when stored content exceeds MaxBlobSize.
var ErrBlobTooLarge = errors.New("blob exceeds maximum allowed size")

// BlobStore is the contract for document content backends.
type BlobStore interface {
	// Get returns a reader over the blob content and its size in bytes.
	Get(ctx context.Context, id string) (io.ReadCloser, int64, error)
	// Put stores content under the given id, replacing any previous content,
	// and returns the SHA-256 hash of the stored bytes.
	Put(ctx context.Context, id string, content io.Reader) (string, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, id string) error
}

type storedBlob struct {
	content []byte
	hash    string
}

// InMemoryBlobStore is a thread-safe, in-memory BlobStore for development and
// tests.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{
		blobs: make(map[string]*storedBlob),
	}
}

func (s *InMemoryBlobStore) Get(_ context.Context, id string) (io.ReadCloser, int64, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, 0, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(blob.content)), int64(len(blob.content)), nil
}

func (s *InMemoryBlobStore) Put(_ context.Context, id string, content io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxBlobSize+1))
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxBlobSize {
		return "", ErrBlobTooLarge
	}

	h := sha256.Sum256(data)
	hash := fmt.Sprintf("%x", h)

	s.mu.Lock()
	s.blobs[id] = &storedBlob{content: data, hash: hash}
	s.mu.Unlock()

	return hash, nil
}

func (s *InMemoryBlobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()
	return nil
}
