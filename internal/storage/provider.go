// Package storage defines the interface for a blob storage provider.
// This abstraction keeps result persistence independent of a specific
// backend (Google Cloud Storage or the local filesystem).
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound signals that the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Provider defines the common interface for a blob storage provider.
type Provider interface {
	// Put uploads data under the given object name, replacing any
	// previous version, and returns the resulting URI.
	Put(ctx context.Context, objectName string, data []byte) (string, error)
	// Get retrieves the object's content. Missing objects return
	// ErrObjectNotFound.
	Get(ctx context.Context, objectName string) ([]byte, error)
}

// NoOpProvider discards writes and reports every object as missing.
// Useful for dry runs where results are served from memory only.
type NoOpProvider struct{}

// Put for NoOpProvider does nothing.
func (n *NoOpProvider) Put(_ context.Context, objectName string, _ []byte) (string, error) {
	return "noop://" + objectName, nil
}

// Get for NoOpProvider always reports the object as missing.
func (n *NoOpProvider) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrObjectNotFound
}
