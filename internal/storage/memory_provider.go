package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryProvider stores objects in-memory. Used in development and tests.
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string][]byte)}
}

// Put stores a copy of data under the object name.
func (p *MemoryProvider) Put(_ context.Context, objectName string, data []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[objectName] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", objectName), nil
}

// Get returns a copy of the stored content.
func (p *MemoryProvider) Get(_ context.Context, objectName string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.data[objectName]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

// Len reports how many objects are stored.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.data)
}
