package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of the Provider interface for testing.
type MockProvider struct {
	mock.Mock
}

// Put is the mock implementation of the Put method.
func (m *MockProvider) Put(ctx context.Context, objectName string, data []byte) (string, error) {
	args := m.Called(ctx, objectName, data)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}

// Get is the mock implementation of the Get method.
func (m *MockProvider) Get(ctx context.Context, objectName string) ([]byte, error) {
	args := m.Called(ctx, objectName)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, args.Error(1) //nolint:wrapcheck
}
