package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docsaga/internal/backend"
)

type MockAdapter struct {
	mock.Mock
	BackendKind backend.Kind
}

func (m *MockAdapter) Kind() backend.Kind {
	return m.BackendKind
}

func (m *MockAdapter) Create(ctx context.Context, documentID string, payload map[string]any) backend.Result {
	args := m.Called(ctx, documentID, payload)
	return args.Get(0).(backend.Result)
}

func (m *MockAdapter) Read(ctx context.Context, documentID string) backend.Result {
	args := m.Called(ctx, documentID)
	return args.Get(0).(backend.Result)
}

func (m *MockAdapter) Update(ctx context.Context, documentID string, payload map[string]any) backend.Result {
	args := m.Called(ctx, documentID, payload)
	return args.Get(0).(backend.Result)
}

func (m *MockAdapter) Delete(ctx context.Context, documentID string, opts backend.DeleteOptions) backend.Result {
	args := m.Called(ctx, documentID, opts)
	return args.Get(0).(backend.Result)
}
