package storage

import (
	"context"

	"github.com/ruteri/split-session-service/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockSessionStore implements interfaces.SessionStore for testing.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSessionStore) Fetch(ctx context.Context, id interfaces.SessionID) (*interfaces.SessionSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.SessionSnapshot), args.Error(1)
}

func (m *MockSessionStore) Update(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSessionStore) Delete(ctx context.Context, id interfaces.SessionID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionStore) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockSessionStore) Name() string {
	return "mock"
}

func (m *MockSessionStore) LocationURI() string {
	return "mock:"
}
