package splitter

import (
	"context"

	"github.com/ruteri/split-session-service/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockSplitter mocks the Splitter interface
type MockSplitter struct {
	mock.Mock
}

// Split mocks the Split method
func (m *MockSplitter) Split(ctx context.Context, secret []byte, shares, quorum int) ([]interfaces.Share, error) {
	args := m.Called(ctx, secret, shares, quorum)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.Share), args.Error(1)
}

// Protocol mocks the Protocol method
func (m *MockSplitter) Protocol() string {
	args := m.Called()
	return args.String(0)
}
