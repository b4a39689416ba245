package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/ruteri/split-session-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestMultiStore(t *testing.T, stores ...interfaces.SessionStore) *MultiStore {
	t.Helper()
	multi, err := NewMultiStore(stores, newTestLogger())
	require.NoError(t, err)
	return multi
}

func TestMultiStore(t *testing.T) {
	testSessionStore(t, newTestMultiStore(t, NewMemoryStore(), NewMemoryStore()))
}

func TestNewMultiStore_Empty(t *testing.T) {
	_, err := NewMultiStore(nil, nil)
	assert.Error(t, err)
}

func TestMultiStore_MirrorsWrites(t *testing.T) {
	ctx := context.Background()
	primary, mirror := NewMemoryStore(), NewMemoryStore()
	multi := newTestMultiStore(t, primary, mirror)

	snapshot := testSnapshot(interfaces.NewSessionID())
	require.NoError(t, multi.Create(ctx, snapshot))

	mirrored, err := mirror.Fetch(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot, mirrored)

	// a mirror that missed the create catches up on the next update
	late := NewMemoryStore()
	multi = newTestMultiStore(t, primary, mirror, late)
	snapshot.SecretState = interfaces.SecretAssigned
	require.NoError(t, multi.Update(ctx, snapshot))

	for _, store := range []interfaces.SessionStore{mirror, late} {
		fetched, err := store.Fetch(ctx, snapshot.ID)
		require.NoError(t, err)
		assert.Equal(t, interfaces.SecretAssigned, fetched.SecretState)
	}

	require.NoError(t, multi.Delete(ctx, snapshot.ID))
	for _, store := range []interfaces.SessionStore{primary, mirror, late} {
		_, err := store.Fetch(ctx, snapshot.ID)
		assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
	}
}

func TestMultiStore_PrimaryDecides(t *testing.T) {
	ctx := context.Background()
	snapshot := testSnapshot(interfaces.NewSessionID())

	primary := new(MockSessionStore)
	primary.On("Create", mock.Anything, snapshot).Return(interfaces.ErrSessionExists)
	mirror := new(MockSessionStore)

	multi := newTestMultiStore(t, primary, mirror)
	assert.ErrorIs(t, multi.Create(ctx, snapshot), interfaces.ErrSessionExists)

	primary.AssertExpectations(t)
	mirror.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mirror.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestMultiStore_MirrorFailureIgnored(t *testing.T) {
	ctx := context.Background()
	snapshot := testSnapshot(interfaces.NewSessionID())

	mirror := new(MockSessionStore)
	mirror.On("Update", mock.Anything, snapshot).Return(interfaces.ErrBackendUnavailable)

	multi := newTestMultiStore(t, NewMemoryStore(), mirror)
	assert.NoError(t, multi.Create(ctx, snapshot))
	mirror.AssertExpectations(t)
}

func TestMultiStore_Fetch(t *testing.T) {
	id := interfaces.NewSessionID()
	snapshot := testSnapshot(id)
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.SessionStore
		expected      *interfaces.SessionSnapshot
		expectedError error
	}{
		{
			name: "primary successful",
			setupMocks: func() []interfaces.SessionStore {
				primary := new(MockSessionStore)
				primary.On("Fetch", mock.Anything, id).Return(snapshot, nil)

				// the mirror is not consulted
				mirror := new(MockSessionStore)

				return []interfaces.SessionStore{primary, mirror}
			},
			expected: snapshot,
		},
		{
			name: "not found on primary is final",
			setupMocks: func() []interfaces.SessionStore {
				primary := new(MockSessionStore)
				primary.On("Fetch", mock.Anything, id).Return(nil, interfaces.ErrSessionNotFound)

				mirror := new(MockSessionStore)

				return []interfaces.SessionStore{primary, mirror}
			},
			expectedError: interfaces.ErrSessionNotFound,
		},
		{
			name: "primary fails, mirror succeeds",
			setupMocks: func() []interfaces.SessionStore {
				primary := new(MockSessionStore)
				primary.On("Fetch", mock.Anything, id).Return(nil, testErr)

				mirror := new(MockSessionStore)
				mirror.On("Available", mock.Anything).Return(true)
				mirror.On("Fetch", mock.Anything, id).Return(snapshot, nil)

				return []interfaces.SessionStore{primary, mirror}
			},
			expected: snapshot,
		},
		{
			name: "unavailable mirrors are skipped",
			setupMocks: func() []interfaces.SessionStore {
				primary := new(MockSessionStore)
				primary.On("Fetch", mock.Anything, id).Return(nil, testErr)

				mirror1 := new(MockSessionStore)
				mirror1.On("Available", mock.Anything).Return(false)

				mirror2 := new(MockSessionStore)
				mirror2.On("Available", mock.Anything).Return(true)
				mirror2.On("Fetch", mock.Anything, id).Return(snapshot, nil)

				return []interfaces.SessionStore{primary, mirror1, mirror2}
			},
			expected: snapshot,
		},
		{
			name: "all stores fail",
			setupMocks: func() []interfaces.SessionStore {
				primary := new(MockSessionStore)
				primary.On("Fetch", mock.Anything, id).Return(nil, testErr)

				mirror := new(MockSessionStore)
				mirror.On("Available", mock.Anything).Return(true)
				mirror.On("Fetch", mock.Anything, id).Return(nil, testErr)

				return []interfaces.SessionStore{primary, mirror}
			},
			expectedError: interfaces.ErrBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := tt.setupMocks()
			multi := newTestMultiStore(t, stores...)

			fetched, err := multi.Fetch(context.Background(), id)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, fetched)

			for _, store := range stores {
				store.(*MockSessionStore).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStore_Available(t *testing.T) {
	primary := new(MockSessionStore)
	primary.On("Available", mock.Anything).Return(false)
	mirror := new(MockSessionStore)

	multi := newTestMultiStore(t, primary, mirror)
	assert.False(t, multi.Available(context.Background()))
	assert.Equal(t, "mock:,mock:", multi.LocationURI())
	mirror.AssertNotCalled(t, "Available", mock.Anything)
}
