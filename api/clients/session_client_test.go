package clients

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/split-session-service/api"
	"github.com/ruteri/split-session-service/api/sessionhandler"
	"github.com/ruteri/split-session-service/interfaces"
	"github.com/ruteri/split-session-service/session"
	"github.com/ruteri/split-session-service/splitter"
	"github.com/ruteri/split-session-service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *SessionClient {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coordinator := session.NewCoordinator(storage.NewMemoryStore(), splitter.NewShamirSplitter(), session.Config{}, logger)

	router := chi.NewRouter()
	sessionhandler.NewHandler(coordinator, logger, 0).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return NewSessionClient(srv.URL+"/", 5*time.Second)
}

func TestSessionClient_Flow(t *testing.T) {
	ctx := context.Background()
	client := newTestService(t)

	created, err := client.Create(ctx, "master", "vault unseal", &api.SessionPolicy{Quorum: 2, Shares: 3})
	require.NoError(t, err)
	require.Len(t, created.Session.Users, 1)
	masterToken := created.Session.Users[0].Auth
	id := created.SessionID
	assert.Equal(t, splitter.ShamirProtocol, created.Session.Secret.Protocol)

	tokens := make([]interfaces.AuthToken, 0, 3)
	for _, alias := range []string{"alice", "bob"} {
		_, token, err := client.Join(ctx, id, alias)
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	withSecret, err := client.SetSecret(ctx, id, masterToken, "master", "correct horse battery staple", nil)
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery staple", withSecret.Session.Secret.Value)
	assert.Equal(t, interfaces.ComputeSecretDigest([]byte("correct horse battery staple")), withSecret.Session.Secret.Digest)

	// a late joiner receives the last share
	_, token, err := client.Join(ctx, id, "carol")
	require.NoError(t, err)
	tokens = append(tokens, token)

	_, _, err = client.Join(ctx, id, "dave")
	assert.ErrorIs(t, err, session.ErrCapacity)

	shares := make([]interfaces.Share, 0, len(tokens))
	for i, token := range tokens {
		view, err := client.Get(ctx, id, token)
		require.NoError(t, err)
		assert.Empty(t, view.Session.Secret.Value)
		share := view.Session.Users[i+1].Share
		require.NotEmpty(t, share)
		shares = append(shares, share)
	}

	recovered, err := splitter.Combine(shares[1:])
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery staple", string(recovered))

	_, err = client.SetSecret(ctx, id, masterToken, "master", "again", nil)
	assert.ErrorIs(t, err, session.ErrAlreadyAssigned)
	assert.ErrorIs(t, err, session.ErrValidation)

	require.NoError(t, client.Delete(ctx, id))
	_, err = client.Get(ctx, id, masterToken)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessionClient_Errors(t *testing.T) {
	ctx := context.Background()
	client := newTestService(t)

	created, err := client.Create(ctx, "master", "s", nil)
	require.NoError(t, err)

	_, err = client.Get(ctx, created.SessionID, interfaces.NewAuthToken())
	assert.ErrorIs(t, err, session.ErrDenied)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "denied", apiErr.Kind)

	_, _, err = client.Join(ctx, created.SessionID, "master")
	assert.ErrorIs(t, err, session.ErrDenied)

	_, err = client.Create(ctx, "", "s", nil)
	assert.ErrorIs(t, err, session.ErrValidation)

	err = client.Delete(ctx, interfaces.NewSessionID())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessionClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusGone)
	}))
	defer srv.Close()

	client := NewSessionClient(srv.URL, time.Second)
	_, err := client.Get(context.Background(), interfaces.NewSessionID(), interfaces.NewAuthToken())
	assert.ErrorIs(t, err, session.ErrExpired)
	assert.Contains(t, err.Error(), "gone fishing")
}
