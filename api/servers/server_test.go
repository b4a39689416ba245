package servers

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
	"github.com/ruteri/split-session-service/session"
	"github.com/ruteri/split-session-service/splitter"
	"github.com/ruteri/split-session-service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
}

func testConfig() *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	return w.Code, string(body)
}

func TestNew_RequiresHandler(t *testing.T) {
	_, err := New(testConfig(), nil, nil)
	assert.Error(t, err)
}

func TestServer_Routes(t *testing.T) {
	srv, err := New(testConfig(), pingHandler{}, nil)
	require.NoError(t, err)

	code, body := get(t, srv.Handler(), "/ping")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong", body)

	code, body = get(t, srv.Handler(), "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"alive"}`, body)

	code, _ = get(t, srv.Handler(), "/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_Pprof(t *testing.T) {
	cfg := testConfig()
	cfg.EnablePprof = true
	srv, err := New(cfg, pingHandler{}, nil)
	require.NoError(t, err)

	code, _ := get(t, srv.Handler(), "/debug/pprof/")
	assert.Equal(t, http.StatusOK, code)
}

func TestServer_DrainUndrain(t *testing.T) {
	srv, err := New(testConfig(), pingHandler{}, nil)
	require.NoError(t, err)
	h := srv.Handler()

	code, body := get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ready"}`, body)

	_, body = get(t, h, "/drain")
	assert.JSONEq(t, `{"status":"draining"}`, body)
	_, body = get(t, h, "/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, body)

	code, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	_, body = get(t, h, "/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, body)
	_, body = get(t, h, "/undrain")
	assert.JSONEq(t, `{"status":"already ready"}`, body)

	code, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
}

func TestServer_ReadinessProbe(t *testing.T) {
	store := new(storage.MockSessionStore)
	store.On("Available", mock.Anything).Return(false).Once()
	store.On("Available", mock.Anything).Return(true).Once()

	srv, err := New(testConfig(), pingHandler{}, store)
	require.NoError(t, err)

	code, body := get(t, srv.Handler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"status":"store unavailable"}`, body)

	code, _ = get(t, srv.Handler(), "/readyz")
	assert.Equal(t, http.StatusOK, code)
	store.AssertExpectations(t)
}

type blockingStore struct{}

func (blockingStore) Available(ctx context.Context) bool {
	<-ctx.Done()
	return false
}

func TestServer_ReadinessTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ReadinessTimeout = 10 * time.Millisecond
	assert.Equal(t, 10*time.Millisecond, cfg.ReadinessTimeoutOrDefault())
	assert.Equal(t, api.DefaultReadinessTimeout, testConfig().ReadinessTimeoutOrDefault())

	srv, err := New(cfg, pingHandler{}, blockingStore{})
	require.NoError(t, err)

	start := time.Now()
	code, body := get(t, srv.Handler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"status":"store unavailable"}`, body)
	assert.Less(t, time.Since(start), api.DefaultReadinessTimeout)
}

func TestServer_SessionRoutes(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemoryStore()
	coordinator := session.NewCoordinator(store, splitter.NewShamirSplitter(), session.Config{}, cfg.Log)

	srv, err := New(cfg, sessionhandler.NewHandler(coordinator, cfg.Log, cfg.MaxBodySize), store)
	require.NoError(t, err)

	code, _ := get(t, srv.Handler(), "/split/not-a-uuid?auth=x")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(t, srv.Handler(), "/readyz")
	assert.Equal(t, http.StatusOK, code)
}
