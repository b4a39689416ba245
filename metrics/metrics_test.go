package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(operations.WithLabelValues("join", "capacity"))

	RecordOperation("join", "capacity", 3*time.Millisecond)
	RecordOperation("join", "capacity", time.Millisecond)

	after := testutil.ToFloat64(operations.WithLabelValues("join", "capacity"))
	assert.Equal(t, before+2, after)
}

func TestMetricsServer_ServesRegistry(t *testing.T) {
	RecordOperation("create", "ok", time.Millisecond)

	srv := New("127.0.0.1:0")
	w := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `split_session_operations_total{op="create",result="ok"}`)
	assert.Contains(t, string(body), "split_session_operation_duration_seconds")
}
