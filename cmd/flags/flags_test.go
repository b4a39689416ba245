package flags

import (
	"flag"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ruteri/split-session-service/api"
	"github.com/ruteri/split-session-service/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, flags []cli.Flag, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestConfigureSession(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected time.Duration
		wantErr  bool
	}{
		{"default", nil, session.DefaultTTL, false},
		{"seconds", []string{"--session-ttl", "60"}, time.Minute, false},
		{"disabled", []string{"--session-ttl", "-1"}, session.TTLInfinite, false},
		{"zero", []string{"--session-ttl", "0"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ConfigureSession(newContext(t, []cli.Flag{SessionTTLFlag}, tt.args...))
			if tt.wantErr {
				assert.ErrorContains(t, err, "session-ttl")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.TTL)
		})
	}
}

func TestConfigureServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := ConfigureServer(newContext(t, ServerFlags), logger)
	assert.Equal(t, api.DefaultReadinessTimeout, cfg.ReadinessTimeout)
	assert.Equal(t, api.DefaultMaxBodySize, cfg.MaxBodySize)

	cfg = ConfigureServer(newContext(t, ServerFlags, "--readiness-timeout-ms", "250", "--max-body-bytes", "4096"), logger)
	assert.Equal(t, 250*time.Millisecond, cfg.ReadinessTimeout)
	assert.Equal(t, int64(4096), cfg.MaxBodySize)
	assert.Same(t, logger, cfg.Log)
}
