package api

import (
	"log/slog"
	"time"
)

// Defaults applied by the server and the session handler when the matching
// HTTPServerConfig field is zero.
const (
	DefaultReadinessTimeout       = 2 * time.Second
	DefaultMaxBodySize      int64 = 1024 * 1024
)

// HTTPServerConfig configures the split-session API listener, its health
// endpoints and the optional metrics listener.
type HTTPServerConfig struct {
	// ListenAddr serves the /split API and the health endpoints.
	ListenAddr string
	// MetricsAddr serves Prometheus metrics. Empty disables the listener.
	MetricsAddr string
	// EnablePprof mounts /debug on the API router.
	EnablePprof bool
	Log         *slog.Logger

	// DrainDuration is how long /drain keeps reporting not ready before
	// the drain is logged as complete.
	DrainDuration time.Duration
	// GracefulShutdownDuration bounds the wait for in-flight requests on
	// shutdown, separately for each listener.
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration

	// ReadinessTimeout bounds the session store check made by /readyz.
	ReadinessTimeout time.Duration
	// MaxBodySize caps the JSON body of session requests, in bytes.
	MaxBodySize int64
}

// ReadinessTimeoutOrDefault returns ReadinessTimeout, or
// DefaultReadinessTimeout when it is not positive.
func (cfg *HTTPServerConfig) ReadinessTimeoutOrDefault() time.Duration {
	if cfg.ReadinessTimeout <= 0 {
		return DefaultReadinessTimeout
	}
	return cfg.ReadinessTimeout
}
