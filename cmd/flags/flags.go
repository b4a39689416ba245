package flags

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/split-session-service/api"
	"github.com/ruteri/split-session-service/common"
	"github.com/ruteri/split-session-service/interfaces"
	"github.com/ruteri/split-session-service/session"
	"github.com/ruteri/split-session-service/splitter"
	"github.com/ruteri/split-session-service/storage"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		ReadinessTimeout:         time.Duration(cCtx.Int64(ReadinessTimeoutFlag.Name)) * time.Millisecond,
		MaxBodySize:              cCtx.Int64(MaxBodyBytesFlag.Name),
	}
}

// ConfigureSession maps the session-ttl flag to the coordinator config. A
// negative value disables expiry and zero is rejected.
func ConfigureSession(cCtx *cli.Context) (session.Config, error) {
	ttl := cCtx.Int64(SessionTTLFlag.Name)
	switch {
	case ttl == 0:
		return session.Config{}, fmt.Errorf("--%s must not be 0, use -1 to disable expiry", SessionTTLFlag.Name)
	case ttl < 0:
		return session.Config{TTL: session.TTLInfinite}, nil
	}
	return session.Config{TTL: time.Duration(ttl) * time.Second}, nil
}

// ConfigureSplitter builds the splitter selected by the splitter flags.
func ConfigureSplitter(cCtx *cli.Context, logger *slog.Logger) (interfaces.Splitter, error) {
	switch kind := cCtx.String(SplitterFlag.Name); kind {
	case "shamir":
		return splitter.NewShamirSplitter(), nil
	case "remote":
		url := cCtx.String(SplitterURLFlag.Name)
		if url == "" {
			return nil, fmt.Errorf("--%s is required for the remote splitter", SplitterURLFlag.Name)
		}
		timeout := time.Duration(cCtx.Int64(SplitterTimeoutFlag.Name)) * time.Second
		return splitter.NewRemoteSplitter(url, cCtx.String(SplitterProtocolFlag.Name), timeout, logger), nil
	default:
		return nil, fmt.Errorf("invalid splitter type %q, expected 'shamir' or 'remote'", kind)
	}
}

// ConfigureStore opens the session store named by the store-uri flag.
func ConfigureStore(ctx context.Context, cCtx *cli.Context, logger *slog.Logger) (interfaces.SessionStore, error) {
	return storage.NewStoreFactory(logger).StoreFor(ctx, cCtx.String(StoreURIFlag.Name))
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"LISTEN_ADDR"},
}

var StoreURIFlag = &cli.StringFlag{
	Name:    "store-uri",
	Value:   "memory://",
	Usage:   "session store: memory://, file:///path, sqlite:///path, postgres://..., s3://bucket/prefix, vault://[token@]host:port/mount/path",
	EnvVars: []string{"STORE_URI"},
}

var SessionTTLFlag = &cli.Int64Flag{
	Name:    "session-ttl",
	Value:   int64(session.DefaultTTL / time.Second),
	Usage:   "seconds a session lives after its last write, -1 disables expiry, 0 is rejected",
	EnvVars: []string{"SESSION_TTL"},
}

var SplitterFlag = &cli.StringFlag{
	Name:    "splitter",
	Value:   "shamir",
	Usage:   "secret splitter: 'shamir' or 'remote'",
	EnvVars: []string{"SPLITTER"},
}

var SplitterURLFlag = &cli.StringFlag{
	Name:    "splitter-url",
	Usage:   "base URL of the remote splitting service",
	EnvVars: []string{"SPLITTER_URL"},
}

var SplitterProtocolFlag = &cli.StringFlag{
	Name:    "splitter-protocol",
	Value:   splitter.DefaultRemoteProtocol,
	Usage:   "protocol tag reported for the remote splitter",
	EnvVars: []string{"SPLITTER_PROTOCOL"},
}

var SplitterTimeoutFlag = &cli.Int64Flag{
	Name:    "splitter-timeout",
	Value:   10,
	Usage:   "seconds to wait for the remote splitter",
	EnvVars: []string{"SPLITTER_TIMEOUT"},
}

var ReadinessTimeoutFlag = &cli.Int64Flag{
	Name:    "readiness-timeout-ms",
	Value:   api.DefaultReadinessTimeout.Milliseconds(),
	Usage:   "milliseconds /readyz waits for the session store",
	EnvVars: []string{"READINESS_TIMEOUT_MS"},
}

var MaxBodyBytesFlag = &cli.Int64Flag{
	Name:    "max-body-bytes",
	Value:   api.DefaultMaxBodySize,
	Usage:   "largest accepted session request body",
	EnvVars: []string{"MAX_BODY_BYTES"},
}

var ServerURLFlag = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "split-session service URL",
	EnvVars: []string{"SPLIT_SESSION_SERVER"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: []string{"LOG_JSON"},
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: []string{"LOG_DEBUG"},
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address to listen on for Prometheus metrics",
	EnvVars: []string{"METRICS_ADDR"},
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var CommonFlags = append([]cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}, LogFlags...)

var ServerFlags = append([]cli.Flag{
	ListenAddrFlag,
	StoreURIFlag,
	SessionTTLFlag,
	SplitterFlag,
	SplitterURLFlag,
	SplitterProtocolFlag,
	SplitterTimeoutFlag,
	ReadinessTimeoutFlag,
	MaxBodyBytesFlag,
}, CommonFlags...)
