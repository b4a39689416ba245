package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ruteri/split-session-service/interfaces"
)

// StoreFactory creates session stores from location URIs.
type StoreFactory struct {
	log *slog.Logger
}

// NewStoreFactory creates a new factory instance that can create session stores.
func NewStoreFactory(logger *slog.Logger) *StoreFactory {
	return &StoreFactory{
		log: logger,
	}
}

// StoreFor creates a session store from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - memory:// - Process-local storage, lost on restart
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2 mount
//   - postgres:// - PostgreSQL database
//   - sqlite:// - SQLite database file
//
// A comma-separated list of URIs creates a MultiStore whose primary is the
// first entry and whose mirrors are the rest.
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *StoreFactory) StoreFor(ctx context.Context, locationURI string) (interfaces.SessionStore, error) {
	if strings.Contains(locationURI, ",") {
		return sf.createMultiStore(ctx, strings.Split(locationURI, ","))
	}

	loc, err := interfaces.NewStoreLocation(locationURI)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(loc.Scheme) {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return sf.createFileStore(loc)
	case "s3":
		return sf.createS3Store(loc)
	case "vault":
		return sf.createVaultStore(loc)
	case "postgres", "postgresql":
		sf.log.Debug("Creating postgres store", slog.String("uri", redactDSN(loc.Raw)))
		return OpenPostgresStore(ctx, loc.Raw, sf.log)
	case "sqlite":
		return sf.createSQLiteStore(ctx, loc)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %s", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// createMultiStore creates a store for each URI and replicates across them.
func (sf *StoreFactory) createMultiStore(ctx context.Context, uris []string) (interfaces.SessionStore, error) {
	stores := make([]interfaces.SessionStore, 0, len(uris))
	for _, uri := range uris {
		uri = strings.TrimSpace(uri)
		if uri == "" {
			continue
		}
		store, err := sf.StoreFor(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("could not create store %s: %w", redactDSN(uri), err)
		}
		stores = append(stores, store)
	}
	return NewMultiStore(stores, sf.log)
}

// createS3Store creates an S3 or S3-compatible session store.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
func (sf *StoreFactory) createS3Store(loc interfaces.StoreLocation) (interfaces.SessionStore, error) {
	sf.log.Debug("Creating S3 store", slog.String("bucket", loc.Host))

	if loc.Host == "" {
		return nil, fmt.Errorf("%w: missing bucket in %s", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
	prefix := strings.TrimPrefix(loc.Path, "/")

	region := loc.GetParam("region")
	if region == "" {
		region = "us-east-1" // Default region
	}
	endpoint := loc.GetParam("endpoint")

	var accessKey, secretKey string
	if loc.User != nil {
		accessKey = loc.User.Username()
		secretKey, _ = loc.User.Password()
		sf.log.Debug("Using embedded S3 credentials")
	} else {
		sf.log.Debug("No credentials provided, using default AWS credential chain")
	}

	return NewS3Store(loc.Host, prefix, region, endpoint, accessKey, secretKey, sf.log)
}

// createVaultStore creates a Vault KV v2 session store.
// URI format: vault://[TOKEN@]host:port/mount/path?tls=false
// The token falls back to VAULT_TOKEN when absent from the URI.
func (sf *StoreFactory) createVaultStore(loc interfaces.StoreLocation) (interfaces.SessionStore, error) {
	sf.log.Debug("Creating Vault store", slog.String("host", loc.Host))

	if loc.Host == "" {
		return nil, fmt.Errorf("%w: missing vault address", interfaces.ErrInvalidLocationURI)
	}

	parts := strings.SplitN(strings.Trim(loc.Path, "/"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: missing KV mount in vault URI", interfaces.ErrInvalidLocationURI)
	}
	mountPath := parts[0]
	dataPath := "split"
	if len(parts) == 2 && parts[1] != "" {
		dataPath = parts[1]
	}

	scheme := "https"
	if loc.GetParam("tls") != "" && !loc.GetParamBool("tls") {
		scheme = "http"
	}
	address := (&url.URL{Scheme: scheme, Host: loc.Host}).String()

	var token string
	if loc.User != nil {
		token = loc.User.Username()
	}

	return NewVaultStore(address, token, mountPath, dataPath, sf.log)
}

// createFileStore creates a file system session store.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StoreFactory) createFileStore(loc interfaces.StoreLocation) (interfaces.SessionStore, error) {
	sf.log.Debug("Creating file store", slog.String("uri", loc.Raw))

	path := hostPath(loc)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, loc.Raw)
	}
	return NewFileStore(path, sf.log)
}

// createSQLiteStore creates a SQLite session store.
// URI format: sqlite:///absolute/path.db or sqlite://./relative/path.db
func (sf *StoreFactory) createSQLiteStore(ctx context.Context, loc interfaces.StoreLocation) (interfaces.SessionStore, error) {
	sf.log.Debug("Creating sqlite store", slog.String("uri", loc.Raw))

	path := hostPath(loc)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in sqlite URI: %s", interfaces.ErrInvalidLocationURI, loc.Raw)
	}
	return OpenSQLiteStore(ctx, path, sf.log)
}

// hostPath joins host and path of URIs whose host is the first path segment.
func hostPath(loc interfaces.StoreLocation) string {
	if loc.Host == "" {
		return loc.Path
	}
	return loc.Host + "/" + strings.TrimPrefix(loc.Path, "/")
}
