package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrSessionNotFound is returned when no snapshot exists for a session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating a snapshot whose ID is already stored.
	ErrSessionExists = errors.New("session already exists")

	// ErrBackendUnavailable is returned when a session store is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("session store unavailable")

	// ErrInvalidLocationURI is returned when a store location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid store location URI")
)

// SessionStore provides durable key-value persistence for session snapshots.
type SessionStore interface {
	// Create saves a new snapshot. Returns ErrSessionExists if the ID is taken.
	Create(ctx context.Context, snapshot *SessionSnapshot) error

	// Fetch loads a snapshot by ID. Returns ErrSessionNotFound if absent.
	Fetch(ctx context.Context, id SessionID) (*SessionSnapshot, error)

	// Update replaces an existing snapshot. Returns ErrSessionNotFound if absent.
	Update(ctx context.Context, snapshot *SessionSnapshot) error

	// Delete removes a snapshot. Returns ErrSessionNotFound if absent.
	Delete(ctx context.Context, id SessionID) error

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this store.
	LocationURI() string
}

// StoreLocation represents the URI of a session store.
type StoreLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	User   *url.Userinfo
}

// NewStoreLocation parses and validates a session store URI.
func NewStoreLocation(uri string) (StoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StoreLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "memory", "file", "s3", "vault", "postgres", "postgresql", "sqlite":
	default:
		return StoreLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StoreLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		User:   parsed.User,
	}, nil
}

// String returns the original URI string.
func (loc StoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StoreLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}
