package interfaces

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// SessionID identifies a split session. It is assigned on creation and never changes.
type SessionID string

// NewSessionID generates a random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewRandom()).String())
}

// String returns the identifier as a string.
func (id SessionID) String() string {
	return string(id)
}

// AuthToken is the secret-bearing identifier of a session participant.
// It is both the participant's credential and its primary key within the session.
type AuthToken string

// NewAuthToken generates a random auth token. Tokens are never chosen by callers.
func NewAuthToken() AuthToken {
	return AuthToken(uuid.Must(uuid.NewRandom()).String())
}

// ParseAuthToken validates that s has the shape of a token issued by NewAuthToken.
func ParseAuthToken(s string) (AuthToken, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid auth token: %w", err)
	}
	return AuthToken(parsed.String()), nil
}

// String returns the token as a string.
func (t AuthToken) String() string {
	return string(t)
}

// Share is an opaque fragment of a secret produced by a Splitter.
type Share string

// SecretDigest is the hex-encoded SHA-256 of a plaintext secret.
type SecretDigest string

// ComputeSecretDigest returns the digest exposed to every session participant.
func ComputeSecretDigest(secret []byte) SecretDigest {
	sum := sha256.Sum256(secret)
	return SecretDigest(hex.EncodeToString(sum[:]))
}

// SecretState is the persisted write-once state of a session secret.
type SecretState string

const (
	// SecretEmpty means no secret has been submitted yet.
	SecretEmpty SecretState = "empty"
	// SecretAssigned means the secret was split and its shares bound. Terminal.
	SecretAssigned SecretState = "assigned"
)

// UserSnapshot is the persisted form of a session participant.
type UserSnapshot struct {
	ID    AuthToken `json:"id"`
	Alias string    `json:"alias"`
	Share Share     `json:"share,omitempty"`
}

// SessionSnapshot is the persisted form of a session, as written to a SessionStore.
type SessionSnapshot struct {
	ID           SessionID      `json:"id"`
	Alias        string         `json:"alias"`
	Master       UserSnapshot   `json:"master"`
	Shareholders []UserSnapshot `json:"shareholders"`

	// Quorum and Shares are zero until the policy is known.
	Quorum   int    `json:"quorum,omitempty"`
	Shares   int    `json:"shares,omitempty"`
	Protocol string `json:"protocol,omitempty"`

	Secret        string       `json:"secret,omitempty"`
	SecretDigest  SecretDigest `json:"secret_sha256,omitempty"`
	SecretState   SecretState  `json:"secret_state"`
	UnboundShares []Share      `json:"unbound_shares,omitempty"`

	// LastUpdate is the unix time in seconds of the last store or update.
	LastUpdate int64 `json:"last_update"`
}
