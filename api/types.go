package api

import (
	"github.com/ruteri/split-session-service/interfaces"
	"github.com/ruteri/split-session-service/session"
)

// SessionPolicy is the quorum/shares pair of a split session.
type SessionPolicy struct {
	Quorum int `json:"quorum"`
	Shares int `json:"shares"`
}

// CreateSessionRequest is the body of POST /split.
type CreateSessionRequest struct {
	ClientAlias  string `json:"client_alias"`
	SessionAlias string `json:"session_alias"`

	// SessionPolicies fixes the policy, and with it the capacity, at creation.
	SessionPolicies *SessionPolicy `json:"session_policies,omitempty"`
}

// UpdateSessionRequest is the body of PUT /split/{session_id}.
//
// Without Auth the request joins ClientAlias as a new shareholder. With Auth
// it acts as the participant holding that token, and Session carries the
// master's secret submission.
type UpdateSessionRequest struct {
	ClientAlias string       `json:"client_alias"`
	Auth        string       `json:"auth,omitempty"`
	Session     *SessionEdit `json:"session,omitempty"`
}

// SessionEdit wraps the secret submitted by the master.
type SessionEdit struct {
	Secret *SecretEdit `json:"secret,omitempty"`
}

// SecretEdit is the secret value with an optional policy. The policy may be
// omitted when it was fixed at creation.
type SecretEdit struct {
	Value  string `json:"value"`
	Quorum int    `json:"quorum,omitempty"`
	Shares int    `json:"shares,omitempty"`
}

// SessionResponse is returned by every session endpoint except delete.
type SessionResponse struct {
	Session   session.View         `json:"session"`
	SessionID interfaces.SessionID `json:"session_id"`
}

// DeleteSessionResponse is returned by DELETE /split/{session_id}.
type DeleteSessionResponse struct {
	Success   bool                 `json:"success"`
	SessionID interfaces.SessionID `json:"session_id"`
}

// ErrorResponse is the body of every non-200 response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
