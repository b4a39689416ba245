package sessionhandler

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ruteri/split-session-service/api"
	"github.com/ruteri/split-session-service/interfaces"
	"github.com/ruteri/split-session-service/session"
)

// maxAliasLength bounds client and session aliases, in runes.
const maxAliasLength = 128

// ValidationError reports a malformed request field. It matches
// session.ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return session.ErrValidation
}

type createParams struct {
	masterAlias  string
	sessionAlias string
	policy       session.Policy
}

type getParams struct {
	id   interfaces.SessionID
	auth interfaces.AuthToken
}

// updateKind tells a join apart from an authenticated participant update.
type updateKind int

const (
	updateJoin updateKind = iota
	updateAct
)

type updateParams struct {
	kind  updateKind
	id    interfaces.SessionID
	alias string

	// set for updateAct only
	auth      interfaces.AuthToken
	hasSecret bool
	secret    string
	policy    session.Policy
}

func validateCreate(req *api.CreateSessionRequest) (createParams, error) {
	masterAlias, err := validateAlias("client_alias", req.ClientAlias)
	if err != nil {
		return createParams{}, err
	}
	sessionAlias, err := validateAlias("session_alias", req.SessionAlias)
	if err != nil {
		return createParams{}, err
	}

	params := createParams{masterAlias: masterAlias, sessionAlias: sessionAlias}
	if req.SessionPolicies != nil {
		params.policy = session.Policy{Quorum: req.SessionPolicies.Quorum, Shares: req.SessionPolicies.Shares}
		if err := params.policy.Validate(); err != nil {
			return createParams{}, err
		}
	}
	return params, nil
}

func validateGet(rawID string, query url.Values) (getParams, error) {
	id, err := validateSessionID(rawID)
	if err != nil {
		return getParams{}, err
	}
	auth, err := validateAuth(query.Get("auth"))
	if err != nil {
		return getParams{}, err
	}
	return getParams{id: id, auth: auth}, nil
}

func validateUpdate(rawID string, req *api.UpdateSessionRequest) (updateParams, error) {
	id, err := validateSessionID(rawID)
	if err != nil {
		return updateParams{}, err
	}
	alias, err := validateAlias("client_alias", req.ClientAlias)
	if err != nil {
		return updateParams{}, err
	}

	if req.Auth == "" {
		if req.Session != nil {
			return updateParams{}, &ValidationError{Field: "auth", Reason: "required to edit the session"}
		}
		return updateParams{kind: updateJoin, id: id, alias: alias}, nil
	}

	auth, err := validateAuth(req.Auth)
	if err != nil {
		return updateParams{}, err
	}
	params := updateParams{kind: updateAct, id: id, alias: alias, auth: auth}

	if req.Session != nil && req.Session.Secret != nil {
		edit := req.Session.Secret
		if edit.Value == "" {
			return updateParams{}, &ValidationError{Field: "session.secret.value", Reason: "must not be empty"}
		}
		params.hasSecret = true
		params.secret = edit.Value
		params.policy = session.Policy{Quorum: edit.Quorum, Shares: edit.Shares}
	}
	return params, nil
}

func validateSessionID(raw string) (interfaces.SessionID, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", &ValidationError{Field: "session_id", Reason: "not a uuid"}
	}
	return interfaces.SessionID(parsed.String()), nil
}

func validateAuth(raw string) (interfaces.AuthToken, error) {
	if raw == "" {
		return "", &ValidationError{Field: "auth", Reason: "missing"}
	}
	token, err := interfaces.ParseAuthToken(raw)
	if err != nil {
		return "", &ValidationError{Field: "auth", Reason: "not a uuid"}
	}
	return token, nil
}

func validateAlias(field, raw string) (string, error) {
	alias := strings.TrimSpace(raw)
	if alias == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if !utf8.ValidString(alias) {
		return "", &ValidationError{Field: field, Reason: "must be valid UTF-8"}
	}
	if utf8.RuneCountInString(alias) > maxAliasLength {
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("longer than %d characters", maxAliasLength)}
	}
	return alias, nil
}
