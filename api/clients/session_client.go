package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/split-session-service/api"
	"github.com/ruteri/split-session-service/interfaces"
	"github.com/ruteri/split-session-service/session"
)

// APIError is a non-200 response of the session API. It unwraps to the
// matching session error, so callers can use errors.Is(err, session.ErrCapacity).
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("session API returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Kind {
	case "validation":
		return session.ErrValidation
	case "denied":
		return session.ErrDenied
	case "capacity":
		return session.ErrCapacity
	case "not_found":
		return session.ErrNotFound
	case "expired":
		return session.ErrExpired
	}
	return nil
}

// kindForStatus recovers the error kind when the body carries none, e.g.
// from a proxy in front of the service.
func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation"
	case http.StatusUnauthorized:
		return "denied"
	case http.StatusForbidden:
		return "capacity"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusGone:
		return "expired"
	default:
		return "internal"
	}
}

// SessionClient talks to the /split endpoints of a split-session service.
type SessionClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSessionClient creates a client for the service at baseURL.
func NewSessionClient(baseURL string, timeout time.Duration) *SessionClient {
	return &SessionClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Create creates a session owned by clientAlias. The master token is the auth
// of the first user in the returned view. A nil policy defers it to SetSecret.
func (c *SessionClient) Create(ctx context.Context, clientAlias, sessionAlias string, policy *api.SessionPolicy) (*api.SessionResponse, error) {
	req := api.CreateSessionRequest{
		ClientAlias:     clientAlias,
		SessionAlias:    sessionAlias,
		SessionPolicies: policy,
	}
	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/split", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns the session as seen by the holder of auth.
func (c *SessionClient) Get(ctx context.Context, id interfaces.SessionID, auth interfaces.AuthToken) (*api.SessionResponse, error) {
	path := fmt.Sprintf("/split/%s?auth=%s", url.PathEscape(string(id)), url.QueryEscape(string(auth)))
	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Join adds clientAlias as a shareholder and returns the session with the new
// shareholder's token.
func (c *SessionClient) Join(ctx context.Context, id interfaces.SessionID, clientAlias string) (*api.SessionResponse, interfaces.AuthToken, error) {
	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodPut, "/split/"+url.PathEscape(string(id)), api.UpdateSessionRequest{ClientAlias: clientAlias}, &resp); err != nil {
		return nil, "", err
	}

	for _, u := range resp.Session.Users {
		if u.Auth != "" {
			return &resp, u.Auth, nil
		}
	}
	return nil, "", fmt.Errorf("join response for session %s carries no auth token", id)
}

// SetSecret submits the secret as the master. A nil policy uses the one fixed
// at creation.
func (c *SessionClient) SetSecret(ctx context.Context, id interfaces.SessionID, auth interfaces.AuthToken, clientAlias, secret string, policy *api.SessionPolicy) (*api.SessionResponse, error) {
	edit := &api.SecretEdit{Value: secret}
	if policy != nil {
		edit.Quorum = policy.Quorum
		edit.Shares = policy.Shares
	}
	req := api.UpdateSessionRequest{
		ClientAlias: clientAlias,
		Auth:        string(auth),
		Session:     &api.SessionEdit{Secret: edit},
	}

	var resp api.SessionResponse
	if err := c.do(ctx, http.MethodPut, "/split/"+url.PathEscape(string(id)), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete removes the session.
func (c *SessionClient) Delete(ctx context.Context, id interfaces.SessionID) error {
	var resp api.DeleteSessionResponse
	if err := c.do(ctx, http.MethodDelete, "/split/"+url.PathEscape(string(id)), nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("delete of session %s was not acknowledged", id)
	}
	return nil
}

func (c *SessionClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var parsed api.ErrorResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Kind != "" {
			apiErr.Kind = parsed.Kind
			apiErr.Message = parsed.Error
		} else {
			apiErr.Kind = kindForStatus(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}
