package sessionhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/split-session-service/api"
	"github.com/ruteri/split-session-service/interfaces"
	"github.com/ruteri/split-session-service/session"
)

// Coordinator is the session state machine the handler drives.
type Coordinator interface {
	Create(ctx context.Context, masterAlias, sessionAlias string, policy session.Policy) (*session.Session, interfaces.AuthToken, error)
	Get(ctx context.Context, id interfaces.SessionID, token interfaces.AuthToken) (session.View, error)
	Join(ctx context.Context, id interfaces.SessionID, alias string) (*session.Session, interfaces.AuthToken, error)
	SetSecret(ctx context.Context, id interfaces.SessionID, token interfaces.AuthToken, secret string, policy session.Policy) (*session.Session, error)
	Delete(ctx context.Context, id interfaces.SessionID) error
	View(s *session.Session, token interfaces.AuthToken) session.View
}

// Handler serves the split-session HTTP API.
type Handler struct {
	coordinator Coordinator
	log         *slog.Logger
	maxBodySize int64
}

// NewHandler creates a new HTTP request handler for split sessions. Request
// bodies larger than maxBodySize bytes are rejected; zero selects
// api.DefaultMaxBodySize.
func NewHandler(coordinator Coordinator, log *slog.Logger, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = api.DefaultMaxBodySize
	}
	return &Handler{
		coordinator: coordinator,
		log:         log,
		maxBodySize: maxBodySize,
	}
}

// RegisterRoutes configures the HTTP router with the session endpoints:
//   - POST /split - Create a session
//   - GET /split/{session_id}?auth= - Read a session as a participant
//   - PUT|POST /split/{session_id} - Join, or act as a participant
//   - DELETE /split/{session_id} - Remove a session
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/split", h.HandleCreate)
	r.Get("/split/{session_id}", h.HandleGet)
	r.Put("/split/{session_id}", h.HandleUpdate)
	r.Post("/split/{session_id}", h.HandleUpdate)
	r.Delete("/split/{session_id}", h.HandleDelete)
}

// HandleCreate creates a session owned by a new master.
//
// Status codes:
//   - 200 OK: Session created, the view carries the master token
//   - 400 Bad Request: Malformed body, aliases or policy
//   - 500 Internal Server Error: Store failure
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	params, err := validateCreate(&req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	s, token, err := h.coordinator.Create(r.Context(), params.masterAlias, params.sessionAlias, params.policy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, api.SessionResponse{
		Session:   h.coordinator.View(s, token),
		SessionID: s.ID(),
	})
}

// HandleGet returns the session filtered for the holder of the auth token.
//
// Status codes:
//   - 200 OK: Session view
//   - 400 Bad Request: Malformed session id or auth token
//   - 401 Unauthorized: Token is not a participant
//   - 404 Not Found: Unknown session
//   - 410 Gone: Session expired
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	params, err := validateGet(r.PathValue("session_id"), r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.coordinator.Get(r.Context(), params.id, params.auth)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, api.SessionResponse{Session: view, SessionID: params.id})
}

// HandleUpdate joins a new shareholder when the body has no auth token.
// Otherwise it resolves the participant holding the token, whose alias must
// match client_alias, and applies the master's secret submission if present.
//
// Status codes:
//   - 200 OK: Session view as the caller
//   - 400 Bad Request: Malformed body, invalid policy, or secret already set
//   - 401 Unauthorized: Unknown token, alias mismatch, alias taken, or non-master edit
//   - 403 Forbidden: Session is full
//   - 404 Not Found: Unknown session
//   - 410 Gone: Session expired
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateSessionRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	params, err := validateUpdate(r.PathValue("session_id"), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var view session.View
	switch params.kind {
	case updateJoin:
		s, token, err := h.coordinator.Join(r.Context(), params.id, params.alias)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		view = h.coordinator.View(s, token)

	case updateAct:
		view, err = h.coordinator.Get(r.Context(), params.id, params.auth)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !callerHasAlias(view, params.auth, params.alias) {
			h.writeError(w, r, fmt.Errorf("%w: client_alias does not match the auth token", session.ErrDenied))
			return
		}

		if params.hasSecret {
			s, err := h.coordinator.SetSecret(r.Context(), params.id, params.auth, params.secret, params.policy)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			view = h.coordinator.View(s, params.auth)
		}
	}

	h.writeJSON(w, api.SessionResponse{Session: view, SessionID: params.id})
}

// HandleDelete removes a session.
//
// Status codes:
//   - 200 OK: Session removed
//   - 400 Bad Request: Malformed session id
//   - 404 Not Found: Unknown session
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := validateSessionID(r.PathValue("session_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.coordinator.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, api.DeleteSessionResponse{Success: true, SessionID: id})
}

func callerHasAlias(view session.View, token interfaces.AuthToken, alias string) bool {
	for _, u := range view.Users {
		if u.Auth == token {
			return u.Alias == alias
		}
	}
	return false
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		return &ValidationError{Field: "body", Reason: err.Error()}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	return nil
}

// StatusCode maps a session error to its HTTP status.
func StatusCode(err error) int {
	switch session.ErrorKind(err) {
	case "ok":
		return http.StatusOK
	case "validation":
		return http.StatusBadRequest
	case "denied":
		return http.StatusUnauthorized
	case "capacity":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "expired":
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	resp := api.ErrorResponse{Error: err.Error(), Kind: session.ErrorKind(err)}

	if status == http.StatusInternalServerError {
		h.log.Error("Session request failed", "err", err, "method", r.Method, "path", r.URL.Path)
		resp.Error = "internal server error"
	} else {
		h.log.Debug("Session request rejected", "err", err, "status", status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to encode error response", "err", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}
