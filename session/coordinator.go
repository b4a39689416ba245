package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/split-session-service/interfaces"
	"github.com/ruteri/split-session-service/metrics"
)

// DefaultTTL is the session lifetime used when Config.TTL is zero.
const DefaultTTL = 10 * time.Minute

// Config contains the coordinator settings.
type Config struct {
	// TTL is the lifetime of a session after its last write. TTLInfinite
	// disables expiry; zero selects DefaultTTL.
	TTL time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Coordinator exposes the session operations. It holds no session state:
// every call loads the snapshot from the store, applies one transition and
// persists the result. Calls on the same session are serialized.
type Coordinator struct {
	store    interfaces.SessionStore
	splitter interfaces.Splitter
	ttl      time.Duration
	now      func() time.Time
	locks    *sessionLocks
	log      *slog.Logger
}

// NewCoordinator creates a coordinator persisting to store and splitting with splitter.
func NewCoordinator(store interfaces.SessionStore, splitter interfaces.Splitter, cfg Config, log *slog.Logger) *Coordinator {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		store:    store,
		splitter: splitter,
		ttl:      cfg.TTL,
		now:      cfg.Now,
		locks:    newSessionLocks(),
		log:      log,
	}
}

// TTL returns the configured session lifetime.
func (c *Coordinator) TTL() time.Duration {
	return c.ttl
}

// View filters s for the holder of token, with the remaining TTL as of now.
func (c *Coordinator) View(s *Session, token interfaces.AuthToken) View {
	return s.View(token, s.RemainingTTL(c.now(), c.ttl))
}

// Create stores a new session owned by a new master and returns it with the
// master's token. A non-zero policy fixes the shareholder capacity right away.
func (c *Coordinator) Create(ctx context.Context, masterAlias, sessionAlias string, policy Policy) (s *Session, token interfaces.AuthToken, err error) {
	defer c.observe("create", time.Now(), &err)

	if !policy.IsZero() {
		if err := policy.Validate(); err != nil {
			return nil, "", err
		}
		if err := policy.checkLimit(shareLimit(c.splitter)); err != nil {
			return nil, "", err
		}
	}

	master := newUser(masterAlias, RoleMaster)
	s = newSession(master, sessionAlias, policy, c.splitter.Protocol())
	s.id = interfaces.NewSessionID()
	s.lastUpdate = c.now()

	if err := c.store.Create(ctx, s.Snapshot()); err != nil {
		return nil, "", fmt.Errorf("could not store session: %w", err)
	}

	c.log.Info("Session created", "sessionID", s.id, "quorum", policy.Quorum, "shares", policy.Shares)
	return s, master.Token, nil
}

// Get returns the session view for the holder of token. Reads do not refresh the TTL.
func (c *Coordinator) Get(ctx context.Context, id interfaces.SessionID, token interfaces.AuthToken) (view View, err error) {
	defer c.observe("get", time.Now(), &err)

	unlock := c.locks.rlock(id)
	defer unlock()

	s, err := c.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	if _, ok := s.Resolve(token); !ok {
		return View{}, fmt.Errorf("%w: token is not a participant of session %s", ErrDenied, id)
	}

	remaining := s.RemainingTTL(c.now(), c.ttl)
	if remaining == 0 {
		return View{}, fmt.Errorf("%w: %s", ErrExpired, id)
	}
	return s.View(token, remaining), nil
}

// Join appends a shareholder with alias and returns the session with the new token.
func (c *Coordinator) Join(ctx context.Context, id interfaces.SessionID, alias string) (s *Session, token interfaces.AuthToken, err error) {
	defer c.observe("join", time.Now(), &err)

	unlock := c.locks.lock(id)
	defer unlock()

	s, err = c.loadLive(ctx, id)
	if err != nil {
		return nil, "", err
	}

	user, err := s.join(alias)
	if err != nil {
		return nil, "", err
	}

	if err := c.update(ctx, s); err != nil {
		return nil, "", err
	}

	c.log.Info("Shareholder joined", "sessionID", id, "shareholders", len(s.shareholders), "bound", user.Share != "")
	return s, user.Token, nil
}

// SetSecret splits secret into shares and binds them to the shareholders in
// join order. Only the master may call it, and only once per session.
func (c *Coordinator) SetSecret(ctx context.Context, id interfaces.SessionID, token interfaces.AuthToken, secret string, policy Policy) (s *Session, err error) {
	defer c.observe("set_secret", time.Now(), &err)

	unlock := c.locks.lock(id)
	defer unlock()

	s, err = c.loadLive(ctx, id)
	if err != nil {
		return nil, err
	}

	caller, ok := s.Resolve(token)
	if !ok {
		return nil, fmt.Errorf("%w: token is not a participant of session %s", ErrDenied, id)
	}

	if err := s.assignSecret(ctx, caller, secret, policy, c.splitter); err != nil {
		return nil, err
	}

	if err := c.update(ctx, s); err != nil {
		return nil, err
	}

	c.log.Info("Secret assigned", "sessionID", id, "protocol", s.protocol,
		"quorum", s.policy.Quorum, "shares", s.policy.Shares, "bound", len(s.shareholders))
	return s, nil
}

// Delete removes the session from the store.
func (c *Coordinator) Delete(ctx context.Context, id interfaces.SessionID) (err error) {
	defer c.observe("delete", time.Now(), &err)

	unlock := c.locks.lock(id)
	defer unlock()

	if err := c.store.Delete(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("could not delete session %s: %w", id, err)
	}

	c.log.Info("Session deleted", "sessionID", id)
	return nil
}

func (c *Coordinator) load(ctx context.Context, id interfaces.SessionID) (*Session, error) {
	snap, err := c.store.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("could not load session %s: %w", id, err)
	}
	return FromSnapshot(snap)
}

// loadLive loads a session for writing; expired sessions are rejected.
func (c *Coordinator) loadLive(ctx context.Context, id interfaces.SessionID) (*Session, error) {
	s, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Expired(c.now(), c.ttl) {
		return nil, fmt.Errorf("%w: %s", ErrExpired, id)
	}
	return s, nil
}

func (c *Coordinator) update(ctx context.Context, s *Session) error {
	if s.id == "" {
		panic("session must be stored before it is updated")
	}
	s.lastUpdate = c.now()
	if err := c.store.Update(ctx, s.Snapshot()); err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, s.id)
		}
		return fmt.Errorf("could not update session %s: %w", s.id, err)
	}
	return nil
}

func (c *Coordinator) observe(op string, start time.Time, err *error) {
	kind := ErrorKind(*err)
	metrics.RecordOperation(op, kind, time.Since(start))
	if kind == "internal" {
		c.log.Error("Session operation failed", "op", op, "err", *err)
	} else if *err != nil {
		c.log.Debug("Session operation rejected", "op", op, "kind", kind, "err", *err)
	}
}
