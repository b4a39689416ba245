package session

import (
	"context"
	"fmt"
	"time"

	"github.com/ruteri/split-session-service/interfaces"
)

// TTLInfinite configures sessions that never expire.
const TTLInfinite time.Duration = -1

// TTLInfiniteSeconds is the remaining TTL reported for sessions that never expire.
const TTLInfiniteSeconds int64 = -1

// Policy is the quorum/shares policy of a session. The zero Policy means
// the policy is not known yet.
type Policy struct {
	Quorum int
	Shares int
}

// IsZero reports whether neither quorum nor shares is set.
func (p Policy) IsZero() bool {
	return p.Quorum == 0 && p.Shares == 0
}

// Validate checks shares >= quorum >= 1.
func (p Policy) Validate() error {
	if p.Quorum < 1 || p.Shares < 1 {
		return fmt.Errorf("%w: quorum and shares must be positive, got quorum=%d shares=%d", ErrInvalidPolicy, p.Quorum, p.Shares)
	}
	if p.Shares < p.Quorum {
		return fmt.Errorf("%w: shares (%d) must be at least quorum (%d)", ErrInvalidPolicy, p.Shares, p.Quorum)
	}
	return nil
}

// checkLimit rejects policies with more shares than limit. Zero means no limit.
func (p Policy) checkLimit(limit int) error {
	if limit > 0 && p.Shares > limit {
		return fmt.Errorf("%w: at most %d shares are supported, got %d", ErrInvalidPolicy, limit, p.Shares)
	}
	return nil
}

// shareLimit returns the share cap of splitter, or zero when it has none.
func shareLimit(splitter interfaces.Splitter) int {
	if limiter, ok := splitter.(interfaces.ShareLimiter); ok {
		return limiter.MaxShares()
	}
	return 0
}

// Session is the aggregate owning the master, the ordered shareholders and the
// write-once secret of a split session.
type Session struct {
	id           interfaces.SessionID
	alias        string
	master       *User
	shareholders []*User

	policy   Policy
	protocol string

	state   interfaces.SecretState
	secret  string
	digest  interfaces.SecretDigest
	unbound []interfaces.Share

	lastUpdate time.Time
}

func newSession(master *User, alias string, policy Policy, protocol string) *Session {
	return &Session{
		alias:    alias,
		master:   master,
		policy:   policy,
		protocol: protocol,
		state:    interfaces.SecretEmpty,
	}
}

// ID returns the session identifier, empty until the session is stored.
func (s *Session) ID() interfaces.SessionID { return s.id }

// Alias returns the display label of the session.
func (s *Session) Alias() string { return s.alias }

// Master returns the session creator.
func (s *Session) Master() *User { return s.master }

// Shareholders returns the joined shareholders in join order.
func (s *Session) Shareholders() []*User { return s.shareholders }

// Policy returns the quorum/shares policy, zero if not yet known.
func (s *Session) Policy() Policy { return s.policy }

// Protocol returns the splitter protocol tag of the session.
func (s *Session) Protocol() string { return s.protocol }

// State returns the secret state.
func (s *Session) State() interfaces.SecretState { return s.state }

// Digest returns the secret digest, empty before assignment.
func (s *Session) Digest() interfaces.SecretDigest { return s.digest }

// LastUpdate returns the time of the last store or update.
func (s *Session) LastUpdate() time.Time { return s.lastUpdate }

// Capacity returns the maximum number of shareholders and whether it is fixed.
// Capacity is fixed as soon as the shares count is known.
func (s *Session) Capacity() (int, bool) {
	if s.policy.Shares == 0 {
		return 0, false
	}
	return s.policy.Shares, true
}

// Resolve returns the participant holding token.
func (s *Session) Resolve(token interfaces.AuthToken) (*User, bool) {
	if token == "" {
		return nil, false
	}
	if s.master != nil && s.master.Token == token {
		return s.master, true
	}
	for _, u := range s.shareholders {
		if u.Token == token {
			return u, true
		}
	}
	return nil, false
}

func (s *Session) aliasTaken(alias string) bool {
	if s.master != nil && s.master.Alias == alias {
		return true
	}
	for _, u := range s.shareholders {
		if u.Alias == alias {
			return true
		}
	}
	return false
}

// RemainingTTL returns the seconds left before the session expires, clamped at
// zero, or TTLInfiniteSeconds when ttl is TTLInfinite.
func (s *Session) RemainingTTL(now time.Time, ttl time.Duration) int64 {
	if ttl < 0 {
		return TTLInfiniteSeconds
	}
	remaining := int64(ttl/time.Second) - (now.Unix() - s.lastUpdate.Unix())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the TTL is exhausted.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return s.RemainingTTL(now, ttl) == 0
}

// join appends a new shareholder. Once the secret is assigned, the shareholder
// is bound to the next unbound share.
func (s *Session) join(alias string) (*User, error) {
	if s.aliasTaken(alias) {
		return nil, fmt.Errorf("%w: alias %q is already used in this session", ErrDenied, alias)
	}
	if capacity, fixed := s.Capacity(); fixed && len(s.shareholders) >= capacity {
		return nil, fmt.Errorf("%w: %d of %d shareholders joined", ErrCapacity, len(s.shareholders), capacity)
	}

	user := newUser(alias, RoleShareholder)
	if s.state == interfaces.SecretAssigned {
		if len(s.unbound) == 0 {
			// capacity check above guarantees a share is left
			panic("assigned session without unbound share for a joining shareholder")
		}
		user.Share = s.unbound[0]
		s.unbound = s.unbound[1:]
	}
	s.shareholders = append(s.shareholders, user)
	return user, nil
}

// resolvePolicy merges the requested policy with the one fixed at creation
// and checks the result against the splitter's share limit.
func (s *Session) resolvePolicy(requested Policy, limit int) (Policy, error) {
	policy := s.policy
	if policy.IsZero() {
		policy = requested
	} else if !requested.IsZero() && requested != s.policy {
		return Policy{}, fmt.Errorf("%w: policy is fixed to quorum=%d shares=%d", ErrInvalidPolicy, s.policy.Quorum, s.policy.Shares)
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	if err := policy.checkLimit(limit); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// assignSecret splits secret with splitter and binds the shares to the
// shareholders in join order. The session is unchanged on error.
func (s *Session) assignSecret(ctx context.Context, caller *User, secret string, requested Policy, splitter interfaces.Splitter) error {
	switch caller.Role {
	case RoleMaster:
	case RoleShareholder:
		return fmt.Errorf("%w: only the session master can set the secret", ErrDenied)
	default:
		return fmt.Errorf("%w: unknown role %d", ErrDenied, int(caller.Role))
	}

	if s.state == interfaces.SecretAssigned {
		return ErrAlreadyAssigned
	}

	policy, err := s.resolvePolicy(requested, shareLimit(splitter))
	if err != nil {
		return err
	}

	if secret == "" {
		return fmt.Errorf("%w: secret must not be empty", ErrValidation)
	}

	if len(s.shareholders) > policy.Shares {
		return fmt.Errorf("%w: %d shareholders already joined, policy allows %d", ErrInvalidPolicy, len(s.shareholders), policy.Shares)
	}

	shares, err := splitter.Split(ctx, []byte(secret), policy.Shares, policy.Quorum)
	if err != nil {
		return fmt.Errorf("could not split secret: %w", err)
	}
	if len(shares) != policy.Shares {
		return fmt.Errorf("splitter %s returned %d shares, expected %d", splitter.Protocol(), len(shares), policy.Shares)
	}

	for i, u := range s.shareholders {
		u.Share = shares[i]
	}
	s.unbound = append([]interfaces.Share(nil), shares[len(s.shareholders):]...)
	s.policy = policy
	s.protocol = splitter.Protocol()
	s.secret = secret
	s.digest = interfaces.ComputeSecretDigest([]byte(secret))
	s.state = interfaces.SecretAssigned
	return nil
}

// Snapshot converts the session to its persisted form.
func (s *Session) Snapshot() *interfaces.SessionSnapshot {
	shareholders := make([]interfaces.UserSnapshot, 0, len(s.shareholders))
	for _, u := range s.shareholders {
		shareholders = append(shareholders, u.snapshot())
	}

	return &interfaces.SessionSnapshot{
		ID:            s.id,
		Alias:         s.alias,
		Master:        s.master.snapshot(),
		Shareholders:  shareholders,
		Quorum:        s.policy.Quorum,
		Shares:        s.policy.Shares,
		Protocol:      s.protocol,
		Secret:        s.secret,
		SecretDigest:  s.digest,
		SecretState:   s.state,
		UnboundShares: append([]interfaces.Share(nil), s.unbound...),
		LastUpdate:    s.lastUpdate.Unix(),
	}
}

// FromSnapshot rebuilds a session from its persisted form.
func FromSnapshot(snap *interfaces.SessionSnapshot) (*Session, error) {
	if snap.ID == "" {
		return nil, fmt.Errorf("snapshot has no session id")
	}

	state := snap.SecretState
	switch state {
	case "":
		state = interfaces.SecretEmpty
	case interfaces.SecretEmpty, interfaces.SecretAssigned:
	default:
		return nil, fmt.Errorf("snapshot %s has unknown secret state %q", snap.ID, state)
	}

	s := &Session{
		id:       snap.ID,
		alias:    snap.Alias,
		master:   userFromSnapshot(snap.Master, RoleMaster),
		policy:   Policy{Quorum: snap.Quorum, Shares: snap.Shares},
		protocol: snap.Protocol,
		state:    state,
		secret:   snap.Secret,
		digest:   snap.SecretDigest,
		unbound:  append([]interfaces.Share(nil), snap.UnboundShares...),

		lastUpdate: time.Unix(snap.LastUpdate, 0),
	}
	for _, u := range snap.Shareholders {
		s.shareholders = append(s.shareholders, userFromSnapshot(u, RoleShareholder))
	}
	return s, nil
}
