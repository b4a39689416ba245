package session

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/ruteri/split-session-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		policy Policy
		valid  bool
	}{
		{Policy{Quorum: 1, Shares: 1}, true},
		{Policy{Quorum: 2, Shares: 5}, true},
		{Policy{Quorum: 5, Shares: 5}, true},
		{Policy{Quorum: 0, Shares: 0}, false},
		{Policy{Quorum: 0, Shares: 3}, false},
		{Policy{Quorum: 3, Shares: 0}, false},
		{Policy{Quorum: -1, Shares: 2}, false},
		{Policy{Quorum: 4, Shares: 3}, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("quorum=%d shares=%d", tt.policy.Quorum, tt.policy.Shares), func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
			}
		})
	}
}

func TestRole_Text(t *testing.T) {
	data, err := json.Marshal(map[string]Role{"a": RoleMaster, "b": RoleShareholder})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"master","b":"shareholder"}`, string(data))

	var r Role
	require.NoError(t, r.UnmarshalText([]byte("shareholder")))
	assert.Equal(t, RoleShareholder, r)
	assert.Error(t, r.UnmarshalText([]byte("admin")))

	_, err = Role(7).MarshalText()
	assert.Error(t, err)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{nil, "ok"},
		{ErrValidation, "validation"},
		{fmt.Errorf("wrapped: %w", ErrInvalidPolicy), "validation"},
		{ErrAlreadyAssigned, "validation"},
		{ErrDenied, "denied"},
		{ErrCapacity, "capacity"},
		{fmt.Errorf("%w: sid", ErrNotFound), "not_found"},
		{ErrExpired, "expired"},
		{interfaces.ErrBackendUnavailable, "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, ErrorKind(tt.err), "%v", tt.err)
	}
}

func TestSession_RemainingTTL(t *testing.T) {
	base := time.Unix(1700000000, 0)
	s := &Session{lastUpdate: base}

	assert.EqualValues(t, 600, s.RemainingTTL(base, 10*time.Minute))
	assert.EqualValues(t, 540, s.RemainingTTL(base.Add(time.Minute), 10*time.Minute))
	assert.EqualValues(t, 0, s.RemainingTTL(base.Add(10*time.Minute), 10*time.Minute))
	assert.EqualValues(t, 0, s.RemainingTTL(base.Add(time.Hour), 10*time.Minute))
	assert.True(t, s.Expired(base.Add(time.Hour), 10*time.Minute))

	assert.Equal(t, TTLInfiniteSeconds, s.RemainingTTL(base.Add(100*time.Hour), TTLInfinite))
	assert.False(t, s.Expired(base.Add(100*time.Hour), TTLInfinite))
}

func TestSession_SnapshotRoundTrip(t *testing.T) {
	master := newUser("M", RoleMaster)
	s := newSession(master, "S", Policy{Quorum: 1, Shares: 2}, "fxc1")
	s.id = interfaces.NewSessionID()
	s.lastUpdate = time.Unix(1700000000, 0)

	holder, err := s.join("U1")
	require.NoError(t, err)

	restored, err := FromSnapshot(s.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, s.ID(), restored.ID())
	assert.Equal(t, "S", restored.Alias())
	assert.Equal(t, master.Token, restored.Master().Token)
	assert.True(t, restored.Master().IsMaster())
	require.Len(t, restored.Shareholders(), 1)
	assert.Equal(t, holder.Token, restored.Shareholders()[0].Token)
	assert.Equal(t, RoleShareholder, restored.Shareholders()[0].Role)
	assert.Equal(t, Policy{Quorum: 1, Shares: 2}, restored.Policy())
	assert.Equal(t, interfaces.SecretEmpty, restored.State())
	assert.Equal(t, s.LastUpdate(), restored.LastUpdate())

	capacity, fixed := restored.Capacity()
	assert.True(t, fixed)
	assert.Equal(t, 2, capacity)
}

func TestFromSnapshot_Invalid(t *testing.T) {
	_, err := FromSnapshot(&interfaces.SessionSnapshot{})
	assert.Error(t, err)

	_, err = FromSnapshot(&interfaces.SessionSnapshot{ID: "sid", SecretState: "revealed"})
	assert.Error(t, err)

	s, err := FromSnapshot(&interfaces.SessionSnapshot{ID: "sid"})
	require.NoError(t, err)
	assert.Equal(t, interfaces.SecretEmpty, s.State())
}

func TestSession_ViewBeforeAssignment(t *testing.T) {
	master := newUser("M", RoleMaster)
	s := newSession(master, "S", Policy{}, "fxc1")
	s.id = "sid"
	holder, err := s.join("U1")
	require.NoError(t, err)

	view := s.View(holder.Token, 42)
	assert.Equal(t, "S", view.Alias)
	assert.EqualValues(t, 42, view.TTL)
	assert.Empty(t, view.Secret.Digest)
	assert.Empty(t, view.Secret.Value)
	assert.Zero(t, view.Secret.Shares)

	require.Len(t, view.Users, 2)
	assert.Equal(t, UserView{Alias: "M", Role: RoleMaster}, view.Users[0])
	assert.Equal(t, UserView{Alias: "U1", Role: RoleShareholder, Shareholder: true, Auth: holder.Token}, view.Users[1])

	// a stranger sees no credentials
	view = s.View(interfaces.NewAuthToken(), 42)
	for _, u := range view.Users {
		assert.Empty(t, u.Auth)
	}
}

func TestSession_ViewJSON(t *testing.T) {
	master := newUser("M", RoleMaster)
	s := newSession(master, "S", Policy{}, "fxc1")
	s.id = "sid"
	s.policy = Policy{Quorum: 1, Shares: 1}
	s.state = interfaces.SecretAssigned
	s.secret = "my awesome secret"
	s.digest = interfaces.ComputeSecretDigest([]byte("my awesome secret"))

	data, err := json.Marshal(s.View(master.Token, -1))
	require.NoError(t, err)

	expected := fmt.Sprintf(`{
		"alias": "S",
		"ttl": -1,
		"secret": {"quorum": 1, "shares": 1, "protocol": "fxc1", "sha256": "%s", "secret": "my awesome secret"},
		"users": [{"alias": "M", "role": "master", "shareholder": false, "auth": "%s"}]
	}`, awesomeDigest, master.Token)
	assert.JSONEq(t, expected, string(data))
}

func TestSessionLocks_Release(t *testing.T) {
	locks := newSessionLocks()

	unlockA := locks.lock("a")
	unlockB := locks.rlock("b")
	unlockB2 := locks.rlock("b")
	assert.Len(t, locks.locks, 2)

	unlockA()
	unlockB()
	assert.Len(t, locks.locks, 1)
	unlockB2()
	assert.Empty(t, locks.locks)
}
