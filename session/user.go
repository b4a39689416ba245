package session

import (
	"fmt"

	"github.com/ruteri/split-session-service/interfaces"
)

// Role is the fixed role of a session participant.
type Role int

const (
	// RoleMaster is the session creator, sole holder of the plaintext secret.
	RoleMaster Role = iota
	// RoleShareholder is a joined participant entitled to one share.
	RoleShareholder
)

// String converts a Role to its wire name.
func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleShareholder:
		return "shareholder"
	default:
		return "unknown"
	}
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	switch r {
	case RoleMaster, RoleShareholder:
		return []byte(r.String()), nil
	default:
		return nil, fmt.Errorf("unknown role %d", int(r))
	}
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(text []byte) error {
	switch string(text) {
	case "master":
		*r = RoleMaster
	case "shareholder":
		*r = RoleShareholder
	default:
		return fmt.Errorf("unknown role %q", string(text))
	}
	return nil
}

// User is a participant of exactly one session.
type User struct {
	Token interfaces.AuthToken
	Alias string
	Role  Role

	// Share is empty until a share is bound to this shareholder.
	Share interfaces.Share
}

func newUser(alias string, role Role) *User {
	return &User{
		Token: interfaces.NewAuthToken(),
		Alias: alias,
		Role:  role,
	}
}

// IsMaster reports whether the user created the session.
func (u *User) IsMaster() bool {
	return u.Role == RoleMaster
}

func (u *User) snapshot() interfaces.UserSnapshot {
	return interfaces.UserSnapshot{
		ID:    u.Token,
		Alias: u.Alias,
		Share: u.Share,
	}
}

func userFromSnapshot(snap interfaces.UserSnapshot, role Role) *User {
	return &User{
		Token: snap.ID,
		Alias: snap.Alias,
		Role:  role,
		Share: snap.Share,
	}
}
