package session

import (
	"github.com/ruteri/split-session-service/interfaces"
)

// View is a session as seen by one caller.
type View struct {
	Alias  string     `json:"alias"`
	TTL    int64      `json:"ttl"`
	Secret SecretView `json:"secret"`
	Users  []UserView `json:"users"`
}

// SecretView holds the policy, the digest once assigned, and the plaintext
// for the master only.
type SecretView struct {
	Quorum   int                     `json:"quorum,omitempty"`
	Shares   int                     `json:"shares,omitempty"`
	Protocol string                  `json:"protocol,omitempty"`
	Digest   interfaces.SecretDigest `json:"sha256,omitempty"`
	Value    string                  `json:"secret,omitempty"`
}

// UserView is a participant as seen by the caller. Auth and Share are only
// set when the caller is that participant.
type UserView struct {
	Alias       string               `json:"alias"`
	Role        Role                 `json:"role"`
	Shareholder bool                 `json:"shareholder"`
	Auth        interfaces.AuthToken `json:"auth,omitempty"`
	Share       interfaces.Share     `json:"share,omitempty"`
}

// View filters the session for the holder of token. The master comes first in
// Users, followed by the shareholders in join order.
func (s *Session) View(token interfaces.AuthToken, remainingTTL int64) View {
	caller, _ := s.Resolve(token)

	view := View{
		Alias: s.alias,
		TTL:   remainingTTL,
		Secret: SecretView{
			Quorum:   s.policy.Quorum,
			Shares:   s.policy.Shares,
			Protocol: s.protocol,
			Digest:   s.digest,
		},
		Users: make([]UserView, 0, 1+len(s.shareholders)),
	}

	view.Users = append(view.Users, userView(s.master, caller))
	for _, u := range s.shareholders {
		view.Users = append(view.Users, userView(u, caller))
	}

	if caller != nil {
		switch caller.Role {
		case RoleMaster:
			view.Secret.Value = s.secret
		case RoleShareholder:
		}
	}
	return view
}

func userView(u, caller *User) UserView {
	v := UserView{
		Alias:       u.Alias,
		Role:        u.Role,
		Shareholder: u.Role == RoleShareholder,
	}
	if caller != nil && caller.Token == u.Token {
		v.Auth = u.Token
		v.Share = u.Share
	}
	return v
}
