package repository

import "chopshop/internal/domain/model"

// Session is the persisted authentication state: the bearer token plus the
// user snapshot it was issued for.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user,omitempty"`
}

func (s *Session) Authenticated() bool { return s != nil && s.Token != "" }

// SessionStore owns the session's lifecycle: created at login, replaced on
// re-login, removed on logout. Injected everywhere, never global.
type SessionStore interface {
	Load() (*Session, error)
	Save(sess *Session) error
	Clear() error
	// Token returns the current bearer credential, or "" when logged out.
	Token() string
}
