// File: internal/usecase/auth_uc.go
package usecase

import (
	"context"

	"chopshop/internal/domain"
	"chopshop/internal/domain/model"
	"chopshop/internal/domain/ports/adapter"
	"chopshop/internal/domain/ports/repository"
	"chopshop/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

// AuthUseCase pairs the backend's auth endpoints with the persisted session.
type AuthUseCase interface {
	Login(ctx context.Context, email, password string) (*model.User, error)
	Signup(ctx context.Context, email, password, name string) (*model.User, error)
	Logout() error
	// RefreshUser re-reads the account from the backend. A rejected
	// credential clears the stored session so the next command prompts for
	// login instead of failing the same way again.
	RefreshUser(ctx context.Context) (*model.User, error)
	CurrentUser() *model.User
}

type authUC struct {
	gw      adapter.BackendGateway
	session repository.SessionStore
	log     *zerolog.Logger
}

func NewAuthUseCase(gw adapter.BackendGateway, session repository.SessionStore, logger *zerolog.Logger) *authUC {
	authLog := logger.With().Str("component", "AuthUC").Logger()
	return &authUC{gw: gw, session: session, log: &authLog}
}

func (u *authUC) Login(ctx context.Context, email, password string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Login")()

	res, err := u.gw.Login(ctx, adapter.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return u.storeSession(ctx, res)
}

func (u *authUC) Signup(ctx context.Context, email, password, name string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Signup")()

	res, err := u.gw.Register(ctx, adapter.Credentials{Email: email, Password: password, Name: name})
	if err != nil {
		return nil, err
	}
	return u.storeSession(ctx, res)
}

func (u *authUC) storeSession(ctx context.Context, res *adapter.AuthResult) (*model.User, error) {
	if res.Token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if err := u.session.Save(&repository.Session{Token: res.Token, User: res.User}); err != nil {
		return nil, err
	}
	logging.With(logging.WithUserID(ctx, res.User.ID), u.log).Info().Msg("session established")
	return res.User, nil
}

func (u *authUC) Logout() error {
	defer logging.TraceDuration(u.log, "AuthUC.Logout")()
	return u.session.Clear()
}

func (u *authUC) RefreshUser(ctx context.Context) (*model.User, error) {
	defer logging.TraceDuration(u.log, "AuthUC.RefreshUser")()

	if u.session.Token() == "" {
		return nil, domain.ErrNotAuthenticated
	}
	user, err := u.gw.CurrentUser(ctx)
	if err != nil {
		if adapter.IsUnauthorized(err) {
			_ = u.session.Clear()
		}
		return nil, err
	}
	if err := u.session.Save(&repository.Session{Token: u.session.Token(), User: user}); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *authUC) CurrentUser() *model.User {
	sess, err := u.session.Load()
	if err != nil || sess == nil {
		return nil
	}
	return sess.User
}
