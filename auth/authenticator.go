package auth

import (
	"context"
	"log/slog"

	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
)

// StoreAuthenticator verifies credentials against the durable user store and
// returns the authenticated principal. Wrong email and wrong password are
// indistinguishable to the caller.
type StoreAuthenticator struct {
	users contract.UserStore
	log   *slog.Logger
}

func NewStoreAuthenticator(log *slog.Logger, users contract.UserStore) *StoreAuthenticator {
	return &StoreAuthenticator{users: users, log: log}
}

func (a *StoreAuthenticator) Authenticate(_ context.Context, email, password string) (domain.Identity, error) {
	user, err := a.users.GetByEmail(email)
	if err != nil {
		a.log.Debug("authentication failed, unknown email", "email", email)
		return domain.Identity{}, errors.ErrBadCredentials
	}

	ok, err := ComparePassword(password, user.PasswordHash)
	if err != nil {
		return domain.Identity{}, err
	}
	if !ok {
		a.log.Debug("authentication failed, wrong password", "email", email)
		return domain.Identity{}, errors.ErrBadCredentials
	}

	return domain.Identity{Name: user.Name, Role: user.Role}, nil
}
