package services

import (
	"context"
	"log/slog"

	"chat-gateway/auth"
	"chat-gateway/contract"
	"chat-gateway/domain"
)

type IAuthService interface {
	Login(ctx context.Context, req auth.LoginRequest) (string, domain.Identity, error)
}

// AuthService turns valid credentials into a signed token the client
// presents at websocket bind time and on the record endpoints.
type AuthService struct {
	authenticator contract.Authenticator
	users         contract.UserStore
	tokens        *auth.TokenManager
	log           *slog.Logger
}

func NewAuthService(log *slog.Logger, authenticator contract.Authenticator,
	users contract.UserStore, tokens *auth.TokenManager) *AuthService {
	return &AuthService{authenticator: authenticator, users: users, tokens: tokens, log: log}
}

func (s *AuthService) Login(ctx context.Context, req auth.LoginRequest) (string, domain.Identity, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return "", domain.Identity{}, err
	}

	identity, err := s.authenticator.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return "", domain.Identity{}, err
	}

	user, err := s.users.GetByEmail(req.Email)
	if err != nil {
		return "", domain.Identity{}, err
	}

	token, err := s.tokens.Generate(identity, user.ID.String())
	if err != nil {
		return "", domain.Identity{}, err
	}

	s.log.Info("login succeeded", "identity", identity.Name, "role", identity.Role)
	return token, identity, nil
}
