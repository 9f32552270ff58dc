package services

import (
	"log/slog"
	"time"

	"chat-gateway/auth"
	"chat-gateway/contract"
	"chat-gateway/domain"

	"github.com/google/uuid"
)

type IUserService interface {
	Register(req auth.RegisterRequest) (domain.User, error)
	Get(id uuid.UUID) (domain.User, error)
	UpdateProfile(id uuid.UUID, name, phone, address string) (domain.User, error)
	Delete(id uuid.UUID) error
	List(cursor *string) ([]domain.User, *string, error)
}

type UserService struct {
	users contract.UserStore
	log   *slog.Logger
}

func NewUserService(log *slog.Logger, users contract.UserStore) *UserService {
	return &UserService{users: users, log: log}
}

// Register validates the request, hashes the password and stores a new USER
// account. The clear password never leaves this method.
func (s *UserService) Register(req auth.RegisterRequest) (domain.User, error) {
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Phone:        req.Phone,
		Address:      req.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(user); err != nil {
		return domain.User{}, err
	}

	s.log.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *UserService) Get(id uuid.UUID) (domain.User, error) {
	return s.users.GetByID(id)
}

// UpdateProfile changes the mutable profile fields; email, role and password
// go through dedicated flows.
func (s *UserService) UpdateProfile(id uuid.UUID, name, phone, address string) (domain.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return domain.User{}, err
	}
	if name != "" {
		user.Name = name
	}
	user.Phone = phone
	user.Address = address
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Delete(id uuid.UUID) error {
	return s.users.Delete(id)
}

func (s *UserService) List(cursor *string) ([]domain.User, *string, error) {
	return s.users.List(cursor)
}
