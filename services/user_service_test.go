package services

import (
	"log/slog"
	"testing"

	"chat-gateway/auth"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestUserService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockUserStore(ctrl)
	svc := NewUserService(slog.Default(), mockStore)

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		request := auth.RegisterRequest{
			Email:    "test@example.com",
			Name:     "tester",
			Password: "ComplexPass123!",
		}

		// Expect Create to be called with a hashed password (not the plain one)
		mockStore.EXPECT().
			Create(gomock.Any()).
			DoAndReturn(func(user domain.User) error {
				req.NotEqual(request.Password, user.PasswordHash)
				req.Equal(domain.RoleUser, user.Role)
				req.NotEqual(uuid.Nil, user.ID)
				return nil
			}).
			Times(1)

		user, err := svc.Register(request)

		req.NoError(err)
		req.Equal("test@example.com", user.Email)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Store should NEVER be called
		mockStore.EXPECT().Create(gomock.Any()).Times(0)

		_, err := svc.Register(auth.RegisterRequest{
			Email:    "test@example.com",
			Name:     "tester",
			Password: "weakpasswordonly",
		})

		req.Error(err)
	})

	t.Run("should fail when the email is already taken", func(t *testing.T) {
		req := require.New(t)

		mockStore.EXPECT().
			Create(gomock.Any()).
			Return(errors.ErrEmailTaken).
			Times(1)

		_, err := svc.Register(auth.RegisterRequest{
			Email:    "duplicate@example.com",
			Name:     "tester",
			Password: "ComplexPass123!",
		})

		req.ErrorIs(err, errors.ErrEmailTaken)
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockUserStore(ctrl)
	svc := NewUserService(slog.Default(), mockStore)
	id := uuid.New()

	t.Run("should update the mutable profile fields", func(t *testing.T) {
		req := require.New(t)
		existing := domain.User{ID: id, Email: "a@example.com", Name: "alice"}

		mockStore.EXPECT().GetByID(id).Return(existing, nil)
		mockStore.EXPECT().
			Update(gomock.Any()).
			DoAndReturn(func(user domain.User) error {
				req.Equal("alicia", user.Name)
				req.Equal("+33612345678", user.Phone)
				// Email stays untouched on this path
				req.Equal("a@example.com", user.Email)
				return nil
			})

		updated, err := svc.UpdateProfile(id, "alicia", "+33612345678", "1 rue de la Paix")

		req.NoError(err)
		req.Equal("alicia", updated.Name)
	})

	t.Run("should keep the name when the new one is empty", func(t *testing.T) {
		req := require.New(t)
		existing := domain.User{ID: id, Email: "a@example.com", Name: "alice"}

		mockStore.EXPECT().GetByID(id).Return(existing, nil)
		mockStore.EXPECT().Update(gomock.Any()).Return(nil)

		updated, err := svc.UpdateProfile(id, "", "", "")

		req.NoError(err)
		req.Equal("alice", updated.Name)
	})

	t.Run("should fail for an unknown user", func(t *testing.T) {
		req := require.New(t)

		mockStore.EXPECT().GetByID(id).Return(domain.User{}, errors.ErrUserNotFound)

		_, err := svc.UpdateProfile(id, "x", "", "")

		req.ErrorIs(err, errors.ErrUserNotFound)
	})
}
