package repositories

import (
	"log/slog"
	"testing"
	"time"

	"chat-gateway/domain"
	"chat-gateway/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestUser(email, name string) domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: "$argon2id$fake",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(newTestDB(t), slog.Default(), nil)

	alice := newTestUser("alice@example.com", "alice")
	req.NoError(repo.Create(alice))

	byID, err := repo.GetByID(alice.ID)
	req.NoError(err)
	req.Equal(alice.Name, byID.Name)
	req.Equal("alice@example.com", byID.Email)

	// The email index is case insensitive
	byEmail, err := repo.GetByEmail("ALICE@example.com")
	req.NoError(err)
	req.Equal(alice.ID, byEmail.ID)

	_, err = repo.GetByID(uuid.New())
	req.ErrorIs(err, errors.ErrUserNotFound)
	_, err = repo.GetByEmail("ghost@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(newTestDB(t), slog.Default(), nil)

	req.NoError(repo.Create(newTestUser("alice@example.com", "alice")))

	err := repo.Create(newTestUser("Alice@Example.com", "impostor"))
	req.ErrorIs(err, errors.ErrEmailTaken)
}

func TestUserRepository_Update(t *testing.T) {
	t.Run("should rewrite the record", func(t *testing.T) {
		req := require.New(t)
		repo := NewUserRepository(newTestDB(t), slog.Default(), nil)

		alice := newTestUser("alice@example.com", "alice")
		req.NoError(repo.Create(alice))

		alice.Phone = "+33612345678"
		req.NoError(repo.Update(alice))

		updated, err := repo.GetByID(alice.ID)
		req.NoError(err)
		req.Equal("+33612345678", updated.Phone)
	})

	t.Run("should move the email index", func(t *testing.T) {
		req := require.New(t)
		repo := NewUserRepository(newTestDB(t), slog.Default(), nil)

		alice := newTestUser("alice@example.com", "alice")
		req.NoError(repo.Create(alice))

		alice.Email = "new@example.com"
		req.NoError(repo.Update(alice))

		_, err := repo.GetByEmail("alice@example.com")
		req.ErrorIs(err, errors.ErrUserNotFound)
		found, err := repo.GetByEmail("new@example.com")
		req.NoError(err)
		req.Equal(alice.ID, found.ID)
	})

	t.Run("should refuse an email already taken by another account", func(t *testing.T) {
		req := require.New(t)
		repo := NewUserRepository(newTestDB(t), slog.Default(), nil)

		alice := newTestUser("alice@example.com", "alice")
		bob := newTestUser("bob@example.com", "bob")
		req.NoError(repo.Create(alice))
		req.NoError(repo.Create(bob))

		bob.Email = "alice@example.com"
		req.ErrorIs(repo.Update(bob), errors.ErrEmailTaken)
	})
}

func TestUserRepository_Delete(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(newTestDB(t), slog.Default(), nil)

	alice := newTestUser("alice@example.com", "alice")
	req.NoError(repo.Create(alice))
	req.NoError(repo.Delete(alice.ID))

	_, err := repo.GetByID(alice.ID)
	req.ErrorIs(err, errors.ErrUserNotFound)
	// The freed email can be reused
	req.NoError(repo.Create(newTestUser("alice@example.com", "alice2")))

	req.ErrorIs(repo.Delete(uuid.New()), errors.ErrUserNotFound)
}

func TestUserRepository_List(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(newTestDB(t), slog.Default(), lo.ToPtr(2))

	seen := make(map[string]struct{})
	for _, name := range []string{"alice", "bob", "carol"} {
		req.NoError(repo.Create(newTestUser(name+"@example.com", name)))
	}

	// First page
	users, cursor, err := repo.List(nil)
	req.NoError(err)
	req.Len(users, 2)
	req.NotNil(cursor)
	for _, u := range users {
		seen[u.Name] = struct{}{}
	}

	// Second page resumes after the cursor
	users, _, err = repo.List(cursor)
	req.NoError(err)
	req.Len(users, 1)
	for _, u := range users {
		_, dup := seen[u.Name]
		req.False(dup, "user %s returned twice", u.Name)
		seen[u.Name] = struct{}{}
	}
	req.Len(seen, 3)
}
