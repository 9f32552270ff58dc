package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chat-gateway/domain"
	"chat-gateway/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	userPrefix     = "user:"
	emailIdxPrefix = "idx:email:"
)

// UserRepository persists account records in BadgerDB. Records live under
// "user:{id}"; a secondary index "idx:email:{email}" maps each email to its
// record key for O(1) credential lookup.
type UserRepository struct {
	db       *badger.DB
	log      *slog.Logger
	pageSize *int
}

func NewUserRepository(db *badger.DB, log *slog.Logger, pageSize *int) UserRepository {
	return UserRepository{db: db, log: log, pageSize: pageSize}
}

type diskUser struct {
	ID           uuid.UUID   `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	PasswordHash string      `json:"password_hash"`
	Role         domain.Role `json:"role"`
	Phone        string      `json:"phone,omitempty"`
	Address      string      `json:"address,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func userKey(id uuid.UUID) []byte {
	return []byte(userPrefix + id.String())
}

func emailKey(email string) []byte {
	return []byte(emailIdxPrefix + strings.ToLower(email))
}

// Create stores a new user and its email index entry in one transaction.
// Fails with ErrEmailTaken when the email is already indexed.
func (r UserRepository) Create(user domain.User) error {
	value, err := json.Marshal(fromUser(user))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(user.Email)); err == nil {
			return errors.ErrEmailTaken
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(userKey(user.ID), value); err != nil {
			return err
		}
		return txn.Set(emailKey(user.Email), userKey(user.ID))
	})
}

func (r UserRepository) GetByID(id uuid.UUID) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := getUser(txn, userKey(id))
		if err != nil {
			return err
		}
		user = found
		return nil
	})
	return user, err
}

func (r UserRepository) GetByEmail(email string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(key []byte) error {
			found, err := getUser(txn, key)
			if err != nil {
				return err
			}
			user = found
			return nil
		})
	})
	return user, err
}

// Update replaces the stored record. A changed email moves the index entry,
// failing with ErrEmailTaken when the new address is already indexed by
// another account.
func (r UserRepository) Update(user domain.User) error {
	value, err := json.Marshal(fromUser(user))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		existing, err := getUser(txn, userKey(user.ID))
		if err != nil {
			return err
		}
		if !strings.EqualFold(existing.Email, user.Email) {
			if _, err := txn.Get(emailKey(user.Email)); err == nil {
				return errors.ErrEmailTaken
			} else if err != badger.ErrKeyNotFound {
				return err
			}
			if err := txn.Delete(emailKey(existing.Email)); err != nil {
				return err
			}
			if err := txn.Set(emailKey(user.Email), userKey(user.ID)); err != nil {
				return err
			}
		}
		return txn.Set(userKey(user.ID), value)
	})
}

func (r UserRepository) Delete(id uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		existing, err := getUser(txn, userKey(id))
		if err != nil {
			return err
		}
		if err := txn.Delete(emailKey(existing.Email)); err != nil {
			return err
		}
		return txn.Delete(userKey(id))
	})
}

// List pages through all accounts in key order. The returned cursor is the
// key suffix of the last record; passing it back resumes right after it.
func (r UserRepository) List(cursor *string) ([]domain.User, *string, error) {
	var users []domain.User
	var lastKey string
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seekKey := prefix
		if cursor != nil {
			seekKey = append([]byte(userPrefix), []byte(*cursor)...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.pageSize != nil && len(users) == *r.pageSize {
				r.log.Debug(fmt.Sprintf("Maximum of %d users reached", *r.pageSize))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(userPrefix):])
			err := item.Value(func(value []byte) error {
				var d diskUser
				if err := json.Unmarshal(value, &d); err != nil {
					return err
				}
				users = append(users, toUser(d))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lastKey == "" {
		return users, nil, nil
	}
	return users, lo.ToPtr(lastKey), nil
}

func getUser(txn *badger.Txn, key []byte) (domain.User, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	var d diskUser
	if err := item.Value(func(value []byte) error {
		return json.Unmarshal(value, &d)
	}); err != nil {
		return domain.User{}, err
	}
	return toUser(d), nil
}

func fromUser(u domain.User) diskUser {
	return diskUser{
		ID:           u.ID,
		Email:        strings.ToLower(u.Email),
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Phone:        u.Phone,
		Address:      u.Address,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toUser(d diskUser) domain.User {
	return domain.User{
		ID:           d.ID,
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Phone:        d.Phone,
		Address:      d.Address,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
