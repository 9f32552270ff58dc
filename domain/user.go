package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a durable account record. The password is stored as an encoded
// argon2id hash, never in clear.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Phone        string
	Address      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
