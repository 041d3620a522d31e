// Package user defines owner accounts and their persistence.
package user

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an already-used email.
	ErrEmailTaken = errors.New("email already registered")
)

// MinPasswordLen is the minimum accepted password length.
const MinPasswordLen = 6

// User is an owner account. Tasks reference users by ID; deleting a user
// removes their tasks at the storage layer.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists and retrieves users.
type Store interface {
	// Create registers a new user with a pre-hashed password.
	Create(email, name, passwordHash string) (*User, error)

	// Get retrieves a user by ID.
	Get(id string) (*User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(email string) (*User, error)

	// Delete removes a user and, through the schema, all their tasks.
	Delete(id string) error
}
