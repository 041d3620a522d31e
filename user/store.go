package user

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore persists users in the shared SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database, typically from storage.Open.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create registers a new user with a pre-hashed password.
func (s *SQLiteStore) Create(email, name, passwordHash string) (*User, error) {
	if _, err := s.GetByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.Exec(`
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES (?,?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Get retrieves a user by ID.
func (s *SQLiteStore) Get(id string) (*User, error) {
	return s.getWhere("id = ?", id)
}

// GetByEmail retrieves a user by email.
func (s *SQLiteStore) GetByEmail(email string) (*User, error) {
	return s.getWhere("email = ?", email)
}

func (s *SQLiteStore) getWhere(cond string, arg any) (*User, error) {
	row := s.db.QueryRow(`
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users WHERE `+cond, arg)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// Delete removes a user; the tasks FK cascade removes their tasks.
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
