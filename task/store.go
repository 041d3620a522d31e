package task

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore persists tasks in the shared SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database, typically from storage.Open.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create persists a new incomplete task for ownerID.
func (s *SQLiteStore) Create(ownerID, title string, description *string) (*Task, error) {
	trimmed, err := ValidateNew(title, description)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       trimmed,
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = s.db.Exec(`
		INSERT INTO tasks (id, owner_id, title, description, completed, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.OwnerID, t.Title, nullString(t.Description), t.Completed,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// Get retrieves a task by ID for ownerID.
func (s *SQLiteStore) Get(ownerID, id string) (*Task, error) {
	row := s.db.QueryRow(`
		SELECT id, owner_id, title, description, completed, created_at, updated_at
		FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// Update applies the non-nil fields of patch and bumps UpdatedAt.
func (s *SQLiteStore) Update(ownerID, id string, patch Patch) (*Task, error) {
	if err := ValidatePatch(&patch); err != nil {
		return nil, err
	}

	t, err := s.Get(ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = patch.Description
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	return s.save(t)
}

// Toggle flips the task's completion flag and bumps UpdatedAt.
func (s *SQLiteStore) Toggle(ownerID, id string) (*Task, error) {
	t, err := s.Get(ownerID, id)
	if err != nil {
		return nil, err
	}
	t.Completed = !t.Completed
	return s.save(t)
}

// Delete removes a task permanently.
func (s *SQLiteStore) Delete(ownerID, id string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
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

// List returns tasks matching the filter plus the total count.
func (s *SQLiteStore) List(ownerID string, f Filter) ([]*Task, int, error) {
	where := strings.Builder{}
	where.WriteString(" WHERE owner_id = ?")
	args := []any{ownerID}
	if f.Completed != nil {
		where.WriteString(" AND completed = ?")
		args = append(args, *f.Completed)
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tasks"+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	q := strings.Builder{}
	q.WriteString("SELECT id, owner_id, title, description, completed, created_at, updated_at FROM tasks")
	q.WriteString(where.String())
	q.WriteString(" ORDER BY " + sortColumn(f.Sort) + " " + sortOrder(f.Order))

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	if f.Offset > 0 {
		q.WriteString(fmt.Sprintf(" OFFSET %d", f.Offset))
	}

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

// save writes all mutable fields of t, bumping UpdatedAt.
func (s *SQLiteStore) save(t *Task) (*Task, error) {
	now := time.Now().UTC()
	// UpdatedAt must strictly increase across mutations even when the clock
	// has not advanced past the previous write.
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Microsecond)
	}
	t.UpdatedAt = now

	res, err := s.db.Exec(`
		UPDATE tasks SET title=?, description=?, completed=?, updated_at=?
		WHERE id=? AND owner_id=?`,
		t.Title, nullString(t.Description), t.Completed, t.UpdatedAt,
		t.ID, t.OwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return t, nil
}

// sortColumn whitelists the ORDER BY column.
func sortColumn(field string) string {
	switch field {
	case SortUpdatedAt:
		return "updated_at"
	case SortTitle:
		return "title"
	default:
		return "created_at"
	}
}

func sortOrder(order string) string {
	if order == OrderAsc {
		return "ASC"
	}
	return "DESC"
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var description sql.NullString
	err := s.Scan(
		&t.ID, &t.OwnerID, &t.Title, &description, &t.Completed,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	return &t, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
