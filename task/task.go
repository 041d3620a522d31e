// Package task defines the task model and owner-scoped persistence.
package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Field length bounds enforced on create and update.
const (
	TitleMaxLen       = 200
	DescriptionMaxLen = 1000
)

// List pagination bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ErrNotFound is returned when a task does not exist for the given owner.
// A task belonging to a different owner is indistinguishable from a missing
// one.
var ErrNotFound = errors.New("task not found")

// ValidationError reports per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Task is a single todo item belonging to exactly one owner.
type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	return &c
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Sort fields accepted by List.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortTitle     = "title"
)

// Sort directions accepted by List.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Filter controls which tasks List returns and in what order.
// Zero values mean: no completion filter, created_at descending,
// DefaultLimit, no offset.
type Filter struct {
	Completed *bool
	Sort      string
	Order     string
	Limit     int
	Offset    int
}

// Store persists and retrieves tasks. Every operation is scoped by owner:
// no call can observe or mutate another owner's task.
type Store interface {
	// Create validates the input and persists a new incomplete task.
	Create(ownerID, title string, description *string) (*Task, error)

	// Get retrieves a task by ID for the given owner.
	Get(ownerID, id string) (*Task, error)

	// Update applies the non-nil fields of patch and bumps UpdatedAt.
	Update(ownerID, id string, patch Patch) (*Task, error)

	// Toggle flips the task's completion flag and bumps UpdatedAt.
	Toggle(ownerID, id string) (*Task, error)

	// Delete removes a task permanently.
	Delete(ownerID, id string) error

	// List returns tasks matching the filter plus the total count for the
	// owner and filter, ignoring limit and offset.
	List(ownerID string, f Filter) ([]*Task, int, error)
}

// ValidateNew checks title and description for a new task and returns the
// trimmed title.
func ValidateNew(title string, description *string) (string, error) {
	fields := map[string]string{}
	trimmed := validateTitle(title, fields)
	validateDescription(description, fields)
	if len(fields) > 0 {
		return "", &ValidationError{Fields: fields}
	}
	return trimmed, nil
}

// ValidatePatch checks the supplied fields of a partial update and trims a
// supplied title in place.
func ValidatePatch(p *Patch) error {
	fields := map[string]string{}
	if p.Title != nil {
		trimmed := validateTitle(*p.Title, fields)
		p.Title = &trimmed
	}
	validateDescription(p.Description, fields)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateTitle(title string, fields map[string]string) string {
	trimmed := strings.TrimSpace(title)
	switch {
	case trimmed == "":
		fields["title"] = "title must not be empty"
	case len(trimmed) > TitleMaxLen:
		fields["title"] = fmt.Sprintf("title must be at most %d characters", TitleMaxLen)
	}
	return trimmed
}

func validateDescription(description *string, fields map[string]string) {
	if description != nil && len(*description) > DescriptionMaxLen {
		fields["description"] = fmt.Sprintf("description must be at most %d characters", DescriptionMaxLen)
	}
}
