// Package client implements an optimistic client-side task store over the
// taskhub REST API. Mutations apply to the local cache immediately and are
// reconciled with the server's canonical result, or rolled back exactly when
// the request fails.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/taskhub/task"
)

// MutationKind identifies what an in-flight optimistic mutation does.
type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
	MutationToggle MutationKind = "toggle"
)

type mutationStatus int

const (
	statusPending mutationStatus = iota
	statusConfirmed
	statusFailed
)

// mutationRecord tracks one pending optimistic change: the target task, the
// pre-mutation snapshot for rollback, and its resolution status. It exists
// only between optimistic apply and network resolution.
type mutationRecord struct {
	taskID   string
	kind     MutationKind
	snapshot *task.Task // nil for create
	status   mutationStatus
}

// TaskStore caches a single owner's task collection. One instance per
// authenticated session; it is never shared across owners.
type TaskStore struct {
	baseURL string
	token   string
	ownerID string
	httpc   *http.Client

	mu    sync.RWMutex
	tasks map[string]*task.Task

	// Per-task gates serialize in-flight mutations: a second mutation on
	// the same task id waits for the first to resolve instead of racing,
	// so a stale rollback can never clobber a newer optimistic state.
	gatesMu sync.Mutex
	gates   map[string]*sync.Mutex
}

// New creates a TaskStore for one owner's session. httpc may be nil.
func New(baseURL, token, ownerID string, httpc *http.Client) *TaskStore {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &TaskStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		ownerID: ownerID,
		httpc:   httpc,
		tasks:   make(map[string]*task.Task),
		gates:   make(map[string]*sync.Mutex),
	}
}

// OwnerID returns the owner this store is scoped to.
func (s *TaskStore) OwnerID() string { return s.ownerID }

func (s *TaskStore) tasksPath() string {
	return "/api/" + s.ownerID + "/tasks"
}

// gate returns the serialization mutex for a task id.
func (s *TaskStore) gate(id string) *sync.Mutex {
	s.gatesMu.Lock()
	defer s.gatesMu.Unlock()
	g, ok := s.gates[id]
	if !ok {
		g = &sync.Mutex{}
		s.gates[id] = g
	}
	return g
}

// Tasks returns a copy of the cached collection ordered by creation time
// descending, the server's default ordering.
func (s *TaskStore) Tasks() []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a copy of one cached task.
func (s *TaskStore) Get(id string) (*task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Len returns the number of cached tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Refresh replaces the cache with the server's canonical task collection.
func (s *TaskStore) Refresh(ctx context.Context) error {
	fetched := make(map[string]*task.Task)
	offset := 0
	for {
		var page []*task.Task
		path := s.tasksPath() + "?limit=" + strconv.Itoa(task.MaxLimit) + "&offset=" + strconv.Itoa(offset)
		meta, err := s.do(ctx, http.MethodGet, path, nil, &page)
		if err != nil {
			return err
		}
		for _, t := range page {
			fetched[t.ID] = t
		}
		offset += len(page)
		if meta == nil || meta.Total == nil || offset >= *meta.Total || len(page) == 0 {
			break
		}
	}

	s.mu.Lock()
	s.tasks = fetched
	s.mu.Unlock()
	return nil
}

// createTaskRequest mirrors the server's create body.
type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// Create inserts a provisional task into the cache, then asks the server to
// create it. On success the provisional entry is replaced by the canonical
// task (real id and timestamps); on failure it is removed.
func (s *TaskStore) Create(ctx context.Context, title string, description *string) (*task.Task, error) {
	now := time.Now().UTC()
	provisional := &task.Task{
		ID:          "tmp-" + uuid.NewString(),
		OwnerID:     s.ownerID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	g := s.gate(provisional.ID)
	g.Lock()
	defer g.Unlock()

	rec := &mutationRecord{taskID: provisional.ID, kind: MutationCreate}
	s.mu.Lock()
	s.tasks[provisional.ID] = provisional
	s.mu.Unlock()

	var canonical task.Task
	_, err := s.do(ctx, http.MethodPost, s.tasksPath(),
		createTaskRequest{Title: title, Description: description}, &canonical)

	s.mu.Lock()
	delete(s.tasks, provisional.ID)
	if err == nil {
		rec.status = statusConfirmed
		s.tasks[canonical.ID] = &canonical
	} else {
		rec.status = statusFailed
	}
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return canonical.Clone(), nil
}

// Update applies patch to the cached task immediately, then sends it to the
// server. On success local state adopts the canonical result; on failure the
// pre-mutation snapshot is restored exactly.
func (s *TaskStore) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	g := s.gate(id)
	g.Lock()
	defer g.Unlock()

	rec, err := s.begin(id, MutationUpdate)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	t := s.tasks[id]
	if t == nil {
		// Refresh replaced the cache mid-mutation; start from the snapshot.
		t = rec.snapshot.Clone()
		s.tasks[id] = t
	}
	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = patch.Description
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	t.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	var canonical task.Task
	_, err = s.do(ctx, http.MethodPut, s.tasksPath()+"/"+id, patch, &canonical)
	return s.resolve(rec, &canonical, err)
}

// ToggleComplete flips the cached task's completion flag immediately, then
// asks the server to toggle it.
func (s *TaskStore) ToggleComplete(ctx context.Context, id string) (*task.Task, error) {
	g := s.gate(id)
	g.Lock()
	defer g.Unlock()

	rec, err := s.begin(id, MutationToggle)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	t := s.tasks[id]
	if t == nil {
		t = rec.snapshot.Clone()
		s.tasks[id] = t
	}
	t.Completed = !t.Completed
	t.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	var canonical task.Task
	_, err = s.do(ctx, http.MethodPatch, s.tasksPath()+"/"+id+"/complete", nil, &canonical)
	return s.resolve(rec, &canonical, err)
}

// Delete removes the task from the cache immediately, then asks the server
// to delete it. On failure the snapshot is re-inserted; its position in the
// collection is recovered by the CreatedAt ordering of Tasks.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	g := s.gate(id)
	g.Lock()
	defer g.Unlock()

	rec, err := s.begin(id, MutationDelete)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()

	if _, err := s.do(ctx, http.MethodDelete, s.tasksPath()+"/"+id, nil, nil); err != nil {
		s.mu.Lock()
		rec.status = statusFailed
		s.tasks[id] = rec.snapshot
		s.mu.Unlock()
		return fmt.Errorf("delete task: %w", err)
	}
	rec.status = statusConfirmed
	return nil
}

// begin snapshots the task's pre-mutation state. The caller must hold the
// task's gate.
func (s *TaskStore) begin(id string, kind MutationKind) (*mutationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, task.ErrNotFound
	}
	return &mutationRecord{taskID: id, kind: kind, snapshot: t.Clone()}, nil
}

// resolve adopts the canonical server result or restores the snapshot.
func (s *TaskStore) resolve(rec *mutationRecord, canonical *task.Task, err error) (*task.Task, error) {
	s.mu.Lock()
	if err != nil {
		rec.status = statusFailed
		s.tasks[rec.taskID] = rec.snapshot
		s.mu.Unlock()
		return nil, fmt.Errorf("%s task: %w", rec.kind, err)
	}
	rec.status = statusConfirmed
	s.tasks[canonical.ID] = canonical
	s.mu.Unlock()
	return canonical.Clone(), nil
}
