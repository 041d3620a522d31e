// Package api defines the owner-scoped REST handlers for the taskhub server.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoCodeAlone/taskhub/auth"
	"github.com/GoCodeAlone/taskhub/task"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Tasks  task.Store
	Logger *slog.Logger
}

// RegisterRoutes registers all task routes on the given mux. The mux must be
// wrapped in the server's auth middleware: handlers assume the request
// context carries a verified subject.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/{owner}/tasks", h.listTasks)
	mux.HandleFunc("POST /api/{owner}/tasks", h.createTask)
	mux.HandleFunc("GET /api/{owner}/tasks/{id}", h.getTask)
	mux.HandleFunc("PUT /api/{owner}/tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /api/{owner}/tasks/{id}", h.deleteTask)
	mux.HandleFunc("PATCH /api/{owner}/tasks/{id}/complete", h.toggleTask)
}

// owner checks the path-embedded owner against the authenticated subject.
// The repository scopes by owner anyway; this produces a distinguishable 403
// for "logged in as the wrong user" before any repository call.
func (h *Handlers) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.PathValue("owner")
	if owner == "" || owner != auth.Subject(r.Context()) {
		WriteError(w, http.StatusForbidden, CodeForbidden, "unauthorized access to this user's tasks", nil)
		return "", false
	}
	return owner, true
}

// writeTaskError maps repository failures onto the error taxonomy.
func (h *Handlers) writeTaskError(w http.ResponseWriter, err error) {
	var verr *task.ValidationError
	switch {
	case errors.Is(err, task.ErrNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, "task not found", nil)
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, CodeValidation, "invalid task input", verr.Fields)
	default:
		h.Logger.Error("task store", slog.Any("err", err))
		WriteError(w, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
	}
}

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	filter, fields := parseListQuery(r)
	if len(fields) > 0 {
		WriteError(w, http.StatusBadRequest, CodeValidation, "invalid query parameter", fields)
		return
	}

	tasks, total, err := h.Tasks.List(owner, filter)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	WriteList(w, http.StatusOK, tasks, total, effectiveLimit(filter.Limit), filter.Offset)
}

// parseListQuery translates query parameters into a task.Filter, collecting
// per-parameter errors.
func parseListQuery(r *http.Request) (task.Filter, map[string]string) {
	q := r.URL.Query()
	filter := task.Filter{}
	fields := map[string]string{}

	if c := q.Get("completed"); c != "" {
		v, err := strconv.ParseBool(c)
		if err != nil {
			fields["completed"] = "must be true or false"
		} else {
			filter.Completed = &v
		}
	}
	if s := q.Get("sort"); s != "" {
		switch s {
		case task.SortCreatedAt, task.SortUpdatedAt, task.SortTitle:
			filter.Sort = s
		default:
			fields["sort"] = "must be one of created_at, updated_at, title"
		}
	}
	if o := q.Get("order"); o != "" {
		switch o {
		case task.OrderAsc, task.OrderDesc:
			filter.Order = o
		default:
			fields["order"] = "must be asc or desc"
		}
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			fields["limit"] = "must be a positive integer"
		} else {
			filter.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			fields["offset"] = "must be a non-negative integer"
		} else {
			filter.Offset = n
		}
	}
	return filter, fields
}

// effectiveLimit mirrors the store's limit defaulting for the response meta.
func effectiveLimit(limit int) int {
	if limit <= 0 {
		return task.DefaultLimit
	}
	if limit > task.MaxLimit {
		return task.MaxLimit
	}
	return limit
}

// createTaskRequest is the body accepted by POST /api/{owner}/tasks.
type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "invalid request body", nil)
		return
	}

	t, err := h.Tasks.Create(owner, req.Title, req.Description)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}
	WriteData(w, http.StatusCreated, t)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Get(owner, r.PathValue("id"))
	if err != nil {
		h.writeTaskError(w, err)
		return
	}
	WriteData(w, http.StatusOK, t)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	var patch task.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "invalid request body", nil)
		return
	}

	t, err := h.Tasks.Update(owner, r.PathValue("id"), patch)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}
	WriteData(w, http.StatusOK, t)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	if err := h.Tasks.Delete(owner, r.PathValue("id")); err != nil {
		h.writeTaskError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) toggleTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Toggle(owner, r.PathValue("id"))
	if err != nil {
		h.writeTaskError(w, err)
		return
	}
	WriteData(w, http.StatusOK, t)
}
