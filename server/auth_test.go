package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/GoCodeAlone/taskhub/auth"
	"github.com/GoCodeAlone/taskhub/config"
	"github.com/GoCodeAlone/taskhub/storage"
	"github.com/GoCodeAlone/taskhub/task"
	"github.com/GoCodeAlone/taskhub/user"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	f, err := os.CreateTemp("", "taskhub-server-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	path := f.Name()
	t.Cleanup(func() { os.Remove(path) })

	db, err := storage.Open(path)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		Server: config.ServerConfig{Addr: ":0"},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-key-1234567890",
			Issuer:    "taskhub-test",
			TokenTTL:  config.Duration(time.Hour),
		},
	}
	s := New(cfg, "test", nil)
	s.SetTaskStore(task.NewSQLiteStore(db))
	s.SetUserStore(user.NewSQLiteStore(db))
	s.registerRoutes()
	return s
}

func (s *Server) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

// signup registers an owner and returns its token and id.
func signup(t *testing.T, s *Server, email string) (token, id string) {
	t.Helper()
	rr := s.do(http.MethodPost, "/api/auth/signup", "",
		`{"email":"`+email+`","password":"s3cret!","name":"Test"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if resp.Data.Token == "" || resp.Data.User.ID == "" {
		t.Fatal("signup response missing token or user id")
	}
	return resp.Data.Token, resp.Data.User.ID
}

func TestSignupAndSignin(t *testing.T) {
	s := newTestServer(t)
	signup(t, s, "alice@example.com")

	rr := s.do(http.MethodPost, "/api/auth/signin", "",
		`{"email":"alice@example.com","password":"s3cret!"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	signup(t, s, "alice@example.com")

	rr := s.do(http.MethodPost, "/api/auth/signup", "",
		`{"email":"alice@example.com","password":"other123","name":"Imposter"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestSignup_ShortPassword(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodPost, "/api/auth/signup", "",
		`{"email":"bob@example.com","password":"abc","name":"Bob"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestSignin_UniformFailure(t *testing.T) {
	s := newTestServer(t)
	signup(t, s, "alice@example.com")

	unknown := s.do(http.MethodPost, "/api/auth/signin", "",
		`{"email":"nobody@example.com","password":"s3cret!"}`)
	wrongPass := s.do(http.MethodPost, "/api/auth/signin", "",
		`{"email":"alice@example.com","password":"wrong!!"}`)

	if unknown.Code != http.StatusUnauthorized || wrongPass.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", unknown.Code, wrongPass.Code)
	}
	// Same body for both: no account enumeration.
	if unknownBody, wrongBody := stripTimestamp(unknown.Body.String()), stripTimestamp(wrongPass.Body.String()); unknownBody != wrongBody {
		t.Errorf("signin failures distinguishable:\n%s\n%s", unknownBody, wrongBody)
	}
}

// stripTimestamp removes the meta timestamp so bodies can be compared.
func stripTimestamp(body string) string {
	var v map[string]any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return body
	}
	delete(v, "meta")
	b, _ := json.Marshal(v)
	return string(b)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodGet, "/api/u1/tasks", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuthMiddleware_GarbageToken(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodGet, "/api/u1/tasks", "not-a-token", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	s := newTestServer(t)
	_, id := signup(t, s, "alice@example.com")

	expired := auth.NewVerifier("test-secret-key-1234567890", "taskhub-test", -time.Hour)
	token, err := expired.Issue(id)
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}

	rr := s.do(http.MethodGet, "/api/"+id+"/tasks", token, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAuthMiddleware_ForeignSecret(t *testing.T) {
	s := newTestServer(t)
	_, id := signup(t, s, "alice@example.com")

	forged := auth.NewVerifier("attacker-secret", "taskhub-test", time.Hour)
	token, err := forged.Issue(id)
	if err != nil {
		t.Fatalf("issue forged token: %v", err)
	}

	rr := s.do(http.MethodGet, "/api/"+id+"/tasks", token, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for forged token, got %d", rr.Code)
	}
}

func TestHandleMe(t *testing.T) {
	s := newTestServer(t)
	token, id := signup(t, s, "alice@example.com")

	rr := s.do(http.MethodGet, "/api/auth/me", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data user.User `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.ID != id || resp.Data.Email != "alice@example.com" {
		t.Errorf("me = %+v", resp.Data)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Error("me response leaks password hash")
	}
}

func TestStatusIsPublic(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodGet, "/api/status", "", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

// TestTaskLifecycleEndToEnd walks the full REST surface as two owners.
func TestTaskLifecycleEndToEnd(t *testing.T) {
	s := newTestServer(t)
	tokenA, idA := signup(t, s, "a@example.com")
	tokenB, idB := signup(t, s, "b@example.com")

	// A creates a task.
	rr := s.do(http.MethodPost, "/api/"+idA+"/tasks", tokenA, `{"title":"Buy milk"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Data task.Task `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	taskID := created.Data.ID

	// B cannot reach it: 403 via A's path, 404 via its own.
	if rr := s.do(http.MethodGet, "/api/"+idA+"/tasks/"+taskID, tokenB, ""); rr.Code != http.StatusForbidden {
		t.Errorf("B on A's path: expected 403, got %d", rr.Code)
	}
	if rr := s.do(http.MethodGet, "/api/"+idB+"/tasks/"+taskID, tokenB, ""); rr.Code != http.StatusNotFound {
		t.Errorf("B with A's task id: expected 404, got %d", rr.Code)
	}

	// Toggle twice returns to incomplete.
	rr = s.do(http.MethodPatch, "/api/"+idA+"/tasks/"+taskID+"/complete", tokenA, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle: %d", rr.Code)
	}
	rr = s.do(http.MethodPatch, "/api/"+idA+"/tasks/"+taskID+"/complete", tokenA, "")
	var toggled struct {
		Data task.Task `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&toggled); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if toggled.Data.Completed {
		t.Error("double toggle should restore incomplete")
	}

	// Delete, then every further access 404s.
	if rr := s.do(http.MethodDelete, "/api/"+idA+"/tasks/"+taskID, tokenA, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rr.Code)
	}
	if rr := s.do(http.MethodGet, "/api/"+idA+"/tasks/"+taskID, tokenA, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rr.Code)
	}
	if rr := s.do(http.MethodDelete, "/api/"+idA+"/tasks/"+taskID, tokenA, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rr.Code)
	}
}
