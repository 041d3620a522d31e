package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/GoCodeAlone/taskhub/auth"
	"github.com/GoCodeAlone/taskhub/server/api"
	"github.com/GoCodeAlone/taskhub/user"
)

// signupRequest is the body accepted by POST /api/auth/signup.
type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// signinRequest is the body accepted by POST /api/auth/signin.
type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the payload returned by successful signup and signin.
type authResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// handleSignup registers a new owner account and issues a token for it.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "invalid request body", nil)
		return
	}
	if !strings.Contains(req.Email, "@") {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "invalid email address",
			map[string]string{"email": "must be a valid email address"})
		return
	}

	hash, err := user.HashPassword(req.Password)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, err.Error(),
			map[string]string{"password": err.Error()})
		return
	}

	u, err := s.users.Create(req.Email, req.Name, hash)
	if errors.Is(err, user.ErrEmailTaken) {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "email already registered",
			map[string]string{"email": "already registered"})
		return
	}
	if err != nil {
		s.logger.Error("create user", slog.Any("err", err))
		api.WriteError(w, http.StatusInternalServerError, api.CodeInternal, "internal server error", nil)
		return
	}

	token, err := s.tokenVerifier().Issue(u.ID)
	if err != nil {
		s.logger.Error("issue token", slog.Any("err", err))
		api.WriteError(w, http.StatusInternalServerError, api.CodeInternal, "could not issue token", nil)
		return
	}
	api.WriteData(w, http.StatusCreated, authResponse{Token: token, User: u})
}

// handleSignin authenticates an owner and issues a token. Unknown email and
// wrong password are deliberately the same failure.
func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "invalid request body", nil)
		return
	}

	u, err := s.users.GetByEmail(req.Email)
	if err != nil || !user.CheckPassword(u.PasswordHash, req.Password) {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "invalid email or password", nil)
		return
	}

	token, err := s.tokenVerifier().Issue(u.ID)
	if err != nil {
		s.logger.Error("issue token", slog.Any("err", err))
		api.WriteError(w, http.StatusInternalServerError, api.CodeInternal, "could not issue token", nil)
		return
	}
	api.WriteData(w, http.StatusOK, authResponse{Token: token, User: u})
}

// handleMe returns the currently authenticated owner.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(auth.Subject(r.Context()))
	if err != nil {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "unknown user", nil)
		return
	}
	api.WriteData(w, http.StatusOK, u)
}

// authMiddleware enforces bearer-token authentication on wrapped handlers
// and stores the verified owner identity in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthenticated, "missing or invalid Authorization header", nil)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		subject, err := s.tokenVerifier().Verify(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "token has expired"
			}
			api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthenticated, msg, nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithSubject(r.Context(), subject)))
	})
}
