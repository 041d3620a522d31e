// Package server implements the taskhub HTTP server: REST API, owner
// authentication, and request routing.
package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/GoCodeAlone/taskhub/auth"
	"github.com/GoCodeAlone/taskhub/config"
	"github.com/GoCodeAlone/taskhub/server/api"
	"github.com/GoCodeAlone/taskhub/task"
	"github.com/GoCodeAlone/taskhub/user"
)

// Server is the taskhub HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	tasks    task.Store
	users    user.Store
	handlers *api.Handlers

	// Verifier built lazily so an unset secret can be generated once.
	verifierOnce sync.Once
	verifier     *auth.Verifier

	startTime time.Time
	version   string
}

// New creates a new Server with the given config and logger.
func New(cfg config.Config, ver string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		logger:    logger,
		startTime: time.Now(),
		version:   ver,
	}
}

// SetTaskStore attaches a task store to the server.
func (s *Server) SetTaskStore(store task.Store) {
	s.tasks = store
}

// SetUserStore attaches a user store to the server.
func (s *Server) SetUserStore(store user.Store) {
	s.users = store
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	s.registerRoutes()

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	s.handlers = &api.Handlers{
		Tasks:  s.tasks,
		Logger: s.logger,
	}

	// Public routes (no auth required)
	s.mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("POST /api/auth/signin", s.handleSignin)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	// Protected API — wrapped in auth middleware
	apiMux := http.NewServeMux()
	s.handlers.RegisterRoutes(apiMux)
	apiMux.HandleFunc("GET /api/auth/me", s.handleMe)

	s.mux.Handle("/api/", s.authMiddleware(apiMux))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	api.WriteData(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// tokenVerifier returns the configured verifier, generating an ephemeral
// secret on first use when none is configured.
func (s *Server) tokenVerifier() *auth.Verifier {
	s.verifierOnce.Do(func() {
		secret := s.cfg.Auth.JWTSecret
		if secret == "" {
			secret = generateSecret()
			s.logger.Warn("auth.jwt_secret not set, generated ephemeral secret; tokens will not survive restart")
		}
		s.verifier = auth.NewVerifier(secret, s.cfg.Auth.Issuer, time.Duration(s.cfg.Auth.TokenTTL))
	})
	return s.verifier
}

// generateSecret creates a random 32-byte secret.
func generateSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
