// Package mockapp is a stand-in Family Network application exposing the UI
// and auth API the suites drive. It keeps users in memory.
package mockapp

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/authflow/internal/common"
)

// Config for the stand-in application
type Config struct {
	Host          string
	Port          int
	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
}

// ConfigFromCommon maps the [mock] section
func ConfigFromCommon(cfg common.MockConfig) Config {
	return Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		JWTSecret:     cfg.JWTSecret,
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	}
}

// Server manages the HTTP server and routes
type Server struct {
	config    Config
	logger    arbor.ILogger
	users     *UserStore
	sessions  *sessionStore
	tokens    *TokenIssuer
	validate  *validator.Validate
	templates *template.Template
	router    *http.ServeMux
	server    *http.Server
	listener  net.Listener
}

// New creates the application and seeds the admin account when configured
func New(config Config, logger arbor.ILogger) (*Server, error) {
	if config.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    config,
		logger:    logger,
		users:     NewUserStore(config.BcryptCost),
		sessions:  newSessionStore(),
		tokens:    NewTokenIssuer(config.JWTSecret, config.TokenTTL),
		validate:  validator.New(),
		templates: templates,
	}

	if config.AdminEmail != "" && config.AdminPassword != "" {
		admin, err := s.users.EnsureAdmin(config.AdminEmail, config.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to seed admin: %w", err)
		}
		logger.Debug().Str("email", admin.Email).Str("id", admin.ID).Msg("Admin account ensured")
	}

	s.router = s.setupRoutes()

	return s, nil
}

// Users exposes the user store
func (s *Server) Users() *UserStore {
	return s.users
}

// Handler returns the router wrapped in middleware
func (s *Server) Handler() http.Handler {
	return s.withMiddleware(s.router)
}

// Start binds the listener and serves in the background. It returns the base URL.
func (s *Server) Start() (string, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	baseURL := "http://" + listener.Addr().String()

	common.SafeGo(s.logger, "mockapp.serve", func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Stand-in server failed")
		}
	})

	s.logger.Info().
		Str("url", baseURL).
		Str("admin", s.config.AdminEmail).
		Msg("Stand-in application started")

	return baseURL, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("Stand-in application stopped")
	return nil
}
