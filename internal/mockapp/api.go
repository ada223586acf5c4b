package mockapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Response codes returned by the auth API
const (
	CodeEmailAlreadyRegistered = "auth.email_already_registered"
	CodeInvalidCredentials     = "auth.invalid_credentials"
	CodeUserInactive           = "auth.user_inactive"
	CodeUserLocked             = "auth.user_locked"
	CodeNotAuthenticated       = "auth.not_authenticated"
	CodeInvalidOrExpiredToken  = "auth.invalid_or_expired_token"
	CodeLoggedOut              = "auth.logged_out"
	CodeValidationFailed       = "request.validation_failed"
)

// LogoutMessage is the human readable logout confirmation
const LogoutMessage = "Logged out successfully"

type codeResponse struct {
	Code string `json:"code"`
}

type errorResponse struct {
	Detail codeResponse `json:"detail"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Status    string    `json:"status"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type LoginResponse struct {
	User  UserResponse  `json:"user"`
	Token TokenResponse `json:"token"`
}

type MeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeCode(w http.ResponseWriter, statusCode int, code string) {
	writeJSON(w, statusCode, errorResponse{Detail: codeResponse{Code: code}})
}

func withClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func claimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

func toUserResponse(user *User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Status:    string(user.Status),
		IsActive:  user.Status == StatusActive,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
}

// decode reads and validates a JSON body, writing 422 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeCode(w, http.StatusUnprocessableEntity, CodeValidationFailed)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeCode(w, http.StatusUnprocessableEntity, CodeValidationFailed)
		return false
	}
	return true
}

func (s *Server) loginResponse(w http.ResponseWriter, user *User) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error().Err(err).Str("email", user.Email).Msg("Failed to issue token")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		User:  toUserResponse(user),
		Token: TokenResponse{AccessToken: token, TokenType: "bearer"},
	})
}

// handleAPIRegister creates a user and returns a token
func (s *Server) handleAPIRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.users.Create(req.Email, req.FullName, req.Password)
	if errors.Is(err, ErrEmailTaken) {
		writeCode(w, http.StatusBadRequest, CodeEmailAlreadyRegistered)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Info().Str("email", user.Email).Msg("User registered")
	s.loginResponse(w, user)
}

// handleAPILogin exchanges credentials for a token
func (s *Server) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.users.Authenticate(req.Email, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeCode(w, http.StatusUnauthorized, CodeInvalidCredentials)
		return
	case errors.Is(err, ErrUserLocked):
		writeCode(w, http.StatusForbidden, CodeUserLocked)
		return
	case errors.Is(err, ErrUserInactive):
		writeCode(w, http.StatusForbidden, CodeUserInactive)
		return
	}

	s.loginResponse(w, user)
}

func (s *Server) handleAPILogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"code":    CodeLoggedOut,
		"message": LogoutMessage,
	})
}

func (s *Server) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, codeResponse{Code: CodeNotAuthenticated})
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
