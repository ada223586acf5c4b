// Package apicheck verifies the auth API the UI depends on: health,
// registration, login, the protected profile endpoint and logout.
package apicheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/authflow/internal/fixtures"
	"github.com/ternarybob/authflow/internal/models"
)

// SuiteName is the report suite label for API checks
const SuiteName = "api"

// Check names
const (
	CheckHealth            = "health returns ok"
	CheckRegister          = "register creates user and returns token"
	CheckRegisterDuplicate = "register with existing email returns 400"
	CheckLogin             = "login with valid credentials returns token"
	CheckLoginInvalid      = "login with invalid credentials returns 401"
	CheckMeRequiresToken   = "users/me requires bearer token"
	CheckMeWithToken       = "users/me with token returns user"
	CheckLogout            = "logout with token returns success"
)

const logoutMessage = "Logged out successfully"

// SkipError marks a check that could not run against this target
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip returns a SkipError
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// Check is one named API assertion
type Check struct {
	Name string
	Run  func(ctx context.Context, s *Suite) error
}

// Suite runs the checks against one API
type Suite struct {
	client  *Client
	admin   fixtures.Credentials
	invalid fixtures.Credentials
	logger  arbor.ILogger
}

func NewSuite(client *Client, admin, invalid fixtures.Credentials, logger arbor.ILogger) *Suite {
	return &Suite{
		client:  client,
		admin:   admin,
		invalid: invalid,
		logger:  logger,
	}
}

type userBody struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
}

type loginBody struct {
	User  *userBody  `json:"user"`
	Token *tokenBody `json:"token"`
}

// Checks returns the checks in execution order
func Checks() []Check {
	return []Check{
		{Name: CheckHealth, Run: checkHealth},
		{Name: CheckRegister, Run: checkRegister},
		{Name: CheckRegisterDuplicate, Run: checkRegisterDuplicate},
		{Name: CheckLogin, Run: checkLogin},
		{Name: CheckLoginInvalid, Run: checkLoginInvalid},
		{Name: CheckMeRequiresToken, Run: checkMeRequiresToken},
		{Name: CheckMeWithToken, Run: checkMeWithToken},
		{Name: CheckLogout, Run: checkLogout},
	}
}

// Run executes every check sequentially. A skip is not a failure.
func (s *Suite) Run(ctx context.Context) []*models.Result {
	checks := Checks()
	results := make([]*models.Result, 0, len(checks))

	for _, check := range checks {
		results = append(results, s.RunCheck(ctx, check))
	}
	return results
}

// RunCheck executes one check and records its outcome
func (s *Suite) RunCheck(ctx context.Context, check Check) *models.Result {
	result := &models.Result{
		Suite:     SuiteName,
		Name:      check.Name,
		StartedAt: time.Now(),
	}

	err := check.Run(ctx, s)
	result.Finish()

	var skip *SkipError
	switch {
	case err == nil:
		result.Status = models.StatusPassed
		s.logger.Info().Str("check", check.Name).Dur("duration", result.Duration).Msg("PASS")
	case errors.As(err, &skip):
		result.Status = models.StatusSkipped
		result.Error = skip.Reason
		s.logger.Warn().Str("check", check.Name).Str("reason", skip.Reason).Msg("SKIP")
	default:
		result.Status = models.StatusFailed
		result.Error = err.Error()
		s.logger.Error().Str("check", check.Name).Str("error", result.Error).Msg("FAIL")
	}

	return result
}

// UniqueEmail builds a throwaway address such as test-1a2b3c4d@example.com
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func expectStatus(resp *Response, expected int) error {
	if resp.Status != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, resp.Status, truncate(resp.Body))
	}
	return nil
}

func (s *Suite) register(ctx context.Context, email string) (*Response, error) {
	return s.client.Post(ctx, "/api/auth/register", map[string]string{
		"email":     email,
		"full_name": "Test User",
		"password":  "Test123!",
	}, "")
}

// adminToken logs in as the admin; a refused login skips the calling check
func (s *Suite) adminToken(ctx context.Context) (string, error) {
	resp, err := s.client.Post(ctx, "/api/auth/login", map[string]string{
		"email":    s.admin.Email,
		"password": s.admin.Password,
	}, "")
	if err != nil {
		return "", err
	}
	if resp.Status != 200 {
		return "", Skip(fmt.Sprintf("admin user %s not found or refused (status %d); reset the admin account first", s.admin.Email, resp.Status))
	}

	var body loginBody
	if err := resp.JSON(&body); err != nil {
		return "", err
	}
	if body.Token == nil || body.Token.AccessToken == "" {
		return "", fmt.Errorf("login response has no access token")
	}
	return body.Token.AccessToken, nil
}

func checkHealth(ctx context.Context, s *Suite) error {
	resp, err := s.client.Get(ctx, "/health", "")
	if err != nil {
		return err
	}
	if err := expectStatus(resp, 200); err != nil {
		return err
	}

	var body map[string]interface{}
	if err := resp.JSON(&body); err != nil {
		return err
	}
	if body["status"] != "ok" {
		return fmt.Errorf("expected status \"ok\", got %v", body["status"])
	}
	return nil
}

func checkRegister(ctx context.Context, s *Suite) error {
	email := UniqueEmail("test")
	resp, err := s.register(ctx, email)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, 200); err != nil {
		return err
	}

	var body loginBody
	if err := resp.JSON(&body); err != nil {
		return err
	}
	if body.User == nil {
		return fmt.Errorf("response has no user")
	}
	if body.User.Email != email {
		return fmt.Errorf("expected user email %s, got %s", email, body.User.Email)
	}
	if body.User.ID == "" {
		return fmt.Errorf("response user has no id")
	}
	if body.Token == nil || body.Token.AccessToken == "" {
		return fmt.Errorf("response has no access token")
	}
	return nil
}

func checkRegisterDuplicate(ctx context.Context, s *Suite) error {
	email := UniqueEmail("dup")

	first, err := s.register(ctx, email)
	if err != nil {
		return err
	}
	if err := expectStatus(first, 200); err != nil {
		return fmt.Errorf("first registration: %w", err)
	}

	second, err := s.register(ctx, email)
	if err != nil {
		return err
	}
	return expectStatus(second, 400)
}

func checkLogin(ctx context.Context, s *Suite) error {
	_, err := s.adminToken(ctx)
	return err
}

func checkLoginInvalid(ctx context.Context, s *Suite) error {
	resp, err := s.client.Post(ctx, "/api/auth/login", map[string]string{
		"email":    s.invalid.Email,
		"password": s.invalid.Password,
	}, "")
	if err != nil {
		return err
	}
	return expectStatus(resp, 401)
}

func checkMeRequiresToken(ctx context.Context, s *Suite) error {
	resp, err := s.client.Get(ctx, "/api/users/me", "")
	if err != nil {
		return err
	}
	return expectStatus(resp, 401)
}

func checkMeWithToken(ctx context.Context, s *Suite) error {
	token, err := s.adminToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.client.Get(ctx, "/api/users/me", token)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, 200); err != nil {
		return err
	}

	var body userBody
	if err := resp.JSON(&body); err != nil {
		return err
	}
	if !strings.EqualFold(body.Email, s.admin.Email) {
		return fmt.Errorf("expected email %s, got %s", s.admin.Email, body.Email)
	}
	return nil
}

func checkLogout(ctx context.Context, s *Suite) error {
	token, err := s.adminToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.client.Post(ctx, "/api/auth/logout", nil, token)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, 200); err != nil {
		return err
	}

	var body map[string]interface{}
	if err := resp.JSON(&body); err != nil {
		return err
	}
	if body["message"] != logoutMessage {
		return fmt.Errorf("expected message %q, got %v", logoutMessage, body["message"])
	}
	return nil
}
