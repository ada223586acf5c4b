// Package fixtures resolves the externally supplied test inputs for a run.
package fixtures

import "os"

// Environment variables read by Admin
const (
	EnvAdminEmail    = "TEST_ADMIN_EMAIL"
	EnvAdminPassword = "TEST_ADMIN_PASSWORD"
)

// Literal fallbacks used when the environment does not provide a value
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "Admin123!"

	InvalidEmail    = "invalid@example.com"
	InvalidPassword = "wrongpassword"
)

// Credentials is an email/password pair. Values are copied, never shared.
type Credentials struct {
	Email    string
	Password string
}

// LookupFunc has the shape of os.LookupEnv
type LookupFunc func(key string) (string, bool)

// Admin resolves the admin credentials through lookup. Missing or empty
// variables fall back to the literal defaults, so Admin always succeeds.
func Admin(lookup LookupFunc) Credentials {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return Credentials{
		Email:    valueOr(lookup, EnvAdminEmail, DefaultAdminEmail),
		Password: valueOr(lookup, EnvAdminPassword, DefaultAdminPassword),
	}
}

// FromEnv resolves the admin credentials from the process environment
func FromEnv() Credentials {
	return Admin(os.LookupEnv)
}

// Invalid returns credentials the application under test must reject
func Invalid() Credentials {
	return Credentials{Email: InvalidEmail, Password: InvalidPassword}
}

// String masks the password so credentials can be logged
func (c Credentials) String() string {
	return c.Email + ":********"
}

func valueOr(lookup LookupFunc, key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}
