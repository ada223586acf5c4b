package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestAdmin_Defaults(t *testing.T) {
	creds := Admin(lookupFrom(map[string]string{}))

	assert.Equal(t, "admin@example.com", creds.Email)
	assert.Equal(t, "Admin123!", creds.Password)
}

func TestAdmin_FromEnvironment(t *testing.T) {
	creds := Admin(lookupFrom(map[string]string{
		EnvAdminEmail:    "root@family.test",
		EnvAdminPassword: "s3cret!",
	}))

	assert.Equal(t, "root@family.test", creds.Email)
	assert.Equal(t, "s3cret!", creds.Password)
}

func TestAdmin_PartialEnvironment(t *testing.T) {
	creds := Admin(lookupFrom(map[string]string{EnvAdminPassword: "only-password"}))

	assert.Equal(t, DefaultAdminEmail, creds.Email)
	assert.Equal(t, "only-password", creds.Password)
}

func TestAdmin_EmptyValueFallsBack(t *testing.T) {
	creds := Admin(lookupFrom(map[string]string{EnvAdminEmail: ""}))

	assert.Equal(t, DefaultAdminEmail, creds.Email)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvAdminEmail, "env@example.com")
	t.Setenv(EnvAdminPassword, "EnvPass1!")

	creds := FromEnv()
	assert.Equal(t, Credentials{Email: "env@example.com", Password: "EnvPass1!"}, creds)
}

func TestInvalid(t *testing.T) {
	creds := Invalid()

	assert.Equal(t, "invalid@example.com", creds.Email)
	assert.Equal(t, "wrongpassword", creds.Password)
}

func TestCredentials_StringMasksPassword(t *testing.T) {
	s := Credentials{Email: "a@b.c", Password: "secret"}.String()

	assert.Equal(t, "a@b.c:********", s)
	assert.NotContains(t, s, "secret")
}
