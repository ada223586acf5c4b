package mockapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserStore_EnsureAdminResetsPassword(t *testing.T) {
	store := NewUserStore(bcrypt.MinCost)

	_, err := store.Create("admin@example.com", "Someone", "old-password")
	require.NoError(t, err)

	admin, err := store.EnsureAdmin("admin@example.com", "  Admin123!  ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, admin.Role)
	assert.Equal(t, 1, store.Count())

	_, err = store.Authenticate("admin@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Authenticate("admin@example.com", "Admin123!")
	assert.NoError(t, err)
}

func TestUserStore_CreateDuplicateIgnoresCase(t *testing.T) {
	store := NewUserStore(bcrypt.MinCost)

	_, err := store.Create("User@Example.com", "User", "pw")
	require.NoError(t, err)

	_, err = store.Create("user@example.com", "User", "pw")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserStore_InactiveUser(t *testing.T) {
	store := NewUserStore(bcrypt.MinCost)

	_, err := store.Create("user@example.com", "User", "pw")
	require.NoError(t, err)
	require.True(t, store.SetStatus("user@example.com", StatusInactive))

	_, err = store.Authenticate("user@example.com", "pw")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestTokenIssuer_RoundTripAndExpiry(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	user := &User{ID: "id-1", Email: "user@example.com", Role: RoleUser}

	token, err := issuer.Issue(user)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Parse(token)
	assert.Error(t, err)

	other := NewTokenIssuer("other-secret", time.Minute)
	_, err = other.Parse(token)
	assert.Error(t, err)
}
