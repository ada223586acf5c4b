package mockapp

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailTaken is returned when registering an address that already exists
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserInactive is returned when the account is not active
	ErrUserInactive = errors.New("user inactive")
	// ErrUserLocked is returned when the account is locked
	ErrUserLocked = errors.New("user locked")
)

type UserStatus string

const (
	StatusActive   UserStatus = "ACTIVE"
	StatusInactive UserStatus = "INACTIVE"
	StatusLocked   UserStatus = "LOCKED"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// maxPasswordBytes is the bcrypt input limit
const maxPasswordBytes = 72

type User struct {
	ID             string
	Email          string
	FullName       string
	HashedPassword []byte
	Status         UserStatus
	Role           UserRole
	CreatedAt      time.Time
}

// UserStore is an in-memory user table keyed by lower-cased email
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*User
	cost  int
}

// NewUserStore creates an empty store. cost is the bcrypt cost; zero uses the default.
func NewUserStore(cost int) *UserStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserStore{
		users: make(map[string]*User),
		cost:  cost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// Create adds a regular user
func (s *UserStore) Create(email, fullName, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), s.cost)
	if err != nil {
		return nil, err
	}

	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[key]; exists {
		return nil, ErrEmailTaken
	}

	user := &User{
		ID:             uuid.NewString(),
		Email:          strings.TrimSpace(email),
		FullName:       fullName,
		HashedPassword: hash,
		Status:         StatusActive,
		Role:           RoleUser,
		CreatedAt:      time.Now().UTC(),
	}
	s.users[key] = user
	return user, nil
}

// EnsureAdmin creates the admin account, or resets its password and role if
// it already exists
func (s *UserStore) EnsureAdmin(email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(strings.TrimSpace(password)), s.cost)
	if err != nil {
		return nil, err
	}

	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if user, exists := s.users[key]; exists {
		user.HashedPassword = hash
		user.Role = RoleAdmin
		user.Status = StatusActive
		return user, nil
	}

	user := &User{
		ID:             uuid.NewString(),
		Email:          strings.TrimSpace(email),
		FullName:       "Admin",
		HashedPassword: hash,
		Status:         StatusActive,
		Role:           RoleAdmin,
		CreatedAt:      time.Now().UTC(),
	}
	s.users[key] = user
	return user, nil
}

// Authenticate checks the password and account status
func (s *UserStore) Authenticate(email, password string) (*User, error) {
	user, ok := s.Get(email)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, truncatePassword(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	switch user.Status {
	case StatusActive:
		return user, nil
	case StatusLocked:
		return nil, ErrUserLocked
	default:
		return nil, ErrUserInactive
	}
}

func (s *UserStore) Get(email string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[normalizeEmail(email)]
	return user, ok
}

// SetStatus changes an account's status
func (s *UserStore) SetStatus(email string, status UserStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[normalizeEmail(email)]
	if ok {
		user.Status = status
	}
	return ok
}

func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
