package mockapp

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const sessionCookie = "fn_session"

// sessionStore maps browser session ids to user emails
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]string)}
}

func (s *sessionStore) start(w http.ResponseWriter, email string) {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = email
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *sessionStore) lookup(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	email, ok := s.sessions[cookie.Value]
	return email, ok
}

func (s *sessionStore) end(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
