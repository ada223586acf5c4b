package mockapp

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
)

//go:embed pages/*.html
var pagesFS embed.FS

// LoginFailedMessage is shown when page login is rejected
const LoginFailedMessage = "Đăng nhập thất bại: email hoặc mật khẩu sai"

// RegisterFailedMessage is shown when the email is already registered
const RegisterFailedMessage = "Email đã được đăng ký"

func parseTemplates() (*template.Template, error) {
	t, err := template.ParseFS(pagesFS, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	return t, nil
}

type pageData struct {
	Title    string
	Next     string
	Email    string
	FullName string
	Error    string
	User     *User
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Failed to render page")
	}
}

// currentUser resolves the signed-in user from the session cookie
func (s *Server) currentUser(r *http.Request) (*User, bool) {
	email, ok := s.sessions.lookup(r)
	if !ok {
		return nil, false
	}
	return s.users.Get(email)
}

// requireSession redirects anonymous visitors to the login page
func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(r)
		if !ok {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
			return
		}
		next(w, r, user)
	}
}

// safeNext only allows local absolute paths as post-login targets
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || next == "/login" {
		return "/dashboard"
	}
	return next
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login", pageData{
		Title: "Đăng nhập",
		Next:  r.URL.Query().Get("next"),
	})
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	user, err := s.users.Authenticate(email, r.PostFormValue("password"))
	if err != nil {
		s.logger.Debug().Str("email", email).Err(err).Msg("Page login rejected")
		s.render(w, http.StatusUnauthorized, "login", pageData{
			Title: "Đăng nhập",
			Next:  r.PostFormValue("next"),
			Email: email,
			Error: LoginFailedMessage,
		})
		return
	}

	s.sessions.start(w, user.Email)
	http.Redirect(w, r, safeNext(r.PostFormValue("next")), http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "register", pageData{Title: "Đăng ký"})
}

func (s *Server) handleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	req := RegisterRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		FullName: strings.TrimSpace(r.PostFormValue("full_name")),
		Password: r.PostFormValue("password"),
	}
	data := pageData{Title: "Đăng ký", Email: req.Email, FullName: req.FullName}

	if err := s.validate.Struct(req); err != nil {
		data.Error = "Vui lòng nhập đầy đủ thông tin hợp lệ"
		s.render(w, http.StatusUnprocessableEntity, "register", data)
		return
	}

	user, err := s.users.Create(req.Email, req.FullName, req.Password)
	if errors.Is(err, ErrEmailTaken) {
		data.Error = RegisterFailedMessage
		s.render(w, http.StatusBadRequest, "register", data)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.sessions.start(w, user.Email)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user *User) {
	s.render(w, http.StatusOK, "dashboard", pageData{Title: "Dashboard", User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.end(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
