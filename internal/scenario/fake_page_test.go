package scenario

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/authflow/internal/fixtures"
)

type fakeElement struct {
	role  Role
	label string
	text  string
}

// fakeApp is an in-memory stand-in for the Family Network login flow
type fakeApp struct {
	mu sync.Mutex

	baseURL  string
	path     string
	loggedIn bool
	loginErr bool
	fields   map[string]string

	// redirect is applied lazily after redirectDelay to mimic client-side routing
	pending   string
	pendingAt time.Time

	admin         fixtures.Credentials
	unprotected   bool
	redirectDelay time.Duration
	urlCalls      int
	failURLCalls  int
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		baseURL: "http://app.test",
		path:    "about:blank",
		fields:  make(map[string]string),
		admin:   fixtures.Admin(func(string) (string, bool) { return "", false }),
	}
}

func (a *fakeApp) Navigate(ctx context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loginErr = false
	a.pending = ""
	switch {
	case path == "/dashboard" && !a.loggedIn && !a.unprotected:
		a.redirect("/dashboard", "/login")
	case path == "/" && a.loggedIn:
		a.redirect("/", "/dashboard")
	case path == "/" && !a.loggedIn:
		a.redirect("/", "/login")
	default:
		a.path = path
	}
	return nil
}

func (a *fakeApp) redirect(from, to string) {
	if a.redirectDelay <= 0 {
		a.path = to
		return
	}
	a.path = from
	a.pending = to
	a.pendingAt = time.Now().Add(a.redirectDelay)
}

func (a *fakeApp) URL(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.urlCalls++
	if a.urlCalls <= a.failURLCalls {
		return "", errors.New("execution context was destroyed")
	}
	if a.pending != "" && time.Now().After(a.pendingAt) {
		a.path = a.pending
		a.pending = ""
	}
	return a.baseURL + a.path, nil
}

func (a *fakeApp) elements() []fakeElement {
	switch a.path {
	case "/login":
		els := []fakeElement{
			{role: RoleHeading, text: "Family Network"},
			{role: RoleTextbox, label: "Email"},
			{role: RoleTextbox, label: "Mật khẩu"},
			{role: RoleButton, text: "Đăng nhập"},
			{role: RoleLink, text: "Chưa có tài khoản? Đăng ký"},
		}
		if a.loginErr {
			els = append(els, fakeElement{text: "Đăng nhập thất bại: email hoặc mật khẩu sai"})
		}
		return els
	case "/dashboard":
		return []fakeElement{
			{role: RoleHeading, text: "Family Network"},
			{text: "Xin chào Admin"},
		}
	case "/register":
		return []fakeElement{{role: RoleHeading, text: "Đăng ký tài khoản"}}
	default:
		return nil
	}
}

func (a *fakeApp) find(loc Locator) (fakeElement, bool) {
	for _, el := range a.elements() {
		switch loc.Kind {
		case KindLabel:
			if el.label != "" && loc.Name.MatchString(el.label) {
				return el, true
			}
		case KindRole:
			name := el.text
			if name == "" {
				name = el.label
			}
			if el.role == loc.Role && loc.Name.MatchString(name) {
				return el, true
			}
		case KindText:
			if el.text != "" && loc.Name.MatchString(el.text) {
				return el, true
			}
		}
	}
	return fakeElement{}, false
}

func (a *fakeApp) Visible(ctx context.Context, loc Locator) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.find(loc)
	return ok, nil
}

func (a *fakeApp) Fill(ctx context.Context, loc Locator, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, ok := a.find(loc)
	if !ok {
		return ErrNotFound
	}
	a.fields[el.label] = value
	return nil
}

func (a *fakeApp) Click(ctx context.Context, loc Locator) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, ok := a.find(loc)
	if !ok {
		return ErrNotFound
	}

	switch el.role {
	case RoleButton:
		if a.fields["Email"] == a.admin.Email && a.fields["Mật khẩu"] == a.admin.Password {
			a.loggedIn = true
			a.path = "/dashboard"
		} else {
			a.loginErr = true
		}
	case RoleLink:
		a.path = "/register"
	}
	return nil
}
