package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/ternarybob/authflow/internal/fixtures"
	"github.com/ternarybob/authflow/internal/mockapp"
	"github.com/ternarybob/authflow/internal/scenario"
)

// startBrowser launches headless Chrome or skips the test when none is installed
func startBrowser(t *testing.T) *Launcher {
	t.Helper()

	path, ok := FindChrome(os.Getenv("AUTHFLOW_CHROME_PATH"))
	if !ok {
		t.Skip("Chrome not available")
	}

	launcher := NewLauncher(Config{
		Headless:      true,
		DisableGPU:    true,
		NoSandbox:     true,
		ExecPath:      path,
		ActionTimeout: 10 * time.Second,
	}, arbor.NewLogger())
	require.NoError(t, launcher.Start())
	t.Cleanup(func() { launcher.Close() })
	return launcher
}

func startApp(t *testing.T) *httptest.Server {
	t.Helper()
	admin := fixtures.Admin(nil)
	app, err := mockapp.New(mockapp.Config{
		JWTSecret:     "secret",
		AdminEmail:    admin.Email,
		AdminPassword: admin.Password,
		BcryptCost:    bcrypt.MinCost,
	}, arbor.NewLogger())
	require.NoError(t, err)

	ts := httptest.NewServer(app.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func openSession(t *testing.T, launcher *Launcher, baseURL string) *Session {
	t.Helper()
	session, err := launcher.NewSession(baseURL, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session
}

func TestSession_LocatorsOnLoginPage(t *testing.T) {
	launcher := startBrowser(t)
	app := startApp(t)
	session := openSession(t, launcher, app.URL)
	ctx := context.Background()
	c := scenario.MustDefaultContract()

	require.NoError(t, session.Navigate(ctx, "/login"))

	url, err := session.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, app.URL+"/login", url)

	visible := []scenario.Locator{
		scenario.ByRole(scenario.RoleHeading, c.Heading),
		scenario.ByLabel(c.EmailLabel),
		scenario.ByLabel(c.PasswordLabel),
		scenario.ByRole(scenario.RoleButton, c.SubmitButton),
		scenario.ByRole(scenario.RoleLink, c.RegisterLink),
	}
	for _, loc := range visible {
		ok, err := session.Visible(ctx, loc)
		require.NoError(t, err)
		assert.True(t, ok, loc.String())
	}

	ok, err := session.Visible(ctx, scenario.ByText(c.ErrorText))
	require.NoError(t, err)
	assert.False(t, ok, "error text shown before submitting")

	ok, err = session.Visible(ctx, scenario.ByRole(scenario.RoleButton, c.RegisterLink))
	require.NoError(t, err)
	assert.False(t, ok, "register is a link, not a button")
}

func TestSession_HiddenElementsAreNotVisible(t *testing.T) {
	launcher := startBrowser(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html><html><body>
			<div style="display:none">Đăng nhập thất bại</div>
			<button style="visibility:hidden">Đăng nhập</button>
			<label for="e">Email</label><input id="e" type="email" hidden>
		</body></html>`))
	}))
	defer ts.Close()

	session := openSession(t, launcher, ts.URL)
	ctx := context.Background()
	c := scenario.MustDefaultContract()
	require.NoError(t, session.Navigate(ctx, "/"))

	for _, loc := range []scenario.Locator{
		scenario.ByText(c.ErrorText),
		scenario.ByRole(scenario.RoleButton, c.SubmitButton),
		scenario.ByLabel(c.EmailLabel),
	} {
		ok, err := session.Visible(ctx, loc)
		require.NoError(t, err)
		assert.False(t, ok, loc.String())
	}

	err := session.Click(ctx, scenario.ByRole(scenario.RoleButton, c.SubmitButton))
	assert.ErrorIs(t, err, scenario.ErrNotFound)
}

func TestSession_FillClickAndIsolation(t *testing.T) {
	launcher := startBrowser(t)
	app := startApp(t)
	admin := fixtures.Admin(nil)
	c := scenario.MustDefaultContract()
	ctx := context.Background()

	first := openSession(t, launcher, app.URL)
	require.NoError(t, first.Navigate(ctx, "/login"))
	require.NoError(t, first.Fill(ctx, scenario.ByLabel(c.EmailLabel), admin.Email))
	require.NoError(t, first.Fill(ctx, scenario.ByLabel(c.PasswordLabel), admin.Password))
	require.NoError(t, first.Click(ctx, scenario.ByRole(scenario.RoleButton, c.SubmitButton)))

	require.Eventually(t, func() bool {
		url, err := first.URL(ctx)
		return err == nil && c.DashboardURL.MatchString(url)
	}, 10*time.Second, 100*time.Millisecond)

	// A second context does not see the first one's session cookie
	second := openSession(t, launcher, app.URL)
	require.NoError(t, second.Navigate(ctx, "/dashboard"))
	url, err := second.URL(ctx)
	require.NoError(t, err)
	assert.True(t, c.LoginURL.MatchString(url), url)
}

func TestSession_Screenshot(t *testing.T) {
	launcher := startBrowser(t)
	app := startApp(t)
	session := openSession(t, launcher, app.URL)
	ctx := context.Background()

	require.NoError(t, session.Navigate(ctx, "/login"))

	path := filepath.Join(t.TempDir(), "shots", "login.png")
	require.NoError(t, session.Screenshot(ctx, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestSession_CallerDeadlineApplies(t *testing.T) {
	launcher := startBrowser(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.Write([]byte("late"))
	}))
	defer ts.Close()

	session := openSession(t, launcher, ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := session.Navigate(ctx, "/")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestResolveURL(t *testing.T) {
	s := &Session{baseURL: "http://localhost:3008"}

	assert.Equal(t, "http://localhost:3008/login", s.ResolveURL("/login"))
	assert.Equal(t, "http://localhost:3008/login", s.ResolveURL("login"))
	assert.Equal(t, "https://other.test/x", s.ResolveURL("https://other.test/x"))
}

func TestResolverExpression_EncodesArguments(t *testing.T) {
	loc := scenario.ByRole(scenario.RoleButton, scenario.MustPattern(`đăng "nhập"`))

	expr, err := resolverExpression(loc, "ref-1")
	require.NoError(t, err)
	assert.Contains(t, expr, `("role", "button", "đăng \"nhập\"", "ref-1", "data-authflow-ref")`)
	assert.Equal(t, `[data-authflow-ref="ref-1"]`, refSelector("ref-1"))
}

func TestConsoleBuffer_KeepsTail(t *testing.T) {
	b := newConsoleBuffer(2, arbor.NewLogger())
	b.add("one")
	b.add("two")
	b.add("three")

	assert.Equal(t, []string{"two", "three"}, b.lines())
}
