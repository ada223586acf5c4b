package apicheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/ternarybob/authflow/internal/fixtures"
	"github.com/ternarybob/authflow/internal/mockapp"
	"github.com/ternarybob/authflow/internal/models"
)

func startApp(t *testing.T, admin fixtures.Credentials) *httptest.Server {
	t.Helper()
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

func newSuite(baseURL string) *Suite {
	logger := arbor.NewLogger()
	admin := fixtures.Admin(func(string) (string, bool) { return "", false })
	return NewSuite(NewClient(baseURL, 5*time.Second, logger), admin, fixtures.Invalid(), logger)
}

func statusByName(results []*models.Result) map[string]models.Status {
	out := make(map[string]models.Status, len(results))
	for _, r := range results {
		out[r.Name] = r.Status
	}
	return out
}

func TestSuite_AllPassAgainstStandIn(t *testing.T) {
	ts := startApp(t, fixtures.Admin(func(string) (string, bool) { return "", false }))

	results := newSuite(ts.URL).Run(context.Background())
	require.Len(t, results, len(Checks()))

	for i, check := range Checks() {
		assert.Equal(t, check.Name, results[i].Name)
		assert.Equal(t, SuiteName, results[i].Suite)
		assert.Equal(t, models.StatusPassed, results[i].Status, "%s: %s", check.Name, results[i].Error)
	}
}

func TestSuite_MissingAdminSkips(t *testing.T) {
	ts := startApp(t, fixtures.Credentials{})

	statuses := statusByName(newSuite(ts.URL).Run(context.Background()))

	assert.Equal(t, models.StatusSkipped, statuses[CheckLogin])
	assert.Equal(t, models.StatusSkipped, statuses[CheckMeWithToken])
	assert.Equal(t, models.StatusSkipped, statuses[CheckLogout])
	assert.Equal(t, models.StatusPassed, statuses[CheckHealth])
	assert.Equal(t, models.StatusPassed, statuses[CheckLoginInvalid])
	assert.Equal(t, models.StatusPassed, statuses[CheckMeRequiresToken])
}

func TestSuite_WrongResponsesFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"degraded"}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer ts.Close()

	statuses := statusByName(newSuite(ts.URL).Run(context.Background()))

	assert.Equal(t, models.StatusFailed, statuses[CheckHealth])
	assert.Equal(t, models.StatusFailed, statuses[CheckRegister])
	assert.Equal(t, models.StatusFailed, statuses[CheckRegisterDuplicate])
	assert.Equal(t, models.StatusFailed, statuses[CheckLogin])
	assert.Equal(t, models.StatusFailed, statuses[CheckLoginInvalid])
	assert.Equal(t, models.StatusFailed, statuses[CheckMeRequiresToken])
}

func TestSuite_UnreachableFails(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	result := newSuite(url).RunCheck(context.Background(), Checks()[0])
	assert.Equal(t, models.StatusFailed, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestUniqueEmail(t *testing.T) {
	a := UniqueEmail("test")
	b := UniqueEmail("test")

	assert.Regexp(t, regexp.MustCompile(`^test-[0-9a-f]{8}@example\.com$`), a)
	assert.NotEqual(t, a, b)
}
