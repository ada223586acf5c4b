// Package common provides the shared environment for the go test suites:
// the target under test (an external server or the bundled stand-in) and
// a per-run results directory.
package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/ternarybob/authflow/internal/fixtures"
	"github.com/ternarybob/authflow/internal/mockapp"
)

// TestEnvironment is the target shared by every test in a package
type TestEnvironment struct {
	BaseURL    string
	APIURL     string
	ResultsDir string
	Admin      fixtures.Credentials
	Invalid    fixtures.Credentials
	Logger     arbor.ILogger
	TestLog    *os.File

	// External is true when TEST_SERVER_URL points at a running application
	External bool

	app    *mockapp.Server
	logMux sync.Mutex
}

// SetupTestEnvironment resolves the target. When TEST_SERVER_URL is unset the
// stand-in application is started on a free local port.
func SetupTestEnvironment(suiteName string) (*TestEnvironment, error) {
	logger := arbor.NewLogger().WithLevelFromString(envOr("AUTHFLOW_LOG_LEVEL", "warn"))

	env := &TestEnvironment{
		Admin:   fixtures.FromEnv(),
		Invalid: fixtures.Invalid(),
		Logger:  logger,
	}

	if url := os.Getenv("TEST_SERVER_URL"); url != "" {
		env.BaseURL = strings.TrimRight(url, "/")
		env.External = true
	} else {
		app, err := mockapp.New(mockapp.Config{
			Host:          "127.0.0.1",
			Port:          0,
			JWTSecret:     "authflow-test-secret",
			AdminEmail:    env.Admin.Email,
			AdminPassword: env.Admin.Password,
			BcryptCost:    bcrypt.MinCost,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create stand-in application: %w", err)
		}
		url, err := app.Start()
		if err != nil {
			return nil, fmt.Errorf("failed to start stand-in application: %w", err)
		}
		env.app = app
		env.BaseURL = url
	}

	env.APIURL = env.BaseURL
	if url := os.Getenv("API_BASE_URL"); url != "" {
		env.APIURL = strings.TrimRight(url, "/")
	}

	resultsBase := envOr("AUTHFLOW_RESULTS_DIR", filepath.Join("..", "results"))
	env.ResultsDir = filepath.Join(resultsBase, time.Now().Format("2006-01-02_15-04-05")+"_"+suiteName)
	if err := os.MkdirAll(env.ResultsDir, 0755); err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	testLog, err := os.Create(filepath.Join(env.ResultsDir, "test.log"))
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to create test log: %w", err)
	}
	env.TestLog = testLog
	fmt.Fprintf(testLog, "Target: %s\nAPI:    %s\nAdmin:  %s\n\n", env.BaseURL, env.APIURL, env.Admin)

	return env, nil
}

// Cleanup stops the stand-in application and closes the test log
func (env *TestEnvironment) Cleanup() {
	if env.TestLog != nil {
		fmt.Fprintf(env.TestLog, "\n=== TEST COMPLETED ===\n")
		env.TestLog.Close()
	}
	if env.app != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		env.app.Shutdown(ctx)
	}
}

// GetScreenshotPath returns the path for saving a screenshot
func (env *TestEnvironment) GetScreenshotPath(name string) string {
	return filepath.Join(env.ResultsDir, "screenshots", fmt.Sprintf("%s.png", name))
}

// LogTest writes a message to both the test log file and the test output (via t.Log)
func (env *TestEnvironment) LogTest(t *testing.T, format string, args ...interface{}) {
	t.Helper()
	msg := fmt.Sprintf(format, args...)

	if env.TestLog != nil {
		env.logMux.Lock()
		fmt.Fprintf(env.TestLog, "[%s] %s: %s\n", time.Now().Format("15:04:05"), t.Name(), msg)
		env.logMux.Unlock()
	}

	t.Log(msg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
