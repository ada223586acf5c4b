package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/authflow/internal/browser"
	appcommon "github.com/ternarybob/authflow/internal/common"
	"github.com/ternarybob/authflow/internal/scenario"
	"github.com/ternarybob/authflow/test/common"
)

// UITestContext holds the per-test browser session and helpers
type UITestContext struct {
	T       *testing.T
	Env     *common.TestEnvironment
	Ctx     context.Context
	Session *browser.Session
	Catalog *scenario.Catalog
	Options scenario.Options

	cancel context.CancelFunc
}

// NewUITestContext opens a fresh incognito session bounded by timeout. The
// test is skipped when no browser is available.
func NewUITestContext(t *testing.T, timeout time.Duration) *UITestContext {
	t.Helper()
	if launcher == nil {
		t.Skipf("browser unavailable: %v", launcherErr)
	}

	session, err := launcher.NewSession(env.BaseURL, env.Logger)
	if err != nil {
		t.Fatalf("Failed to open browser session: %v", err)
	}

	config := appcommon.NewDefaultConfig()
	contract, err := scenario.NewContract(config.Contract)
	if err != nil {
		session.Close()
		t.Fatalf("Failed to build UI contract: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	utc := &UITestContext{
		T:       t,
		Env:     env,
		Ctx:     ctx,
		Session: session,
		Catalog: scenario.DefaultCatalog(contract, env.Admin, env.Invalid, scenario.TimeoutsFromConfig(config.Timeouts)),
		Options: scenario.OptionsFromConfig(config.Timeouts),
		cancel:  cancel,
	}
	t.Cleanup(utc.Cleanup)

	return utc
}

// Cleanup closes the session
func (utc *UITestContext) Cleanup() {
	utc.cancel()
	utc.Session.Close()
}

// Log writes to the test log and the test output
func (utc *UITestContext) Log(format string, args ...interface{}) {
	utc.T.Helper()
	utc.Env.LogTest(utc.T, format, args...)
}

// RunScenario executes a catalog scenario by name. On failure it saves a
// screenshot and the browser console before failing the test.
func (utc *UITestContext) RunScenario(name string) {
	utc.T.Helper()

	sc, ok := utc.Catalog.Lookup(name)
	if !ok {
		utc.T.Fatalf("Unknown scenario %q", name)
	}

	opts := utc.Options
	opts.AfterStep = func(index int, step scenario.Step, elapsed time.Duration, err error) {
		status := "ok"
		if err != nil {
			status = "FAILED"
		}
		utc.Log("  step %d: %s (%s) %s", index+1, step, elapsed.Round(time.Millisecond), status)
	}

	utc.Log("=== RUN %s", sc.FullName())
	err := sc.Execute(utc.Ctx, utc.Session, opts)
	if err == nil {
		utc.Log("✓ %s", sc.FullName())
		return
	}

	utc.Screenshot(strings.ReplaceAll(strings.ToLower(utc.T.Name()), "/", "_"))
	if console := utc.Session.ConsoleLog(); len(console) > 0 {
		utc.Log("Browser console:\n%s", strings.Join(console, "\n"))
	}

	var timeoutErr *scenario.TimeoutError
	if errors.As(err, &timeoutErr) {
		utc.Log("Observed: %s", timeoutErr.Observed)
	}
	utc.T.Fatalf("%s: %v", sc.FullName(), err)
}

// Screenshot saves the current page under the results directory
func (utc *UITestContext) Screenshot(name string) {
	utc.T.Helper()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(utc.Ctx), 10*time.Second)
	defer cancel()

	path := utc.Env.GetScreenshotPath(name)
	if err := utc.Session.Screenshot(ctx, path); err != nil {
		utc.Log("Failed to take screenshot: %v", err)
		return
	}
	utc.Log("Screenshot saved: %s", path)
}
