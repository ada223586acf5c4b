package ui

import (
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/ternarybob/authflow/internal/browser"
	appcommon "github.com/ternarybob/authflow/internal/common"
	"github.com/ternarybob/authflow/test/common"
)

var (
	env      *common.TestEnvironment
	launcher *browser.Launcher

	// launcherErr explains why launcher is nil; tests skip with it
	launcherErr error
)

// TestMain sets up the target once and shares one Chrome process across the
// package. Each test still gets its own incognito browser context.
func TestMain(m *testing.M) {
	mw := io.MultiWriter(os.Stderr)

	var err error
	env, err = common.SetupTestEnvironment("ui")
	if err != nil {
		fmt.Fprintf(mw, "\n✗ Failed to set up test environment: %v\n", err)
		os.Exit(1)
	}
	if env.External {
		fmt.Fprintf(mw, "✓ Using external target %s\n", env.BaseURL)
	} else {
		fmt.Fprintf(mw, "✓ Stand-in application started at %s\n", env.BaseURL)
	}

	launcher, launcherErr = startLauncher()
	if launcherErr != nil {
		fmt.Fprintf(mw, "\n⚠ Browser unavailable, UI tests will be skipped: %v\n\n", launcherErr)
	}

	var exitCode int
	func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(mw, "\n⚠ PANIC during test execution: %v\n", r)
				exitCode = 1
			}
			cleanupAllResources(mw)
		}()
		exitCode = m.Run()
	}()

	os.Exit(exitCode)
}

func startLauncher() (*browser.Launcher, error) {
	config := appcommon.NewDefaultConfig()
	if v := os.Getenv("AUTHFLOW_HEADLESS"); v == "false" {
		config.Browser.Headless = false
	}
	if os.Getenv("CI") != "" {
		config.Browser.NoSandbox = true
	}

	execPath, ok := browser.FindChrome(os.Getenv("AUTHFLOW_CHROME_PATH"))
	if !ok {
		return nil, fmt.Errorf("no Chrome or Chromium executable found")
	}
	config.Browser.ExecPath = execPath

	l := browser.NewLauncher(browser.ConfigFromCommon(config), env.Logger)
	if err := l.Start(); err != nil {
		return nil, err
	}
	return l, nil
}

func cleanupAllResources(w io.Writer) {
	fmt.Fprintf(w, "Cleaning up test resources...\n")
	if launcher != nil {
		launcher.Close()
	}
	env.Cleanup()

	// Give Chrome a moment to release its profile directory
	time.Sleep(100 * time.Millisecond)
	fmt.Fprintf(w, "✓ Cleanup complete\n")
}
