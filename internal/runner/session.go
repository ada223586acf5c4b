package runner

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/authflow/internal/browser"
	"github.com/ternarybob/authflow/internal/scenario"
)

// Page is an isolated browser context as the runner sees it
type Page interface {
	scenario.Page
	Screenshot(ctx context.Context, path string) error
	ConsoleLog() []string
	Close()
}

// SessionFactory opens one isolated page per scenario
type SessionFactory interface {
	NewSession(baseURL string, logger arbor.ILogger) (Page, error)
}

// LauncherFactory opens pages from a shared Chrome process
type LauncherFactory struct {
	Launcher *browser.Launcher
}

func (f LauncherFactory) NewSession(baseURL string, logger arbor.ILogger) (Page, error) {
	session, err := f.Launcher.NewSession(baseURL, logger)
	if err != nil {
		return nil, err
	}
	return session, nil
}
