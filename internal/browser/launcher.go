// Package browser drives Chrome through chromedp and exposes each isolated
// browser context as a scenario.Page.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/authflow/internal/common"
)

// Config holds the launch options for the shared Chrome process
type Config struct {
	Headless       bool
	DisableGPU     bool
	NoSandbox      bool
	WindowWidth    int
	WindowHeight   int
	UserAgent      string
	ExecPath       string
	StartupTimeout time.Duration
	ActionTimeout  time.Duration
}

// ConfigFromCommon maps the suite configuration onto launch options
func ConfigFromCommon(cfg *common.Config) Config {
	return Config{
		Headless:       cfg.Browser.Headless,
		DisableGPU:     cfg.Browser.DisableGPU,
		NoSandbox:      cfg.Browser.NoSandbox,
		WindowWidth:    cfg.Browser.WindowWidth,
		WindowHeight:   cfg.Browser.WindowHeight,
		UserAgent:      cfg.Browser.UserAgent,
		ExecPath:       cfg.Browser.ExecPath,
		StartupTimeout: 30 * time.Second,
		ActionTimeout:  common.MustDuration(cfg.Timeouts.Action),
	}
}

// Launcher owns one Chrome process. Every session it hands out runs in its
// own incognito browser context, so cookies and storage are never shared.
type Launcher struct {
	config Config
	logger arbor.ILogger

	mu              sync.Mutex
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	started         bool
	sessions        int
}

// NewLauncher creates a launcher; Chrome is not started until Start
func NewLauncher(config Config, logger arbor.ILogger) *Launcher {
	if config.WindowWidth <= 0 || config.WindowHeight <= 0 {
		config.WindowWidth, config.WindowHeight = 1920, 1080
	}
	if config.StartupTimeout <= 0 {
		config.StartupTimeout = 30 * time.Second
	}
	return &Launcher{
		config: config,
		logger: logger,
	}
}

// Start launches Chrome and verifies it responds
func (l *Launcher) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("browser already started")
	}

	startTime := time.Now()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.config.Headless),
		chromedp.Flag("disable-gpu", l.config.DisableGPU),
		chromedp.Flag("no-sandbox", l.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(l.config.WindowWidth, l.config.WindowHeight),
	)
	if l.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.config.UserAgent))
	}
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	probeCtx, probeCancel := context.WithTimeout(browserCtx, l.config.StartupTimeout)
	defer probeCancel()

	var title string
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank"), chromedp.Title(&title)); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser failed startup probe: %w", err)
	}

	l.allocatorCtx, l.allocatorCancel = allocatorCtx, allocatorCancel
	l.browserCtx, l.browserCancel = browserCtx, browserCancel
	l.started = true

	l.logger.Info().
		Bool("headless", l.config.Headless).
		Int("width", l.config.WindowWidth).
		Int("height", l.config.WindowHeight).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser started")

	return nil
}

// NewSession opens a tab in a fresh incognito context. baseURL prefixes the
// paths passed to Session.Navigate.
func (l *Launcher) NewSession(baseURL string, logger arbor.ILogger) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil, fmt.Errorf("browser not started")
	}
	if logger == nil {
		logger = l.logger
	}

	tabCtx, tabCancel := chromedp.NewContext(l.browserCtx, chromedp.WithNewBrowserContext())

	// The first Run allocates the tab; it must not use a derived timeout context
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open browser context: %w", err)
	}

	l.sessions++
	session := newSession(tabCtx, tabCancel, baseURL, l.config.ActionTimeout, logger)

	logger.Debug().
		Int("session", l.sessions).
		Str("base_url", baseURL).
		Msg("Browser context opened")

	return session, nil
}

// Close terminates Chrome. Sessions still open are torn down with it.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		if err := chromedp.Cancel(l.browserCtx); err != nil {
			l.logger.Debug().Err(err).Msg("Browser cancel returned error")
		}
		l.browserCancel()
		l.allocatorCancel()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		l.logger.Warn().Msg("Browser shutdown timed out")
	}

	l.started = false
	l.logger.Info().Int("sessions", l.sessions).Msg("Browser closed")

	return nil
}
