package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/authflow/internal/scenario"
)

var _ scenario.Page = (*Session)(nil)

// Session is one tab inside an isolated browser context
type Session struct {
	ctx           context.Context
	cancel        context.CancelFunc
	baseURL       string
	actionTimeout time.Duration
	logger        arbor.ILogger
	console       *consoleBuffer

	closeOnce sync.Once
}

func newSession(ctx context.Context, cancel context.CancelFunc, baseURL string, actionTimeout time.Duration, logger arbor.ILogger) *Session {
	if actionTimeout <= 0 {
		actionTimeout = scenario.DefaultActionTimeout
	}
	s := &Session{
		ctx:           ctx,
		cancel:        cancel,
		baseURL:       strings.TrimRight(baseURL, "/"),
		actionTimeout: actionTimeout,
		logger:        logger,
		console:       newConsoleBuffer(maxConsoleLines, logger),
	}
	chromedp.ListenTarget(ctx, s.console.listen)
	return s
}

// run executes actions on the tab. The caller's deadline and cancellation
// apply; without a deadline the action timeout bounds the call.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
	} else {
		runCtx, cancel = context.WithTimeout(s.ctx, s.actionTimeout)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// ResolveURL joins path onto the base URL. Absolute URLs pass through.
func (s *Session) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "about:") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.baseURL + path
}

func (s *Session) Navigate(ctx context.Context, path string) error {
	target := s.ResolveURL(path)
	if err := s.run(ctx, chromedp.Navigate(target)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", target, err)
	}
	s.logger.Debug().Str("url", target).Msg("Navigated")
	return nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return location, nil
}

func (s *Session) resolve(ctx context.Context, loc scenario.Locator, tag string) (resolution, error) {
	var res resolution
	expr, err := resolverExpression(loc, tag)
	if err != nil {
		return res, err
	}
	if err := s.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return res, fmt.Errorf("failed to resolve %s: %w", loc, err)
	}
	return res, nil
}

func (s *Session) Visible(ctx context.Context, loc scenario.Locator) (bool, error) {
	res, err := s.resolve(ctx, loc, "")
	if err != nil {
		return false, err
	}
	return res.Visible > 0, nil
}

// tag marks the first visible match of loc and returns its selector
func (s *Session) tag(ctx context.Context, loc scenario.Locator) (string, error) {
	ref := uuid.NewString()
	res, err := s.resolve(ctx, loc, ref)
	if err != nil {
		return "", err
	}
	if res.Visible == 0 {
		return "", fmt.Errorf("%s (%d hidden): %w", loc, res.Total, scenario.ErrNotFound)
	}
	return refSelector(ref), nil
}

const selectJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.focus();
	if (typeof el.select === 'function') el.select();
	return true;
})(%q)`

const clearJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = '';
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})(%q)`

func (s *Session) Fill(ctx context.Context, loc scenario.Locator, value string) error {
	sel, err := s.tag(ctx, loc)
	if err != nil {
		return err
	}

	var ok bool
	actions := []chromedp.Action{
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(clearJS, sel), &ok),
	}
	if value != "" {
		actions = append(actions,
			chromedp.Evaluate(fmt.Sprintf(selectJS, sel), &ok),
			input.InsertText(value),
		)
	}
	if err := s.run(ctx, actions...); err != nil {
		return fmt.Errorf("failed to fill %s: %w", loc, err)
	}
	if !ok {
		return fmt.Errorf("%s detached before fill: %w", loc, scenario.ErrNotFound)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, loc scenario.Locator) error {
	sel, err := s.tag(ctx, loc)
	if err != nil {
		return err
	}
	if err := s.run(ctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", loc, err)
	}
	return nil
}

// Screenshot writes a full-page PNG to path
func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	return nil
}

// ConsoleLog returns the most recent console and exception lines
func (s *Session) ConsoleLog() []string {
	return s.console.lines()
}

// Close tears down the tab and its browser context
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
	})
}
