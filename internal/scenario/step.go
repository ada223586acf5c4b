package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Step is a single navigate, interact or assert action
type Step interface {
	Run(ctx context.Context, page Page, opts Options) error
	String() string
}

// Navigate loads path on the target
func Navigate(path string) Step {
	return navigateStep{path: path}
}

// Fill types value into the control matching target
func Fill(target Locator, value string) Step {
	return fillStep{target: target, value: value}
}

// FillSecret is Fill with the value masked in descriptions and logs
func FillSecret(target Locator, value string) Step {
	return fillStep{target: target, value: value, secret: true}
}

// Click clicks the element matching target
func Click(target Locator) Step {
	return clickStep{target: target}
}

// ExpectURL waits until the page URL matches pattern. A zero timeout uses
// Options.ExpectTimeout.
func ExpectURL(pattern Pattern, timeout time.Duration) Step {
	return urlStep{pattern: pattern, timeout: timeout}
}

// ExpectNoURL waits until the page URL does not match pattern
func ExpectNoURL(pattern Pattern, timeout time.Duration) Step {
	return urlStep{pattern: pattern, negate: true, timeout: timeout}
}

// ExpectVisible waits until an element matching target is visible
func ExpectVisible(target Locator, timeout time.Duration) Step {
	return visibleStep{target: target, timeout: timeout}
}

type navigateStep struct {
	path string
}

func (s navigateStep) Run(ctx context.Context, page Page, opts Options) error {
	opts = opts.withDefaults()
	navCtx, cancel := context.WithTimeout(ctx, opts.NavigationTimeout)
	defer cancel()

	if err := page.Navigate(navCtx, s.path); err != nil {
		return fmt.Errorf("navigate to %s: %w", s.path, err)
	}
	return nil
}

func (s navigateStep) String() string {
	return "goto " + s.path
}

type fillStep struct {
	target Locator
	value  string
	secret bool
}

func (s fillStep) Run(ctx context.Context, page Page, opts Options) error {
	opts = opts.withDefaults()
	if err := waitActionable(ctx, page, s.target, opts); err != nil {
		return err
	}
	if err := page.Fill(ctx, s.target, s.value); err != nil {
		return fmt.Errorf("fill %s: %w", s.target, err)
	}
	return nil
}

func (s fillStep) String() string {
	value := s.value
	if s.secret {
		value = strings.Repeat("*", 8)
	}
	return fmt.Sprintf("fill %s with %q", s.target, value)
}

type clickStep struct {
	target Locator
}

func (s clickStep) Run(ctx context.Context, page Page, opts Options) error {
	opts = opts.withDefaults()
	if err := waitActionable(ctx, page, s.target, opts); err != nil {
		return err
	}
	if err := page.Click(ctx, s.target); err != nil {
		return fmt.Errorf("click %s: %w", s.target, err)
	}
	return nil
}

func (s clickStep) String() string {
	return "click " + s.target.String()
}

type urlStep struct {
	pattern Pattern
	negate  bool
	timeout time.Duration
}

func (s urlStep) Run(ctx context.Context, page Page, opts Options) error {
	opts = opts.withDefaults()
	expected := "URL matching " + s.pattern.String()
	if s.negate {
		expected = "URL not matching " + s.pattern.String()
	}

	return waitFor(ctx, opts.expect(s.timeout), opts.PollInterval, expected, func(ctx context.Context) (bool, string, error) {
		current, err := page.URL(ctx)
		if err != nil {
			return false, "", err
		}
		return s.pattern.MatchString(current) != s.negate, current, nil
	})
}

func (s urlStep) String() string {
	if s.negate {
		return "expect URL not " + s.pattern.String()
	}
	return "expect URL " + s.pattern.String()
}

type visibleStep struct {
	target  Locator
	timeout time.Duration
}

func (s visibleStep) Run(ctx context.Context, page Page, opts Options) error {
	opts = opts.withDefaults()
	return waitFor(ctx, opts.expect(s.timeout), opts.PollInterval, s.target.String()+" to be visible", func(ctx context.Context) (bool, string, error) {
		visible, err := page.Visible(ctx, s.target)
		if err != nil {
			return false, "", err
		}
		if !visible {
			return false, "not visible", nil
		}
		return true, "", nil
	})
}

func (s visibleStep) String() string {
	return "expect visible " + s.target.String()
}

// waitActionable waits for an interaction target to become visible
func waitActionable(ctx context.Context, page Page, target Locator, opts Options) error {
	return waitFor(ctx, opts.ActionTimeout, opts.PollInterval, target.String()+" to be actionable", func(ctx context.Context) (bool, string, error) {
		visible, err := page.Visible(ctx, target)
		if err != nil {
			return false, "", err
		}
		return visible, "", nil
	})
}
