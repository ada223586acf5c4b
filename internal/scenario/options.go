package scenario

import (
	"context"
	"time"
)

// Default bounds applied when Options leaves a field zero
const (
	DefaultExpectTimeout     = 5 * time.Second
	DefaultActionTimeout     = 10 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultPollInterval      = 100 * time.Millisecond
)

// Options tunes how a scenario's steps wait and lets the caller observe them
type Options struct {
	ExpectTimeout     time.Duration // Assertions without an explicit timeout
	ActionTimeout     time.Duration // Fill/click wait for their target
	NavigationTimeout time.Duration
	PollInterval      time.Duration

	// BeforeStep runs before each step; an error aborts the scenario
	BeforeStep func(ctx context.Context, index int, step Step) error
	// AfterStep runs after each step with its outcome
	AfterStep func(index int, step Step, elapsed time.Duration, err error)
}

func (o Options) withDefaults() Options {
	if o.ExpectTimeout <= 0 {
		o.ExpectTimeout = DefaultExpectTimeout
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

func (o Options) expect(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return o.ExpectTimeout
}
