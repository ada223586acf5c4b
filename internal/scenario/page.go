package scenario

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Page when a locator has no visible match
var ErrNotFound = errors.New("no visible element matches locator")

// Page is the browser surface a scenario drives. Implementations answer
// snapshot queries; waiting and timeouts are handled by the steps.
type Page interface {
	// Navigate loads path relative to the target base URL
	Navigate(ctx context.Context, path string) error
	// URL returns the current page URL
	URL(ctx context.Context) (string, error)
	// Visible reports whether at least one element matching loc is visible
	Visible(ctx context.Context, loc Locator) (bool, error)
	// Fill replaces the value of the first visible control matching loc
	Fill(ctx context.Context, loc Locator, value string) error
	// Click clicks the first visible element matching loc
	Click(ctx context.Context, loc Locator) error
}
