// Package scenario models the auth-flow end-to-end scenarios: accessible
// locators, declarative steps with bounded waits, and the ordered catalog.
package scenario

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// Scenario is one independent, named end-to-end test case
type Scenario struct {
	Suite string
	Name  string
	Steps []Step
}

// FullName joins suite and name the way test reports display them
func (s *Scenario) FullName() string {
	if s.Suite == "" {
		return s.Name
	}
	return s.Suite + " > " + s.Name
}

// Execute runs the steps in order against page. The first failing step ends
// the scenario with a *StepError; nothing is retried.
func (s *Scenario) Execute(ctx context.Context, page Page, opts Options) error {
	opts = opts.withDefaults()

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Scenario: s.FullName(), Index: i, Step: step.String(), Err: err}
		}

		if opts.BeforeStep != nil {
			if err := opts.BeforeStep(ctx, i, step); err != nil {
				return &StepError{Scenario: s.FullName(), Index: i, Step: step.String(), Err: err}
			}
		}

		start := time.Now()
		err := step.Run(ctx, page, opts)
		if opts.AfterStep != nil {
			opts.AfterStep(i, step, time.Since(start), err)
		}
		if err != nil {
			return &StepError{Scenario: s.FullName(), Index: i, Step: step.String(), Err: err}
		}
	}

	return nil
}

// Catalog is an ordered collection of scenarios
type Catalog struct {
	scenarios []*Scenario
}

// NewCatalog creates a catalog preserving the given order
func NewCatalog(scenarios ...*Scenario) *Catalog {
	return &Catalog{scenarios: append([]*Scenario(nil), scenarios...)}
}

// Scenarios returns the scenarios in catalog order
func (c *Catalog) Scenarios() []*Scenario {
	return append([]*Scenario(nil), c.scenarios...)
}

func (c *Catalog) Len() int {
	return len(c.scenarios)
}

// Lookup finds a scenario by name or full name
func (c *Catalog) Lookup(name string) (*Scenario, bool) {
	for _, s := range c.scenarios {
		if s.Name == name || s.FullName() == name {
			return s, true
		}
	}
	return nil, false
}

// Filter keeps scenarios whose full name matches expr. Empty expr keeps all.
func (c *Catalog) Filter(expr string) (*Catalog, error) {
	if expr == "" {
		return NewCatalog(c.scenarios...), nil
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario filter %q: %w", expr, err)
	}

	kept := make([]*Scenario, 0, len(c.scenarios))
	for _, s := range c.scenarios {
		if re.MatchString(s.FullName()) {
			kept = append(kept, s)
		}
	}
	return NewCatalog(kept...), nil
}
