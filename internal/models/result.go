package models

import "time"

// Status is the outcome of one scenario or check
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records one executed step of a scenario
type StepResult struct {
	Index      int    `json:"index"` // 1-based
	Step       string `json:"step"`
	Status     Status `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Result is the outcome of one scenario (ui suite) or API check (api suite).
// FailedStep is the 1-based index of the failing step, 0 when none failed.
type Result struct {
	Suite      string        `json:"suite"`
	Name       string        `json:"name"`
	Status     Status        `json:"status"`
	Error      string        `json:"error,omitempty"`
	FailedStep int           `json:"failed_step,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
	Steps      []StepResult  `json:"steps,omitempty"`
	Screenshot string        `json:"screenshot,omitempty"`
	Console    []string      `json:"console,omitempty"`
}

// FullName returns "Suite > Name"
func (r *Result) FullName() string {
	return r.Suite + " > " + r.Name
}

// Finish sets the duration from StartedAt
func (r *Result) Finish() {
	r.Duration = time.Since(r.StartedAt)
	r.DurationMs = r.Duration.Milliseconds()
}
