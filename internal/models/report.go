package models

import "time"

// Report aggregates the results of one run. Results keep catalog order.
type Report struct {
	RunID      string    `json:"run_id"`
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Results    []*Result `json:"results"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Dir        string    `json:"-"` // Run output directory
}

func NewReport(runID, target string) *Report {
	return &Report{
		RunID:     runID,
		Target:    target,
		StartedAt: time.Now(),
	}
}

// Add appends results and updates the counters
func (r *Report) Add(results ...*Result) {
	for _, result := range results {
		if result == nil {
			continue
		}
		r.Results = append(r.Results, result)
		switch result.Status {
		case StatusPassed:
			r.Passed++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
	}
}

// Finish records the total run duration
func (r *Report) Finish() {
	r.DurationMs = time.Since(r.StartedAt).Milliseconds()
}

// OK reports whether nothing failed
func (r *Report) OK() bool {
	return r.Failed == 0
}

// Total returns the number of results
func (r *Report) Total() int {
	return len(r.Results)
}
