// Package run tracks what happened during one monitor run: which
// categories searched cleanly, which hit the API budget or an error,
// and the headline counts the report and digest surface.
package run

import (
	"time"

	"github.com/google/uuid"
)

// Status classifies how one category's search ended.
type Status string

const (
	// StatusCompleted means the search ran and returned results.
	StatusCompleted Status = "completed"
	// StatusEmpty means the search ran but matched nothing.
	StatusEmpty Status = "empty"
	// StatusQuotaExhausted means the run's search budget ran out before
	// this category was searched.
	StatusQuotaExhausted Status = "quota_exhausted"
	// StatusAPIError means the search failed after retries. Other
	// categories still run.
	StatusAPIError Status = "api_error"
)

// CategoryOutcome is the per-category line in the run report.
type CategoryOutcome struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	// Detail carries the error kind for api_error outcomes.
	Detail  string `json:"detail,omitempty"`
	Results int    `json:"results"`
}

// Report summarizes one monitor run. It is built incrementally by the
// pipeline and finalized once with Finish.
type Report struct {
	RunID           string            `json:"run_id"`
	StartedAt       time.Time         `json:"started_at"`
	Duration        time.Duration     `json:"duration"`
	Categories      []CategoryOutcome `json:"categories"`
	TotalResults    int               `json:"total_results"`
	UniqueResults   int               `json:"unique_results"`
	CaptureFailures int               `json:"capture_failures"`
	BudgetRemaining int               `json:"budget_remaining"`
}

// NewID returns a fresh run identifier.
func NewID() string {
	return uuid.NewString()
}

// NewReport starts a report for the given run.
func NewReport(runID string) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
	}
}

// AddOutcome appends one category's outcome in search order.
func (r *Report) AddOutcome(name string, status Status, detail string, results int) {
	r.Categories = append(r.Categories, CategoryOutcome{
		Name:    name,
		Status:  status,
		Detail:  detail,
		Results: results,
	})
	r.TotalResults += results
}

// Outcome returns the recorded outcome for a category, or nil.
func (r *Report) Outcome(name string) *CategoryOutcome {
	for i := range r.Categories {
		if r.Categories[i].Name == name {
			return &r.Categories[i]
		}
	}
	return nil
}

// Finish stamps the total duration.
func (r *Report) Finish() {
	r.Duration = time.Since(r.StartedAt)
}
