package models

import (
	"time"
)

type ReviewRun struct {
	ID          string     `json:"id" db:"id"`
	Source      string     `json:"source" db:"source"`
	DryRun      bool       `json:"dry_run" db:"dry_run"`
	Status      string     `json:"status" db:"status"`
	Total       int        `json:"total" db:"total"`
	Approved    int        `json:"approved" db:"approved"`
	Rejected    int        `json:"rejected" db:"rejected"`
	NeedsReview int        `json:"needs_review" db:"needs_review"`
	Skipped     int        `json:"skipped" db:"skipped"`
	Banned      int        `json:"banned" db:"banned"`
	Error       *string    `json:"error,omitempty" db:"error"`
	RequestedBy string     `json:"requested_by,omitempty" db:"requested_by"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

func (rs RunStatus) String() string {
	return string(rs)
}

// Tally updates the per-decision counters from verdicts.
func (r *ReviewRun) Tally(verdicts []Verdict) {
	r.Total = len(verdicts)
	r.Approved, r.Rejected, r.NeedsReview, r.Skipped = 0, 0, 0, 0
	for _, v := range verdicts {
		switch v.Decision {
		case DecisionApprove:
			r.Approved++
		case DecisionReject:
			r.Rejected++
		case DecisionReview:
			r.NeedsReview++
		case DecisionSkipped:
			r.Skipped++
		}
	}
}

// DecisionRecord is a persisted verdict together with what was applied for it.
type DecisionRecord struct {
	RunID        string    `json:"run_id" db:"run_id"`
	AssignmentID string    `json:"assignment_id" db:"assignment_id"`
	WorkerID     string    `json:"worker_id" db:"worker_id"`
	Decision     string    `json:"decision" db:"decision"`
	Reasons      []string  `json:"reasons,omitempty" db:"reasons"`
	Duration     float64   `json:"duration_minutes" db:"duration_minutes"`
	Marketplace  bool      `json:"marketplace_applied" db:"marketplace_applied"`
	Organized    bool      `json:"organized" db:"organized"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type BanRecord struct {
	RunID     string    `json:"run_id" db:"run_id"`
	WorkerID  string    `json:"worker_id" db:"worker_id"`
	FastCount int       `json:"fast_count" db:"fast_count"`
	Blocked   bool      `json:"blocked" db:"blocked"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ReviewRequest selects which side effects a review run applies.
type ReviewRequest struct {
	DryRun           bool   `json:"dry_run"`
	ApplyMarketplace bool   `json:"apply_marketplace"`
	Organize         bool   `json:"organize"`
	RequestedBy      string `json:"requested_by,omitempty"`
}
