package models

import (
	"time"
)

type ReviewRequestedEvent struct {
	ReviewRequest
	Timestamp int64 `json:"timestamp"`
}

type AssignmentDecidedEvent struct {
	RunID        string    `json:"run_id"`
	AssignmentID string    `json:"assignment_id"`
	WorkerID     string    `json:"worker_id"`
	Decision     string    `json:"decision"`
	Reasons      []string  `json:"reasons,omitempty"`
	DecidedAt    time.Time `json:"decided_at"`
}

type WorkerBannedEvent struct {
	RunID     string    `json:"run_id"`
	WorkerID  string    `json:"worker_id"`
	FastCount int       `json:"fast_count"`
	BannedAt  time.Time `json:"banned_at"`
}

type ReviewCompletedEvent struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	Total       int       `json:"total"`
	Approved    int       `json:"approved"`
	Rejected    int       `json:"rejected"`
	NeedsReview int       `json:"needs_review"`
	Skipped     int       `json:"skipped"`
	Banned      int       `json:"banned"`
	CompletedAt time.Time `json:"completed_at"`
}
