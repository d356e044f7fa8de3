package models

import "time"

// Data Transfer Objects

type RunReviewRequest struct {
	DryRun           bool   `json:"dry_run"`
	ApplyMarketplace bool   `json:"apply_marketplace"`
	Organize         bool   `json:"organize"`
	RequestedBy      string `json:"requested_by,omitempty"`
}

type ReviewRunResponse struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	DryRun      bool       `json:"dry_run"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Approved    int        `json:"approved"`
	Rejected    int        `json:"rejected"`
	NeedsReview int        `json:"needs_review"`
	Skipped     int        `json:"skipped"`
	Banned      int        `json:"banned"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ListRunsResponse struct {
	Runs   []ReviewRunResponse `json:"runs"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

type EvaluateAssignmentResponse struct {
	AssignmentID    string   `json:"assignment_id"`
	WorkerID        string   `json:"worker_id"`
	Decision        string   `json:"decision"`
	Reject          bool     `json:"reject"`
	Reasons         []Reason `json:"reasons,omitempty"`
	DurationMinutes float64  `json:"duration_minutes"`
}

type HealthCheckResponse struct {
	Status        string    `json:"status"`
	Database      bool      `json:"database"`
	RabbitMQ      bool      `json:"rabbitmq"`
	Store         string    `json:"store"`
	ActiveWorkers int       `json:"active_workers"`
	QueueLength   int       `json:"queue_length"`
	Uptime        string    `json:"uptime"`
	Timestamp     time.Time `json:"timestamp"`
}
