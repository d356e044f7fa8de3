package models

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionReview  Decision = "review"
	DecisionSkipped Decision = "skipped"
)

func (d Decision) String() string {
	return string(d)
}

type Reason string

const (
	ReasonDurationTooShort     Reason = "duration_too_short"
	ReasonMalformedDuration    Reason = "malformed_duration"
	ReasonTooFewCorrectAnswers Reason = "too_few_correct_answers"
	ReasonSourceInSummary      Reason = "source_in_summary"
	ReasonSummaryTooShort      Reason = "summary_too_short"
	ReasonSummaryInText        Reason = "summary_in_text"
	ReasonSourceTooShort       Reason = "source_too_short"
	ReasonLanguageMismatch     Reason = "language_mismatch"
	ReasonLanguageUndetermined Reason = "language_undetermined"
	ReasonSourceNotGrounded    Reason = "source_not_grounded"
	ReasonMalformedAssignment  Reason = "malformed_assignment"
	ReasonEvaluationFailed     Reason = "evaluation_failed"
)

// Verdict is the filter outcome for one assignment.
type Verdict struct {
	AssignmentID    string   `json:"assignment_id"`
	WorkerID        string   `json:"worker_id"`
	Decision        Decision `json:"decision"`
	Reasons         []Reason `json:"reasons,omitempty"`
	DurationMinutes float64  `json:"duration_minutes"`
}

// ShouldReject reports whether the assignment is flagged for rejection.
func (v Verdict) ShouldReject() bool {
	return v.Decision == DecisionReject
}

// BanDecision is a worker flagged by the reputation aggregator.
type BanDecision struct {
	WorkerID  string `json:"worker_id"`
	FastCount int    `json:"fast_count"`
}
