package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/RubachokBoss/hit-review/internal/models"
	"github.com/RubachokBoss/hit-review/internal/worker/pool"
)

const (
	UndeterminedLanguageReview = "review"
	UndeterminedLanguageReject = "reject"
)

type FilterConfig struct {
	MinDurationMinutes   float64
	UndeterminedLanguage string
	MaxWorkers           int
}

// QualityFilter decides, per assignment, whether the submitted work is rejected.
type QualityFilter struct {
	language *LanguageChecker
	config   FilterConfig
	logger   zerolog.Logger
}

func NewQualityFilter(language *LanguageChecker, config FilterConfig, logger zerolog.Logger) *QualityFilter {
	if config.UndeterminedLanguage == "" {
		config.UndeterminedLanguage = UndeterminedLanguageReject
	}
	return &QualityFilter{
		language: language,
		config:   config,
		logger:   logger,
	}
}

// Evaluate computes the verdict for a single assignment. It never mutates the assignment.
func (f *QualityFilter) Evaluate(ctx context.Context, a models.Assignment) models.Verdict {
	verdict := models.Verdict{
		AssignmentID: a.AssignmentID,
		WorkerID:     a.WorkerID,
	}

	entries := a.EvaluatedEntries()
	if len(entries) == 0 {
		verdict.Decision = models.DecisionSkipped
		verdict.Reasons = []models.Reason{models.ReasonMalformedAssignment}
		return verdict
	}

	var reasons []models.Reason

	minutes, err := ParseDurationMinutes(a.Duration)
	switch {
	case err != nil:
		f.logger.Warn().
			Err(err).
			Str("assignment_id", a.AssignmentID).
			Msg("Duration could not be parsed, treating as too short")
		reasons = append(reasons, models.ReasonMalformedDuration)
	case minutes < f.config.MinDurationMinutes:
		reasons = append(reasons, models.ReasonDurationTooShort)
	}
	verdict.DurationMinutes = minutes

	if TooFewCorrectAnswers(entries) {
		reasons = append(reasons, models.ReasonTooFewCorrectAnswers)
	}
	if SourceLeakedIntoSummary(entries) {
		reasons = append(reasons, models.ReasonSourceInSummary)
	}
	if SummaryTooShort(entries) {
		reasons = append(reasons, models.ReasonSummaryTooShort)
	}
	if SummaryLeakedFromText(entries) {
		reasons = append(reasons, models.ReasonSummaryInText)
	}
	if SourceTooShort(entries) {
		reasons = append(reasons, models.ReasonSourceTooShort)
	}

	needsReview := false
	if f.language != nil {
		lang := f.language.Check(ctx, entries)
		if lang.Mismatch {
			reasons = append(reasons, models.ReasonLanguageMismatch)
		}
		if lang.Undetermined {
			if f.config.UndeterminedLanguage == UndeterminedLanguageReject {
				if !lang.Mismatch {
					reasons = append(reasons, models.ReasonLanguageMismatch)
				}
			} else {
				needsReview = true
			}
		}
	}

	if !SourceGroundedInText(entries) {
		reasons = append(reasons, models.ReasonSourceNotGrounded)
	}

	switch {
	case len(reasons) > 0:
		verdict.Decision = models.DecisionReject
	case needsReview:
		verdict.Decision = models.DecisionReview
		reasons = append(reasons, models.ReasonLanguageUndetermined)
	default:
		verdict.Decision = models.DecisionApprove
	}
	verdict.Reasons = reasons

	return verdict
}

// evaluateSafely is Evaluate for pool tasks. A panic while evaluating yields a
// skipped verdict so the assignment is never silently dropped from the batch.
func (f *QualityFilter) evaluateSafely(ctx context.Context, a models.Assignment) (verdict models.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().
				Interface("panic", r).
				Str("assignment_id", a.AssignmentID).
				Str("worker_id", a.WorkerID).
				Msg("Assignment evaluation panicked, skipping")
			verdict = models.Verdict{
				AssignmentID: a.AssignmentID,
				WorkerID:     a.WorkerID,
				Decision:     models.DecisionSkipped,
				Reasons:      []models.Reason{models.ReasonEvaluationFailed},
			}
		}
	}()
	return f.Evaluate(ctx, a)
}

// SkippedVerdict is the verdict for a record that could not be decoded.
func SkippedVerdict(record models.AssignmentRecord) models.Verdict {
	return models.Verdict{
		AssignmentID: record.AssignmentID,
		WorkerID:     record.WorkerID,
		Decision:     models.DecisionSkipped,
		Reasons:      []models.Reason{models.ReasonMalformedAssignment},
	}
}

// BatchResult holds the verdicts of one batch, ordered by assignment ID.
type BatchResult struct {
	Verdicts []models.Verdict
}

// Rejected returns the set of assignment IDs flagged for rejection.
func (r *BatchResult) Rejected() map[string]struct{} {
	set := make(map[string]struct{})
	for _, v := range r.Verdicts {
		if v.ShouldReject() {
			set[v.AssignmentID] = struct{}{}
		}
	}
	return set
}

// RejectedIDs returns the rejected assignment IDs in sorted order.
func (r *BatchResult) RejectedIDs() []string {
	return lo.FilterMap(r.Verdicts, func(v models.Verdict, _ int) (string, bool) {
		return v.AssignmentID, v.ShouldReject()
	})
}

// FilterBatch evaluates the assignments over a bounded worker pool.
// On cancellation it returns the context error and no result.
func (f *QualityFilter) FilterBatch(ctx context.Context, assignments []models.Assignment) (*BatchResult, error) {
	wp := pool.NewWorkerPool(f.config.MaxWorkers, f.logger)
	if err := wp.Start(ctx); err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		verdicts = make([]models.Verdict, 0, len(assignments))
	)

	var submitErr error
	for _, a := range assignments {
		a := a
		if err := wp.Submit(ctx, func() {
			if ctx.Err() != nil {
				return
			}
			v := f.evaluateSafely(ctx, a)
			mu.Lock()
			verdicts = append(verdicts, v)
			mu.Unlock()
		}); err != nil {
			submitErr = err
			break
		}
	}

	_ = wp.Stop()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if submitErr != nil && !errors.Is(submitErr, context.Canceled) {
		return nil, submitErr
	}

	if len(verdicts) != len(assignments) {
		return nil, fmt.Errorf("evaluated %d of %d assignments", len(verdicts), len(assignments))
	}

	sortVerdicts(verdicts)
	return &BatchResult{Verdicts: verdicts}, nil
}

// FilterRecords decodes records and filters them. Records that cannot be decoded
// are logged and reported as skipped, never approved.
func (f *QualityFilter) FilterRecords(ctx context.Context, records []models.AssignmentRecord) (*BatchResult, error) {
	assignments := make([]models.Assignment, 0, len(records))
	var skipped []models.Verdict

	for _, record := range records {
		a, err := record.ToAssignment()
		if err != nil {
			f.logger.Warn().
				Err(err).
				Str("assignment_id", record.AssignmentID).
				Msg("Skipping malformed assignment")
			skipped = append(skipped, SkippedVerdict(record))
			continue
		}
		assignments = append(assignments, a)
	}

	result, err := f.FilterBatch(ctx, assignments)
	if err != nil {
		return nil, err
	}

	result.Verdicts = append(result.Verdicts, skipped...)
	sortVerdicts(result.Verdicts)
	return result, nil
}

func sortVerdicts(verdicts []models.Verdict) {
	sort.SliceStable(verdicts, func(i, j int) bool {
		return verdicts[i].AssignmentID < verdicts[j].AssignmentID
	})
}
