package analyzer

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
)

func newTestFilter(detector LanguageDetector, policy string) *QualityFilter {
	checker := NewLanguageChecker(detector, []string{"nb", "nn"}, time.Second, zerolog.Nop())
	return NewQualityFilter(checker, FilterConfig{
		MinDurationMinutes:   5,
		UndeterminedLanguage: policy,
		MaxWorkers:           4,
	}, zerolog.Nop())
}

func controlEntries() []models.QAEntry {
	return []models.QAEntry{
		{QuestionText: "Kontroll 1"},
		{QuestionText: "Kontroll 2"},
		{QuestionText: "Kontroll 3"},
	}
}

func goodAssignment(id, worker string) models.Assignment {
	return models.Assignment{
		AssignmentID: id,
		WorkerID:     worker,
		Duration:     "0 days 00:12:30",
		Entries:      append(controlEntries(), goodEntry(), goodEntry()),
	}
}

func TestEvaluateApprovesCleanAssignment(t *testing.T) {
	f := newTestFilter(detectorReturning("nb", nil), UndeterminedLanguageReview)

	v := f.Evaluate(context.Background(), goodAssignment("A1", "W1"))

	if v.Decision != models.DecisionApprove {
		t.Fatalf("Decision = %s, reasons %v, want approve", v.Decision, v.Reasons)
	}
	if len(v.Reasons) != 0 {
		t.Errorf("Reasons = %v, want none", v.Reasons)
	}
	if v.DurationMinutes != 12.5 {
		t.Errorf("DurationMinutes = %v, want 12.5", v.DurationMinutes)
	}
}

func TestEvaluateRejectReasons(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *models.Assignment)
		want   models.Reason
	}{
		{
			name:   "too fast",
			mutate: func(a *models.Assignment) { a.Duration = "0 days 00:04:59" },
			want:   models.ReasonDurationTooShort,
		},
		{
			name:   "malformed duration",
			mutate: func(a *models.Assignment) { a.Duration = "soon" },
			want:   models.ReasonMalformedDuration,
		},
		{
			name: "incorrect selections",
			mutate: func(a *models.Assignment) {
				a.Entries[3].Selection = "incorrect_1"
				a.Entries[4].Selection = "incorrect_2"
			},
			want: models.ReasonTooFewCorrectAnswers,
		},
		{
			name:   "summary copied from text",
			mutate: func(a *models.Assignment) { a.Entries[4].Summary = "Opposisjonen er kritisk til forslaget" },
			want:   models.ReasonSummaryInText,
		},
		{
			name:   "short source",
			mutate: func(a *models.Assignment) { a.Entries[3].Source = "Budsjettet gir" },
			want:   models.ReasonSourceTooShort,
		},
		{
			name:   "invented source",
			mutate: func(a *models.Assignment) { a.Entries[3].Source = "Dette står ikke i artikkelen." },
			want:   models.ReasonSourceNotGrounded,
		},
	}

	f := newTestFilter(detectorReturning("nb", nil), UndeterminedLanguageReview)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := goodAssignment("A1", "W1")
			tt.mutate(&a)

			v := f.Evaluate(context.Background(), a)
			if v.Decision != models.DecisionReject {
				t.Fatalf("Decision = %s, want reject", v.Decision)
			}
			if !containsReason(v.Reasons, tt.want) {
				t.Errorf("Reasons = %v, want %s", v.Reasons, tt.want)
			}
		})
	}
}

func TestEvaluateIgnoresControlEntries(t *testing.T) {
	f := newTestFilter(detectorReturning("nb", nil), UndeterminedLanguageReview)

	a := goodAssignment("A1", "W1")
	a.Entries[0] = models.QAEntry{QuestionText: "x", Selection: "incorrect_1", Summary: "x", Source: "y"}
	a.Entries[1] = models.QAEntry{QuestionText: "x", Selection: "incorrect_1", Summary: "x", Source: "y"}

	if v := f.Evaluate(context.Background(), a); v.Decision != models.DecisionApprove {
		t.Errorf("Decision = %s, reasons %v, want approve", v.Decision, v.Reasons)
	}
}

func TestEvaluateLanguagePolicy(t *testing.T) {
	undetermined := detectorReturning("", ErrLanguageUndetermined)

	v := newTestFilter(undetermined, UndeterminedLanguageReview).Evaluate(context.Background(), goodAssignment("A1", "W1"))
	if v.Decision != models.DecisionReview {
		t.Errorf("review policy: Decision = %s, want review", v.Decision)
	}
	if v.ShouldReject() {
		t.Error("review policy must not flag the assignment for rejection")
	}

	v = newTestFilter(undetermined, UndeterminedLanguageReject).Evaluate(context.Background(), goodAssignment("A1", "W1"))
	if v.Decision != models.DecisionReject || !containsReason(v.Reasons, models.ReasonLanguageMismatch) {
		t.Errorf("reject policy: got %s %v, want reject with language_mismatch", v.Decision, v.Reasons)
	}

	v = newTestFilter(detectorReturning("sv", nil), UndeterminedLanguageReview).Evaluate(context.Background(), goodAssignment("A1", "W1"))
	if v.Decision != models.DecisionReject || !containsReason(v.Reasons, models.ReasonLanguageMismatch) {
		t.Errorf("wrong language: got %s %v, want reject with language_mismatch", v.Decision, v.Reasons)
	}
}

func TestEvaluateRejectWinsOverReview(t *testing.T) {
	f := newTestFilter(detectorReturning("", ErrLanguageUndetermined), UndeterminedLanguageReview)

	a := goodAssignment("A1", "W1")
	a.Duration = "0 days 00:01:00"

	v := f.Evaluate(context.Background(), a)
	if v.Decision != models.DecisionReject {
		t.Errorf("Decision = %s, want reject", v.Decision)
	}
}

func TestEvaluateWithoutEvaluatedEntriesIsSkipped(t *testing.T) {
	f := newTestFilter(detectorReturning("nb", nil), UndeterminedLanguageReview)

	a := models.Assignment{AssignmentID: "A1", WorkerID: "W1", Duration: "0 days 00:10:00", Entries: controlEntries()}
	v := f.Evaluate(context.Background(), a)
	if v.Decision != models.DecisionSkipped {
		t.Errorf("Decision = %s, want skipped", v.Decision)
	}
}

func TestFilterBatchIsOrderIndependentAndIdempotent(t *testing.T) {
	f := newTestFilter(detectorReturning("nb", nil), UndeterminedLanguageReview)

	var batch []models.Assignment
	for i := 0; i < 40; i++ {
		a := goodAssignment(fmt.Sprintf("A%02d", i), fmt.Sprintf("W%d", i%3))
		if i%4 == 0 {
			a.Duration = "0 days 00:02:00"
		}
		batch = append(batch, a)
	}

	first, err := f.FilterBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("FilterBatch() error: %v", err)
	}

	reversed := make([]models.Assignment, len(batch))
	for i := range batch {
		reversed[len(batch)-1-i] = batch[i]
	}
	second, err := f.FilterBatch(context.Background(), reversed)
	if err != nil {
		t.Fatalf("FilterBatch() error: %v", err)
	}

	if !reflect.DeepEqual(first.Rejected(), second.Rejected()) {
		t.Errorf("rejected sets differ: %v vs %v", first.RejectedIDs(), second.RejectedIDs())
	}
	if len(first.Rejected()) != 10 {
		t.Errorf("len(Rejected()) = %d, want 10", len(first.Rejected()))
	}
	if len(first.Verdicts) != len(batch) {
		t.Errorf("len(Verdicts) = %d, want %d", len(first.Verdicts), len(batch))
	}

	ids := first.RejectedIDs()
	if !sort.StringsAreSorted(ids) {
		t.Errorf("RejectedIDs() not sorted: %v", ids)
	}
}

func TestFilterBatchCancelled(t *testing.T) {
	f := newTestFilter(detectorReturning("nb", nil), UndeterminedLanguageReview)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.FilterBatch(ctx, []models.Assignment{goodAssignment("A1", "W1")})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
}

func TestFilterRecordsSkipsMalformed(t *testing.T) {
	f := newTestFilter(detectorReturning("nb", nil), UndeterminedLanguageReview)

	good := models.AssignmentRecord{
		AssignmentID: "A2",
		WorkerID:     "W1",
		Duration:     "0 days 00:10:00",
		QuestionsAndAnswers: []models.QARecord{
			{QuestionText: "K1"}, {QuestionText: "K2"}, {QuestionText: "K3"},
			{
				QuestionText: articleText,
				Answers: []models.AnswerRecord{
					{Answer: "correct_1"},
					{Answer: "Statsbudsjettet prioriterer skole og helse"},
					{Answer: "Budsjettet gir mer penger til skole og helse."},
				},
			},
		},
	}
	broken := models.AssignmentRecord{
		AssignmentID: "A1",
		WorkerID:     "W1",
		Duration:     "0 days 00:10:00",
		QuestionsAndAnswers: []models.QARecord{
			{QuestionText: "K1"}, {QuestionText: "K2"}, {QuestionText: "K3"},
			{QuestionText: articleText, Answers: []models.AnswerRecord{{Answer: "correct_1"}}},
		},
	}

	result, err := f.FilterRecords(context.Background(), []models.AssignmentRecord{good, broken})
	if err != nil {
		t.Fatalf("FilterRecords() error: %v", err)
	}
	if len(result.Verdicts) != 2 {
		t.Fatalf("len(Verdicts) = %d, want 2", len(result.Verdicts))
	}

	skipped, approved := result.Verdicts[0], result.Verdicts[1]
	if skipped.AssignmentID != "A1" || skipped.Decision != models.DecisionSkipped {
		t.Errorf("Verdicts[0] = %+v, want skipped A1", skipped)
	}
	if approved.AssignmentID != "A2" || approved.Decision != models.DecisionApprove {
		t.Errorf("Verdicts[1] = %+v, want approved A2", approved)
	}
	if len(result.Rejected()) != 0 {
		t.Errorf("Rejected() = %v, want empty", result.Rejected())
	}
}

func containsReason(reasons []models.Reason, want models.Reason) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func TestFilterBatchPanickingDetectorSkipsAssignments(t *testing.T) {
	detector := &MockDetector{DetectFunc: func(context.Context, string) (string, error) {
		panic("detector crashed")
	}}
	f := newTestFilter(detector, "")

	fast := goodAssignment("A1", "W1")
	fast.Duration = "0 days 00:01:00"
	batch := []models.Assignment{fast, goodAssignment("A2", "W2")}

	result, err := f.FilterBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("FilterBatch() error: %v", err)
	}
	if len(result.Verdicts) != len(batch) {
		t.Fatalf("len(Verdicts) = %d, want %d", len(result.Verdicts), len(batch))
	}
	for _, v := range result.Verdicts {
		if v.Decision != models.DecisionSkipped || !containsReason(v.Reasons, models.ReasonEvaluationFailed) {
			t.Errorf("%s: got %s %v, want skipped with evaluation_failed", v.AssignmentID, v.Decision, v.Reasons)
		}
	}
}

func TestNewQualityFilterDefaultsToRejectingUndeterminedLanguage(t *testing.T) {
	f := newTestFilter(detectorReturning("", ErrLanguageUndetermined), "")

	v := f.Evaluate(context.Background(), goodAssignment("A1", "W1"))
	if v.Decision != models.DecisionReject || !containsReason(v.Reasons, models.ReasonLanguageMismatch) {
		t.Errorf("got %s %v, want reject with language_mismatch", v.Decision, v.Reasons)
	}
}
