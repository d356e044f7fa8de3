package models

import (
	"encoding/json"
	"errors"
	"testing"
)

const recordJSON = `{
	"AssignmentId": "3P1L2B7ADL3X983QCX1X5IHFGK7LOQ",
	"WorkerId": "A1B2C3",
	"HITId": "H1",
	"Duration": "0 days 00:13:14",
	"QuestionsAndAnswers": [
		{"QuestionText": "K1", "Answers": [{"Question ID": "q1", "Answer": "a"}]},
		{"QuestionText": "K2", "Answers": []},
		{"QuestionText": "K3", "Answers": []},
		{"QuestionText": "Artikkel", "Answers": [
			{"Question ID": "choice", "Answer": "incorrect_2_1"},
			{"Question ID": "summary", "Answer": "Et sammendrag"},
			{"Question ID": "source", "Answer": "En kilde"}
		]}
	]
}`

func TestAssignmentRecordToAssignment(t *testing.T) {
	var record AssignmentRecord
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	a, err := record.ToAssignment()
	if err != nil {
		t.Fatalf("ToAssignment() error: %v", err)
	}

	if a.AssignmentID != "3P1L2B7ADL3X983QCX1X5IHFGK7LOQ" || a.WorkerID != "A1B2C3" {
		t.Errorf("ids = %q/%q", a.AssignmentID, a.WorkerID)
	}

	evaluated := a.EvaluatedEntries()
	if len(evaluated) != 1 {
		t.Fatalf("len(EvaluatedEntries()) = %d, want 1", len(evaluated))
	}

	e := evaluated[0]
	if e.QuestionText != "Artikkel" || e.Summary != "Et sammendrag" || e.Source != "En kilde" {
		t.Errorf("entry = %+v", e)
	}
	if e.SelectionTag() != "incorrect" {
		t.Errorf("SelectionTag() = %q, want incorrect", e.SelectionTag())
	}
}

func TestAssignmentRecordMalformed(t *testing.T) {
	controls := []QARecord{{QuestionText: "K1"}, {QuestionText: "K2"}, {QuestionText: "K3"}}
	full := QARecord{QuestionText: "T", Answers: []AnswerRecord{{Answer: "a"}, {Answer: "b"}, {Answer: "c"}}}

	tests := []struct {
		name   string
		record AssignmentRecord
	}{
		{"missing assignment id", AssignmentRecord{WorkerID: "W", QuestionsAndAnswers: append(controls, full)}},
		{"missing worker id", AssignmentRecord{AssignmentID: "A", QuestionsAndAnswers: append(controls, full)}},
		{"only control entries", AssignmentRecord{AssignmentID: "A", WorkerID: "W", QuestionsAndAnswers: controls}},
		{"too few answers", AssignmentRecord{AssignmentID: "A", WorkerID: "W", QuestionsAndAnswers: append(controls,
			QARecord{QuestionText: "T", Answers: []AnswerRecord{{Answer: "a"}, {Answer: "b"}}})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.record.ToAssignment()
			var malformed *MalformedAssignmentError
			if !errors.As(err, &malformed) {
				t.Errorf("error = %v, want MalformedAssignmentError", err)
			}
		})
	}
}

func TestReviewRunTally(t *testing.T) {
	run := &ReviewRun{}
	run.Tally([]Verdict{
		{Decision: DecisionApprove},
		{Decision: DecisionApprove},
		{Decision: DecisionReject},
		{Decision: DecisionReview},
		{Decision: DecisionSkipped},
	})

	if run.Total != 5 || run.Approved != 2 || run.Rejected != 1 || run.NeedsReview != 1 || run.Skipped != 1 {
		t.Errorf("Tally() = %+v", run)
	}
}
