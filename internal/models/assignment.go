package models

import (
	"fmt"
	"strings"
)

// ControlEntryCount is the number of leading QA entries that are fixed
// qualification items. Content checks always start after them.
const ControlEntryCount = 3

// Answer slot positions inside a raw QA record.
const (
	selectionSlot = iota
	summarySlot
	sourceSlot

	answerSlotCount
)

// Assignment is one worker's completed HIT assignment.
//
// Entries[0:ControlEntryCount] are control entries and are never content-checked;
// use EvaluatedEntries for everything else.
type Assignment struct {
	AssignmentID string
	WorkerID     string
	Duration     string
	Entries      []QAEntry
}

// EvaluatedEntries returns the entries subject to content checks.
func (a Assignment) EvaluatedEntries() []QAEntry {
	if len(a.Entries) <= ControlEntryCount {
		return nil
	}
	return a.Entries[ControlEntryCount:]
}

// QAEntry is one article shown to the worker together with the worker's answers.
type QAEntry struct {
	QuestionText string
	// Selection is the multiple-choice identifier, e.g. "correct_1_2".
	Selection string
	Summary   string
	Source    string
}

// SelectionTag returns the selection identifier up to the first underscore.
func (e QAEntry) SelectionTag() string {
	tag, _, _ := strings.Cut(e.Selection, "_")
	return tag
}

// AssignmentRecord is the stored JSON shape of an assignment.
type AssignmentRecord struct {
	AssignmentID        string     `json:"AssignmentId"`
	WorkerID            string     `json:"WorkerId"`
	HITID               string     `json:"HITId,omitempty"`
	AssignmentStatus    string     `json:"AssignmentStatus,omitempty"`
	AcceptTime          string     `json:"AcceptTime,omitempty"`
	SubmitTime          string     `json:"SubmitTime,omitempty"`
	Duration            string     `json:"Duration"`
	QuestionsAndAnswers []QARecord `json:"QuestionsAndAnswers"`
}

type QARecord struct {
	QuestionText string         `json:"QuestionText"`
	Answers      []AnswerRecord `json:"Answers"`
}

type AnswerRecord struct {
	QuestionID string `json:"Question ID,omitempty"`
	Answer     string `json:"Answer"`
}

// MalformedAssignmentError reports a record that cannot be evaluated.
type MalformedAssignmentError struct {
	AssignmentID string
	Reason       string
}

func (e *MalformedAssignmentError) Error() string {
	if e.AssignmentID == "" {
		return fmt.Sprintf("malformed assignment: %s", e.Reason)
	}
	return fmt.Sprintf("malformed assignment %s: %s", e.AssignmentID, e.Reason)
}

// ToAssignment converts the stored shape into a typed Assignment.
func (r AssignmentRecord) ToAssignment() (Assignment, error) {
	malformed := func(format string, args ...interface{}) error {
		return &MalformedAssignmentError{AssignmentID: r.AssignmentID, Reason: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(r.AssignmentID) == "" {
		return Assignment{}, malformed("empty AssignmentId")
	}
	if strings.TrimSpace(r.WorkerID) == "" {
		return Assignment{}, malformed("empty WorkerId")
	}
	if len(r.QuestionsAndAnswers) <= ControlEntryCount {
		return Assignment{}, malformed("expected more than %d QA entries, got %d", ControlEntryCount, len(r.QuestionsAndAnswers))
	}

	entries := make([]QAEntry, 0, len(r.QuestionsAndAnswers))
	for i, qa := range r.QuestionsAndAnswers {
		entry := QAEntry{QuestionText: qa.QuestionText}
		if i >= ControlEntryCount {
			if len(qa.Answers) < answerSlotCount {
				return Assignment{}, malformed("entry %d has %d answers, expected %d", i, len(qa.Answers), answerSlotCount)
			}
			entry.Selection = qa.Answers[selectionSlot].Answer
			entry.Summary = qa.Answers[summarySlot].Answer
			entry.Source = qa.Answers[sourceSlot].Answer
		}
		entries = append(entries, entry)
	}

	return Assignment{
		AssignmentID: r.AssignmentID,
		WorkerID:     r.WorkerID,
		Duration:     r.Duration,
		Entries:      entries,
	}, nil
}
