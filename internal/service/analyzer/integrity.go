package analyzer

import (
	"strings"
	"unicode/utf8"

	"github.com/RubachokBoss/hit-review/internal/models"
)

const (
	// Every worker starts from the three control answers counted as correct.
	baselineCorrectAnswers = 3
	minCorrectAnswers      = 2
	incorrectTag           = "incorrect"

	MinSummaryLength = 20
	MinSourceLength  = 15

	// Share of "."-separated source fragments that must occur verbatim in the article.
	groundingThreshold = 0.95
)

// The predicates below take the evaluated entries of one assignment
// (Assignment.EvaluatedEntries) and hold no state between calls.

// TooFewCorrectAnswers reports whether the worker failed the comprehension checks.
func TooFewCorrectAnswers(entries []models.QAEntry) bool {
	correct := baselineCorrectAnswers
	for _, e := range entries {
		if e.SelectionTag() == incorrectTag {
			correct--
		}
	}
	return correct < minCorrectAnswers
}

// SourceLeakedIntoSummary reports whether any summary contains its source excerpt.
func SourceLeakedIntoSummary(entries []models.QAEntry) bool {
	for _, e := range entries {
		if strings.Contains(e.Summary, e.Source) {
			return true
		}
	}
	return false
}

// SourceGroundedInText reports whether every source excerpt originates from its article.
// An assignment is rejected when this is false.
func SourceGroundedInText(entries []models.QAEntry) bool {
	for _, e := range entries {
		if GroundingFraction(e.Source, e.QuestionText) < groundingThreshold {
			return false
		}
	}
	return true
}

// GroundingFraction splits source on "." and returns the share of fragments
// found verbatim in text. Empty fragments count as found.
func GroundingFraction(source, text string) float64 {
	fragments := strings.Split(source, ".")
	found := 0
	for _, fragment := range fragments {
		if strings.Contains(text, fragment) {
			found++
		}
	}
	return float64(found) / float64(len(fragments))
}

// SummaryLeakedFromText reports whether any summary was copied verbatim from the article.
func SummaryLeakedFromText(entries []models.QAEntry) bool {
	for _, e := range entries {
		if strings.Contains(e.QuestionText, e.Summary) {
			return true
		}
	}
	return false
}

func SummaryTooShort(entries []models.QAEntry) bool {
	for _, e := range entries {
		if utf8.RuneCountInString(e.Summary) < MinSummaryLength {
			return true
		}
	}
	return false
}

func SourceTooShort(entries []models.QAEntry) bool {
	for _, e := range entries {
		if utf8.RuneCountInString(e.Source) < MinSourceLength {
			return true
		}
	}
	return false
}
