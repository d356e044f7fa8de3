package analyzer

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
)

// ErrLanguageUndetermined is returned by detectors that cannot name a language for a text.
var ErrLanguageUndetermined = errors.New("language could not be determined")

// LanguageDetector identifies the language of a text as a lowercase ISO 639-1 code.
// Implementations must be deterministic for a fixed configuration.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) (string, error)
}

type linguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over all spoken languages.
// minRelativeDistance > 0 makes the detector refuse ambiguous texts.
func NewLinguaDetector(minRelativeDistance float64) LanguageDetector {
	builder := lingua.NewLanguageDetectorBuilder().FromAllSpokenLanguages()
	if minRelativeDistance > 0 {
		builder = builder.WithMinimumRelativeDistance(minRelativeDistance)
	}
	return &linguaDetector{detector: builder.Build()}
}

type detection struct {
	language lingua.Language
	ok       bool
}

// Detect runs the detector in its own goroutine so ctx can abandon a slow call.
// An abandoned call finishes in the background and its result is discarded.
func (d *linguaDetector) Detect(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan detection, 1)
	go func() {
		language, ok := d.detector.DetectLanguageOf(text)
		done <- detection{language: language, ok: ok}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if !r.ok {
			return "", ErrLanguageUndetermined
		}
		return strings.ToLower(r.language.IsoCode639_1().String()), nil
	}
}

// LanguageResult is the outcome of a language check over one assignment.
type LanguageResult struct {
	// Mismatch is set when some text was identified as an unexpected language.
	Mismatch bool
	// Undetermined is set when the detector failed for some text.
	Undetermined bool
}

type LanguageChecker struct {
	detector LanguageDetector
	expected map[string]struct{}
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewLanguageChecker(detector LanguageDetector, expected []string, timeout time.Duration, logger zerolog.Logger) *LanguageChecker {
	set := make(map[string]struct{}, len(expected))
	for _, code := range expected {
		set[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
	}
	return &LanguageChecker{
		detector: detector,
		expected: set,
		timeout:  timeout,
		logger:   logger,
	}
}

// Check runs language identification over every evaluated summary and source
// that is long enough and contains a letter.
func (c *LanguageChecker) Check(ctx context.Context, entries []models.QAEntry) LanguageResult {
	var result LanguageResult
	for _, e := range entries {
		c.checkText(ctx, e.Summary, MinSummaryLength, &result)
		c.checkText(ctx, e.Source, MinSourceLength, &result)
	}
	return result
}

func (c *LanguageChecker) checkText(ctx context.Context, text string, minLength int, result *LanguageResult) {
	if !suitableForDetection(text, minLength) {
		return
	}

	detectCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		detectCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	code, err := c.detector.Detect(detectCtx, text)
	if err != nil {
		c.logger.Debug().Err(err).Int("text_length", len(text)).Msg("Language detection failed")
		result.Undetermined = true
		return
	}

	if _, ok := c.expected[code]; !ok {
		result.Mismatch = true
	}
}

func suitableForDetection(text string, minLength int) bool {
	if utf8.RuneCountInString(text) < minLength {
		return false
	}
	return strings.IndexFunc(text, unicode.IsLetter) >= 0
}
