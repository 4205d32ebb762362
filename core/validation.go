package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateEntity validates an Entity against the report text it was taken from.
//
// Validation rules:
//   - Category must not be empty
//   - 0 <= Start < End <= len(text)
//   - Start and End must fall on character boundaries
//   - Text must equal text[Start:End]
func ValidateEntity(entity Entity, text string) error {
	if entity.Category == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyCategory)
	}

	if entity.Start < 0 || entity.End > len(text) || entity.Start >= entity.End {
		return fmt.Errorf("%w: %w: [%d,%d) in %d bytes", ErrInvalidEntity, ErrInvalidSpan,
			entity.Start, entity.End, len(text))
	}

	if !IsBoundary(text, entity.Start) || !IsBoundary(text, entity.End) {
		return fmt.Errorf("%w: %w: [%d,%d) splits a character", ErrInvalidEntity, ErrInvalidSpan,
			entity.Start, entity.End)
	}

	if text[entity.Start:entity.End] != entity.Text {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrSpanMismatch)
	}

	return nil
}

// ValidateReport checks the invariants every returned report must hold:
// a disclaimer is attached and every entity is a valid span of text, the
// report's original input.
func ValidateReport(report *StructuredReport, text string) error {
	if report == nil {
		return fmt.Errorf("%w: report is nil", ErrInvalidEntity)
	}
	if strings.TrimSpace(report.Disclaimer) == "" {
		return ErrMissingDisclaimer
	}
	for i, e := range report.Entities {
		if err := ValidateEntity(e, text); err != nil {
			return fmt.Errorf("entity %d: %w", i, err)
		}
	}
	return nil
}

// IsBoundary reports whether pos is a valid character boundary in text.
func IsBoundary(text string, pos int) bool {
	if pos == 0 || pos == len(text) {
		return true
	}
	if pos < 0 || pos > len(text) {
		return false
	}
	return utf8.RuneStart(text[pos])
}
