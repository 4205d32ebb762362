package core

import "errors"

// Processing errors
var (
	// ErrInputTooLarge indicates the input exceeds the configured size ceiling.
	// Callers recover by shortening the input; it is never retried internally.
	ErrInputTooLarge = errors.New("input too large")

	// ErrModelUnavailable indicates a model could not be initialized.
	// It is fatal for the process and is not retried.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInferenceFailure indicates a model call failed for a single chunk.
	// It never crosses the pipeline boundary; it is recorded in the report instead.
	ErrInferenceFailure = errors.New("inference failure")
)

// Domain validation errors
var (
	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidSpan indicates entity offsets are out of range or not on character boundaries.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrSpanMismatch indicates the entity text does not match the report text at its offsets.
	ErrSpanMismatch = errors.New("entity text does not match span")

	// ErrEmptyCategory indicates the entity Category field is empty.
	ErrEmptyCategory = errors.New("entity category cannot be empty")

	// ErrMissingDisclaimer indicates a report without its disclaimer.
	ErrMissingDisclaimer = errors.New("report disclaimer cannot be empty")
)
