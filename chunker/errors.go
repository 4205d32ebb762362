package chunker

import "errors"

var (
	// ErrInvalidLimits indicates chunk size or overlap values that cannot be satisfied.
	ErrInvalidLimits = errors.New("invalid chunk limits")

	// ErrOutOfRange indicates a span outside the normalized text.
	ErrOutOfRange = errors.New("span out of range")

	// ErrTokenizer indicates the tokenizer could not be loaded.
	ErrTokenizer = errors.New("tokenizer unavailable")
)
