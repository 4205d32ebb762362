package pipeline

import "errors"

var (
	// ErrModelsRequired is returned when a pipeline is created without a model source.
	ErrModelsRequired = errors.New("model registry required")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid pipeline config")

	// ErrUnknownDedupPolicy is returned when parsing an unknown policy name.
	ErrUnknownDedupPolicy = errors.New("unknown dedup policy")
)
