package contract

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrUnknownDomain       = errors.New("unknown specialist domain")
	ErrUpstreamUnavailable = errors.New("text generation upstream unavailable")
	ErrUpstreamTimeout     = errors.New("text generation upstream timed out")
	ErrSchemaViolation     = errors.New("model response violates schema")
	ErrPromptMissing       = errors.New("required prompt is missing")
)
