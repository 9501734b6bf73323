package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedPayload indicates a webhook body that could not be parsed
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrNotConfigured indicates a required external service setting is missing
	ErrNotConfigured = errors.New("not configured")
	// ErrMissingScore indicates an analysis without a numeric sentiment score
	ErrMissingScore = errors.New("analysis has no sentiment_score")
)
