package gh

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrNotFound is returned when a single-entity fetch matches nothing.
	ErrNotFound = errors.New("repository not found")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (other than 429).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 secondary rate limit responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassGraphQL represents errors reported inside a 200 response,
	// e.g. query-complexity rejections. Never retried.
	ErrorClassGraphQL ErrorClass = "graphql"
)

// APIError represents a GitHub API error with additional context.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("github %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassClient:
		// 4xx errors are not transient
		return false
	case ErrorClassServer:
		// 502/504 and friends are transient
		return true
	case ErrorClassRateLimit:
		// 429 clears after the server-indicated backoff
		return true
	case ErrorClassNetwork:
		// timeouts are treated like 502/504
		return true
	case ErrorClassGraphQL:
		// query-complexity and schema errors repeat deterministically
		return false
	default:
		return false
	}
}

// classOf extracts the error class of err, defaulting to network for plain
// transport errors.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ErrorClassNetwork
}
