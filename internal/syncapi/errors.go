package syncapi

import (
	"errors"
	"fmt"
)

// ErrGenerationNotFound is returned when the remote service has no
// generation for the requested id.
var ErrGenerationNotFound = errors.New("generation not found")

// ErrPollTimeout is returned by Wait when the generation did not reach a
// terminal status within the configured budget.
var ErrPollTimeout = errors.New("generation poll timed out")

// APIError carries a non-2xx response from the sync API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sync api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("sync api: %d: %s", e.StatusCode, e.Message)
}

// PermanentError marks an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsNotFound reports whether err represents a missing generation, either as
// the sentinel or as a 404 APIError.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrGenerationNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
