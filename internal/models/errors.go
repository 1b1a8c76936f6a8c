package models

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when an operation needs a signed-in user and there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

// NetworkError is a transport-level failure talking to an external service.
type NetworkError struct {
	Service string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Service, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError is a non-success answer from the scan, identity or storage service.
type ServiceError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Message)
}

// ValidationError reports malformed user input. It is raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// UnexpectedStateError is raised when the scan service reports a status we cannot act on.
type UnexpectedStateError struct {
	AnalysisID string
	Status     string
}

func (e *UnexpectedStateError) Error() string {
	return fmt.Sprintf("analysis %s reported unexpected status %q", e.AnalysisID, e.Status)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
