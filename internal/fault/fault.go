// Package fault defines the error taxonomy shared by the scheduling
// domain. Boolean returns answer expected domain questions; these typed
// errors carry everything else, so callers can branch on the class of
// failure instead of parsing messages.
package fault

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports bad input. Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AvailabilityConflictError is a negative-but-expected outcome: the slot
// is taken or no matching staff is free. Not a system failure.
type AvailabilityConflictError struct {
	Message string
}

func (e *AvailabilityConflictError) Error() string { return e.Message }

func Conflictf(format string, args ...interface{}) error {
	return &AvailabilityConflictError{Message: fmt.Sprintf(format, args...)}
}

// DependencyNotMetError rejects a task completion whose prerequisite
// tasks are not all done. Missing lists the unsatisfied task types.
type DependencyNotMetError struct {
	Missing []string
}

func (e *DependencyNotMetError) Error() string {
	return "dependencies not met: " + strings.Join(e.Missing, ", ")
}

func DependencyNotMet(missing []string) error {
	return &DependencyNotMetError{Missing: missing}
}

// ExternalServiceError wraps a failure of an outside collaborator, most
// commonly the calendar. Compensation runs before this propagates; the
// caller may retry at the transport layer.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func External(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}

// ConsistencyError means a guarded invariant was violated anyway, for
// example two overlapping bookings surviving the exclusion constraint.
// Surfaced loudly, never swallowed.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string { return e.Message }

func Consistencyf(format string, args ...interface{}) error {
	return &ConsistencyError{Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps an error to the response code handlers should use.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		ce *AvailabilityConflictError
		de *DependencyNotMetError
		ee *ExternalServiceError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ce):
		return http.StatusConflict
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ee):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
