package application

import (
	"errors"
	"fmt"

	"github.com/example/meeting-room-reservation/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when no valid session backs the request.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrPermission is returned when the acting principal may not touch the reservation.
	ErrPermission = errors.New("application: permission denied")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when the candidate interval overlaps a stored reservation.
	ErrConflict = errors.New("application: time slot is already reserved")
	// ErrInternal wraps persistence and infrastructure failures.
	ErrInternal = errors.New("application: internal error")
	// ErrInvalidCredentials is returned when login credentials do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions ended by logout.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures a bad request: missing or malformed fields, or a
// violated time rule. Rule is set when the time-rule validator rejected the
// interval.
type ValidationError struct {
	Rule        scheduler.Rule
	Message     string
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.Message != "" {
		return v.Message
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && (len(v.FieldErrors) > 0 || v.Rule != "")
}

// add records a field level validation error. The first message becomes the
// summary.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
	if v.Message == "" {
		v.Message = message
	}
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil {
		return
	}
	if v.Rule == "" {
		v.Rule = other.Rule
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
	if v.Message == "" {
		v.Message = other.Message
	}
}

func ruleError(violation *scheduler.RuleViolation) *ValidationError {
	vErr := &ValidationError{Rule: violation.Rule}
	vErr.add(violation.Field, violation.Message)
	return vErr
}

func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
