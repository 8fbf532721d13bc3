package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/meeting-room-reservation/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{}
	withFields.add("title", "Missing required field: title")
	withFields.add("date", "Missing required field: date")
	if got := withFields.Error(); got != "Missing required field: title" {
		t.Fatalf("expected first message as summary, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	if !(&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
	if !(&ValidationError{Rule: scheduler.RuleWeekday}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when a rule is set")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	base.add("first", "ignored")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected first message to stick, got %q", got)
	}

	other := &ValidationError{Rule: scheduler.RuleOrdering, FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}
	if base.Rule != scheduler.RuleOrdering {
		t.Fatalf("expected merge to copy rule, got %q", base.Rule)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestRuleError_NamesRule(t *testing.T) {
	t.Parallel()

	vErr := ruleError(&scheduler.RuleViolation{Rule: scheduler.RuleEndWindow, Field: scheduler.FieldEnd, Message: "end time must be between 09:15 and 18:00 (got 09:00)"})
	if vErr.Rule != scheduler.RuleEndWindow {
		t.Fatalf("expected rule to be carried, got %q", vErr.Rule)
	}
	if vErr.FieldErrors[scheduler.FieldEnd] == "" {
		t.Fatal("expected field message")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":             nil,
		"permission":   ErrPermission,
		"not_found":    fmt.Errorf("wrap: %w", ErrNotFound),
		"conflict":     fmt.Errorf("%w (reservation 3)", ErrConflict),
		"internal":     internalError("op", errors.New("disk")),
		"validation":   &ValidationError{},
		"unauthorized": ErrUnauthorized,
		"unexpected":   errors.New("other"),
	}
	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
