package scheduler

import (
	"fmt"
	"time"
)

// Rule names a single admissibility rule for a reservation interval.
type Rule string

const (
	// RuleWeekday requires the date, start and end to fall on Monday through Friday.
	RuleWeekday Rule = "weekday"
	// RuleStartWindow requires 09:00 <= start < 18:00.
	RuleStartWindow Rule = "start_window"
	// RuleEndWindow requires 09:00 < end <= 18:00.
	RuleEndWindow Rule = "end_window"
	// RuleQuantization requires minutes in {0, 15, 30, 45} and zero seconds.
	RuleQuantization Rule = "quantization"
	// RuleOrdering requires start strictly before end.
	RuleOrdering Rule = "ordering"
	// RuleSameDay requires start and end on the reservation date.
	RuleSameDay Rule = "same_day"
)

const (
	// OpeningMinute is 09:00 expressed as minutes since midnight.
	OpeningMinute = 9 * 60
	// ClosingMinute is 18:00 expressed as minutes since midnight.
	ClosingMinute = 18 * 60
	// SlotMinutes is the reservation granularity.
	SlotMinutes = 15
)

// Field names reported with a violation. They match the wire field names.
const (
	FieldDate  = "date"
	FieldStart = "start_datetime"
	FieldEnd   = "end_datetime"
)

// RuleViolation reports the first rule a candidate interval breaks.
type RuleViolation struct {
	Rule    Rule
	Field   string
	Message string
}

func (v *RuleViolation) Error() string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", v.Rule, v.Message)
}

func violation(rule Rule, field, format string, args ...any) *RuleViolation {
	return &RuleViolation{Rule: rule, Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateWeekday rejects Saturdays and Sundays. Holidays are not modelled.
func ValidateWeekday(field string, t time.Time) error {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return violation(RuleWeekday, field, "reservations are only allowed Monday to Friday (%s is a %s)", t.Format(time.DateOnly), t.Weekday())
	}
	return nil
}

// ValidateStart checks a start time: weekday, 09:00 <= t < 18:00, quarter-hour.
func ValidateStart(start time.Time) error {
	if err := ValidateWeekday(FieldStart, start); err != nil {
		return err
	}
	m := minuteOfDay(start)
	if m < OpeningMinute || m >= ClosingMinute {
		return violation(RuleStartWindow, FieldStart, "start time must be between 09:00 and 17:45 (got %s)", start.Format("15:04"))
	}
	return validateQuantized(FieldStart, start)
}

// ValidateEnd checks an end time: weekday, 09:00 < t <= 18:00, quarter-hour.
// An end of exactly 09:00 is rejected and 18:00 is accepted, the mirror image
// of ValidateStart.
func ValidateEnd(end time.Time) error {
	if err := ValidateWeekday(FieldEnd, end); err != nil {
		return err
	}
	m := minuteOfDay(end)
	if m <= OpeningMinute || m > ClosingMinute {
		return violation(RuleEndWindow, FieldEnd, "end time must be between 09:15 and 18:00 (got %s)", end.Format("15:04"))
	}
	return validateQuantized(FieldEnd, end)
}

// Validate reports the first violated rule for the (date, start, end) triple,
// or nil when the interval is admissible. It has no side effects.
func Validate(date, start, end time.Time) error {
	if v := ValidateAll(date, start, end); len(v) > 0 {
		return v[0]
	}
	return nil
}

// ValidateAll returns every violated rule in evaluation order.
func ValidateAll(date, start, end time.Time) []*RuleViolation {
	var out []*RuleViolation
	add := func(err error) {
		if err == nil {
			return
		}
		if v, ok := err.(*RuleViolation); ok {
			out = append(out, v)
		}
	}

	add(ValidateWeekday(FieldDate, date))
	if !SameDate(start, date) {
		add(violation(RuleSameDay, FieldStart, "start must be on %s", date.Format(time.DateOnly)))
	}
	if !SameDate(end, date) {
		add(violation(RuleSameDay, FieldEnd, "end must be on %s", date.Format(time.DateOnly)))
	}
	add(ValidateStart(start))
	add(ValidateEnd(end))
	if !start.Before(end) {
		add(violation(RuleOrdering, FieldEnd, "end time must be after start time"))
	}
	return out
}

func validateQuantized(field string, t time.Time) error {
	if t.Minute()%SlotMinutes != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return violation(RuleQuantization, field, "times must be on a 15-minute boundary (got %s)", t.Format("15:04:05"))
	}
	return nil
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// SameDate reports whether a and b share a calendar date in their own locations.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOf truncates t to midnight in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
