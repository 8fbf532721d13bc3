package scheduler

import (
	"errors"
	"testing"
	"time"
)

var jst = time.FixedZone("JST", 9*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.July, day, hour, minute, 0, 0, jst)
}

func ruleOf(t *testing.T, err error) Rule {
	t.Helper()
	var v *RuleViolation
	if !errors.As(err, &v) {
		t.Fatalf("expected *RuleViolation, got %v", err)
	}
	return v.Rule
}

func TestValidate_RejectsWeekendsAtAnyTime(t *testing.T) {
	t.Parallel()

	for _, day := range []int{12, 13} { // Saturday, Sunday
		date := DateOf(at(day, 0, 0))
		for minute := OpeningMinute; minute < ClosingMinute; minute += SlotMinutes {
			start := at(day, minute/60, minute%60)
			end := start.Add(SlotMinutes * time.Minute)
			err := Validate(date, start, end)
			if err == nil {
				t.Fatalf("expected weekend %s %s to be rejected", date.Format(time.DateOnly), start.Format("15:04"))
			}
			if got := ruleOf(t, err); got != RuleWeekday {
				t.Fatalf("expected weekday rule, got %s", got)
			}
		}
	}
}

func TestValidate_AcceptsEveryQuarterHourPairInsideBusinessDay(t *testing.T) {
	t.Parallel()

	date := DateOf(at(14, 0, 0)) // Monday
	for s := OpeningMinute; s < ClosingMinute; s += SlotMinutes {
		for e := s + SlotMinutes; e <= ClosingMinute; e += SlotMinutes {
			start := at(14, s/60, s%60)
			end := at(14, e/60, e%60)
			if err := Validate(date, start, end); err != nil {
				t.Fatalf("expected %s-%s accepted, got %v", start.Format("15:04"), end.Format("15:04"), err)
			}
		}
	}
}

func TestValidateStart_Boundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		at   time.Time
		want Rule
	}{
		{name: "09:00 accepted", at: at(14, 9, 0)},
		{name: "17:45 accepted", at: at(14, 17, 45)},
		{name: "08:45 rejected", at: at(14, 8, 45), want: RuleStartWindow},
		{name: "18:00 rejected", at: at(14, 18, 0), want: RuleStartWindow},
		{name: "off-quarter rejected", at: at(14, 10, 10), want: RuleQuantization},
		{name: "saturday rejected", at: at(12, 10, 0), want: RuleWeekday},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStart(tc.at)
			if tc.want == "" {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			if got := ruleOf(t, err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestValidateEnd_Boundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		at   time.Time
		want Rule
	}{
		{name: "09:15 accepted", at: at(14, 9, 15)},
		{name: "18:00 accepted", at: at(14, 18, 0)},
		{name: "09:00 rejected", at: at(14, 9, 0), want: RuleEndWindow},
		{name: "18:15 rejected", at: at(14, 18, 15), want: RuleEndWindow},
		{name: "18:00:30 rejected", at: at(14, 18, 0).Add(30 * time.Second), want: RuleQuantization},
		{name: "sunday rejected", at: at(13, 12, 0), want: RuleWeekday},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateEnd(tc.at)
			if tc.want == "" {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			if got := ruleOf(t, err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestValidate_RejectsNonQuarterMinutes(t *testing.T) {
	t.Parallel()

	date := DateOf(at(15, 0, 0))
	for minute := 0; minute < 60; minute++ {
		if minute%SlotMinutes == 0 {
			continue
		}
		start := at(15, 10, minute)
		end := at(15, 12, 0)
		if got := ruleOf(t, Validate(date, start, end)); got != RuleQuantization {
			t.Fatalf("start minute %d: expected quantization, got %s", minute, got)
		}
		start = at(15, 10, 0)
		end = at(15, 12, minute)
		if got := ruleOf(t, Validate(date, start, end)); got != RuleQuantization {
			t.Fatalf("end minute %d: expected quantization, got %s", minute, got)
		}
	}
}

func TestValidate_Ordering(t *testing.T) {
	t.Parallel()

	date := DateOf(at(16, 0, 0))
	if got := ruleOf(t, Validate(date, at(16, 11, 0), at(16, 10, 0))); got != RuleOrdering {
		t.Fatalf("expected ordering, got %s", got)
	}
	if got := ruleOf(t, Validate(date, at(16, 11, 0), at(16, 11, 0))); got != RuleOrdering {
		t.Fatalf("expected ordering for zero-length interval, got %s", got)
	}
}

func TestValidate_SameDay(t *testing.T) {
	t.Parallel()

	date := DateOf(at(14, 0, 0))
	err := Validate(date, at(15, 10, 0), at(15, 11, 0))
	if got := ruleOf(t, err); got != RuleSameDay {
		t.Fatalf("expected same_day, got %s", got)
	}
}

func TestValidate_IsIdempotent(t *testing.T) {
	t.Parallel()

	date := DateOf(at(14, 0, 0))
	cases := [][2]time.Time{
		{at(14, 9, 0), at(14, 10, 0)},
		{at(14, 18, 0), at(14, 18, 0)},
		{at(14, 9, 7), at(14, 9, 30)},
	}
	for _, c := range cases {
		first := Validate(date, c[0], c[1])
		second := Validate(date, c[0], c[1])
		if (first == nil) != (second == nil) {
			t.Fatalf("verdict changed between calls: %v vs %v", first, second)
		}
		if first != nil && ruleOf(t, first) != ruleOf(t, second) {
			t.Fatalf("rule changed between calls: %v vs %v", first, second)
		}
	}
}

func TestValidateAll_CollectsEveryViolation(t *testing.T) {
	t.Parallel()

	date := DateOf(at(12, 0, 0)) // Saturday
	got := ValidateAll(date, at(12, 18, 5), at(12, 8, 0))

	want := map[Rule]bool{RuleWeekday: true, RuleOrdering: true}
	seen := make(map[Rule]bool)
	for _, v := range got {
		seen[v.Rule] = true
	}
	for rule := range want {
		if !seen[rule] {
			t.Fatalf("expected %s among violations, got %+v", rule, got)
		}
	}
	if got[0].Rule != RuleWeekday || got[0].Field != FieldDate {
		t.Fatalf("expected date weekday violation first, got %+v", got[0])
	}
}
