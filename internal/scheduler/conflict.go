package scheduler

import "time"

// Interval is a half-open [Start, End) occupation of the shared room.
// ID is zero for a candidate that has not been stored yet.
type Interval struct {
	ID    int64
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two half-open intervals intersect.
// Back-to-back intervals do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return other.Start.Before(i.End) && other.End.After(i.Start)
}

// FirstConflict returns the first existing interval that overlaps the
// candidate. An interval whose ID equals *exclude is skipped so an update
// does not collide with its own stored version.
func FirstConflict(existing []Interval, candidate Interval, exclude *int64) (Interval, bool) {
	for _, r := range existing {
		if exclude != nil && r.ID == *exclude {
			continue
		}
		if candidate.Overlaps(r) {
			return r, true
		}
	}
	return Interval{}, false
}

// HasConflict reports whether any existing interval overlaps the candidate.
func HasConflict(existing []Interval, candidate Interval, exclude *int64) bool {
	_, ok := FirstConflict(existing, candidate, exclude)
	return ok
}
