package http

import (
	"fmt"
	"strings"
	"time"
)

// wireDateTime is the datetime layout written in responses.
const wireDateTime = "2006-01-02T15:04:05"

var dateTimeLayouts = []string{
	wireDateTime,
	time.DateTime,
	"2006-01-02T15:04",
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func parseDateTime(value string, loc *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q: expected YYYY-MM-DDTHH:MM:SS", value)
}
