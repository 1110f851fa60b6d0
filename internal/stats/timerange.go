package stats

import (
	"fmt"
	"time"
)

// TimeRange represents a half-open [Start, End) time period.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// LastHours returns the range covering the given number of hours before now.
func LastHours(now time.Time, hours int) TimeRange {
	return TimeRange{
		Start: now.Add(-time.Duration(hours) * time.Hour),
		End:   now,
	}
}

// DayRange returns the full UTC day of a YYYY-MM-DD date.
func DayRange(date string) (TimeRange, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return TimeRange{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", date, err)
	}
	return TimeRange{
		Start: day,
		End:   day.AddDate(0, 0, 1),
	}, nil
}

// Contains reports whether t is inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// FormatPeriod returns a human-readable string for the time range.
func (tr TimeRange) FormatPeriod() string {
	return fmt.Sprintf("%s to %s", tr.Start.UTC().Format(time.RFC3339), tr.End.UTC().Format(time.RFC3339))
}
