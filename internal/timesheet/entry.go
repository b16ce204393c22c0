package timesheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day without a date or location.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ParseClock accepts "15:04" and "15:04:05".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}

	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return Clock{}, fmt.Errorf("invalid time of day %q: %w", s, err)
		}
		vals[i] = v
	}

	c := Clock{Hour: vals[0], Minute: vals[1], Second: vals[2]}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 || c.Second < 0 || c.Second > 59 {
		return Clock{}, fmt.Errorf("invalid time of day %q: out of range", s)
	}
	return c, nil
}

// On combines the clock with the calendar date of day in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, c.Second, 0, loc)
}

func (c Clock) String() string {
	if c.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Duration is either a total number of hours or a start/end range.
// A range with a nil Start continues from the previous entry's end.
type Duration struct {
	Hours float64
	Start *Clock
	End   *Clock
}

// Range builds a start/end duration.
func Range(start, end Clock) Duration {
	return Duration{Start: &start, End: &end}
}

// Item is something a backend can push: a single Entry or an AggregatedEntry.
type Item interface {
	isItem()
}

// Entry is a single timesheet line.
type Entry struct {
	Alias       string
	Description string
	Duration    Duration
	Previous    *Entry
}

func (*Entry) isItem() {}

// IsRange reports whether the entry has an explicit end time.
func (e *Entry) IsRange() bool {
	return e.Duration.End != nil
}

// StartTime returns the entry's start, falling back to the end of the
// previous entry when the start was omitted.
func (e *Entry) StartTime() (Clock, bool) {
	if e.Duration.Start != nil {
		return *e.Duration.Start, true
	}
	if e.Previous != nil && e.Previous.Duration.End != nil {
		return *e.Previous.Duration.End, true
	}
	return Clock{}, false
}

// AggregatedEntry groups entries sharing the same date.
type AggregatedEntry struct {
	Entries []*Entry
}

func (*AggregatedEntry) isItem() {}

// Add appends e, linking it to the current last entry when e has no start.
func (a *AggregatedEntry) Add(e *Entry) {
	if e.Previous == nil && e.Duration.Start == nil && len(a.Entries) > 0 {
		e.Previous = a.Entries[len(a.Entries)-1]
	}
	a.Entries = append(a.Entries, e)
}
