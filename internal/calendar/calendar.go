package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/christopherklint97/taxiclock/internal/timesheet"
)

// Day is the set of entries taken from events starting on Date.
type Day struct {
	Date    time.Time
	Entries *timesheet.AggregatedEntry
}

// Fetch reads iCalendar data from a URL or file path and turns its events
// into timesheet entries.
func Fetch(ctx context.Context, source string, loc *time.Location) ([]Day, error) {
	var r io.ReadCloser

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar file: %w", err)
		}
		r = f
	}
	defer r.Close()

	return Parse(r, loc)
}

type timedEntry struct {
	start time.Time
	entry *timesheet.Entry
}

// Parse decodes every calendar in r. Each VEVENT becomes an entry whose
// alias is the first word of SUMMARY and whose description is the rest.
// Events without a summary, without both bounds, or spanning midnight are
// skipped.
func Parse(r io.Reader, loc *time.Location) ([]Day, error) {
	dec := ical.NewDecoder(r)
	byDay := make(map[string][]timedEntry)

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(loc)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(loc)
			if err != nil {
				continue
			}
			start, end = start.In(loc), end.In(loc)
			if start.Format(time.DateOnly) != end.Format(time.DateOnly) || !end.After(start) {
				continue
			}

			summary, _ := event.Props.Text(ical.PropSummary)
			alias, description, _ := strings.Cut(strings.TrimSpace(summary), " ")
			if alias == "" {
				continue
			}

			entry := &timesheet.Entry{
				Alias:       alias,
				Description: strings.TrimSpace(description),
				Duration: timesheet.Range(
					timesheet.Clock{Hour: start.Hour(), Minute: start.Minute(), Second: start.Second()},
					timesheet.Clock{Hour: end.Hour(), Minute: end.Minute(), Second: end.Second()},
				),
			}
			key := start.Format(time.DateOnly)
			byDay[key] = append(byDay[key], timedEntry{start: start, entry: entry})
		}
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	days := make([]Day, 0, len(keys))
	for _, k := range keys {
		timed := byDay[k]
		sort.SliceStable(timed, func(i, j int) bool { return timed[i].start.Before(timed[j].start) })

		agg := &timesheet.AggregatedEntry{}
		for _, te := range timed {
			agg.Add(te.entry)
		}
		date, _ := time.ParseInLocation(time.DateOnly, k, loc)
		days = append(days, Day{Date: date, Entries: agg})
	}
	return days, nil
}
