package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tj/go-naturaldate"

	"github.com/christopherklint97/taxiclock/internal/backend"
	"github.com/christopherklint97/taxiclock/internal/calendar"
	"github.com/christopherklint97/taxiclock/internal/notify"
	"github.com/christopherklint97/taxiclock/internal/store"
	"github.com/christopherklint97/taxiclock/internal/timesheet"
)

var pushCmd = &cobra.Command{
	Use:   "push [alias] [description...]",
	Short: "Push timesheet entries to Clockify",
	Long: `Push a single entry given on the command line, or every event of an
iCalendar file or URL. Calendar events are read as "alias description".`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().String("date", "today", "Day of the entry (YYYY-MM-DD or natural language)")
	pushCmd.Flags().String("start", "", "Start time (HH:MM)")
	pushCmd.Flags().String("end", "", "End time (HH:MM)")
	pushCmd.Flags().String("ics", "", "iCalendar file or URL to push events from")
	pushCmd.Flags().Bool("retry-failed", false, "Push every previously failed entry again")
}

// parseDate accepts an ISO date or a natural language expression relative to
// now. The result is midnight of that day in now's location.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "today"
	}

	t, err := time.ParseInLocation(time.DateOnly, s, now.Location())
	if err != nil {
		t, err = naturaldate.Parse(s, now, naturaldate.WithDirection(naturaldate.Past))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), nil
}

// entryFromArgs builds the entry described by the positional arguments and
// the --start and --end flags.
func entryFromArgs(args []string, start, end string) (*timesheet.Entry, error) {
	if len(args) == 0 {
		return nil, errors.New("an alias is required")
	}
	entry := &timesheet.Entry{
		Alias:       args[0],
		Description: strings.Join(args[1:], " "),
	}

	if start == "" || end == "" {
		return nil, errors.New("--start and --end are required")
	}
	s, err := timesheet.ParseClock(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}
	e, err := timesheet.ParseClock(end)
	if err != nil {
		return nil, fmt.Errorf("invalid end: %w", err)
	}
	entry.Duration = timesheet.Range(s, e)
	return entry, nil
}

func runPush(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := newBackend(cmd, cfg, db)
	if err != nil {
		return err
	}

	dateStr, _ := cmd.Flags().GetString("date")
	date, err := parseDate(dateStr, time.Now().In(b.Location()))
	if err != nil {
		return err
	}

	var days []calendar.Day
	retrying := map[*timesheet.Entry]int{}
	if retry, _ := cmd.Flags().GetBool("retry-failed"); retry {
		if len(args) > 0 {
			return errors.New("positional arguments cannot be combined with --retry-failed")
		}
		records, err := db.FailedPushes()
		if err != nil {
			return fmt.Errorf("fetching failed pushes: %w", err)
		}
		days, retrying = failedDays(records, b.Location())
		if len(days) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No failed entries to retry.")
			return nil
		}
	} else {
		days, err = pushDays(cmd, args, date, b.Location())
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	logger := newLogger(cmd)
	var pushed, failed int

	b.OnResult(func(r backend.PushResult) {
		record := &store.PushRecord{
			RemoteID:    r.RemoteID,
			Day:         r.Date,
			Alias:       r.Entry.Alias,
			Description: r.Entry.Description,
			StartTime:   r.Start,
			EndTime:     r.End,
			Status:      store.StatusPushed,
		}
		if r.Err != nil {
			record.Status = store.StatusFailed
			record.Error = r.Err.Error()
			failed++
		} else {
			pushed++
		}
		if _, err := db.RecordPush(record); err != nil {
			logger.Warn("recording push", "alias", r.Entry.Alias, "error", err)
		}
		if id, ok := retrying[r.Entry]; ok {
			if err := db.UpdatePushStatus(id, store.StatusRetried, ""); err != nil {
				logger.Warn("updating retried push", "id", id, "error", err)
			}
		}
		renderResult(out, r)
	})

	var pushErr error
	for _, day := range days {
		if err := b.PushEntry(cmd.Context(), day.Date, day.Entries); err != nil {
			pushErr = errors.Join(pushErr, err)
			if timesheet.IsFatal(err) {
				break
			}
		}
	}

	title, msg := notify.PushSummary(pushed, failed)
	if err := notify.New(cfg.Notifications.Enabled).Send(title, msg); err != nil {
		logger.Warn("sending notification", "error", err)
	}

	if pushErr != nil {
		if timesheet.IsFatal(pushErr) {
			return pushErr
		}
		return fmt.Errorf("%d of %d entries failed", failed, pushed+failed)
	}
	fmt.Fprintln(out, successStyle.Render(msg))
	return nil
}

// pushDays returns the entries to push, either from --ics restricted to the
// requested day when --date is given, or a single entry from the arguments.
func pushDays(cmd *cobra.Command, args []string, date time.Time, loc *time.Location) ([]calendar.Day, error) {
	source, _ := cmd.Flags().GetString("ics")
	if source == "" {
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")

		entry, err := entryFromArgs(args, start, end)
		if err != nil {
			return nil, err
		}
		agg := &timesheet.AggregatedEntry{}
		agg.Add(entry)
		return []calendar.Day{{Date: date, Entries: agg}}, nil
	}

	if len(args) > 0 {
		return nil, errors.New("positional arguments cannot be combined with --ics")
	}

	days, err := calendar.Fetch(cmd.Context(), source, loc)
	if err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("date") {
		return days, nil
	}

	for _, d := range days {
		if d.Date.Format(time.DateOnly) == date.Format(time.DateOnly) {
			return []calendar.Day{d}, nil
		}
	}
	return nil, fmt.Errorf("no calendar events on %s", date.Format(time.DateOnly))
}

// failedDays rebuilds entries from failed pushes, grouped by day in push
// order. Records without stored bounds cannot be replayed and are skipped.
// The returned map links each rebuilt entry to the record it came from.
func failedDays(records []store.PushRecord, loc *time.Location) ([]calendar.Day, map[*timesheet.Entry]int) {
	var days []calendar.Day
	byDay := make(map[string]int)
	origin := make(map[*timesheet.Entry]int)

	for _, r := range records {
		if r.StartTime.IsZero() || r.EndTime.IsZero() {
			continue
		}
		start, end := r.StartTime.In(loc), r.EndTime.In(loc)
		entry := &timesheet.Entry{
			Alias:       r.Alias,
			Description: r.Description,
			Duration: timesheet.Range(
				timesheet.Clock{Hour: start.Hour(), Minute: start.Minute(), Second: start.Second()},
				timesheet.Clock{Hour: end.Hour(), Minute: end.Minute(), Second: end.Second()},
			),
		}
		origin[entry] = r.ID

		key := r.Day.Format(time.DateOnly)
		i, ok := byDay[key]
		if !ok {
			date, _ := time.ParseInLocation(time.DateOnly, key, loc)
			days = append(days, calendar.Day{Date: date, Entries: &timesheet.AggregatedEntry{}})
			i = len(days) - 1
			byDay[key] = i
		}
		days[i].Entries.Add(entry)
	}
	return days, origin
}

func renderResult(w io.Writer, r backend.PushResult) {
	span := fmt.Sprintf("%gh", r.Entry.Duration.Hours)
	if !r.Start.IsZero() {
		span = r.Start.Format("15:04") + "–" + r.End.Format("15:04")
	}

	label := r.Entry.Alias
	if r.Entry.Description != "" {
		label += " " + dimStyle.Render(r.Entry.Description)
	}

	if r.Err != nil {
		fmt.Fprintf(w, "  %s %s  %s  %s\n", errorStyle.Render("✗"), r.Date.Format(time.DateOnly), label, errorStyle.Render(r.Err.Error()))
		return
	}
	fmt.Fprintf(w, "  %s %s %s  %s\n", successStyle.Render("✓"), r.Date.Format(time.DateOnly), span, label)
}
