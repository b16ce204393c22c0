// Package backend implements the timesheet backend contract on top of the
// Clockify REST API.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	_ "time/tzdata"

	"github.com/christopherklint97/taxiclock/internal/clockify"
	"github.com/christopherklint97/taxiclock/internal/slug"
	"github.com/christopherklint97/taxiclock/internal/timesheet"
)

var _ timesheet.Backend = (*Backend)(nil)

// PushResult describes the outcome of pushing one entry.
type PushResult struct {
	Date     time.Time
	Entry    *timesheet.Entry
	Start    time.Time
	End      time.Time
	RemoteID string
	Err      error
}

// Backend is one session against a single Clockify workspace. It is not
// safe for concurrent use.
type Backend struct {
	client      *clockify.Client
	aliases     timesheet.AliasLookup
	location    *time.Location
	workspaceID string
	onResult    func(PushResult)
	logger      *slog.Logger
}

func New(opts Options, aliases timesheet.AliasLookup, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Token == "" {
		return nil, &timesheet.FatalError{Msg: "missing Clockify API token, set the token option of the backend"}
	}
	loc, err := opts.Location()
	if err != nil {
		return nil, err
	}

	if aliases == nil {
		aliases = timesheet.AliasMap{}
	}

	return &Backend{
		client:      clockify.NewClient(opts.Token, opts.BaseURL, logger),
		aliases:     aliases,
		location:    loc,
		workspaceID: opts.Workspace,
		logger:      logger,
	}, nil
}

// OnResult registers fn to be called after every attempted push.
func (b *Backend) OnResult(fn func(PushResult)) {
	b.onResult = fn
}

func (b *Backend) Location() *time.Location {
	return b.location
}

// WorkspaceID returns the configured workspace, or resolves it once from
// the list of workspaces the token has access to.
func (b *Backend) WorkspaceID(ctx context.Context) (string, error) {
	if b.workspaceID != "" {
		return b.workspaceID, nil
	}

	workspaces, err := b.client.ListWorkspaces(ctx)
	if err != nil {
		var apiErr *clockify.APIError
		if errors.As(err, &apiErr) {
			return "", &timesheet.FatalError{
				Msg: fmt.Sprintf("could not get workspaces list, got error %d: %s", apiErr.StatusCode, string(apiErr.Body)),
			}
		}
		return "", fatal("could not get workspaces list", err)
	}

	switch len(workspaces) {
	case 0:
		return "", &timesheet.FatalError{Msg: "no workspace available for this token"}
	case 1:
		b.workspaceID = workspaces[0].ID
		b.logger.Debug("resolved workspace", "id", b.workspaceID, "name", workspaces[0].Name)
		return b.workspaceID, nil
	default:
		return "", &timesheet.FatalError{
			Msg: "you have more than one workspace available, please add the workspace option to your backend url (eg. clockify://?token=xxx&workspace=yyy)",
		}
	}
}

// PushEntry pushes a single entry, or every sub-entry of an aggregated one.
// Sub-entries are pushed in order; a failed push does not stop the rest,
// a fatal error does.
func (b *Backend) PushEntry(ctx context.Context, date time.Time, item timesheet.Item) error {
	switch e := item.(type) {
	case *timesheet.AggregatedEntry:
		var errs []error
		for _, sub := range e.Entries {
			if err := b.push(ctx, date, sub); err != nil {
				errs = append(errs, err)
				if timesheet.IsFatal(err) {
					break
				}
			}
		}
		return errors.Join(errs...)
	case *timesheet.Entry:
		return b.push(ctx, date, e)
	default:
		return &timesheet.PushError{Reason: fmt.Sprintf("unsupported entry type %T", item)}
	}
}

func (b *Backend) push(ctx context.Context, date time.Time, entry *timesheet.Entry) error {
	result := PushResult{Date: date, Entry: entry}
	result.RemoteID, result.Start, result.End, result.Err = b.pushEntry(ctx, date, entry)
	if b.onResult != nil {
		b.onResult(result)
	}
	return result.Err
}

func (b *Backend) pushEntry(ctx context.Context, date time.Time, entry *timesheet.Entry) (string, time.Time, time.Time, error) {
	workspaceID, err := b.WorkspaceID(ctx)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}

	if !entry.IsRange() {
		return "", time.Time{}, time.Time{}, pushFailed(entry, "only durations with a start and end time are supported")
	}
	startClock, ok := entry.StartTime()
	if !ok {
		return "", time.Time{}, time.Time{}, pushFailed(entry, "entry has no start time and no previous entry to continue from")
	}

	start := startClock.On(date, b.location)
	end := entry.Duration.End.On(date, b.location)

	mapping, err := b.aliases.Lookup(ctx, entry.Alias)
	if err != nil {
		return "", start, end, pushFailed(entry, err.Error())
	}
	if len(mapping) < 2 {
		return "", start, end, pushFailed(entry, fmt.Sprintf("alias %s is not mapped to a project and a task", entry.Alias))
	}

	req := clockify.TimeEntryRequest{
		Start:       clockify.FormatTime(start),
		End:         clockify.FormatTime(end),
		ProjectID:   mapping.ProjectID(),
		TaskID:      mapping.ActivityID(),
		Description: entry.Description,
	}

	created, err := b.client.CreateTimeEntry(ctx, workspaceID, req)
	if err != nil {
		if errors.Is(err, clockify.ErrLoginFailed) {
			return "", start, end, fatal("", err)
		}
		var apiErr *clockify.APIError
		if errors.As(err, &apiErr) {
			return "", start, end, pushFailed(entry, string(apiErr.Body))
		}
		return "", start, end, pushFailed(entry, err.Error())
	}

	b.logger.Info("pushed time entry", "alias", entry.Alias, "start", req.Start, "end", req.End, "id", created.ID)
	return created.ID, start, end, nil
}

// GetProjects lists every project of the workspace together with its tasks.
// Nothing is cached: each call hits the API.
func (b *Backend) GetProjects(ctx context.Context) ([]*timesheet.Project, error) {
	workspaceID, err := b.WorkspaceID(ctx)
	if err != nil {
		return nil, err
	}

	projects, err := b.client.ListProjects(ctx, workspaceID)
	if err != nil {
		return nil, listingFailed(err)
	}

	result := make([]*timesheet.Project, 0, len(projects))
	for _, p := range projects {
		project := timesheet.NewProject(p.ID, p.Name, timesheet.StatusActive, "", p.Budget())

		tasks, err := b.client.ListTasks(ctx, workspaceID, p.ID)
		if err != nil {
			return nil, listingFailed(err)
		}

		for _, t := range tasks {
			activity := timesheet.Activity{ID: t.ID, Name: t.Name}
			project.AddActivity(activity)
			project.Aliases[slug.Make(activity.Name)] = t.ID
		}

		result = append(result, project)
	}

	b.logger.Debug("fetched projects", "workspace", workspaceID, "count", len(result))
	return result, nil
}

func listingFailed(err error) error {
	var decodeErr *clockify.DecodeError
	if errors.As(err, &decodeErr) {
		return &timesheet.FatalError{
			Msg: fmt.Sprintf("unexpected response from the server (%s), check your credentials", string(decodeErr.Body)),
		}
	}
	var apiErr *clockify.APIError
	if errors.As(err, &apiErr) {
		return &timesheet.FatalError{
			Msg: "listing " + apiErr.Path + " failed",
			Err: apiErr,
		}
	}
	return fatal("listing projects", err)
}

func fatal(msg string, err error) error {
	if errors.Is(err, clockify.ErrLoginFailed) {
		return &timesheet.FatalError{Err: clockify.ErrLoginFailed}
	}
	return &timesheet.FatalError{Msg: msg, Err: err}
}

func pushFailed(entry *timesheet.Entry, reason string) error {
	return &timesheet.PushError{Entry: entry, Reason: reason}
}
