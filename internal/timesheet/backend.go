package timesheet

import (
	"context"
	"errors"
	"time"
)

// Backend is the contract between the timesheet host and a remote service.
type Backend interface {
	PushEntry(ctx context.Context, date time.Time, item Item) error
	GetProjects(ctx context.Context) ([]*Project, error)
}

// FatalError is an unrecoverable configuration or authentication problem.
// The host should stop processing when it sees one.
type FatalError struct {
	Msg string
	Err error
}

func (e *FatalError) Error() string {
	switch {
	case e.Msg == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *FatalError) Unwrap() error { return e.Err }

// PushError reports that a single entry could not be pushed. Other entries
// are unaffected.
type PushError struct {
	Entry  *Entry
	Reason string
}

func (e *PushError) Error() string {
	if e.Entry != nil && e.Entry.Alias != "" {
		return "push failed for " + e.Entry.Alias + ": " + e.Reason
	}
	return "push failed: " + e.Reason
}

func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

func IsPushError(err error) bool {
	var pe *PushError
	return errors.As(err, &pe)
}
