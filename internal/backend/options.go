package backend

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/christopherklint97/taxiclock/internal/timesheet"
)

const (
	Scheme          = "clockify"
	DefaultTimezone = "CET"
)

// Options configure a backend session.
type Options struct {
	Token     string
	Workspace string
	Timezone  string
	BaseURL   string
}

// Location loads the configured timezone, CET when unset.
func (o Options) Location() (*time.Location, error) {
	tz := o.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &timesheet.FatalError{
			Msg: fmt.Sprintf("invalid timezone %s, please fix the timezone option of the backend", tz),
			Err: err,
		}
	}
	return loc, nil
}

// ParseURL reads options from a host backend URL such as
// clockify://?token=xxx&workspace=yyy&timezone=Europe/Zurich.
func ParseURL(raw string) (Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Options{}, fmt.Errorf("parsing backend url: %w", err)
	}
	if u.Scheme != Scheme {
		return Options{}, fmt.Errorf("unsupported backend scheme %q, expected %q", u.Scheme, Scheme)
	}

	q := u.Query()
	opts := Options{
		Token:     q.Get("token"),
		Workspace: q.Get("workspace"),
		Timezone:  q.Get("timezone"),
		BaseURL:   q.Get("base_url"),
	}
	// clockify://token@/ is accepted too.
	if opts.Token == "" && u.User != nil {
		opts.Token = u.User.Username()
	}
	return opts, nil
}

// Merge returns o with every empty field taken from fallback.
func (o Options) Merge(fallback Options) Options {
	if o.Token == "" {
		o.Token = fallback.Token
	}
	if o.Workspace == "" {
		o.Workspace = fallback.Workspace
	}
	if o.Timezone == "" {
		o.Timezone = fallback.Timezone
	}
	if o.BaseURL == "" {
		o.BaseURL = fallback.BaseURL
	}
	return o
}
