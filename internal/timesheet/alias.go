package timesheet

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownAlias = errors.New("unknown alias")

// Mapping is what an alias resolves to: project id, activity id and any
// extra host-specific fields.
type Mapping []string

func (m Mapping) ProjectID() string {
	if len(m) < 1 {
		return ""
	}
	return m[0]
}

func (m Mapping) ActivityID() string {
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// AliasLookup resolves user-facing aliases. Implementations are read-only
// from the backend's point of view.
type AliasLookup interface {
	Lookup(ctx context.Context, alias string) (Mapping, error)
}

// AliasMap is an in-memory alias table.
type AliasMap map[string]Mapping

func (m AliasMap) Lookup(_ context.Context, alias string) (Mapping, error) {
	mapping, ok := m[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlias, alias)
	}
	return mapping, nil
}

// ChainLookup tries each lookup in order and returns the first hit.
type ChainLookup []AliasLookup

func (c ChainLookup) Lookup(ctx context.Context, alias string) (Mapping, error) {
	for _, l := range c {
		if l == nil {
			continue
		}
		m, err := l.Lookup(ctx, alias)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrUnknownAlias) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAlias, alias)
}
