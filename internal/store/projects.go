package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/christopherklint97/taxiclock/internal/slug"
	"github.com/christopherklint97/taxiclock/internal/timesheet"
)

const stateProjectsUpdated = "projects_updated_at"

// SaveProjects replaces the cached project list. Every activity gets a
// "<project-slug>/<alias>" alias; bare aliases are only kept when they are
// unique across projects.
func (db *DB) SaveProjects(projects []*timesheet.Project) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM aliases", "DELETE FROM activities", "DELETE FROM projects"} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clearing project cache: %w", err)
		}
	}

	bareCount := make(map[string]int)
	for _, p := range projects {
		for alias := range p.Aliases {
			bareCount[alias]++
		}
	}

	for i, p := range projects {
		var budget sql.NullFloat64
		if p.Budget != nil {
			budget = sql.NullFloat64{Float64: *p.Budget, Valid: true}
		}
		if _, err := tx.Exec(
			"INSERT INTO projects (id, name, status, description, budget, position) VALUES (?, ?, ?, ?, ?, ?)",
			p.ID, p.Name, p.Status, p.Description, budget, i,
		); err != nil {
			return fmt.Errorf("inserting project %s: %w", p.ID, err)
		}

		for j, a := range p.Activities {
			if _, err := tx.Exec(
				"INSERT INTO activities (id, project_id, name, position) VALUES (?, ?, ?, ?)",
				a.ID, p.ID, a.Name, j,
			); err != nil {
				return fmt.Errorf("inserting activity %s: %w", a.ID, err)
			}
		}

		projectSlug := slug.Make(p.Name)
		for alias, activityID := range p.Aliases {
			if _, err := tx.Exec(
				"INSERT OR IGNORE INTO aliases (alias, project_id, activity_id, qualified) VALUES (?, ?, ?, 1)",
				projectSlug+"/"+alias, p.ID, activityID,
			); err != nil {
				return fmt.Errorf("inserting alias %s: %w", alias, err)
			}
			if bareCount[alias] != 1 {
				continue
			}
			if _, err := tx.Exec(
				"INSERT OR IGNORE INTO aliases (alias, project_id, activity_id, qualified) VALUES (?, ?, ?, 0)",
				alias, p.ID, activityID,
			); err != nil {
				return fmt.Errorf("inserting alias %s: %w", alias, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing project cache: %w", err)
	}

	if err := db.SetState(stateProjectsUpdated, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("recording update time: %w", err)
	}
	return nil
}

// Projects returns the cached projects in the order they were saved.
func (db *DB) Projects() ([]*timesheet.Project, error) {
	rows, err := db.Query("SELECT id, name, status, description, budget FROM projects ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []*timesheet.Project
	byID := make(map[string]*timesheet.Project)
	for rows.Next() {
		var id, name, status, description string
		var budget sql.NullFloat64
		if err := rows.Scan(&id, &name, &status, &description, &budget); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		var b *float64
		if budget.Valid {
			v := budget.Float64
			b = &v
		}
		p := timesheet.NewProject(id, name, status, description, b)
		projects = append(projects, p)
		byID[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.loadActivities(byID); err != nil {
		return nil, err
	}
	if err := db.loadAliases(byID); err != nil {
		return nil, err
	}
	return projects, nil
}

func (db *DB) loadActivities(byID map[string]*timesheet.Project) error {
	rows, err := db.Query("SELECT id, project_id, name FROM activities ORDER BY project_id, position")
	if err != nil {
		return fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a timesheet.Activity
		var projectID string
		if err := rows.Scan(&a.ID, &projectID, &a.Name); err != nil {
			return fmt.Errorf("scanning activity: %w", err)
		}
		if p, ok := byID[projectID]; ok {
			p.AddActivity(a)
		}
	}
	return rows.Err()
}

func (db *DB) loadAliases(byID map[string]*timesheet.Project) error {
	rows, err := db.Query("SELECT alias, project_id, activity_id FROM aliases WHERE qualified = 0")
	if err != nil {
		return fmt.Errorf("querying aliases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var alias, projectID, activityID string
		if err := rows.Scan(&alias, &projectID, &activityID); err != nil {
			return fmt.Errorf("scanning alias: %w", err)
		}
		if p, ok := byID[projectID]; ok {
			p.Aliases[alias] = activityID
		}
	}
	return rows.Err()
}

// ProjectsUpdatedAt returns when SaveProjects last ran, or the zero time.
func (db *DB) ProjectsUpdatedAt() (time.Time, error) {
	v, err := db.GetState(stateProjectsUpdated)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

// Lookup resolves aliases registered by SaveProjects.
func (db *DB) Lookup(ctx context.Context, alias string) (timesheet.Mapping, error) {
	var projectID, activityID string
	err := db.QueryRowContext(ctx,
		"SELECT project_id, activity_id FROM aliases WHERE alias = ?", alias,
	).Scan(&projectID, &activityID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", timesheet.ErrUnknownAlias, alias)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up alias %s: %w", alias, err)
	}
	return timesheet.Mapping{projectID, activityID}, nil
}
