package store

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	StatusPushed  = "pushed"
	StatusFailed  = "failed"
	StatusRetried = "retried"
)

type PushRecord struct {
	ID          int
	RemoteID    string
	Day         time.Time
	Alias       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Status      string
	Error       string
	CreatedAt   time.Time
}

func (db *DB) RecordPush(r *PushRecord) (int64, error) {
	result, err := db.Exec(
		`INSERT INTO pushes (remote_id, day, alias, description, start_time, end_time, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RemoteID, r.Day.Format(time.DateOnly), r.Alias, r.Description,
		formatOptional(r.StartTime), formatOptional(r.EndTime),
		r.Status, r.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting push: %w", err)
	}
	return result.LastInsertId()
}

// PushesOn returns the pushes recorded for the given day, oldest first.
func (db *DB) PushesOn(day time.Time) ([]PushRecord, error) {
	return db.queryPushes(
		`SELECT id, remote_id, day, alias, description, start_time, end_time, status, error, created_at
		 FROM pushes
		 WHERE day = ?
		 ORDER BY id ASC`,
		day.Format(time.DateOnly),
	)
}

func (db *DB) FailedPushes() ([]PushRecord, error) {
	return db.queryPushes(
		`SELECT id, remote_id, day, alias, description, start_time, end_time, status, error, created_at
		 FROM pushes
		 WHERE status = ?
		 ORDER BY id ASC`,
		StatusFailed,
	)
}

// UpdatePushStatus changes the status of a recorded push, keeping its
// remote id when remoteID is empty.
func (db *DB) UpdatePushStatus(id int, status, remoteID string) error {
	res, err := db.Exec(
		"UPDATE pushes SET status = ?, remote_id = COALESCE(NULLIF(?, ''), remote_id) WHERE id = ?",
		status, remoteID, id,
	)
	if err != nil {
		return fmt.Errorf("updating push %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("push %d not found", id)
	}
	return nil
}

func formatOptional(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func (db *DB) queryPushes(query string, args ...interface{}) ([]PushRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pushes: %w", err)
	}
	defer rows.Close()

	var records []PushRecord
	for rows.Next() {
		var r PushRecord
		var remoteID, startStr, endStr, errText sql.NullString
		var dayStr, createdStr string

		if err := rows.Scan(
			&r.ID, &remoteID, &dayStr, &r.Alias, &r.Description,
			&startStr, &endStr, &r.Status, &errText, &createdStr,
		); err != nil {
			return nil, fmt.Errorf("scanning push: %w", err)
		}

		r.RemoteID = remoteID.String
		r.Error = errText.String

		if t, err := time.Parse(time.DateOnly, dayStr); err == nil {
			r.Day = t
		}
		if t, err := time.Parse(time.RFC3339, startStr.String); err == nil {
			r.StartTime = t
		}
		if t, err := time.Parse(time.RFC3339, endStr.String); err == nil {
			r.EndTime = t
		}
		if t, err := time.Parse(time.RFC3339, createdStr); err == nil {
			r.CreatedAt = t
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
