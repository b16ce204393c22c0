package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/christopherklint97/taxiclock/internal/timesheet"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleProjects() []*timesheet.Project {
	budget := 80.0
	backend := timesheet.NewProject("p1", "Backend API", timesheet.StatusActive, "", &budget)
	backend.AddActivity(timesheet.Activity{ID: "t1", Name: "Code Review"})
	backend.AddActivity(timesheet.Activity{ID: "t2", Name: "Meetings"})
	backend.Aliases["code-review"] = "t1"
	backend.Aliases["meetings"] = "t2"

	internal := timesheet.NewProject("p2", "Internal", timesheet.StatusActive, "", nil)
	internal.AddActivity(timesheet.Activity{ID: "t3", Name: "Meetings"})
	internal.Aliases["meetings"] = "t3"

	empty := timesheet.NewProject("p3", "Empty", timesheet.StatusActive, "", nil)

	return []*timesheet.Project{backend, internal, empty}
}

func TestSaveAndLoadProjects(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveProjects(sampleProjects()); err != nil {
		t.Fatalf("SaveProjects: %v", err)
	}

	projects, err := db.Projects()
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(projects))
	}

	p1 := projects[0]
	if p1.ID != "p1" || p1.Budget == nil || *p1.Budget != 80 {
		t.Errorf("unexpected first project: %+v", p1)
	}
	if len(p1.Activities) != 2 || p1.Activities[0].Name != "Code Review" {
		t.Errorf("activities = %+v", p1.Activities)
	}
	if p1.Aliases["code-review"] != "t1" {
		t.Errorf("aliases = %v", p1.Aliases)
	}
	if _, ok := p1.Aliases["meetings"]; ok {
		t.Error("ambiguous bare alias should not be stored")
	}
	if projects[1].Budget != nil {
		t.Error("nil budget should round-trip as nil")
	}
	if len(projects[2].Activities) != 0 {
		t.Errorf("empty project has activities: %+v", projects[2].Activities)
	}

	updated, err := db.ProjectsUpdatedAt()
	if err != nil {
		t.Fatalf("ProjectsUpdatedAt: %v", err)
	}
	if time.Since(updated) > time.Minute {
		t.Errorf("update time not recorded: %v", updated)
	}
}

func TestSaveProjectsReplacesCache(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveProjects(sampleProjects()); err != nil {
		t.Fatalf("SaveProjects: %v", err)
	}
	only := timesheet.NewProject("p9", "Fresh", timesheet.StatusActive, "", nil)
	if err := db.SaveProjects([]*timesheet.Project{only}); err != nil {
		t.Fatalf("SaveProjects: %v", err)
	}

	projects, err := db.Projects()
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != "p9" {
		t.Errorf("cache not replaced: %+v", projects)
	}
	if _, err := db.Lookup(context.Background(), "code-review"); !errors.Is(err, timesheet.ErrUnknownAlias) {
		t.Errorf("stale alias still resolvable: %v", err)
	}
}

func TestLookup(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveProjects(sampleProjects()); err != nil {
		t.Fatalf("SaveProjects: %v", err)
	}

	tests := []struct {
		alias   string
		project string
		task    string
	}{
		{"code-review", "p1", "t1"},
		{"backend-api/code-review", "p1", "t1"},
		{"backend-api/meetings", "p1", "t2"},
		{"internal/meetings", "p2", "t3"},
	}
	for _, tt := range tests {
		m, err := db.Lookup(context.Background(), tt.alias)
		if err != nil {
			t.Errorf("Lookup(%q): %v", tt.alias, err)
			continue
		}
		if m.ProjectID() != tt.project || m.ActivityID() != tt.task {
			t.Errorf("Lookup(%q) = %v", tt.alias, m)
		}
	}

	if _, err := db.Lookup(context.Background(), "meetings"); !errors.Is(err, timesheet.ErrUnknownAlias) {
		t.Errorf("ambiguous alias should be unknown, got %v", err)
	}
}

func TestRecordPush(t *testing.T) {
	db := openTestDB(t)
	day := time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2021, time.June, 1, 7, 0, 0, 0, time.UTC)

	records := []*PushRecord{
		{RemoteID: "te-1", Day: day, Alias: "dev", Description: "one", StartTime: start, EndTime: start.Add(time.Hour), Status: StatusPushed},
		{Day: day, Alias: "dev", Description: "two", Status: StatusFailed, Error: "only durations with a start and end time are supported"},
		{Day: day.AddDate(0, 0, 1), Alias: "dev", Description: "other day", Status: StatusPushed},
	}
	for _, r := range records {
		if _, err := db.RecordPush(r); err != nil {
			t.Fatalf("RecordPush: %v", err)
		}
	}

	got, err := db.PushesOn(day)
	if err != nil {
		t.Fatalf("PushesOn: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pushes, got %d", len(got))
	}
	if got[0].RemoteID != "te-1" || !got[0].StartTime.Equal(start) {
		t.Errorf("first push = %+v", got[0])
	}
	if !got[1].StartTime.IsZero() || got[1].Error == "" {
		t.Errorf("second push = %+v", got[1])
	}

	failed, err := db.FailedPushes()
	if err != nil {
		t.Fatalf("FailedPushes: %v", err)
	}
	if len(failed) != 1 || failed[0].Description != "two" {
		t.Fatalf("failed = %+v", failed)
	}

	if err := db.UpdatePushStatus(failed[0].ID, StatusRetried, ""); err != nil {
		t.Fatalf("UpdatePushStatus: %v", err)
	}
	if failed, _ := db.FailedPushes(); len(failed) != 0 {
		t.Errorf("retried push still listed as failed: %+v", failed)
	}
	if err := db.UpdatePushStatus(9999, StatusRetried, ""); err == nil {
		t.Error("expected error for unknown push id")
	}
}

func TestState(t *testing.T) {
	db := openTestDB(t)

	if v, err := db.GetState("missing"); err != nil || v != "" {
		t.Errorf("GetState(missing) = %q, %v", v, err)
	}
	if err := db.SetState("k", "v1"); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if err := db.SetState("k", "v2"); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if v, _ := db.GetState("k"); v != "v2" {
		t.Errorf("GetState(k) = %q", v)
	}
}
