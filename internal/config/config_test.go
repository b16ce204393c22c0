package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/christopherklint97/taxiclock/internal/backend"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"CLOCKIFY_API_KEY", "CLOCKIFY_WORKSPACE_ID", "CLOCKIFY_TIMEZONE", "CLOCKIFY_BASE_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", `
[clockify]
token = "abc"
workspace = "ws-1"
timezone = "Europe/Zurich"

[aliases]
dev = "proj-1/task-1"

[notifications]
enabled = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Clockify.Token != "abc" || cfg.Clockify.Workspace != "ws-1" || cfg.Clockify.Timezone != "Europe/Zurich" {
		t.Errorf("unexpected clockify config: %+v", cfg.Clockify)
	}
	if !cfg.Notifications.Enabled {
		t.Error("notifications should be enabled")
	}
	if cfg.Aliases["dev"] != "proj-1/task-1" {
		t.Errorf("aliases = %v", cfg.Aliases)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
clockify:
  url: clockify://?token=abc&workspace=ws-9
aliases:
  meeting: proj-2/task-7
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts, err := cfg.BackendOptions()
	if err != nil {
		t.Fatalf("BackendOptions: %v", err)
	}
	want := backend.Options{Token: "abc", Workspace: "ws-9", Timezone: backend.DefaultTimezone}
	if opts != want {
		t.Errorf("options = %+v, want %+v", opts, want)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Clockify.Timezone != backend.DefaultTimezone {
		t.Errorf("timezone = %q, want default", cfg.Clockify.Timezone)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLOCKIFY_API_KEY", "from-env")
	t.Setenv("CLOCKIFY_TIMEZONE", "UTC")
	path := writeFile(t, "config.toml", "[clockify]\ntoken = \"from-file\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Clockify.Token != "from-env" || cfg.Clockify.Timezone != "UTC" {
		t.Errorf("env overrides not applied: %+v", cfg.Clockify)
	}
}

func TestBackendOptionsPrecedence(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClockifyConfig
		want backend.Options
	}{
		{
			name: "fields only",
			cfg:  ClockifyConfig{Token: "t", Timezone: "CET"},
			want: backend.Options{Token: "t", Timezone: "CET"},
		},
		{
			name: "url timezone beats default",
			cfg:  ClockifyConfig{URL: "clockify://?token=u&timezone=UTC", Timezone: backend.DefaultTimezone},
			want: backend.Options{Token: "u", Timezone: "UTC"},
		},
		{
			name: "explicit field beats url",
			cfg:  ClockifyConfig{URL: "clockify://?token=u&workspace=w1", Workspace: "w2"},
			want: backend.Options{Token: "u", Workspace: "w2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Clockify: tt.cfg}
			got, err := cfg.BackendOptions()
			if err != nil {
				t.Fatalf("BackendOptions: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	bad := Config{Clockify: ClockifyConfig{URL: "tempo://?token=x"}}
	if _, err := bad.BackendOptions(); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestAliasTable(t *testing.T) {
	cfg := Config{Aliases: map[string]string{
		"dev":   "proj-1/task-1",
		"extra": "proj-2 / task-2 / billable",
	}}

	aliases, err := cfg.AliasTable()
	if err != nil {
		t.Fatalf("AliasTable: %v", err)
	}
	if m := aliases["dev"]; m.ProjectID() != "proj-1" || m.ActivityID() != "task-1" {
		t.Errorf("dev = %v", m)
	}
	if m := aliases["extra"]; len(m) != 3 || m.ActivityID() != "task-2" {
		t.Errorf("extra = %v", m)
	}

	for _, value := range []string{"proj-only", "/task", "proj/"} {
		bad := Config{Aliases: map[string]string{"x": value}}
		if _, err := bad.AliasTable(); err == nil {
			t.Errorf("expected error for %q", value)
		}
	}
}

func TestSaveAliases(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", "[clockify]\ntoken = \"abc\"\n\n[aliases]\ndev = \"keep/me\"\n")

	err := SaveAliases(path, map[string]string{"dev": "other/value", "review": "proj-1/task-9"})
	if err != nil {
		t.Fatalf("SaveAliases: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Clockify.Token != "abc" {
		t.Errorf("token lost: %+v", cfg.Clockify)
	}
	if cfg.Aliases["dev"] != "keep/me" || cfg.Aliases["review"] != "proj-1/task-9" {
		t.Errorf("aliases = %v", cfg.Aliases)
	}

	if err := SaveAliases(filepath.Join(t.TempDir(), "c.yaml"), nil); err == nil {
		t.Error("expected error saving to a yaml file")
	}
}
