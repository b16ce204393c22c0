package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/christopherklint97/taxiclock/internal/backend"
	"github.com/christopherklint97/taxiclock/internal/timesheet"
)

type Config struct {
	Clockify      ClockifyConfig    `toml:"clockify" yaml:"clockify"`
	Aliases       map[string]string `toml:"aliases" yaml:"aliases"`
	Notifications NotifyConfig      `toml:"notifications" yaml:"notifications"`
}

// ClockifyConfig holds the backend options, either as a single backend URL
// or as separate fields. Separate fields win over the URL.
type ClockifyConfig struct {
	URL       string `toml:"url" yaml:"url"`
	Token     string `toml:"token" yaml:"token"`
	Workspace string `toml:"workspace" yaml:"workspace"`
	Timezone  string `toml:"timezone" yaml:"timezone"`
	BaseURL   string `toml:"base_url" yaml:"base_url"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		Clockify: ClockifyConfig{
			Timezone: backend.DefaultTimezone,
		},
		Aliases: map[string]string{},
		Notifications: NotifyConfig{
			Enabled: false,
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "taxiclock"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing default file yields the default config.
func Load(path string) (*Config, error) {
	useDefault := path == ""
	if useDefault {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && useDefault {
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := decode(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return toml.Unmarshal(data, cfg)
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLOCKIFY_API_KEY"); v != "" {
		cfg.Clockify.Token = v
	}
	if v := os.Getenv("CLOCKIFY_WORKSPACE_ID"); v != "" {
		cfg.Clockify.Workspace = v
	}
	if v := os.Getenv("CLOCKIFY_TIMEZONE"); v != "" {
		cfg.Clockify.Timezone = v
	}
	if v := os.Getenv("CLOCKIFY_BASE_URL"); v != "" {
		cfg.Clockify.BaseURL = v
	}
}

// BackendOptions merges the explicit fields with the backend URL, if any.
func (c *Config) BackendOptions() (backend.Options, error) {
	opts := backend.Options{
		Token:     c.Clockify.Token,
		Workspace: c.Clockify.Workspace,
		Timezone:  c.Clockify.Timezone,
		BaseURL:   c.Clockify.BaseURL,
	}
	if c.Clockify.URL == "" {
		return opts, nil
	}

	fromURL, err := backend.ParseURL(c.Clockify.URL)
	if err != nil {
		return backend.Options{}, err
	}
	// The default timezone must not shadow one given in the URL.
	if opts.Timezone == backend.DefaultTimezone && fromURL.Timezone != "" {
		opts.Timezone = ""
	}
	return opts.Merge(fromURL), nil
}

// AliasTable parses the [aliases] section. Values are "projectId/taskId".
func (c *Config) AliasTable() (timesheet.AliasMap, error) {
	aliases := make(timesheet.AliasMap, len(c.Aliases))

	names := make([]string, 0, len(c.Aliases))
	for name := range c.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts := strings.Split(c.Aliases[name], "/")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("alias %s: expected \"projectId/taskId\", got %q", name, c.Aliases[name])
		}
		aliases[name] = timesheet.Mapping(parts)
	}
	return aliases, nil
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// SaveAliases adds aliases to the config file using a read-modify-write
// approach to preserve other settings. Existing aliases are kept.
func SaveAliases(path string, aliases map[string]string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		return fmt.Errorf("saving aliases is only supported for TOML config files")
	}

	cfg := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	section, ok := cfg["aliases"].(map[string]any)
	if !ok {
		section = make(map[string]any)
	}
	for name, mapping := range aliases {
		if _, exists := section[name]; !exists {
			section[name] = mapping
		}
	}
	cfg["aliases"] = section

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
