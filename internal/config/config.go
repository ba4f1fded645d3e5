package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPollInterval is the fixed cadence between poll cycles.
const DefaultPollInterval = 30 * time.Second

// Config represents the complete dwhsync configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Watch       WatchConfig       `yaml:"watch" json:"watch"`
	Spreadsheet SpreadsheetConfig `yaml:"spreadsheet" json:"spreadsheet"`
	Database    DatabaseConfig    `yaml:"database" json:"database"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// WatchConfig configures the watched export directory.
type WatchConfig struct {
	// Dir is the directory polled for document exports.
	Dir string `yaml:"dir" json:"dir"`

	// Spreadsheet is the patient spreadsheet filename inside Dir.
	// It is matched by name and never treated as a document.
	Spreadsheet string `yaml:"spreadsheet" json:"spreadsheet"`

	// PollInterval is the fixed interval between cycles ("30s", or bare seconds).
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`

	// Extensions are the recognized document kinds (with leading dot).
	Extensions []string `yaml:"extensions" json:"extensions"`

	// Notify enables filesystem notifications that wake the poll loop early.
	// Polling remains the source of truth either way.
	Notify bool `yaml:"notify" json:"notify"`
}

// SpreadsheetConfig configures patient spreadsheet parsing.
type SpreadsheetConfig struct {
	// Sheet is the worksheet name holding the patient export.
	Sheet string `yaml:"sheet" json:"sheet"`
}

// DatabaseConfig configures the warehouse database.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig configures agent logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level"`
	// File is the log file path. Empty means stderr only.
	File string `yaml:"file" json:"file"`
	// MaxSizeMB is the log size in MB before rotation.
	MaxSizeMB int `yaml:"max_size_mb" json:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `yaml:"max_backups" json:"max_backups"`
}

// NewConfig returns a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Watch: WatchConfig{
			Dir:          "./exports",
			Spreadsheet:  "export_patient.xlsx",
			PollInterval: "30s",
			Extensions:   []string{".pdf", ".docx"},
			Notify:       true,
		},
		Spreadsheet: SpreadsheetConfig{
			Sheet: "Export Worksheet",
		},
		Database: DatabaseConfig{
			Path: "dwh.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "", // stderr only unless configured
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// GetUserConfigPath returns the per-user configuration file,
// $XDG_CONFIG_HOME/dwhsync/config.yaml with the usual ~/.config
// fallback.
func GetUserConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "dwhsync", "config.yaml")
}

// GetUserConfigDir returns the directory holding the per-user
// configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether a per-user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the configuration for the given working directory, in
// order of increasing precedence: defaults, the per-user config, a
// dwhsync.yaml in the directory, then DWHSYNC_* environment variables.
// The merged result is validated before it is returned.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if user := GetUserConfigPath(); fileExists(user) {
		if err := cfg.loadYAML(user); err != nil {
			return nil, fmt.Errorf("user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads configuration from an explicit file path (--config flag),
// still applying env overrides and validation.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromDir loads dwhsync.yaml (or dwhsync.yml) from dir if present.
// A directory without either file is not an error.
func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{"dwhsync.yaml", "dwhsync.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML parses a YAML file and merges its set fields over c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays the fields set in other onto c. Unset fields in
// other leave c untouched.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Watch
	if other.Watch.Dir != "" {
		c.Watch.Dir = other.Watch.Dir
	}
	if other.Watch.Spreadsheet != "" {
		c.Watch.Spreadsheet = other.Watch.Spreadsheet
	}
	if other.Watch.PollInterval != "" {
		c.Watch.PollInterval = other.Watch.PollInterval
	}
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}
	// Notify is boolean and cannot distinguish "not set" from "false", so it
	// only merges when the other config set some watch field.
	if other.Watch.Dir != "" || other.Watch.Spreadsheet != "" ||
		other.Watch.PollInterval != "" || len(other.Watch.Extensions) > 0 {
		c.Watch.Notify = other.Watch.Notify
	}

	// Spreadsheet
	if other.Spreadsheet.Sheet != "" {
		c.Spreadsheet.Sheet = other.Spreadsheet.Sheet
	}

	// Database
	if other.Database.Path != "" {
		c.Database.Path = other.Database.Path
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxBackups != 0 {
		c.Logging.MaxBackups = other.Logging.MaxBackups
	}
}

// applyEnvOverrides applies DWHSYNC_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DWHSYNC_WATCH_DIR"); v != "" {
		c.Watch.Dir = v
	}
	if v := os.Getenv("DWHSYNC_SPREADSHEET"); v != "" {
		c.Watch.Spreadsheet = v
	}
	if v := os.Getenv("DWHSYNC_POLL_INTERVAL"); v != "" {
		c.Watch.PollInterval = v
	}
	if v := os.Getenv("DWHSYNC_NOTIFY"); v != "" {
		c.Watch.Notify = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("DWHSYNC_SHEET"); v != "" {
		c.Spreadsheet.Sheet = v
	}
	if v := os.Getenv("DWHSYNC_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("DWHSYNC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DWHSYNC_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// PollIntervalDuration returns the parsed poll interval.
// Accepts Go duration strings ("30s", "1m") or bare seconds ("30").
// Falls back to the default when unset or unparsable; Validate catches
// genuinely invalid values before this is ever relied on.
func (c *Config) PollIntervalDuration() time.Duration {
	d, err := parseInterval(c.Watch.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// parseInterval parses a duration string, accepting bare seconds for
// compatibility with integer-style configs.
func parseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty interval")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid interval %q", s)
}

// Validate checks the configuration for values the agent cannot run
// with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Watch.Dir) == "" {
		return fmt.Errorf("watch.dir must not be empty")
	}
	if strings.TrimSpace(c.Watch.Spreadsheet) == "" {
		return fmt.Errorf("watch.spreadsheet must not be empty")
	}

	if c.Watch.PollInterval != "" {
		d, err := parseInterval(c.Watch.PollInterval)
		if err != nil {
			return fmt.Errorf("watch.poll_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("watch.poll_interval must be positive, got %s", c.Watch.PollInterval)
		}
	}

	if len(c.Watch.Extensions) == 0 {
		return fmt.Errorf("watch.extensions must not be empty")
	}
	for _, ext := range c.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("watch.extensions entries must start with a dot, got %q", ext)
		}
	}

	if strings.TrimSpace(c.Spreadsheet.Sheet) == "" {
		return fmt.Errorf("spreadsheet.sheet must not be empty")
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// SpreadsheetPath returns the absolute-ish path of the patient spreadsheet
// inside the watch directory.
func (c *Config) SpreadsheetPath() string {
	return filepath.Join(c.Watch.Dir, c.Watch.Spreadsheet)
}

// WriteYAML writes the configuration to path as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// fileExists reports whether path names an existing non-directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
