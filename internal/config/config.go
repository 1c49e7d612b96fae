// Package config provides unified configuration management for shellfilter.
// Configuration is loaded from multiple sources with the following precedence:
// embedded defaults → global file → env vars → local file → CLI flags
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/config.yaml
var defaultsFS embed.FS

// Working directory modes.
const (
	WorkdirCwd  = "cwd"
	WorkdirFile = "file"
	WorkdirRepo = "repo"
)

// Config holds all configuration settings for shellfilter.
// Fields ending in *Set track whether that field was explicitly set in config.
// This allows distinguishing explicit false/0 from "not set", enabling proper
// merge behavior where local config can override global config with zero values.
type Config struct {
	Shell     string `yaml:"shell"`
	ShellFlag string `yaml:"shell_flag"`
	Locale    string `yaml:"locale"`

	FullLine bool `yaml:"full_line"`

	SpinnerWidth   int    `yaml:"spinner_width"`
	TickIntervalMS int    `yaml:"tick_interval_ms"`
	StatusKey      string `yaml:"status_key"`
	PanelName      string `yaml:"panel_name"`

	Workdir     string `yaml:"workdir"`
	WaitDelayMS int    `yaml:"wait_delay_ms"`

	// Set tracking for merge behavior
	FullLineSet       bool `yaml:"-"`
	SpinnerWidthSet   bool `yaml:"-"`
	TickIntervalMSSet bool `yaml:"-"`
	WaitDelayMSSet    bool `yaml:"-"`

	// Private: track where config was loaded from
	configDir string
	localDir  string
	sources   []string // ordered list of sources that contributed to this config
}

// Sources returns the ordered list of sources that contributed to the config.
func (c *Config) Sources() []string {
	return c.sources
}

// LocalDir returns the local project config directory if one was detected.
func (c *Config) LocalDir() string {
	return c.localDir
}

// ConfigDir returns the global config directory.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// TickInterval is the progress tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// WaitDelay is the grace period for output pipes after a command exits.
func (c *Config) WaitDelay() time.Duration {
	return time.Duration(c.WaitDelayMS) * time.Millisecond
}

// Validate checks values that cannot be used as loaded.
func (c *Config) Validate() error {
	if c.Shell == "" {
		return fmt.Errorf("shell must not be empty")
	}
	switch c.Workdir {
	case WorkdirCwd, WorkdirFile, WorkdirRepo:
	default:
		return fmt.Errorf("workdir must be one of %s, %s, %s; got %q", WorkdirCwd, WorkdirFile, WorkdirRepo, c.Workdir)
	}
	if c.SpinnerWidth < 1 {
		return fmt.Errorf("spinner_width must be positive, got %d", c.SpinnerWidth)
	}
	if c.TickIntervalMS < 1 {
		return fmt.Errorf("tick_interval_ms must be positive, got %d", c.TickIntervalMS)
	}
	if c.WaitDelayMS < 0 {
		return fmt.Errorf("wait_delay_ms must not be negative, got %d", c.WaitDelayMS)
	}
	return nil
}

// Load loads all configuration from the default locations.
// It auto-detects .shellfilter/ in the current working directory for local overrides.
// It installs defaults if needed.
func Load() (*Config, error) {
	globalDir := DefaultConfigDir()

	// Auto-detect local config directory in cwd
	var localDir string
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, ".shellfilter")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			localDir = candidate
		}
	}

	return LoadWithDirs(globalDir, localDir)
}

// LoadWithDirs loads configuration with explicit global and local directories.
// Local config (.shellfilter/) overrides global config (~/.config/shellfilter/) per-field.
// If localDir is empty, only global config is used.
func LoadWithDirs(globalDir, localDir string) (*Config, error) {
	if err := InstallDefaults(globalDir); err != nil {
		return nil, fmt.Errorf("install defaults: %w", err)
	}

	// 1. Start with embedded defaults
	cfg, err := loadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load embedded defaults: %w", err)
	}
	cfg.sources = append(cfg.sources, "embedded")

	// 2. Merge global config
	globalPath := filepath.Join(globalDir, "config.yaml")
	if globalCfg, err := loadFile(globalPath); err == nil {
		cfg.mergeFrom(globalCfg)
		cfg.sources = append(cfg.sources, globalPath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	// 3. Apply environment variables (between global and local)
	cfg.applyEnv()

	// 4. Merge local config (highest file precedence)
	if localDir != "" {
		localPath := filepath.Join(localDir, "config.yaml")
		if localCfg, err := loadFile(localPath); err == nil {
			cfg.mergeFrom(localCfg)
			cfg.sources = append(cfg.sources, localPath)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load local config: %w", err)
		}
	}

	cfg.configDir = globalDir
	cfg.localDir = localDir

	// The shipped defaults name a POSIX shell.
	if runtime.GOOS == "windows" && cfg.Shell == "/bin/sh" {
		cfg.Shell, cfg.ShellFlag = "cmd", "/C"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// DefaultConfigDir returns the default global configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "shellfilter")
	}
	return filepath.Join(home, ".config", "shellfilter")
}

// InstallDefaults creates the config directory and installs default config if not exists.
func InstallDefaults(configDir string) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		data, err := defaultsFS.ReadFile("defaults/config.yaml")
		if err != nil {
			return fmt.Errorf("read embedded config: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0o600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
	}

	return nil
}

// loadEmbedded loads config from the embedded defaults.
func loadEmbedded() (*Config, error) {
	data, err := defaultsFS.ReadFile("defaults/config.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded defaults: %w", err)
	}
	return parseConfig(data)
}

// loadFile loads config from a file path.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user's config file
	if err != nil {
		return nil, err
	}
	return parseConfigWithTracking(data)
}

// parseConfig parses YAML config data into a Config struct.
func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// parseConfigWithTracking parses YAML config and tracks which fields were set.
func parseConfigWithTracking(data []byte) (*Config, error) {
	cfg, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	// Parse into a map to detect which fields were explicitly set
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	_, cfg.FullLineSet = raw["full_line"]
	_, cfg.SpinnerWidthSet = raw["spinner_width"]
	_, cfg.TickIntervalMSSet = raw["tick_interval_ms"]
	_, cfg.WaitDelayMSSet = raw["wait_delay_ms"]

	return cfg, nil
}

// applyEnv applies environment variables to the config.
// Env vars sit between global and local config in precedence.
func (c *Config) applyEnv() {
	if v := os.Getenv("SHELLFILTER_SHELL"); v != "" {
		c.Shell = v
		c.sources = append(c.sources, "env:SHELLFILTER_SHELL")
	}

	if v := os.Getenv("SHELLFILTER_FULL_LINE"); v != "" {
		c.FullLine = v == "true" || v == "1"
		c.FullLineSet = true
		c.sources = append(c.sources, "env:SHELLFILTER_FULL_LINE")
	}

	if v := os.Getenv("SHELLFILTER_TICK_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TickIntervalMS = n
			c.TickIntervalMSSet = true
			c.sources = append(c.sources, "env:SHELLFILTER_TICK_MS")
		}
	}

	if v := os.Getenv("SHELLFILTER_WORKDIR"); v != "" {
		c.Workdir = v
		c.sources = append(c.sources, "env:SHELLFILTER_WORKDIR")
	}
}

// mergeFrom merges non-empty/set values from src into c.
func (c *Config) mergeFrom(src *Config) {
	if src.Shell != "" {
		c.Shell = src.Shell
	}
	if src.ShellFlag != "" {
		c.ShellFlag = src.ShellFlag
	}
	if src.Locale != "" {
		c.Locale = src.Locale
	}
	if src.FullLineSet {
		c.FullLine = src.FullLine
		c.FullLineSet = true
	}
	if src.SpinnerWidthSet {
		c.SpinnerWidth = src.SpinnerWidth
		c.SpinnerWidthSet = true
	}
	if src.TickIntervalMSSet {
		c.TickIntervalMS = src.TickIntervalMS
		c.TickIntervalMSSet = true
	}
	if src.StatusKey != "" {
		c.StatusKey = src.StatusKey
	}
	if src.PanelName != "" {
		c.PanelName = src.PanelName
	}
	if src.Workdir != "" {
		c.Workdir = src.Workdir
	}
	if src.WaitDelayMSSet {
		c.WaitDelayMS = src.WaitDelayMS
		c.WaitDelayMSSet = true
	}
}

// ApplyCLIFlags applies CLI flag overrides to the config.
// CLI flags have the highest precedence; empty values leave the config alone.
func (c *Config) ApplyCLIFlags(shell, workdir string, fullLine bool) {
	if shell != "" {
		c.Shell = shell
		c.sources = append(c.sources, "cli:shell")
	}
	if workdir != "" {
		c.Workdir = workdir
		c.sources = append(c.sources, "cli:workdir")
	}
	if fullLine {
		c.FullLine = true
		c.FullLineSet = true
		c.sources = append(c.sources, "cli:full-line")
	}
}

// Setting is one resolved key for display.
type Setting struct {
	Key   string
	Value string
}

// Settings lists the resolved values in file order.
func (c *Config) Settings() []Setting {
	return []Setting{
		{"shell", c.Shell},
		{"shell_flag", c.ShellFlag},
		{"locale", c.Locale},
		{"full_line", strconv.FormatBool(c.FullLine)},
		{"spinner_width", strconv.Itoa(c.SpinnerWidth)},
		{"tick_interval_ms", strconv.Itoa(c.TickIntervalMS)},
		{"status_key", c.StatusKey},
		{"panel_name", c.PanelName},
		{"workdir", c.Workdir},
		{"wait_delay_ms", strconv.Itoa(c.WaitDelayMS)},
	}
}
