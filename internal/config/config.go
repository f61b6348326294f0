// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	// Host is the base URL of the Ollama API.
	Host string `toml:"host" yaml:"host"`

	// Model is the model used when none is given on the command line.
	Model string `toml:"model" yaml:"model"`

	// Stream requests incremental replies. False sends stream:false and
	// prints each reply once it is complete.
	Stream bool `toml:"stream" yaml:"stream"`

	// TurnTimeout aborts a reply that has not completed in time. 0 disables it.
	TurnTimeout Duration `toml:"turn_timeout" yaml:"turn_timeout"`

	// RequestTimeout bounds model listing and model details requests.
	RequestTimeout Duration `toml:"request_timeout" yaml:"request_timeout"`

	// LogFile receives JSON log lines. "-" logs to stderr.
	LogFile string `toml:"log_file" yaml:"log_file"`

	// UI configuration
	UI UIConfig `toml:"ui" yaml:"ui"`
}

// UIConfig contains terminal output settings.
type UIConfig struct {
	// Markdown re-renders completed replies that contain Markdown.
	Markdown bool `toml:"markdown" yaml:"markdown"`
	// WordWrap is the width of formatted replies.
	WordWrap int `toml:"word_wrap" yaml:"word_wrap"`
	// Theme is one of auto, dark, light, plain.
	Theme string `toml:"theme" yaml:"theme"`
	// ShowStats prints token throughput after each reply.
	ShowStats bool `toml:"show_stats" yaml:"show_stats"`
	// Spinner names the thinking-indicator frame set.
	Spinner string `toml:"spinner" yaml:"spinner"`
	// Color enables styled output. NO_COLOR turns it off.
	Color bool `toml:"color" yaml:"color"`
}

// Duration is a time.Duration written as "90s" or "5m" in config files.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. A bare number is
// taken as seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Host:           "http://localhost:11434/api",
		Model:          "llama3.2",
		Stream:         true,
		TurnTimeout:    Duration{0},
		RequestTimeout: Duration{10 * time.Second},
		LogFile:        "",

		UI: UIConfig{
			Markdown:  true,
			WordWrap:  80,
			Theme:     styles.ThemeAuto,
			ShowStats: true,
			Spinner:   styles.DefaultSpinner,
			Color:     true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	return util.AppDir()
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return util.AppPath("config.toml")
}

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) {
	return util.AppPath("config.yaml")
}

// LogPath returns the file logs are written to: LogFile with "~" expanded,
// or ~/.rigchat/rigchat.log when unset. "-" is returned as is.
func (c *Config) LogPath() (string, error) {
	if c.LogFile == "-" {
		return "-", nil
	}
	if c.LogFile == "" {
		return util.AppPath("rigchat.log")
	}
	return util.ExpandHome(c.LogFile)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then YAML, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathYAML} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with environment
// overrides and validation. ".yaml" and ".yml" files are read as YAML,
// anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys missing from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadYAML decodes a YAML file over cfg. Keys missing from the file keep
// their current values.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	return nil
}

// SetDefaults fills zero values that have no meaning as zero.
func (c *Config) SetDefaults() {
	defaults := Default()

	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		c.Host = defaults.Host
	}
	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = defaults.RequestTimeout
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = defaults.UI.WordWrap
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.Spinner == "" {
		c.UI.Spinner = defaults.UI.Spinner
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration to a TOML file, atomically and with
// 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rigchat configuration file\n")
	buf.WriteString("# Environment: RIGCHAT_HOST, RIGCHAT_MODEL, RIGCHAT_TURN_TIMEOUT, RIGCHAT_NO_STREAM, NO_COLOR\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveYAML writes the configuration to a YAML file, atomically and with
// 0600 permissions.
func SaveYAML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rigchat configuration file\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Host); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "host",
			Message: fmt.Sprintf("invalid URL '%s', expected http(s)://host:port/api", c.Host),
		})
	}

	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, ValidationError{Field: "model", Message: "must not be empty"})
	}

	if c.TurnTimeout.Duration < 0 {
		errs = append(errs, ValidationError{Field: "turn_timeout", Message: "must not be negative"})
	}
	if c.RequestTimeout.Duration < 0 {
		errs = append(errs, ValidationError{Field: "request_timeout", Message: "must not be negative"})
	}

	if c.UI.WordWrap < 20 || c.UI.WordWrap > 400 {
		errs = append(errs, ValidationError{
			Field:   "ui.word_wrap",
			Message: fmt.Sprintf("must be between 20 and 400, got %d", c.UI.WordWrap),
		})
	}

	if !styles.ValidTheme(c.UI.Theme) {
		errs = append(errs, ValidationError{
			Field: "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: %s",
				c.UI.Theme, strings.Join(styles.ThemeNames, ", ")),
		})
	}

	if _, ok := styles.Spinner(c.UI.Spinner); !ok {
		errs = append(errs, ValidationError{
			Field: "ui.spinner",
			Message: fmt.Sprintf("unknown spinner '%s', must be one of: %s",
				c.UI.Spinner, strings.Join(styles.SpinnerNames(), ", ")),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - RIGCHAT_HOST: overrides host
//   - RIGCHAT_MODEL: overrides model
//   - RIGCHAT_TURN_TIMEOUT: overrides turn_timeout ("90s", "2m" or seconds)
//   - RIGCHAT_NO_STREAM: disables streaming when "1" or "true"
//   - NO_COLOR: disables colored output when set to anything
//
// Unparseable values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("RIGCHAT_HOST"); host != "" {
		c.Host = host
	}

	if model := os.Getenv("RIGCHAT_MODEL"); model != "" {
		c.Model = model
	}

	if timeout := os.Getenv("RIGCHAT_TURN_TIMEOUT"); timeout != "" {
		if d, err := parseDuration(timeout); err == nil {
			c.TurnTimeout = Duration{d}
		}
	}

	if noStream := os.Getenv("RIGCHAT_NO_STREAM"); noStream != "" {
		if truthy(noStream) {
			c.Stream = false
		}
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.UI.Color = false
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
