// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/helios-tui/internal/model"
	"github.com/jeranaias/helios-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete helios configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server   ServerConfig   `toml:"server" json:"server"`
	Session  SessionConfig  `toml:"session" json:"session"`
	Identity IdentityConfig `toml:"identity" json:"identity"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Logging  LoggingConfig  `toml:"logging" json:"logging"`
	Journal  JournalConfig  `toml:"journal" json:"journal"`
}

// ServerConfig locates the Helios backend.
type ServerConfig struct {
	// BaseURL is the scheme and host of the backend, e.g. http://localhost:3000
	BaseURL string `toml:"base_url" json:"base_url"`
	// StreamPath is the Server-Sent Events subscribe endpoint
	StreamPath string `toml:"stream_path" json:"stream_path"`
	// WebSocketPath is the WebSocket subscribe endpoint
	WebSocketPath string `toml:"websocket_path" json:"websocket_path"`
	// TriggerPath is the endpoint that starts server-side work
	TriggerPath string `toml:"trigger_path" json:"trigger_path"`
	// Transport is "sse" or "websocket"
	Transport string `toml:"transport" json:"transport"`
}

// SessionConfig contains streaming session timings.
type SessionConfig struct {
	// OpenTimeoutMs bounds the wait for the push connection to open
	OpenTimeoutMs int `toml:"open_timeout_ms" json:"open_timeout_ms"`
	// GracePeriodMs is how long stage records stay visible after completion
	GracePeriodMs int `toml:"grace_period_ms" json:"grace_period_ms"`
	// TriggerTimeoutSecs bounds the trigger request
	TriggerTimeoutSecs int `toml:"trigger_timeout_secs" json:"trigger_timeout_secs"`
}

// OpenTimeout returns OpenTimeoutMs as a duration.
func (s SessionConfig) OpenTimeout() time.Duration {
	return time.Duration(s.OpenTimeoutMs) * time.Millisecond
}

// GracePeriod returns GracePeriodMs as a duration.
func (s SessionConfig) GracePeriod() time.Duration {
	return time.Duration(s.GracePeriodMs) * time.Millisecond
}

// TriggerTimeout returns TriggerTimeoutSecs as a duration.
func (s SessionConfig) TriggerTimeout() time.Duration {
	return time.Duration(s.TriggerTimeoutSecs) * time.Second
}

// IdentityConfig holds the persistent user identity.
type IdentityConfig struct {
	// UserID is a UUID generated on first run
	UserID string `toml:"user_id" json:"user_id"`
	// Character is the selected persona id; empty until the user picks one
	Character string `toml:"character" json:"character"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant replies as markdown
	Markdown bool `toml:"markdown" json:"markdown"`
	// ShowStages displays the stage list while a session streams
	ShowStages bool `toml:"show_stages" json:"show_stages"`
	// StagePreviewChars truncates stage content in the stage list
	StagePreviewChars int `toml:"stage_preview_chars" json:"stage_preview_chars"`
}

// LoggingConfig controls the diagnostic log.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level" json:"level"`
	// File is the log path; empty means ~/.helios/helios.log
	File string `toml:"file" json:"file"`
}

// JournalConfig controls the session journal.
type JournalConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the sqlite file; empty means ~/.helios/journal.db
	Path string `toml:"path" json:"path"`
}

// Transports accepted in server.transport.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			BaseURL:       "http://localhost:3000",
			StreamPath:    "/api/sse-stream",
			WebSocketPath: "/api/ws-stream",
			TriggerPath:   "/api/trigger-consciousness",
			Transport:     TransportSSE,
		},

		Session: SessionConfig{
			OpenTimeoutMs:      5000,
			GracePeriodMs:      2000,
			TriggerTimeoutSecs: 30,
		},

		UI: UIConfig{
			Theme:             "dark",
			Markdown:          true,
			ShowStages:        true,
			StagePreviewChars: 100,
		},

		Logging: LoggingConfig{
			Level: "info",
		},

		Journal: JournalConfig{
			Enabled: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the helios configuration directory. HELIOS_HOME
// overrides the default of ~/.helios.
func ConfigDir() (string, error) {
	if dir := os.Getenv("HELIOS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".helios"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return inConfigDir("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	return inConfigDir("config.json")
}

// LogPath returns the configured log file, or the default location.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	return inConfigDir("helios.log")
}

// JournalPath returns the configured journal file, or the default location.
func (c *Config) JournalPath() (string, error) {
	if c.Journal.Path != "" {
		return c.Journal.Path, nil
	}
	return inConfigDir("journal.db")
}

// HistoryPath returns the line-editor history file used by `helios chat`.
func HistoryPath() (string, error) {
	return inConfigDir("chat_history")
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config file permissions to 0600; the
// file carries the user's identity.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config directory. TOML is tried
// first, then JSON; missing files fall back to defaults. Environment
// overrides are applied last. A file that fails to decode is reported
// alongside the defaults that were used instead.
func Load() (*Config, error) {
	var loadErr error

	for _, candidate := range []struct {
		path func() (string, error)
		load func(*Config, string) error
		kind string
	}{
		{ConfigPathTOML, LoadTOML, "TOML"},
		{ConfigPathJSON, LoadJSON, "JSON"},
	} {
		path, err := candidate.path()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg := Default()
		if err := candidate.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load %s config: %w", candidate.kind, err)
			continue
		}
		return finish(cfg)
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// finish applies env overrides and defaults, then validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	if c.Server.StreamPath == "" {
		c.Server.StreamPath = d.Server.StreamPath
	}
	if c.Server.WebSocketPath == "" {
		c.Server.WebSocketPath = d.Server.WebSocketPath
	}
	if c.Server.TriggerPath == "" {
		c.Server.TriggerPath = d.Server.TriggerPath
	}
	if c.Server.Transport == "" {
		c.Server.Transport = d.Server.Transport
	}
	c.Server.Transport = strings.ToLower(c.Server.Transport)

	if c.Session.OpenTimeoutMs == 0 {
		c.Session.OpenTimeoutMs = d.Session.OpenTimeoutMs
	}
	if c.Session.GracePeriodMs == 0 {
		c.Session.GracePeriodMs = d.Session.GracePeriodMs
	}
	if c.Session.TriggerTimeoutSecs == 0 {
		c.Session.TriggerTimeoutSecs = d.Session.TriggerTimeoutSecs
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.StagePreviewChars == 0 {
		c.UI.StagePreviewChars = d.UI.StagePreviewChars
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions. The write is atomic
// so a config watcher never observes a half-written file.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# helios configuration file\n")
	b.WriteString("# Generated by helios - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate validates the configuration and returns ValidateErrors when
// anything is wrong.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.Server.BaseURL); err != nil {
		add("server.base_url", "invalid URL: %v", err)
	} else if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("server.base_url", "must be an http or https URL, got '%s'", c.Server.BaseURL)
	}
	for field, p := range map[string]string{
		"server.stream_path":    c.Server.StreamPath,
		"server.websocket_path": c.Server.WebSocketPath,
		"server.trigger_path":   c.Server.TriggerPath,
	} {
		if !strings.HasPrefix(p, "/") {
			add(field, "must start with '/', got '%s'", p)
		}
	}
	if c.Server.Transport != TransportSSE && c.Server.Transport != TransportWebSocket {
		add("server.transport", "invalid transport '%s', must be one of: sse, websocket", c.Server.Transport)
	}

	if c.Session.OpenTimeoutMs < 100 || c.Session.OpenTimeoutMs > 60000 {
		add("session.open_timeout_ms", "must be between 100 and 60000, got %d", c.Session.OpenTimeoutMs)
	}
	if c.Session.GracePeriodMs < 0 || c.Session.GracePeriodMs > 60000 {
		add("session.grace_period_ms", "must be between 0 and 60000, got %d", c.Session.GracePeriodMs)
	}
	if c.Session.TriggerTimeoutSecs < 1 || c.Session.TriggerTimeoutSecs > 600 {
		add("session.trigger_timeout_secs", "must be between 1 and 600, got %d", c.Session.TriggerTimeoutSecs)
	}

	if c.Identity.Character != "" {
		if _, ok := model.LookupCharacter(c.Identity.Character); !ok {
			add("identity.character", "unknown character '%s', must be one of: %s",
				c.Identity.Character, strings.Join(model.CharacterIDs(), ", "))
		}
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}
	if c.UI.StagePreviewChars < 10 {
		add("ui.stage_preview_chars", "must be at least 10, got %d", c.UI.StagePreviewChars)
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		add("logging.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - HELIOS_SERVER_URL: overrides server.base_url
//   - HELIOS_TRANSPORT: overrides server.transport
//   - HELIOS_USER_ID: overrides identity.user_id
//   - HELIOS_CHARACTER: overrides identity.character
//   - HELIOS_OPEN_TIMEOUT: overrides session.open_timeout_ms
//   - HELIOS_LOG_LEVEL: overrides logging.level
//   - HELIOS_NO_JOURNAL: set to "1" or "true" to disable the journal
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("HELIOS_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("HELIOS_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("HELIOS_USER_ID"); v != "" {
		c.Identity.UserID = v
	}
	if v := os.Getenv("HELIOS_CHARACTER"); v != "" {
		c.Identity.Character = v
	}
	if v := os.Getenv("HELIOS_OPEN_TIMEOUT"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Session.OpenTimeoutMs = ms
		}
	}
	if v := os.Getenv("HELIOS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HELIOS_NO_JOURNAL"); v != "" {
		c.Journal.Enabled = !(v == "1" || strings.ToLower(v) == "true")
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its dotted TOML key, e.g. "server.transport".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by its dotted TOML key. String values are converted
// to the field's type. The result is not validated; call Validate.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag names.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return v, nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue converts value to the field's type and assigns it.
func setFieldValue(field reflect.Value, value interface{}) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int:
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(int64(n))
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(b)
			return nil
		}
	}
	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("cannot assign nil")
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() == field.Kind() {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation.
func Keys() []string {
	var keys []string
	var walk func(prefix string, t reflect.Type)
	walk = func(prefix string, t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if prefix != "" {
				name = prefix + "." + name
			}
			if f.Type.Kind() == reflect.Struct {
				walk(name, f.Type)
				continue
			}
			keys = append(keys, name)
		}
	}
	walk("", reflect.TypeOf(Config{}))
	return keys
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
