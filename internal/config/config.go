// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/catachess/catchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete catchat configuration.
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Sync    SyncConfig    `toml:"sync" json:"sync"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// APIConfig configures the backend connection.
type APIConfig struct {
	// BaseURL is the backend origin, e.g. https://api.catachess.com
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds each request
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RateLimit is requests per second; 0 disables pacing
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst"`
}

// SyncConfig controls how often the client asks the server for changes.
type SyncConfig struct {
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms"`
	ListRefreshMs  int `toml:"list_refresh_ms" json:"list_refresh_ms"`
	HistoryLimit   int `toml:"history_limit" json:"history_limit"`
	DegradedAfter  int `toml:"degraded_after" json:"degraded_after"`
}

// PollInterval returns the active-thread poll period.
func (s SyncConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// ListRefresh returns the conversation and group list refresh period.
func (s SyncConfig) ListRefresh() time.Duration {
	return time.Duration(s.ListRefreshMs) * time.Millisecond
}

// UIConfig contains display preferences.
type UIConfig struct {
	// Theme is "dark", "light" or "auto"
	Theme          string `toml:"theme" json:"theme"`
	RenderMarkdown bool   `toml:"render_markdown" json:"render_markdown"`
	CompactMode    bool   `toml:"compact_mode" json:"compact_mode"`
}

// StorageConfig locates persistent state (the remembered token).
type StorageConfig struct {
	Dir string `toml:"dir" json:"dir"`
}

// LogConfig controls the log file the TUI writes to.
type LogConfig struct {
	Path    string `toml:"path" json:"path"`
	Verbose bool   `toml:"verbose" json:"verbose"`
}

// Timeout returns the per-request timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultBaseURL        = "https://api.catachess.com"
	DefaultTimeoutSecs    = 30
	DefaultRateLimit      = 20
	DefaultRateBurst      = 40
	DefaultPollIntervalMs = 3000
	DefaultListRefreshMs  = 8000
	DefaultHistoryLimit   = 50
	DefaultDegradedAfter  = 3
	DefaultTheme          = "dark"
)

// Default returns the built-in configuration.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".catchat"
	}
	return &Config{
		API: APIConfig{
			BaseURL:     DefaultBaseURL,
			TimeoutSecs: DefaultTimeoutSecs,
			RateLimit:   DefaultRateLimit,
			RateBurst:   DefaultRateBurst,
		},
		Sync: SyncConfig{
			PollIntervalMs: DefaultPollIntervalMs,
			ListRefreshMs:  DefaultListRefreshMs,
			HistoryLimit:   DefaultHistoryLimit,
			DegradedAfter:  DefaultDegradedAfter,
		},
		UI: UIConfig{
			Theme:          DefaultTheme,
			RenderMarkdown: true,
		},
		Storage: StorageConfig{Dir: dir},
		Log:     LogConfig{Path: filepath.Join(dir, "catchat.log")},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the catchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".catchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Path returns the config file Load would read: the TOML file, unless only
// the JSON one exists.
func Path() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// ensureSecurePermissions tightens a config file to 0600.
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

// Load reads the configuration file (TOML first, then JSON), applies
// environment overrides, and validates the result. With no file present the
// defaults are returned.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file with full
// validation. Files ending in .json are read as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
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

// fillDefaults replaces zero values that a file may have set explicitly.
func (c *Config) fillDefaults() {
	d := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.Sync.PollIntervalMs == 0 {
		c.Sync.PollIntervalMs = d.Sync.PollIntervalMs
	}
	if c.Sync.ListRefreshMs == 0 {
		c.Sync.ListRefreshMs = d.Sync.ListRefreshMs
	}
	if c.Sync.HistoryLimit == 0 {
		c.Sync.HistoryLimit = d.Sync.HistoryLimit
	}
	if c.Sync.DegradedAfter == 0 {
		c.Sync.DegradedAfter = d.Sync.DegradedAfter
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = d.Storage.Dir
	}
	if c.Log.Path == "" {
		c.Log.Path = filepath.Join(c.Storage.Dir, "catchat.log")
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML atomically writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# catchat configuration file\n")
	buf.WriteString("# Written by `catchat config set`; edits are picked up while running.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON atomically writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
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

// Validate checks ranges and formats. It returns ValidateErrors listing
// every problem, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("api.base_url", "must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 300 {
		add("api.timeout_secs", "must be between 1 and 300, got %d", c.API.TimeoutSecs)
	}
	if c.API.RateLimit < 0 {
		add("api.rate_limit", "must not be negative")
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		add("api.rate_burst", "must be at least 1 when rate_limit is set")
	}

	if c.Sync.PollIntervalMs < 500 {
		add("sync.poll_interval_ms", "must be at least 500, got %d", c.Sync.PollIntervalMs)
	}
	if c.Sync.ListRefreshMs < 1000 {
		add("sync.list_refresh_ms", "must be at least 1000, got %d", c.Sync.ListRefreshMs)
	}
	if c.Sync.HistoryLimit < 1 || c.Sync.HistoryLimit > 500 {
		add("sync.history_limit", "must be between 1 and 500, got %d", c.Sync.HistoryLimit)
	}
	if c.Sync.DegradedAfter < 1 {
		add("sync.degraded_after", "must be at least 1, got %d", c.Sync.DegradedAfter)
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		add("ui.theme", "invalid theme %q, must be one of: dark, light, auto", c.UI.Theme)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variable names.
const (
	EnvAPIBase  = "CATCHAT_API_BASE"
	EnvToken    = "CATCHAT_TOKEN"
	EnvLog      = "CATCHAT_LOG"
	EnvStateDir = "CATCHAT_STATE_DIR"
	EnvVerbose  = "CATCHAT_VERBOSE"
)

// ApplyEnvOverrides applies CATCHAT_* environment variables.
//
// Supported environment variables:
//   - CATCHAT_API_BASE: overrides api.base_url
//   - CATCHAT_LOG: overrides log.path
//   - CATCHAT_STATE_DIR: overrides storage.dir
//   - CATCHAT_VERBOSE: "1" or "true" enables log.verbose
//
// CATCHAT_TOKEN is a credential, not configuration; see TokenFromEnv.
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv(EnvAPIBase); base != "" {
		c.API.BaseURL = strings.TrimRight(base, "/")
	}
	if dir := os.Getenv(EnvStateDir); dir != "" {
		c.Storage.Dir = dir
		if os.Getenv(EnvLog) == "" {
			c.Log.Path = filepath.Join(dir, "catchat.log")
		}
	}
	if path := os.Getenv(EnvLog); path != "" {
		c.Log.Path = path
	}
	if v := os.Getenv(EnvVerbose); v != "" {
		c.Log.Verbose = v == "1" || strings.EqualFold(v, "true")
	}
}

// TokenFromEnv returns the one-shot token from CATCHAT_TOKEN, if set.
func TokenFromEnv() string {
	return strings.TrimSpace(os.Getenv(EnvToken))
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its dotted TOML key, e.g. "sync.poll_interval_ms".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by its dotted TOML key. String values are converted to
// the field's type. The result is not validated; call Validate.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a key", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("%s is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ","); tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an arbitrary value with type
// conversion for strings.
func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %w", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				switch strings.ToLower(s) {
				case "yes", "on":
					b = true
				case "no", "off":
					b = false
				default:
					return fmt.Errorf("invalid boolean value: %q", s)
				}
			}
			field.SetBool(b)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every configuration key in dot notation, in declaration
// order.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix, _, _ := strings.Cut(section.Tag.Get("toml"), ",")
		for j := 0; j < section.Type.NumField(); j++ {
			name, _, _ := strings.Cut(section.Type.Field(j).Tag.Get("toml"), ",")
			keys = append(keys, prefix+"."+name)
		}
	}
	return keys
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
// Load errors fall back to defaults with a warning on stderr.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
			cfg.ApplyEnvOverrides()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal replaces the global configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
