// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// isolate points HOME at a temp dir and clears CATCHAT_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{EnvAPIBase, EnvToken, EnvLog, EnvStateDir, EnvVerbose} {
		t.Setenv(k, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			c := Default()
			c.UI.Theme = "light"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	_ = Global()

	custom := Default()
	custom.API.BaseURL = "http://localhost:8000"
	SetGlobal(custom)

	if got := Global().API.BaseURL; got != "http://localhost:8000" {
		t.Errorf("Expected custom base URL, got %q", got)
	}
}

func TestConfig_Default(t *testing.T) {
	home := isolate(t)
	cfg := Default()

	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Sync.PollInterval() != 3*time.Second {
		t.Errorf("PollInterval = %v, want 3s", cfg.Sync.PollInterval())
	}
	if cfg.Sync.ListRefresh() != 8*time.Second {
		t.Errorf("ListRefresh = %v, want 8s", cfg.Sync.ListRefresh())
	}
	if cfg.Sync.HistoryLimit != 50 || cfg.Sync.DegradedAfter != 3 {
		t.Errorf("unexpected sync defaults: %+v", cfg.Sync)
	}
	if want := filepath.Join(home, ".catchat"); cfg.Storage.Dir != want {
		t.Errorf("Storage.Dir = %q, want %q", cfg.Storage.Dir, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid default config", func(*Config) {}, ""},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://example.com" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.TimeoutSecs = 0 }, "api.timeout_secs"},
		{"negative rate", func(c *Config) { c.API.RateLimit = -1 }, "api.rate_limit"},
		{"rate without burst", func(c *Config) { c.API.RateBurst = 0 }, "api.rate_burst"},
		{"pacing disabled", func(c *Config) { c.API.RateLimit = 0; c.API.RateBurst = 0 }, ""},
		{"poll too fast", func(c *Config) { c.Sync.PollIntervalMs = 100 }, "sync.poll_interval_ms"},
		{"list too fast", func(c *Config) { c.Sync.ListRefreshMs = 10 }, "sync.list_refresh_ms"},
		{"history too large", func(c *Config) { c.Sync.HistoryLimit = 1000 }, "sync.history_limit"},
		{"degraded zero", func(c *Config) { c.Sync.DegradedAfter = 0 }, "sync.degraded_after"},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidateErrors, got %v", err)
			}
			if len(verrs) != 1 || verrs[0].Field != tt.field {
				t.Errorf("expected one error on %s, got %v", tt.field, verrs)
			}
		})
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
}

func TestLoad_TOMLPartialFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".catchat", "config.toml")
	writeFile(t, path, `
[api]
base_url = "http://localhost:8000"

[sync]
poll_interval_ms = 1500
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Sync.PollIntervalMs != 1500 {
		t.Errorf("PollIntervalMs = %d", cfg.Sync.PollIntervalMs)
	}
	if cfg.Sync.ListRefreshMs != DefaultListRefreshMs {
		t.Errorf("unset key should keep default, got %d", cfg.Sync.ListRefreshMs)
	}
	if !cfg.UI.RenderMarkdown {
		t.Error("unset bool should keep default true")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config perms = %o, want 600", info.Mode().Perm())
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".catchat", "config.json"), `{"ui": {"theme": "light"}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".catchat", "config.toml"), "[sync]\nhistory_limit = 0\npoll_interval_ms = 5\n")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "sync.poll_interval_ms") {
		t.Fatalf("expected poll interval validation error, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIBase, "http://127.0.0.1:9000/")
	t.Setenv(EnvStateDir, "/tmp/catchat-state")
	t.Setenv(EnvVerbose, "true")
	t.Setenv(EnvToken, " abc ")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "http://127.0.0.1:9000" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Storage.Dir != "/tmp/catchat-state" {
		t.Errorf("Storage.Dir = %q", cfg.Storage.Dir)
	}
	if cfg.Log.Path != filepath.Join("/tmp/catchat-state", "catchat.log") {
		t.Errorf("Log.Path = %q", cfg.Log.Path)
	}
	if !cfg.Log.Verbose {
		t.Error("expected verbose")
	}
	if TokenFromEnv() != "abc" {
		t.Errorf("TokenFromEnv = %q", TokenFromEnv())
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("sync.poll_interval_ms", "4500"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := cfg.Get("sync.poll_interval_ms")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.(int) != 4500 {
		t.Errorf("Get = %v", v)
	}

	if err := cfg.Set("ui.render_markdown", "off"); err != nil {
		t.Fatalf("Set bool: %v", err)
	}
	if cfg.UI.RenderMarkdown {
		t.Error("render_markdown should be false")
	}
	if err := cfg.Set("api.rate_limit", 2.5); err != nil {
		t.Fatalf("Set float: %v", err)
	}
	if cfg.API.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v", cfg.API.RateLimit)
	}

	for _, bad := range []string{"", "nope", "sync", "sync.nope", "sync.poll_interval_ms.x"} {
		if _, err := cfg.Get(bad); err == nil {
			t.Errorf("Get(%q) should fail", bad)
		}
	}
	if err := cfg.Set("sync.history_limit", "many"); err == nil {
		t.Error("non-numeric int should fail")
	}
	if err := cfg.Set("ui.compact_mode", "maybe"); err == nil {
		t.Error("non-boolean should fail")
	}
}

func TestKeys(t *testing.T) {
	cfg := Default()
	keys := Keys()
	if len(keys) == 0 {
		t.Fatal("no keys")
	}
	for _, k := range keys {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("Keys() lists %q but Get fails: %v", k, err)
		}
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.API.BaseURL = "http://localhost:8000"
	cfg.UI.CompactMode = true
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perms = %o, want 600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.API.BaseURL != cfg.API.BaseURL || !loaded.UI.CompactMode {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	got := make(chan *Config, 4)
	w, err := WatchWithDebounce(path, 20*time.Millisecond, func(cfg *Config, err error) {
		if err == nil {
			got <- cfg
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	cfg := Default()
	cfg.Sync.PollIntervalMs = 1000
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case reloaded := <-got:
		if reloaded.Sync.PollIntervalMs != 1000 {
			t.Errorf("PollIntervalMs = %d", reloaded.Sync.PollIntervalMs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatch_IgnoresSiblings(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	called := make(chan struct{}, 1)
	w, err := WatchWithDebounce(path, 10*time.Millisecond, func(*Config, error) {
		select {
		case called <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	writeFile(t, filepath.Join(dir, "other.txt"), "x")
	select {
	case <-called:
		t.Fatal("reload triggered by unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}
