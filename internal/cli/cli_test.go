// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catachess/catchat-tui/internal/api"
	"github.com/catachess/catchat-tui/internal/apitest"
	"github.com/catachess/catchat-tui/internal/config"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_LongFlagWithValue(t *testing.T) {
	p := NewArgParser([]string{"--identifier", "alice"})
	if got := p.Flag("identifier"); got != "alice" {
		t.Errorf("Flag(identifier) = %q, want %q", got, "alice")
	}
}

func TestArgParser_EqualsSyntax(t *testing.T) {
	p := NewArgParser([]string{"--identifier=alice@example.com", "--json=true"})
	if got := p.Flag("identifier"); got != "alice@example.com" {
		t.Errorf("Flag(identifier) = %q", got)
	}
	if !p.BoolFlag("json") {
		t.Error("BoolFlag(json) = false, want true")
	}
}

func TestArgParser_BoolFlagDoesNotEatPositional(t *testing.T) {
	p := NewArgParser([]string{"--no-remember", "extra"})
	if !p.BoolFlag("no-remember") {
		t.Error("BoolFlag(no-remember) = false")
	}
	if got := p.Positional(0); got != "extra" {
		t.Errorf("Positional(0) = %q, want %q", got, "extra")
	}
}

func TestArgParser_Positionals(t *testing.T) {
	p := NewArgParser([]string{"set", "ui.theme", "light", "--", "--literal"})
	if p.Subcommand() != "set" {
		t.Errorf("Subcommand() = %q", p.Subcommand())
	}
	if p.PositionalCount() != 4 {
		t.Errorf("PositionalCount() = %d, want 4", p.PositionalCount())
	}
	assert.Equal(t, []string{"light", "--literal"}, p.PositionalFrom(2))
	assert.Equal(t, "", p.Positional(9))
	assert.Nil(t, p.PositionalFrom(9))
}

func TestArgParser_HasFlag(t *testing.T) {
	p := NewArgParser([]string{"--identifier", "x", "--json"})
	assert.True(t, p.HasFlag("identifier"))
	assert.True(t, p.HasFlag("--json"))
	assert.False(t, p.HasFlag("token"))
	assert.Equal(t, "fallback", p.FlagOrDefault("token", "fallback"))
}

// =============================================================================
// PARSE ARGS TESTS
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		cmd      Command
		location string
	}{
		{"default is tui", nil, CmdTUI, ""},
		{"explicit tui", []string{"tui"}, CmdTUI, ""},
		{"open location", []string{"open", "/group/g1"}, CmdTUI, "/group/g1"},
		{"chat peer", []string{"chat", "bob"}, CmdTUI, "/chat/bob"},
		{"dm alias", []string{"dm", "bob"}, CmdTUI, "/chat/bob"},
		{"group id", []string{"group", "g1"}, CmdTUI, "/group/g1"},
		{"broadcast", []string{"broadcast"}, CmdTUI, "/broadcast"},
		{"login", []string{"login"}, CmdLogin, ""},
		{"logout", []string{"logout"}, CmdLogout, ""},
		{"whoami", []string{"whoami"}, CmdWhoami, ""},
		{"config", []string{"config", "get", "ui.theme"}, CmdConfig, ""},
		{"doctor", []string{"doctor"}, CmdDoctor, ""},
		{"version", []string{"version"}, CmdVersion, ""},
		{"help flag", []string{"--help"}, CmdHelp, ""},
		{"unknown", []string{"frobnicate"}, CmdUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			if cmd != tt.cmd {
				t.Errorf("cmd = %v, want %v", cmd, tt.cmd)
			}
			if args.Location != tt.location {
				t.Errorf("Location = %q, want %q", args.Location, tt.location)
			}
		})
	}
}

func TestParseArgs_GlobalFlagsAnywhere(t *testing.T) {
	cmd, args := ParseArgs([]string{"whoami", "--api=http://localhost:9000", "--json", "--token", "tok", "-v"})
	assert.Equal(t, CmdWhoami, cmd)
	assert.Equal(t, "http://localhost:9000", args.APIBase)
	assert.Equal(t, "tok", args.Token)
	assert.True(t, args.JSON)
	assert.True(t, args.Verbose)
}

func TestParseArgs_Login(t *testing.T) {
	_, args := ParseArgs([]string{"login", "--identifier", "alice"})
	assert.Equal(t, "alice", args.Identifier)
	assert.True(t, args.Remember, "remember defaults to on")

	_, args = ParseArgs([]string{"login", "--no-remember", "--password-stdin"})
	assert.False(t, args.Remember)
	assert.True(t, args.PasswordStdin)
}

func TestParseArgs_ConfigSetJoinsValue(t *testing.T) {
	_, args := ParseArgs([]string{"config", "set", "api.base_url", "http://x"})
	assert.Equal(t, "set", args.Subcommand)
	assert.Equal(t, "api.base_url", args.ConfigKey)
	assert.Equal(t, "http://x", args.ConfigVal)
}

func TestParseArgs_Unknown(t *testing.T) {
	cmd, args := ParseArgs([]string{"wohami"})
	require.Equal(t, CmdUnknown, cmd)
	err := HandleUnknown(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"whoami"`)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

// =============================================================================
// SUGGEST / TERMINAL / ERRORS
// =============================================================================

func TestSuggestCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"logni", "login"},
		{"hepl", "help"},
		{"doctr", "doctor"},
		{"brodcast", "broadcast"},
		{"login", ""},
		{"x", ""},
		{"completelyunrelated", ""},
	}
	for _, tt := range tests {
		if got := SuggestCommand(tt.input); got != tt.want {
			t.Errorf("SuggestCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("chat", "chat"))
	assert.Equal(t, 3, editDistance("", "abc"))
	assert.Equal(t, 1, editDistance("café", "cafe"))
}

func TestColorDecision(t *testing.T) {
	assert.False(t, colorDecision("1", "1", true), "NO_COLOR wins")
	assert.True(t, colorDecision("", "1", false))
	assert.True(t, colorDecision("", "", true))
	assert.False(t, colorDecision("", "", false))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitUsageError, ExitCode(&UsageError{Message: "x"}))
	assert.Equal(t, ExitConfigError, ExitCode(&ConfigError{Err: errors.New("bad")}))
	assert.Equal(t, ExitAuthError, ExitCode(ErrNotLoggedIn))
	assert.Equal(t, ExitAuthError, ExitCode(loginError(&api.Error{Kind: api.KindUnauthorized, Status: 401})))
	assert.Equal(t, ExitNetworkError, ExitCode(&api.Error{Message: "dial", Err: errors.New("refused")}))
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("boom")))
}

// =============================================================================
// NETWORKED COMMANDS
// =============================================================================

// testRuntime returns a Runtime with state in temp dirs, talking to srv.
func testRuntime(t *testing.T, srv *apitest.Server) *Runtime {
	t.Helper()
	sessions := t.TempDir()
	prev := sessionDir
	sessionDir = func() string { return sessions }
	t.Cleanup(func() { sessionDir = prev })

	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()
	cfg.API.BaseURL = srv.URL
	cfg.API.RateLimit = 0

	rt, err := NewRuntime(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestLogin_RememberPersists(t *testing.T) {
	srv := apitest.New(t)
	alice := srv.AddUser("alice", "pw", "user")
	rt := testRuntime(t, srv)

	user, err := Login(context.Background(), rt, "alice@example.com", "pw", true)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	assert.True(t, rt.Store.Persistent())

	id, ok := rt.Store.UserID()
	assert.True(t, ok)
	assert.Equal(t, alice.ID, id)

	// A second runtime over the same state dir sees the credential.
	again, err := NewRuntime(rt.Config)
	require.NoError(t, err)
	defer again.Close()
	_, ok = again.Store.Get()
	assert.True(t, ok)
}

func TestLogin_SessionOnly(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("alice", "pw", "user")
	rt := testRuntime(t, srv)

	_, err := Login(context.Background(), rt, "alice", "pw", false)
	require.NoError(t, err)
	assert.False(t, rt.Store.Persistent())
	_, ok := rt.Store.Get()
	assert.True(t, ok)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("alice", "pw", "user")
	rt := testRuntime(t, srv)

	_, err := Login(context.Background(), rt, "alice", "wrong", true)
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.True(t, api.IsUnauthorized(err))
	_, ok := rt.Store.Get()
	assert.False(t, ok)
}

func TestLogin_RequiresFields(t *testing.T) {
	srv := apitest.New(t)
	rt := testRuntime(t, srv)

	_, err := Login(context.Background(), rt, " ", "pw", true)
	var ue *UsageError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, 0, srv.CountRequests("POST", "/auth/login/json"))
}

func TestWhoami(t *testing.T) {
	srv := apitest.New(t)
	bob := srv.AddUser("bob", "pw", "admin")
	rt := testRuntime(t, srv)

	_, err := Whoami(context.Background(), rt)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, rt.Store.Save(srv.TokenFor(bob.ID), false))
	data, err := Whoami(context.Background(), rt)
	require.NoError(t, err)
	assert.Equal(t, "bob", data.Username)
	assert.Equal(t, "bob@example.com", data.Identifier)
	assert.Equal(t, "admin", data.Role)
	assert.False(t, data.Persistent)
	assert.Equal(t, srv.URL, data.Server)
	require.NotNil(t, data.ExpiresAt)
}

func TestWhoami_RevokedToken(t *testing.T) {
	srv := apitest.New(t)
	bob := srv.AddUser("bob", "pw", "user")
	rt := testRuntime(t, srv)
	require.NoError(t, rt.Store.Save(srv.TokenFor(bob.ID), true))
	srv.RevokeAll()

	_, err := Whoami(context.Background(), rt)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, ok := rt.Store.Get()
	assert.False(t, ok, "a 401 clears the stored credential")
}

func TestRunChecks(t *testing.T) {
	srv := apitest.New(t)
	bob := srv.AddUser("bob", "pw", "user")
	rt := testRuntime(t, srv)

	checks := RunChecks(context.Background(), rt.Config, "")
	s := Summarize(checks)
	assert.True(t, s.Healthy)
	assert.Equal(t, 2, s.Warned, "not signed in: credential and backend warn")

	checks = RunChecks(context.Background(), rt.Config, srv.TokenFor(bob.ID))
	s = Summarize(checks)
	assert.Equal(t, DoctorSummary{Passed: 4, Healthy: true}, s)

	bad := rt.Config.Clone()
	bad.Sync.PollIntervalMs = 1
	s = Summarize(RunChecks(context.Background(), bad, ""))
	assert.False(t, s.Healthy)
}

func TestHealthCheck_RenderWrapsToWidth(t *testing.T) {
	c := &HealthCheck{
		Name:    "backend",
		Status:  CheckFail,
		Message: "Backend unreachable at https://chess.example.com/api after several attempts",
		Fix:     "Check the api.base_url setting or pass --api with the right address",
	}

	out := c.Render(MinTerminalWidth)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), MinTerminalWidth, "line %q", line)
	}
	flat := strings.Join(strings.Fields(out), " ")
	assert.Contains(t, flat, c.Message)
	assert.Contains(t, flat, "-> "+c.Fix)

	c.Status = CheckPass
	assert.NotContains(t, c.Render(DefaultTerminalWidth), "->")
}

func TestGetTerminalWidth_Bounds(t *testing.T) {
	w := GetTerminalWidth()
	assert.GreaterOrEqual(t, w, MinTerminalWidth)
	if !IsStdoutTTY() {
		assert.Equal(t, DefaultTerminalWidth, w)
	}
}

// =============================================================================
// CONFIG / JSON
// =============================================================================

func TestSetConfigValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, SetConfigValue(path, "sync.poll_interval_ms", "5000"))
	cfg := config.Default()
	require.NoError(t, config.LoadTOML(cfg, path))
	assert.Equal(t, 5000, cfg.Sync.PollIntervalMs)

	err := SetConfigValue(path, "sync.poll_interval_ms", "10")
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)

	err = SetConfigValue(path, "nope.key", "1")
	var ue *UsageError
	assert.ErrorAs(t, err, &ue)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestJSONResponse(t *testing.T) {
	var buf bytes.Buffer
	prev := jsonOut
	jsonOut = &buf
	defer func() { jsonOut = prev }()

	err := OutputJSON(true, "whoami", func() (any, error) {
		return map[string]string{"username": "alice"}, nil
	})
	require.NoError(t, err)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "whoami", resp.Command)
	assert.Nil(t, resp.Error)

	errResp := NewJSONErrorResponse("login", errors.New("Invalid credentials"))
	assert.False(t, errResp.Success)
	assert.Contains(t, errResp.String(), "Invalid credentials")
}
