// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/catachess/catchat-tui/internal/api"
	"github.com/catachess/catchat-tui/internal/config"
)

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	CheckWarn
	CheckFail
)

// String returns the string representation of the check status.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns the styled marker for the check status.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return SuccessStyle.Render("[OK]")
	case CheckWarn:
		return WarningStyle.Render("[!!]")
	default:
		return ErrorStyle.Render("[FAIL]")
	}
}

// HealthCheck is one doctor result.
type HealthCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"-"`
	Message string      `json:"message"`
	Fix     string      `json:"fix,omitempty"`
}

// Render returns the check wrapped to width, with its fix when failing.
func (c *HealthCheck) Render(width int) string {
	symbol := c.Status.Symbol() + " "
	msg := lipgloss.NewStyle().Width(width - lipgloss.Width(symbol)).Render(c.Message)
	out := lipgloss.JoinHorizontal(lipgloss.Top, symbol, msg)
	if c.Status != CheckPass && c.Fix != "" {
		out += "\n" + MutedStyle.Width(width).PaddingLeft(4).Render("-> "+c.Fix)
	}
	return out
}

// DoctorSummary counts the results.
type DoctorSummary struct {
	Passed  int  `json:"passed"`
	Warned  int  `json:"warned"`
	Failed  int  `json:"failed"`
	Healthy bool `json:"healthy"`
}

type doctorCheckJSON struct {
	*HealthCheck
	Status string `json:"status"`
}

// HandleDoctor handles "catchat doctor".
func HandleDoctor(args Args) error {
	cfg := config.Global().Clone()
	if args.APIBase != "" {
		cfg.API.BaseURL = strings.TrimRight(args.APIBase, "/")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	checks := RunChecks(ctx, cfg, args.Token)
	summary := Summarize(checks)

	if args.JSON {
		out := make([]doctorCheckJSON, len(checks))
		for i, c := range checks {
			out[i] = doctorCheckJSON{HealthCheck: c, Status: c.Status.String()}
		}
		resp := NewJSONResponse("doctor", map[string]any{"checks": out, "summary": summary})
		if !summary.Healthy {
			msg := fmt.Sprintf("%d check(s) failed", summary.Failed)
			resp.Success = false
			resp.Error = &msg
		}
		return resp.Print()
	}

	fmt.Println(TitleStyle.Render("catchat doctor"))
	width := GetTerminalWidth()
	for _, c := range checks {
		fmt.Println(c.Render(width))
	}
	fmt.Println()
	parts := []string{fmt.Sprintf("%d passed", summary.Passed)}
	if summary.Warned > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d warning", summary.Warned)))
	}
	if summary.Failed > 0 {
		parts = append(parts, ErrorStyle.Render(fmt.Sprintf("%d failed", summary.Failed)))
	}
	fmt.Println(MutedStyle.Render(strings.Join(parts, ", ")))

	if !summary.Healthy {
		return fmt.Errorf("%d check(s) failed", summary.Failed)
	}
	return nil
}

// Summarize counts check results.
func Summarize(checks []*HealthCheck) DoctorSummary {
	var s DoctorSummary
	for _, c := range checks {
		switch c.Status {
		case CheckPass:
			s.Passed++
		case CheckWarn:
			s.Warned++
		case CheckFail:
			s.Failed++
		}
	}
	s.Healthy = s.Failed == 0
	return s
}

// RunChecks runs every check against cfg. token overrides the stored
// credential when non-empty.
func RunChecks(ctx context.Context, cfg *config.Config, token string) []*HealthCheck {
	checks := []*HealthCheck{
		checkConfigValid(cfg),
		checkStateDirWritable(cfg.Storage.Dir),
	}

	rt, err := NewRuntime(cfg)
	if err != nil {
		return append(checks, &HealthCheck{
			Name:    "credentials",
			Status:  CheckFail,
			Message: "Credential store unavailable: " + err.Error(),
			Fix:     "Check permissions on " + cfg.Storage.Dir,
		})
	}
	defer rt.Close()
	if token != "" {
		_ = rt.Store.Save(token, false)
	}

	checks = append(checks, checkCredential(rt))
	checks = append(checks, checkBackend(ctx, rt))
	return checks
}

func checkConfigValid(cfg *config.Config) *HealthCheck {
	check := &HealthCheck{Name: "config"}
	if err := cfg.Validate(); err != nil {
		check.Status = CheckFail
		check.Message = "Configuration invalid: " + err.Error()
		check.Fix = "Run: catchat config show"
		return check
	}
	check.Status = CheckPass
	check.Message = "Configuration valid"
	return check
}

func checkStateDirWritable(dir string) *HealthCheck {
	check := &HealthCheck{Name: "state_dir"}
	if err := os.MkdirAll(dir, 0700); err != nil {
		check.Status = CheckFail
		check.Message = "Cannot create state directory " + dir
		check.Fix = err.Error()
		return check
	}
	marker := filepath.Join(dir, ".doctor-write-check")
	if err := os.WriteFile(marker, []byte("ok"), 0600); err != nil {
		check.Status = CheckFail
		check.Message = "State directory not writable: " + dir
		check.Fix = err.Error()
		return check
	}
	os.Remove(marker)
	check.Status = CheckPass
	check.Message = "State directory writable (" + dir + ")"
	return check
}

func checkCredential(rt *Runtime) *HealthCheck {
	check := &HealthCheck{Name: "credentials"}
	token, ok := rt.Store.Get()
	if !ok {
		check.Status = CheckWarn
		check.Message = "Not signed in"
		check.Fix = "Run: catchat login"
		return check
	}
	claims, err := api.TokenClaims(token)
	switch {
	case err != nil:
		check.Status = CheckWarn
		check.Message = "Stored credential is not a readable token"
	case claims.Expired(time.Now()):
		check.Status = CheckFail
		check.Message = "Stored credential expired " + claims.ExpiresAt.Local().Format(time.RFC1123)
		check.Fix = "Run: catchat login"
	default:
		check.Status = CheckPass
		check.Message = "Credential present"
		if rt.Store.Persistent() {
			check.Message += " (remembered)"
		} else {
			check.Message += " (this terminal session)"
		}
	}
	return check
}

func checkBackend(ctx context.Context, rt *Runtime) *HealthCheck {
	check := &HealthCheck{Name: "backend"}
	base := rt.Client.BaseURL()
	if _, ok := rt.Store.Get(); !ok {
		check.Status = CheckWarn
		check.Message = "Backend " + base + " not checked (not signed in)"
		return check
	}
	start := time.Now()
	user, err := rt.Client.Profile(ctx)
	switch {
	case err == nil:
		check.Status = CheckPass
		check.Message = fmt.Sprintf("Backend reachable as %s (%s)", user.DisplayName(), time.Since(start).Round(time.Millisecond))
	case api.IsUnauthorized(err):
		check.Status = CheckFail
		check.Message = "Backend rejected the stored credential"
		check.Fix = "Run: catchat login"
	default:
		check.Status = CheckFail
		check.Message = "Backend " + base + " unreachable: " + err.Error()
		check.Fix = "Check api.base_url or set CATCHAT_API_BASE"
	}
	return check
}
