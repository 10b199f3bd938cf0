// catchat - a terminal client for catachess chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/catachess/catchat-tui/internal/cli"
	"github.com/catachess/catchat-tui/internal/config"
	"github.com/catachess/catchat-tui/internal/reconcile"
	"github.com/catachess/catchat-tui/internal/route"
	"github.com/catachess/catchat-tui/internal/ui/app"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()
	name, err := dispatch(cmd, args)
	cli.HandleErrorAndExit(name, err, args.JSON)
}

// dispatch runs cmd and returns the command name used in error output.
func dispatch(cmd cli.Command, args cli.Args) (string, error) {
	switch cmd {
	case cli.CmdTUI:
		return "tui", runTUI(args)
	case cli.CmdLogin:
		return "login", cli.HandleLogin(args)
	case cli.CmdLogout:
		return "logout", cli.HandleLogout(args)
	case cli.CmdWhoami:
		return "whoami", cli.HandleWhoami(args)
	case cli.CmdConfig:
		return "config", cli.HandleConfig(args)
	case cli.CmdDoctor:
		return "doctor", cli.HandleDoctor(args)
	case cli.CmdVersion:
		return "version", cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
		return "help", nil
	default:
		return args.Unknown, cli.HandleUnknown(args)
	}
}

// runTUI starts the chat interface at args.Location.
func runTUI(args cli.Args) error {
	if err := cli.RequiresTTY("the chat interface"); err != nil {
		return err
	}

	rt, err := cli.OpenRuntime(args)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.Config

	// The terminal belongs to the TUI; everything else goes to the log file.
	logFile, err := tea.LogToFile(cfg.Log.Path, "catchat")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	// A token carried in the location is remembered and stripped before
	// the location is used for navigation.
	clean, token := route.ExtractToken(args.Location)
	if token != "" {
		if err := rt.Store.Save(token, true); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}

	engine := reconcile.New(rt.Client, reconcile.Options{
		HistoryLimit:  cfg.Sync.HistoryLimit,
		DegradedAfter: cfg.Sync.DegradedAfter,
	})
	m := app.New(app.Deps{
		Config:  cfg,
		Store:   rt.Store,
		Session: rt.Client,
		Engine:  engine,
	}, route.Parse(clean))

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	rt.Client.OnUnauthorized(func() {
		p.Send(app.UnauthorizedMsg{})
	})

	if path, err := config.Path(); err != nil {
		log.Printf("config: no watch: %v", err)
	} else if w, err := config.Watch(path, func(c *config.Config, err error) {
		p.Send(app.ConfigReloadedMsg{Config: c, Err: err})
	}); err != nil {
		log.Printf("config: watch %s: %v", path, err)
	} else {
		defer w.Close()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run catchat: %w", err)
	}
	return nil
}
