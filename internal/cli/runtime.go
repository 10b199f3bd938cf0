// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/catachess/catchat-tui/internal/api"
	"github.com/catachess/catchat-tui/internal/auth"
	"github.com/catachess/catchat-tui/internal/config"
	"github.com/catachess/catchat-tui/internal/storage"
)

// sessionDir returns the directory for session-scoped credentials.
// Tests point it at a temp dir.
var sessionDir = storage.DefaultSessionDir

// Runtime bundles what every networked command needs.
type Runtime struct {
	Config *config.Config
	Store  *auth.TieredStore
	Client *api.Client

	persistent *storage.SQLiteTier
}

// OpenRuntime builds a Runtime from the global configuration with
// command-line overrides applied.
func OpenRuntime(args Args) (*Runtime, error) {
	cfg := config.Global().Clone()
	if args.APIBase != "" {
		cfg.API.BaseURL = strings.TrimRight(args.APIBase, "/")
	}
	if args.Verbose {
		cfg.Log.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	rt, err := NewRuntime(cfg)
	if err != nil {
		return nil, err
	}

	token := args.Token
	if token == "" {
		token = config.TokenFromEnv()
	}
	if token != "" {
		if err := rt.Store.Save(token, false); err != nil {
			rt.Close()
			return nil, fmt.Errorf("store token: %w", err)
		}
	}
	return rt, nil
}

// NewRuntime opens the credential tiers under cfg.Storage.Dir and the
// session directory and builds the API client.
func NewRuntime(cfg *config.Config) (*Runtime, error) {
	if err := os.MkdirAll(cfg.Storage.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	persistent, err := storage.OpenSQLiteTier(filepath.Join(cfg.Storage.Dir, "state.db"))
	if err != nil {
		return nil, err
	}

	dir := sessionDir()
	if n, err := storage.PruneStale(dir); err != nil {
		log.Printf("storage: prune stale sessions: %v", err)
	} else if n > 0 {
		log.Printf("storage: pruned %d stale session file(s)", n)
	}

	store := auth.NewTieredStore(persistent, storage.NewSessionTier(dir))
	client := api.New(store).
		WithBaseURL(cfg.API.BaseURL).
		WithTimeout(cfg.API.Timeout()).
		WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst).
		WithUserAgent("catchat-tui/" + Version).
		WithVerbose(cfg.Log.Verbose)

	return &Runtime{
		Config:     cfg,
		Store:      store,
		Client:     client,
		persistent: persistent,
	}, nil
}

// Close releases the persistent store.
func (r *Runtime) Close() error {
	if r.persistent == nil {
		return nil
	}
	return r.persistent.Close()
}
