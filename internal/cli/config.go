// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/catachess/catchat-tui/internal/config"
)

// HandleConfig handles "catchat config [show|get|set|path]".
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show", "list":
		return handleConfigShow(args)
	case "get":
		return handleConfigGet(args)
	case "set":
		return handleConfigSet(args)
	case "path":
		return handleConfigPath(args)
	default:
		return &UsageError{Message: fmt.Sprintf("unknown config subcommand %q (use show, get, set or path)", args.Subcommand)}
	}
}

func handleConfigShow(args Args) error {
	cfg := config.Global()
	if args.JSON {
		values := make(map[string]any, len(config.Keys()))
		for _, key := range config.Keys() {
			v, err := cfg.Get(key)
			if err != nil {
				return err
			}
			values[key] = v
		}
		return NewJSONResponse("config", values).Print()
	}

	fmt.Println(TitleStyle.Render("catchat configuration"))
	for _, key := range config.Keys() {
		v, _ := cfg.Get(key)
		printField(key, v)
	}
	return nil
}

func handleConfigGet(args Args) error {
	if args.ConfigKey == "" {
		return &UsageError{Message: "usage: catchat config get <key>"}
	}
	v, err := config.Global().Get(args.ConfigKey)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]any{args.ConfigKey: v}).Print()
	}
	fmt.Println(v)
	return nil
}

func handleConfigSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return &UsageError{Message: "usage: catchat config set <key> <value>"}
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return &ConfigError{Err: err}
	}
	if err := SetConfigValue(path, args.ConfigKey, args.ConfigVal); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]string{args.ConfigKey: args.ConfigVal}).Print()
	}
	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), args.ConfigKey, args.ConfigVal)
	return nil
}

// SetConfigValue updates one key in the TOML file at path. Environment
// overrides are not applied, so they never leak into the file.
func SetConfigValue(path, key, value string) error {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return &ConfigError{Err: err}
		}
	}
	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}

func handleConfigPath(args Args) error {
	path, err := config.Path()
	if err != nil {
		return &ConfigError{Err: err}
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]string{"path": path}).Print()
	}
	fmt.Println(path)
	return nil
}
