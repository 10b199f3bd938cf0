// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/catachess/catchat-tui/internal/route"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdWhoami
	CmdConfig
	CmdDoctor
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	APIBase string
	Token   string
	Verbose bool
	JSON    bool

	// Location is where the TUI opens, e.g. "/chat/bob"
	Location string

	// login
	Identifier    string
	Remember      bool
	PasswordStdin bool

	// config
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Unknown holds the unrecognised command name for CmdUnknown
	Unknown string

	// Raw args (remaining after the command name)
	Raw []string
}

const usageText = `catchat - terminal client for catachess chat

Usage:
  catchat                          Start the TUI (default)
  catchat open <location>          Start at a location (/chat/bob, /group/<id>, /broadcast)
  catchat chat <username>          Open a direct conversation
  catchat group <id>               Open a group
  catchat broadcast                Open the broadcast feed
  catchat login                    Sign in
    --identifier <name>            Username or email (prompted if omitted)
    --no-remember                  Keep the credential for this terminal session only
    --password-stdin               Read the password from stdin
  catchat logout                   Forget the stored credential
  catchat whoami                   Show the signed-in user
  catchat config [show|get|set|path]
                                   Show or change configuration
  catchat doctor                   Check configuration, storage and backend
  catchat version                  Show version
  catchat help                     Show this help

Global flags:
  --api <url>                      Backend base URL (env CATCHAT_API_BASE)
  --token <token>                  Use this credential (env CATCHAT_TOKEN)
  --verbose, -v                    Log requests to the log file
  --json                           Machine-readable output

Configuration:
  ~/.catchat/config.toml           See "catchat config show"

Examples:
  catchat chat alice
  catchat login --identifier alice@example.com --no-remember
  catchat config set sync.poll_interval_ms 5000
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("catchat %s (%s, built %s, %s/%s)\n", Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining
	p := NewArgParser(remaining)

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "open":
		parsed.Location = p.Positional(0)
		return CmdTUI, parsed

	case "chat", "dm":
		if peer := p.Positional(0); peer != "" {
			parsed.Location = route.DirectTo(peer).Location()
		}
		return CmdTUI, parsed

	case "group":
		if id := p.Positional(0); id != "" {
			parsed.Location = route.GroupOf(id).Location()
		}
		return CmdTUI, parsed

	case "broadcast", "broadcasts":
		parsed.Location = route.BroadcastFeed().Location()
		return CmdTUI, parsed

	case "login", "signin":
		parsed.Identifier = p.Flag("identifier")
		parsed.Remember = !p.BoolFlag("no-remember")
		parsed.PasswordStdin = p.BoolFlag("password-stdin")
		return CmdLogin, parsed

	case "logout", "signout":
		return CmdLogout, parsed

	case "whoami", "me":
		return CmdWhoami, parsed

	case "config":
		parsed.Subcommand = p.Subcommand()
		parsed.ConfigKey = p.Positional(1)
		parsed.ConfigVal = strings.Join(p.PositionalFrom(2), " ")
		return CmdConfig, parsed

	case "doctor", "diag":
		return CmdDoctor, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "--help", "-h":
		return CmdHelp, parsed

	default:
		parsed.Unknown = cmd
		return CmdUnknown, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining
// args. Global flags may appear anywhere on the command line.
func parseGlobalFlags(args []string) ([]string, Args) {
	var parsed Args
	parsed.Remember = true
	remaining := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")

		switch name {
		case "--api":
			if !hasValue && i+1 < len(args) {
				i++
				value = args[i]
			}
			parsed.APIBase = value
		case "--token":
			if !hasValue && i+1 < len(args) {
				i++
				value = args[i]
			}
			parsed.Token = value
		case "--verbose", "-v":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsed
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	if !args.JSON {
		PrintVersion()
		return nil
	}
	return NewJSONResponse("version", map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}).Print()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}

// HandleUnknown reports an unrecognised command, with a suggestion when
// one is close.
func HandleUnknown(args Args) error {
	msg := fmt.Sprintf("unknown command %q", args.Unknown)
	if s := SuggestCommand(args.Unknown); s != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return &UsageError{Message: msg}
}
