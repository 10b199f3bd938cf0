// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/catachess/catchat-tui/internal/api"
	"github.com/catachess/catchat-tui/internal/model"
)

// commandTimeout bounds each networked command.
const commandTimeout = 30 * time.Second

// stdin is the source for non-interactive input; tests replace it.
var stdin io.Reader = os.Stdin

// HandleLogin handles "catchat login".
func HandleLogin(args Args) error {
	rt, err := OpenRuntime(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	in := bufio.NewReader(stdin)

	identifier := strings.TrimSpace(args.Identifier)
	if identifier == "" {
		if identifier, err = promptLine(in, "Username or email: "); err != nil {
			return err
		}
	}

	var password string
	if args.PasswordStdin {
		password, err = readLine(in)
	} else {
		password, err = readPassword()
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	user, err := Login(ctx, rt, identifier, password, args.Remember)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("login", map[string]any{
			"id":         user.ID,
			"username":   user.DisplayName(),
			"remembered": args.Remember,
		}).Print()
	}
	fmt.Printf("%s Signed in as %s\n", SuccessStyle.Render("[OK]"), user.DisplayName())
	if !args.Remember {
		fmt.Println(MutedStyle.Render("Credential kept for this terminal session only."))
	}
	return nil
}

// Login exchanges credentials for a token, stores it in the tier chosen by
// remember, and fetches the profile. A 401 becomes "Invalid credentials".
func Login(ctx context.Context, rt *Runtime, identifier, password string, remember bool) (*model.CurrentUser, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return nil, &UsageError{Message: "identifier and password are required"}
	}

	resp, err := rt.Client.Login(ctx, identifier, password)
	if err != nil {
		return nil, loginError(err)
	}
	if err := rt.Store.Save(resp.AccessToken, remember); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	user, err := rt.Client.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if err := rt.Store.SetUserID(user.ID); err != nil {
		return nil, fmt.Errorf("store user id: %w", err)
	}
	return user, nil
}

type loginFailure struct {
	msg string
	err error
}

func (e *loginFailure) Error() string { return e.msg }
func (e *loginFailure) Unwrap() error { return e.err }

func loginError(err error) error {
	return &loginFailure{msg: api.LoginMessage(err), err: err}
}

// HandleLogout handles "catchat logout".
func HandleLogout(args Args) error {
	rt, err := OpenRuntime(Args{APIBase: args.APIBase})
	if err != nil {
		return err
	}
	defer rt.Close()

	_, had := rt.Store.Get()
	if err := rt.Store.Clear(); err != nil {
		return NewCommandError("logout", "clear", "could not remove stored credential", err)
	}

	if args.JSON {
		return NewJSONResponse("logout", map[string]bool{"cleared": had}).Print()
	}
	if had {
		fmt.Printf("%s Signed out\n", SuccessStyle.Render("[OK]"))
	} else {
		fmt.Println(MutedStyle.Render("Not signed in."))
	}
	return nil
}

// WhoamiData is the --json payload of "catchat whoami".
type WhoamiData struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Identifier string     `json:"identifier"`
	Role       string     `json:"role"`
	Persistent bool       `json:"persistent"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Server     string     `json:"server"`
}

// HandleWhoami handles "catchat whoami".
func HandleWhoami(args Args) error {
	rt, err := OpenRuntime(args)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	data, err := Whoami(ctx, rt)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("whoami", data).Print()
	}
	fmt.Println(TitleStyle.Render("catchat whoami"))
	printField("Username", data.Username)
	printField("Identifier", data.Identifier)
	printField("User ID", data.ID)
	printField("Role", data.Role)
	printField("Server", data.Server)
	if data.Persistent {
		printField("Remembered", "yes")
	} else {
		printField("Remembered", "this terminal session only")
	}
	if data.ExpiresAt != nil {
		printField("Expires", data.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// Whoami fetches the profile for the stored credential.
func Whoami(ctx context.Context, rt *Runtime) (*WhoamiData, error) {
	token, ok := rt.Store.Get()
	if !ok {
		return nil, ErrNotLoggedIn
	}

	user, err := rt.Client.Profile(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: stored credential was rejected", ErrNotLoggedIn)
		}
		return nil, err
	}

	data := &WhoamiData{
		ID:         user.ID,
		Username:   user.DisplayName(),
		Identifier: user.Identifier,
		Role:       user.Role,
		Persistent: rt.Store.Persistent(),
		Server:     rt.Client.BaseURL(),
	}
	if claims, err := api.TokenClaims(token); err == nil && !claims.ExpiresAt.IsZero() {
		exp := claims.ExpiresAt
		data.ExpiresAt = &exp
	}
	return data, nil
}

// =============================================================================
// INPUT
// =============================================================================

// promptLine asks for one line, with line editing when stdin is a terminal.
func promptLine(in *bufio.Reader, prompt string) (string, error) {
	if !IsTTY() {
		return readLine(in)
	}
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	value, err := line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errors.New("aborted")
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// readPassword reads a password without echo.
func readPassword() (string, error) {
	if err := RequiresTTY("read a password (use --password-stdin)"); err != nil {
		return "", err
	}
	fmt.Print("Password: ")
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(passBytes), nil
}

func readLine(in *bufio.Reader) (string, error) {
	s, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}
