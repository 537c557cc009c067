package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/pandal-client/internal/app"
	"github.com/florianilch/pandal-client/internal/auth"
)

// readPassword and isTerminal are replaced in tests to avoid touching the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "password",
		Usage: "account password (prompted without echo when omitted)",
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "display name", Required: true},
			&cli.StringFlag{Name: "email", Usage: "account email", Required: true},
			passwordFlag(),
		},
		Action: withApp(registerAction),
	}
}

func registerAction(ctx context.Context, cmd *cli.Command, a *app.App) error {
	password, err := passwordInput(cmd)
	if err != nil {
		return err
	}

	body, err := a.Auth().Register(ctx, auth.RegisterRequest{
		Name:     cmd.String("name"),
		Email:    cmd.String("email"),
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	return printJSON(cmd, body)
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in and store the session tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "account email", Required: true},
			passwordFlag(),
		},
		Action: withApp(loginAction),
	}
}

func loginAction(ctx context.Context, cmd *cli.Command, a *app.App) error {
	password, err := passwordInput(cmd)
	if err != nil {
		return err
	}

	resp, err := a.Auth().Login(ctx, cmd.String("email"), password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	out := map[string]any{"authenticated": true}
	if resp.ExpiresIn > 0 {
		out["expires_in"] = resp.ExpiresIn
	}
	return printJSON(cmd, out)
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "remove the stored session tokens",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app.App) error {
			a.Auth().Logout(ctx)
			return printJSON(cmd, map[string]any{"authenticated": false})
		}),
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "report whether an access token is stored",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app.App) error {
			ok, err := a.Auth().IsAuthenticated(ctx)
			if err != nil {
				return fmt.Errorf("reading session: %w", err)
			}
			return printJSON(cmd, map[string]any{"authenticated": ok})
		}),
	}
}

// passwordInput returns --password if given, otherwise prompts on the terminal.
func passwordInput(cmd *cli.Command) (string, error) {
	if cmd.IsSet("password") {
		return cmd.String("password"), nil
	}

	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", errors.New("password required: pass --password or run from a terminal")
	}

	w := stderr(cmd)
	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return "", err
	}
	password, err := readPassword(fd)
	_, _ = fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}
