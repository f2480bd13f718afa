package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/config"
	"github.com/novaplanner/nova/internal/keyring"
	"github.com/novaplanner/nova/internal/remote/postgres"
)

// LoginCmd stores the signed-in user id, and optionally a remote connection
// string, in the OS keyring.
type LoginCmd struct {
	User   string `required:"" help:"User id whose goals and folders are synced."`
	Remote string `help:"PostgreSQL connection string to keep in the keyring."`
}

func (cmd *LoginCmd) Run(ctx *cli.Context) error {
	user := strings.TrimSpace(cmd.User)
	if user == "" || strings.ContainsAny(user, "/\\") {
		return fmt.Errorf("invalid user id %q", cmd.User)
	}
	if err := keyring.SetUserID(user); err != nil {
		return fmt.Errorf("failed to store user id in keyring: %w", err)
	}
	fmt.Fprintf(ctx.Out, "✓ Signed in as %s\n", user)

	if cmd.Remote == "" {
		return nil
	}
	if !postgres.IsConnString(cmd.Remote) {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}
	if err := postgres.ValidateConnString(cmd.Remote); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		fmt.Fprintln(ctx.Out, "⚠️  Warning: Connection string contains embedded credentials.")
		fmt.Fprintln(ctx.Out, "   It will be stored as-is in the encrypted OS keyring.")
	}
	if err := keyring.SetConnectionString(cmd.Remote); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}

	cfg := ctx.Config
	cfg.Remote = config.RemoteKeyring
	if err := cfg.Save(ctx.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "✓ Connection string stored in OS keyring")
	fmt.Fprintf(ctx.Out, "  %s now reads the remote from the keyring\n", ctx.ConfigPath)
	return nil
}

// LogoutCmd removes the stored user id. With --remote the connection string goes too.
type LogoutCmd struct {
	Remote bool `help:"Also delete the stored connection string."`
}

func (cmd *LogoutCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteUserID(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("not signed in")
		}
		return fmt.Errorf("failed to delete user id from keyring: %w", err)
	}
	fmt.Fprintln(ctx.Out, "✓ Signed out")

	if !cmd.Remote {
		return nil
	}
	if err := keyring.DeleteConnectionString(); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}
	fmt.Fprintln(ctx.Out, "✓ Connection string deleted from OS keyring")
	return nil
}

// StatusCmd reports who is signed in and where data syncs to.
type StatusCmd struct{}

func (cmd *StatusCmd) Run(ctx *cli.Context) error {
	if ctx.Config.UserID != "" {
		fmt.Fprintf(ctx.Out, "User:    %s\n", ctx.Config.UserID)
	} else {
		fmt.Fprintln(ctx.Out, "User:    (signed out, working offline)")
	}
	fmt.Fprintf(ctx.Out, "Cache:   %s\n", ctx.Local.GetConfigPath())
	fmt.Fprintf(ctx.Out, "Remote:  %s\n", describeRemote(ctx.Config))
	if keyring.IsAvailable() {
		fmt.Fprintln(ctx.Out, "Keyring: available")
	} else {
		fmt.Fprintln(ctx.Out, "Keyring: not available")
	}
	return nil
}

func describeRemote(cfg config.Config) string {
	switch {
	case cfg.RemoteFromKeyring:
		return "postgresql (from keyring)"
	case postgres.IsConnString(cfg.Remote):
		return maskPassword(cfg.Remote)
	default:
		return cfg.Remote
	}
}

// maskPassword masks the password in a connection string for display
func maskPassword(connStr string) string {
	if strings.Contains(connStr, "://") {
		parts := strings.SplitN(connStr, "://", 2)
		if len(parts) == 2 {
			rest := parts[1]
			if at := strings.LastIndex(rest, "@"); at > 0 {
				userInfo := rest[:at]
				if colon := strings.Index(userInfo, ":"); colon > 0 {
					return parts[0] + "://" + userInfo[:colon] + ":****" + rest[at:]
				}
			}
		}
		return connStr
	}

	fields := strings.Fields(connStr)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}
