package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/cli/backups"
	"github.com/novaplanner/nova/internal/cli/folders"
	"github.com/novaplanner/nova/internal/cli/goals"
	"github.com/novaplanner/nova/internal/cli/system"
	"github.com/novaplanner/nova/internal/config"
	"github.com/novaplanner/nova/internal/constants"
	nerrors "github.com/novaplanner/nova/internal/errors"
	"github.com/novaplanner/nova/internal/logger"
)

var CLI struct {
	Version     kong.VersionFlag
	Config      string        `help:"Config file path." type:"path" default:"${config_path}"`
	Local       string        `help:"Local cache path (.db for sqlite, .json for a JSON file)." type:"path"`
	Remote      string        `help:"Remote: none, dir:<path>, keyring, or a PostgreSQL connection string without a password."`
	User        string        `help:"User id to sync as. Defaults to the id stored by 'nova login'."`
	Debug       bool          `help:"Log debug output to stderr."`
	Sync        bool          `help:"Wait for a fresh remote snapshot before running the command."`
	SyncTimeout time.Duration `help:"How long --sync waits." default:"10s"`

	Init     system.InitCmd     `cmd:"" help:"Initialize the local cache and config file."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Watch    system.WatchCmd    `cmd:"" help:"Open the live goal view." default:"1"`
	Validate system.ValidateCmd `cmd:"" help:"Check goals and folders for integrity problems."`
	Login    system.LoginCmd    `cmd:"" help:"Store the user id, and optionally the remote, in the OS keyring."`
	Logout   system.LogoutCmd   `cmd:"" help:"Forget the stored user id."`
	Status   system.StatusCmd   `cmd:"" help:"Show the signed-in user and sync target."`
	Export   system.ExportCmd   `cmd:"" help:"Export goals and folders as JSON."`
	Import   system.ImportCmd   `cmd:"" help:"Read an export file (not applied yet)."`
	DebugCmd system.DebugCmd    `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
	Goal     struct {
		Add    goals.GoalAddCmd    `cmd:"" help:"Add a WOOP goal."`
		Edit   goals.GoalEditCmd   `cmd:"" help:"Edit a goal."`
		Delete goals.GoalDeleteCmd `cmd:"" help:"Delete a goal."`
		Toggle goals.GoalToggleCmd `cmd:"" help:"Mark a goal done, or reopen it."`
		List   goals.GoalListCmd   `cmd:"" help:"List goals." default:"1"`
		Show   goals.GoalShowCmd   `cmd:"" help:"Show one goal in full."`
	} `cmd:"" help:"Manage goals."`
	Folder struct {
		Add      folders.FolderAddCmd      `cmd:"" help:"Add a folder."`
		Rename   folders.FolderRenameCmd   `cmd:"" help:"Rename a folder."`
		Delete   folders.FolderDeleteCmd   `cmd:"" help:"Delete a folder; its goals move out."`
		List     folders.FolderListCmd     `cmd:"" help:"List folders." default:"1"`
		Show     folders.FolderShowCmd     `cmd:"" help:"Show a folder and its collaborators."`
		Share    folders.FolderShareCmd    `cmd:"" help:"Add or update a collaborator."`
		Unshare  folders.FolderUnshareCmd  `cmd:"" help:"Remove a collaborator."`
		Settings folders.FolderSettingsCmd `cmd:"" help:"Change collaboration settings."`
	} `cmd:"" help:"Manage folders and sharing."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore the local cache from a backup."`
	} `cmd:"" help:"Manage local cache backups."`
}

// storeCommands open the planner store before running.
var storeCommands = []string{"goal", "folder", "export", "import", "watch", "validate"}

func needsStore(command string) bool {
	name, _, _ := strings.Cut(command, " ")
	for _, c := range storeCommands {
		if name == c {
			return true
		}
	}
	return false
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("WOOP goal planner with offline cache and live sync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigFile,
		},
	)

	cfg, err := config.Resolve(CLI.Config, config.Overrides{
		Local:  CLI.Local,
		Remote: CLI.Remote,
		UserID: CLI.User,
		Debug:  CLI.Debug,
	})
	if err != nil {
		nerrors.Fatal(err)
	}

	if err := logger.Init(logger.Config{Debug: cfg.Debug, Dir: cfg.CacheDir()}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	appCtx := cli.NewContext(cfg, CLI.Config)

	if needsStore(kctx.Command()) {
		if err := appCtx.Open(ctx); err != nil {
			appCtx.Close()
			stop()
			nerrors.Fatal(err)
		}
		if CLI.Sync {
			if err := appCtx.Sync(ctx, CLI.SyncTimeout); err != nil {
				nerrors.Warnf("%v", err)
			}
		}
	}

	err = kctx.Run(appCtx)

	if appCtx.Store != nil {
		if lerr := appCtx.Store.LastError(); lerr != nil {
			nerrors.Warnf("remote listener: %v", lerr)
		}
	}
	appCtx.Close()
	stop()
	_ = logger.Close()

	if err != nil {
		nerrors.Fatal(err)
	}
}
