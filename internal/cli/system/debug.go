package system

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/novaplanner/nova/internal/backup"
	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/logger"
	"github.com/novaplanner/nova/internal/storage"
	"github.com/novaplanner/nova/internal/storage/sqlite"
)

type DebugCmd struct {
	Paths DebugPathsCmd `cmd:"" help:"Show cache, config, log and backup paths."`
	Keys  DebugKeysCmd  `cmd:"" help:"List snapshot slots in the local cache."`
	Dump  DebugDumpCmd  `cmd:"" help:"Dump a snapshot slot as JSON."`
}

type DebugPathsCmd struct{}

func (cmd *DebugPathsCmd) Run(ctx *cli.Context) error {
	output := map[string]string{
		"cache":   ctx.Local.GetConfigPath(),
		"config":  ctx.ConfigPath,
		"logs":    filepath.Dir(logger.Path(ctx.Config.CacheDir())),
		"backups": backup.NewManager(ctx.Local.GetConfigPath()).Dir(),
		"lock":    filepath.Join(ctx.Config.CacheDir(), constants.LockfileName),
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(ctx.Out, string(jsonBytes))
	return nil
}

type DebugKeysCmd struct{}

func (cmd *DebugKeysCmd) Run(ctx *cli.Context) error {
	if err := ctx.Local.Load(); err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}
	keys, err := ctx.Local.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(ctx.Out, k)
	}
	return nil
}

type DebugDumpCmd struct {
	Key      string `arg:"" default:"savedGoals" help:"Slot to dump (savedGoals or savedFolders)."`
	Previous bool   `help:"Dump the value the slot held before its last write (sqlite cache only)."`
}

func (cmd *DebugDumpCmd) Run(ctx *cli.Context) error {
	if err := ctx.Local.Load(); err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}

	var data []byte
	var err error
	if cmd.Previous {
		store, ok := ctx.Local.(*sqlite.Store)
		if !ok {
			return fmt.Errorf("--previous needs the sqlite cache")
		}
		data, err = store.Previous(cmd.Key)
	} else {
		data, err = ctx.Local.Get(cmd.Key)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("slot not found: %s", cmd.Key)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.Key, err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		// not JSON; show it as stored
		fmt.Fprintln(ctx.Out, string(data))
		return nil
	}
	fmt.Fprintln(ctx.Out, pretty.String())
	return nil
}
