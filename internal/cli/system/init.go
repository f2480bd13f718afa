package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/novaplanner/nova/internal/cli"
)

type InitCmd struct {
	Force bool `help:"Delete the existing local cache and rewrite the config file."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	cachePath := ctx.Local.GetConfigPath()

	if c.Force {
		if _, err := os.Stat(cachePath); err == nil {
			if err := ctx.Local.Close(); err != nil {
				return fmt.Errorf("failed to close existing cache: %w", err)
			}
			if err := os.Remove(cachePath); err != nil {
				return fmt.Errorf("failed to delete existing cache: %w", err)
			}
			fmt.Fprintf(ctx.Out, "Deleted existing cache at: %s\n", cachePath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to access existing cache: %w", err)
		}
	}

	if err := ctx.Local.Init(); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Initialized local cache at: %s\n", cachePath)

	if _, err := os.Stat(ctx.ConfigPath); err == nil && !c.Force {
		fmt.Fprintf(ctx.Out, "Keeping existing config: %s\n", ctx.ConfigPath)
		return nil
	}
	if err := ctx.Config.Save(ctx.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Wrote config: %s\n", ctx.ConfigPath)
	return nil
}
