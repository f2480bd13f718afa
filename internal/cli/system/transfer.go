package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/planner"
)

type ExportCmd struct {
	Out string `short:"o" help:"Write to this file instead of stdout." type:"path"`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	data, err := ctx.Store.Export()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if c.Out == "" {
		fmt.Fprintln(ctx.Out, string(data))
		return nil
	}
	if err := cli.WriteFile(c.Out, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(ctx.Out, "✓ Exported %d goals and %d folders to %s\n", len(ctx.Store.Goals()), len(ctx.Store.Folders()), c.Out)
	return nil
}

type ImportCmd struct {
	File string `arg:"" help:"Export file to read." type:"existingfile"`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}

	parsed, err := ctx.Store.Import(data)
	if errors.Is(err, planner.ErrImportUnsupported) {
		fmt.Fprintf(ctx.Out, "Read %d goals and %d folders from %s\n", len(parsed.Goals), len(parsed.Folders), c.File)
		return err
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}
