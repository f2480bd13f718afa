package system

import (
	"fmt"

	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/validation"
)

type ValidateCmd struct{}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	result := validation.New().Validate(ctx.Store.Goals(), ctx.Store.Folders())
	fmt.Fprint(ctx.Out, result.FormatReport())
	if result.HasConflicts() {
		return fmt.Errorf("%d conflict(s) found", len(result.Conflicts))
	}
	fmt.Fprintln(ctx.Out)
	return nil
}
