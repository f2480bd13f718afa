package folders

import (
	"fmt"
	"strings"
	"time"

	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/models"
)

type FolderAddCmd struct {
	Name  string `arg:"" help:"Folder name."`
	Color string `help:"Hex color, e.g. #3B82F6."`
	Email string `help:"Owner email shown to collaborators."`
}

func (c *FolderAddCmd) Run(ctx *cli.Context) error {
	f := models.Folder{
		Name:       strings.TrimSpace(c.Name),
		Color:      models.StringPtr(c.Color),
		OwnerEmail: models.StringPtr(c.Email),
	}

	candidate := f
	candidate.ID = "pending"
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("invalid folder: %w", err)
	}

	added, err := ctx.Store.AddFolder(f)
	if err != nil {
		return fmt.Errorf("failed to save folder: %w", err)
	}
	fmt.Fprintf(ctx.Out, "Folder added: %s (ID: %s)\n", added.Name, added.ID)
	return nil
}

type FolderRenameCmd struct {
	Folder string  `arg:"" help:"Folder id or name."`
	Name   string  `arg:"" help:"New name."`
	Color  *string `help:"New color; empty string clears."`
}

func (c *FolderRenameCmd) Run(ctx *cli.Context) error {
	f, err := ctx.ResolveFolder(c.Folder)
	if err != nil {
		return err
	}
	old := f.Name
	f.Name = strings.TrimSpace(c.Name)
	if c.Color != nil {
		f.Color = models.StringPtr(*c.Color)
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid folder: %w", err)
	}

	if _, err := ctx.Store.UpdateFolder(f); err != nil {
		return fmt.Errorf("failed to save folder: %w", err)
	}
	fmt.Fprintf(ctx.Out, "Folder renamed: %s -> %s\n", old, f.Name)
	return nil
}

type FolderDeleteCmd struct {
	Folder string `arg:"" help:"Folder id or name."`
}

func (c *FolderDeleteCmd) Run(ctx *cli.Context) error {
	f, err := ctx.ResolveFolder(c.Folder)
	if err != nil {
		return err
	}

	moved := 0
	for _, g := range ctx.Store.Goals() {
		if g.InFolder(f.ID) {
			moved++
		}
	}

	if err := ctx.Store.DeleteFolder(f.ID); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	fmt.Fprintf(ctx.Out, "Folder deleted: %s\n", f.Name)
	if moved > 0 {
		fmt.Fprintf(ctx.Out, "  %d goal(s) moved out of the folder\n", moved)
	}
	return nil
}

type FolderListCmd struct{}

func (c *FolderListCmd) Run(ctx *cli.Context) error {
	folders := ctx.Store.Folders()
	if len(folders) == 0 {
		fmt.Fprintln(ctx.Out, "No folders found")
		return nil
	}

	counts := map[string]int{}
	for _, g := range ctx.Store.Goals() {
		if g.FolderID != nil {
			counts[*g.FolderID]++
		}
	}

	fmt.Fprintln(ctx.Out, "Folders:")
	for _, f := range folders {
		line := fmt.Sprintf("  %s  %s  (%d goals)", cli.ShortID(f.ID), f.Name, counts[f.ID])
		if f.Color != nil {
			line += "  " + *f.Color
		}
		if f.IsShared != nil && *f.IsShared {
			line += fmt.Sprintf("  shared with %d", len(f.Collaborators))
		}
		fmt.Fprintln(ctx.Out, line)
	}
	return nil
}

type FolderShowCmd struct {
	Folder string `arg:"" help:"Folder id or name."`
}

func (c *FolderShowCmd) Run(ctx *cli.Context) error {
	f, err := ctx.ResolveFolder(c.Folder)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "%s\n", f.Name)
	fmt.Fprintf(ctx.Out, "  ID:       %s\n", f.ID)
	fmt.Fprintf(ctx.Out, "  Owner:    %s\n", f.OwnerID)
	fmt.Fprintf(ctx.Out, "  Created:  %s\n", f.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(ctx.Out, "  Updated:  %s\n", f.UpdatedAt.Local().Format("2006-01-02 15:04"))

	if len(f.Collaborators) > 0 {
		fmt.Fprintln(ctx.Out, "  Collaborators:")
		for _, col := range f.Collaborators {
			name := col.Email
			if col.DisplayName != nil {
				name = *col.DisplayName + " <" + col.Email + ">"
			}
			fmt.Fprintf(ctx.Out, "    %s  %s  %s\n", col.UserID, name, col.Role)
		}
	}

	s := f.Settings()
	fmt.Fprintln(ctx.Out, "  Settings:")
	fmt.Fprintf(ctx.Out, "    enabled=%t presence=%t editing-state=%t conflict-detection=%t guest-view=%t require-approval=%t\n",
		s.IsEnabled, s.ShowPresence, s.ShowEditingState, s.ConflictDetection, s.AllowGuestView, s.RequireApproval)
	return nil
}

type FolderShareCmd struct {
	Folder string `arg:"" help:"Folder id or name."`
	User   string `required:"" help:"Collaborator user id."`
	Email  string `help:"Collaborator email."`
	Name   string `help:"Collaborator display name."`
	Role   string `default:"viewer" enum:"owner,editor,viewer" help:"Role: owner, editor or viewer."`
}

func (c *FolderShareCmd) Run(ctx *cli.Context) error {
	f, err := ctx.ResolveFolder(c.Folder)
	if err != nil {
		return err
	}
	role, err := models.ParseRole(c.Role)
	if err != nil {
		return err
	}

	col := models.Collaborator{
		UserID:      strings.TrimSpace(c.User),
		Email:       c.Email,
		DisplayName: models.StringPtr(c.Name),
		Role:        role,
		JoinedAt:    time.Now(),
	}
	if _, err := ctx.Store.AddCollaborator(f.ID, col); err != nil {
		return fmt.Errorf("failed to share folder: %w", err)
	}
	fmt.Fprintf(ctx.Out, "Shared %s with %s as %s\n", f.Name, col.UserID, role)
	return nil
}

type FolderUnshareCmd struct {
	Folder string `arg:"" help:"Folder id or name."`
	User   string `arg:"" help:"Collaborator user id."`
}

func (c *FolderUnshareCmd) Run(ctx *cli.Context) error {
	f, err := ctx.ResolveFolder(c.Folder)
	if err != nil {
		return err
	}
	ok, err := ctx.Store.RemoveCollaborator(f.ID, c.User)
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s is not a collaborator on %s", c.User, f.Name)
	}
	fmt.Fprintf(ctx.Out, "Removed %s from %s\n", c.User, f.Name)
	return nil
}

type FolderSettingsCmd struct {
	Folder            string `arg:"" help:"Folder id or name."`
	Enabled           *bool  `help:"Enable collaboration."`
	Presence          *bool  `help:"Show presence."`
	EditingState      *bool  `help:"Show editing state."`
	ConflictDetection *bool  `help:"Detect conflicts."`
	GuestView         *bool  `help:"Allow guest view."`
	RequireApproval   *bool  `help:"Require approval to join."`
}

func (c *FolderSettingsCmd) Run(ctx *cli.Context) error {
	f, err := ctx.ResolveFolder(c.Folder)
	if err != nil {
		return err
	}

	s := f.Settings()
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.IsEnabled, c.Enabled)
	set(&s.ShowPresence, c.Presence)
	set(&s.ShowEditingState, c.EditingState)
	set(&s.ConflictDetection, c.ConflictDetection)
	set(&s.AllowGuestView, c.GuestView)
	set(&s.RequireApproval, c.RequireApproval)

	if _, err := ctx.Store.SetCollaborationSettings(f.ID, s); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	fmt.Fprintf(ctx.Out, "Collaboration settings updated for %s\n", f.Name)
	return nil
}
