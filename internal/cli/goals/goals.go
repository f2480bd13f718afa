package goals

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/planner"
)

var now = time.Now

type GoalAddCmd struct {
	Wish     string `arg:"" help:"What you want to achieve."`
	Outcome  string `short:"o" help:"The best outcome of fulfilling the wish."`
	Obstacle string `short:"b" help:"The main inner obstacle."`
	Plan     string `short:"p" help:"If-then plan for the obstacle."`
	Days     string `short:"r" help:"Comma-separated recurring days (mon,wed or 0-6 with 0=Monday)."`
	Deadline string `short:"d" help:"Deadline date (YYYY-MM-DD)."`
	Folder   string `short:"f" help:"Folder id or name."`
	Category string `short:"c" help:"Category label."`
}

func (c *GoalAddCmd) Run(ctx *cli.Context) error {
	goal := models.Goal{
		Wish:     strings.TrimSpace(c.Wish),
		Outcome:  c.Outcome,
		Obstacle: c.Obstacle,
		Plan:     c.Plan,
		Category: models.StringPtr(c.Category),
	}

	if c.Days != "" {
		days, err := cli.ParseWeekdays(c.Days)
		if err != nil {
			return err
		}
		goal.IsRecurring = len(days) > 0
		goal.RecurringDays = days
	}
	if c.Deadline != "" {
		d, err := cli.ParseDate(c.Deadline)
		if err != nil {
			return err
		}
		goal.Deadline = &d
	}
	if c.Folder != "" {
		f, err := ctx.ResolveFolder(c.Folder)
		if err != nil {
			return err
		}
		goal.FolderID = models.StringPtr(f.ID)
	}

	// id is assigned by the store; validate everything else up front
	candidate := goal
	candidate.ID = "pending"
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("invalid goal: %w", err)
	}

	added, err := ctx.Store.AddGoal(goal)
	if err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	fmt.Fprintf(ctx.Out, "Goal added: %s (ID: %s)\n", added.Wish, added.ID)
	return nil
}

type GoalEditCmd struct {
	ID       string  `arg:"" help:"Goal id or unique prefix."`
	Wish     *string `help:"New wish."`
	Outcome  *string `short:"o" help:"New outcome."`
	Obstacle *string `short:"b" help:"New obstacle."`
	Plan     *string `short:"p" help:"New plan."`
	Days     *string `short:"r" help:"New recurring days; empty string clears."`
	Deadline *string `short:"d" help:"New deadline (YYYY-MM-DD); empty string clears."`
	Folder   *string `short:"f" help:"New folder id or name; empty string clears."`
	Category *string `short:"c" help:"New category; empty string clears."`
}

func (c *GoalEditCmd) Run(ctx *cli.Context) error {
	goal, err := ctx.ResolveGoal(c.ID)
	if err != nil {
		return err
	}

	if c.Wish != nil {
		goal.Wish = strings.TrimSpace(*c.Wish)
	}
	if c.Outcome != nil {
		goal.Outcome = *c.Outcome
	}
	if c.Obstacle != nil {
		goal.Obstacle = *c.Obstacle
	}
	if c.Plan != nil {
		goal.Plan = *c.Plan
	}
	if c.Days != nil {
		days, err := cli.ParseWeekdays(*c.Days)
		if err != nil {
			return err
		}
		goal.RecurringDays = days
		goal.IsRecurring = len(days) > 0
	}
	if c.Deadline != nil {
		if *c.Deadline == "" {
			goal.Deadline = nil
		} else {
			d, err := cli.ParseDate(*c.Deadline)
			if err != nil {
				return err
			}
			goal.Deadline = &d
		}
	}
	if c.Folder != nil {
		if *c.Folder == "" {
			goal.FolderID = nil
		} else {
			f, err := ctx.ResolveFolder(*c.Folder)
			if err != nil {
				return err
			}
			goal.FolderID = models.StringPtr(f.ID)
		}
	}
	if c.Category != nil {
		goal.Category = models.StringPtr(*c.Category)
	}

	if err := goal.Validate(); err != nil {
		return fmt.Errorf("invalid goal: %w", err)
	}

	ok, err := ctx.Store.UpdateGoal(goal)
	if err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	if !ok {
		return fmt.Errorf("goal %s disappeared before it could be updated", goal.ID)
	}
	fmt.Fprintf(ctx.Out, "Goal updated: %s\n", goal.Wish)
	return nil
}

type GoalDeleteCmd struct {
	ID string `arg:"" help:"Goal id or unique prefix."`
}

func (c *GoalDeleteCmd) Run(ctx *cli.Context) error {
	goal, err := ctx.ResolveGoal(c.ID)
	if err != nil {
		return err
	}
	if err := ctx.Store.DeleteGoal(goal.ID); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	fmt.Fprintf(ctx.Out, "Goal deleted: %s\n", goal.Wish)
	return nil
}

type GoalToggleCmd struct {
	ID string `arg:"" help:"Goal id or unique prefix."`
}

func (c *GoalToggleCmd) Run(ctx *cli.Context) error {
	goal, err := ctx.ResolveGoal(c.ID)
	if err != nil {
		return err
	}
	updated, _, err := ctx.Store.ToggleGoalCompletion(goal.ID)
	if err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	if updated.Completed {
		fmt.Fprintf(ctx.Out, "✓ Completed: %s (streak %d)\n", updated.Wish, updated.Streak)
	} else {
		fmt.Fprintf(ctx.Out, "○ Reopened: %s\n", updated.Wish)
	}
	return nil
}

type GoalListCmd struct {
	Filter string `short:"s" help:"all, active or completed. Defaults to the config value."`
	Sort   string `short:"o" help:"manual, deadline, newest or alphabetical. Defaults to the config value."`
	Folder string `short:"f" help:"Only goals in this folder (id or name)."`
	JSON   bool   `help:"Print JSON instead of a table." name:"json"`
}

func (c *GoalListCmd) Run(ctx *cli.Context) error {
	opts := planner.FilterOptions{
		State: ctx.Config.Filter(),
		Sort:  ctx.Config.Sort(),
	}
	if c.Filter != "" {
		state, err := planner.ParseFilterState(c.Filter)
		if err != nil {
			return err
		}
		opts.State = state
	}
	if c.Sort != "" {
		order, err := planner.ParseSortOrder(c.Sort)
		if err != nil {
			return err
		}
		opts.Sort = order
	}
	if c.Folder != "" {
		f, err := ctx.ResolveFolder(c.Folder)
		if err != nil {
			return err
		}
		opts.FolderID = models.StringPtr(f.ID)
	}

	goals := ctx.Store.FilteredGoals(opts)
	if c.JSON {
		data, err := json.MarshalIndent(goals, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.Out, string(data))
		return nil
	}

	if len(goals) == 0 {
		fmt.Fprintln(ctx.Out, "No goals found")
		return nil
	}

	folderNames := map[string]string{}
	for _, f := range ctx.Store.Folders() {
		folderNames[f.ID] = f.Name
	}

	today := now()
	fmt.Fprintf(ctx.Out, "Goals (%s, sorted by %s):\n", opts.State, opts.Sort)
	for _, g := range goals {
		mark := "○"
		if g.Completed {
			mark = "✓"
		}
		line := fmt.Sprintf("  %s %s  %s", mark, cli.ShortID(g.ID), g.Title())
		var extra []string
		if g.Deadline != nil {
			extra = append(extra, "due "+g.Deadline.Format(constants.DateFormat))
		}
		if g.IsRecurring {
			days := cli.FormatDays(g.RecurringDays)
			if !g.Completed && g.DueOn(today) {
				days += " (today)"
			}
			extra = append(extra, days)
		}
		if g.Streak > 0 {
			extra = append(extra, fmt.Sprintf("streak %d", g.Streak))
		}
		if g.FolderID != nil {
			if name, ok := folderNames[*g.FolderID]; ok {
				extra = append(extra, "["+name+"]")
			}
		}
		if len(extra) > 0 {
			line += "  (" + strings.Join(extra, ", ") + ")"
		}
		fmt.Fprintln(ctx.Out, line)
	}
	return nil
}

type GoalShowCmd struct {
	ID string `arg:"" help:"Goal id or unique prefix."`
}

func (c *GoalShowCmd) Run(ctx *cli.Context) error {
	g, err := ctx.ResolveGoal(c.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "%s\n", g.Title())
	fmt.Fprintf(ctx.Out, "  ID:        %s\n", g.ID)
	fmt.Fprintf(ctx.Out, "  Outcome:   %s\n", orDash(g.Outcome))
	fmt.Fprintf(ctx.Out, "  Obstacle:  %s\n", orDash(g.Obstacle))
	fmt.Fprintf(ctx.Out, "  Plan:      %s\n", orDash(g.Plan))
	if g.IsRecurring {
		fmt.Fprintf(ctx.Out, "  Repeats:   %s\n", cli.FormatDays(g.RecurringDays))
	}
	if g.Deadline != nil {
		fmt.Fprintf(ctx.Out, "  Deadline:  %s\n", g.Deadline.Format(constants.DateFormat))
	}
	status := "active"
	if g.Completed {
		status = "completed"
	}
	fmt.Fprintf(ctx.Out, "  Status:    %s (streak %d)\n", status, g.Streak)
	if g.LastCompletedDate != nil {
		fmt.Fprintf(ctx.Out, "  Last done: %s\n", g.LastCompletedDate.Local().Format("2006-01-02 15:04"))
	}
	if g.FolderID != nil {
		name := *g.FolderID
		if f, ok := ctx.Store.Folder(*g.FolderID); ok {
			name = f.Name
		}
		fmt.Fprintf(ctx.Out, "  Folder:    %s\n", name)
	}
	if g.Category != nil {
		fmt.Fprintf(ctx.Out, "  Category:  %s\n", *g.Category)
	}
	if g.LastModified != nil {
		by := "local"
		if g.LastModifiedBy != nil {
			by = *g.LastModifiedBy
		}
		fmt.Fprintf(ctx.Out, "  Modified:  %s by %s (v%d)\n", g.LastModified.Local().Format("2006-01-02 15:04"), by, g.Version)
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
