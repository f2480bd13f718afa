package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/models"
)

type GoalFormModel struct {
	Wish     string
	Outcome  string
	Obstacle string
	Plan     string
	Days     string
	Deadline string
	FolderID string
}

func goalFormFrom(g models.Goal) *GoalFormModel {
	fm := &GoalFormModel{
		Wish:     g.Wish,
		Outcome:  g.Outcome,
		Obstacle: g.Obstacle,
		Plan:     g.Plan,
	}
	if g.IsRecurring {
		days := make([]string, len(g.RecurringDays))
		for i, d := range g.RecurringDays {
			days[i] = strings.ToLower(models.IndexWeekday(d).String()[:3])
		}
		fm.Days = strings.Join(days, ",")
	}
	if g.Deadline != nil {
		fm.Deadline = g.Deadline.Format(constants.DateFormat)
	}
	if g.FolderID != nil {
		fm.FolderID = *g.FolderID
	}
	return fm
}

// NewGoalForm walks through the four WOOP steps, then scheduling.
func NewGoalForm(fm *GoalFormModel, folders []models.Folder) *huh.Form {
	folderOpts := []huh.Option[string]{huh.NewOption("No folder", "")}
	for _, f := range folders {
		folderOpts = append(folderOpts, huh.NewOption(f.Name, f.ID))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Wish").
				Description("What do you want to accomplish?").
				Value(&fm.Wish).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("wish cannot be empty")
					}
					return nil
				}),
			huh.NewText().
				Title("Outcome").
				Description("What is the best result of fulfilling it?").
				Value(&fm.Outcome),
			huh.NewText().
				Title("Obstacle").
				Description("What inside you could stand in the way?").
				Value(&fm.Obstacle),
			huh.NewText().
				Title("Plan").
				Description("If the obstacle shows up, then I will...").
				Value(&fm.Plan),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Recurring days").
				Description("e.g. mon,wed,fri. Leave empty for a one-off goal").
				Value(&fm.Days).
				Validate(func(s string) error {
					_, err := cli.ParseWeekdays(s)
					return err
				}),
			huh.NewInput().
				Title("Deadline").
				Description("YYYY-MM-DD, optional").
				Value(&fm.Deadline).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					_, err := cli.ParseDate(s)
					return err
				}),
			huh.NewSelect[string]().
				Title("Folder").
				Options(folderOpts...).
				Value(&fm.FolderID),
		),
	).WithTheme(huh.ThemeDracula())
}

// apply copies the form values onto base.
func (fm *GoalFormModel) apply(base models.Goal) (models.Goal, error) {
	g := base.Clone()
	g.Wish = strings.TrimSpace(fm.Wish)
	g.Outcome = fm.Outcome
	g.Obstacle = fm.Obstacle
	g.Plan = fm.Plan

	days, err := cli.ParseWeekdays(fm.Days)
	if err != nil {
		return models.Goal{}, err
	}
	g.RecurringDays = days
	g.IsRecurring = len(days) > 0

	g.Deadline = nil
	if strings.TrimSpace(fm.Deadline) != "" {
		d, err := cli.ParseDate(fm.Deadline)
		if err != nil {
			return models.Goal{}, err
		}
		g.Deadline = &d
	}
	g.FolderID = models.StringPtr(fm.FolderID)
	return g, nil
}
