package goals

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaplanner/nova/internal/cli"
	"github.com/novaplanner/nova/internal/config"
	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/planner"
	"github.com/novaplanner/nova/internal/storage"
)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := planner.New(storage.NewMemory(), planner.WithUserID("u1"))
	store.Load()
	t.Cleanup(store.Close)

	out := &bytes.Buffer{}
	return &cli.Context{Config: config.Default(), Store: store, Out: out}, out
}

func strPtr(s string) *string { return &s }

func TestGoalAddCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	folder, err := ctx.Store.AddFolder(models.Folder{Name: "Health"})
	require.NoError(t, err)

	cmd := &GoalAddCmd{
		Wish:     "Run a 10k",
		Outcome:  "Feel strong",
		Obstacle: "Sleeping in",
		Plan:     "If the alarm rings, then I put on my shoes",
		Days:     "mon,wed",
		Deadline: "2030-06-01",
		Folder:   "health",
	}
	require.NoError(t, cmd.Run(ctx))
	assert.Contains(t, out.String(), "Goal added: Run a 10k")

	goals := ctx.Store.Goals()
	require.Len(t, goals, 1)
	g := goals[0]
	assert.True(t, g.IsRecurring)
	assert.Equal(t, []int{0, 2}, g.RecurringDays)
	require.NotNil(t, g.Deadline)
	assert.Equal(t, "2030-06-01", g.Deadline.Format("2006-01-02"))
	assert.True(t, g.InFolder(folder.ID))
	assert.Equal(t, 1, g.Version)
}

func TestGoalAddCmd_Invalid(t *testing.T) {
	ctx, _ := setupTestContext(t)

	assert.Error(t, (&GoalAddCmd{Wish: "  "}).Run(ctx))
	assert.Error(t, (&GoalAddCmd{Wish: "x", Days: "funday"}).Run(ctx))
	assert.Error(t, (&GoalAddCmd{Wish: "x", Deadline: "tomorrow"}).Run(ctx))
	assert.Error(t, (&GoalAddCmd{Wish: "x", Folder: "missing"}).Run(ctx))
	assert.Empty(t, ctx.Store.Goals())
}

func TestGoalEditCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	g, err := ctx.Store.AddGoal(models.Goal{ID: "abcdef123", Wish: "Read", IsRecurring: true, RecurringDays: []int{1}})
	require.NoError(t, err)

	cmd := &GoalEditCmd{ID: "abc", Wish: strPtr("Read more"), Days: strPtr(""), Category: strPtr("learning")}
	require.NoError(t, cmd.Run(ctx))
	assert.Contains(t, out.String(), "Goal updated: Read more")

	updated, ok := ctx.Store.Goal(g.ID)
	require.True(t, ok)
	assert.Equal(t, "Read more", updated.Wish)
	assert.False(t, updated.IsRecurring)
	assert.Empty(t, updated.RecurringDays)
	require.NotNil(t, updated.Category)
	assert.Equal(t, "learning", *updated.Category)
	assert.Equal(t, 2, updated.Version)
}

func TestGoalEditCmd_Unknown(t *testing.T) {
	ctx, _ := setupTestContext(t)
	assert.Error(t, (&GoalEditCmd{ID: "nope", Wish: strPtr("x")}).Run(ctx))
}

func TestGoalToggleCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	_, err := ctx.Store.AddGoal(models.Goal{ID: "g1", Wish: "Meditate"})
	require.NoError(t, err)

	require.NoError(t, (&GoalToggleCmd{ID: "g1"}).Run(ctx))
	assert.Contains(t, out.String(), "Completed: Meditate (streak 1)")

	out.Reset()
	require.NoError(t, (&GoalToggleCmd{ID: "g1"}).Run(ctx))
	assert.Contains(t, out.String(), "Reopened: Meditate")
}

func TestGoalDeleteCmd(t *testing.T) {
	ctx, _ := setupTestContext(t)
	_, err := ctx.Store.AddGoal(models.Goal{ID: "g1", Wish: "a"})
	require.NoError(t, err)

	require.NoError(t, (&GoalDeleteCmd{ID: "g1"}).Run(ctx))
	assert.Empty(t, ctx.Store.Goals())
	assert.Error(t, (&GoalDeleteCmd{ID: "g1"}).Run(ctx))
}

func TestGoalListCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	_, err := ctx.Store.AddGoal(models.Goal{ID: "g1", Wish: "Bravo"})
	require.NoError(t, err)
	_, err = ctx.Store.AddGoal(models.Goal{ID: "g2", Wish: "Alpha", Completed: true})
	require.NoError(t, err)

	require.NoError(t, (&GoalListCmd{Sort: "alphabetical"}).Run(ctx))
	text := out.String()
	assert.Less(t, strings.Index(text, "Alpha"), strings.Index(text, "Bravo"))

	out.Reset()
	require.NoError(t, (&GoalListCmd{Filter: "active", JSON: true}).Run(ctx))
	var listed []models.Goal
	require.NoError(t, json.Unmarshal(out.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "g1", listed[0].ID)

	assert.Error(t, (&GoalListCmd{Filter: "some"}).Run(ctx))
	assert.Error(t, (&GoalListCmd{Sort: "random"}).Run(ctx))
}

func TestGoalListCmd_DueToday(t *testing.T) {
	ctx, out := setupTestContext(t)
	monday := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)
	old := now
	now = func() time.Time { return monday }
	t.Cleanup(func() { now = old })

	_, err := ctx.Store.AddGoal(models.Goal{ID: "mon", Wish: "Monday run", IsRecurring: true, RecurringDays: []int{0}})
	require.NoError(t, err)
	_, err = ctx.Store.AddGoal(models.Goal{ID: "thu", Wish: "Thursday swim", IsRecurring: true, RecurringDays: []int{3}})
	require.NoError(t, err)
	_, err = ctx.Store.AddGoal(models.Goal{ID: "done", Wish: "Monday stretch", IsRecurring: true, RecurringDays: []int{0}, Completed: true})
	require.NoError(t, err)

	require.NoError(t, (&GoalListCmd{Filter: "all"}).Run(ctx))
	lines := strings.Split(out.String(), "\n")
	lineFor := func(wish string) string {
		for _, l := range lines {
			if strings.Contains(l, wish) {
				return l
			}
		}
		require.FailNow(t, "no line for "+wish, out.String())
		return ""
	}
	assert.Contains(t, lineFor("Monday run"), "Mon (today)")
	assert.NotContains(t, lineFor("Thursday swim"), "today")
	assert.NotContains(t, lineFor("Monday stretch"), "today")
}

func TestGoalListCmd_Empty(t *testing.T) {
	ctx, out := setupTestContext(t)
	require.NoError(t, (&GoalListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "No goals found")
}

func TestGoalShowCmd(t *testing.T) {
	ctx, out := setupTestContext(t)
	_, err := ctx.Store.AddGoal(models.Goal{ID: "g1", Wish: "Swim", Plan: "If cold, then sauna"})
	require.NoError(t, err)

	require.NoError(t, (&GoalShowCmd{ID: "g1"}).Run(ctx))
	assert.Contains(t, out.String(), "If cold, then sauna")
	assert.Contains(t, out.String(), "Outcome:   -")
	assert.Contains(t, out.String(), "by u1 (v1)")
}
