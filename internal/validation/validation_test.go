package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novaplanner/nova/internal/models"
)

func TestValidate_Clean(t *testing.T) {
	folders := []models.Folder{{ID: "f1", Name: "Health"}}
	goals := []models.Goal{
		{ID: "1", Wish: "Run", FolderID: models.StringPtr("f1")},
		{ID: "2", Wish: "Read", IsRecurring: true, RecurringDays: []int{0, 2}},
	}

	result := New().Validate(goals, folders)
	assert.False(t, result.HasConflicts(), result.FormatReport())
	assert.Equal(t, "No conflicts detected.", result.FormatReport())
}

func TestValidate_DuplicateGoalIDs(t *testing.T) {
	goals := []models.Goal{
		{ID: "1", Wish: "A"},
		{ID: "1", Wish: "B"},
		{ID: "2", Wish: "C"},
	}

	result := New().Validate(goals, nil)
	assert.Equal(t, 1, result.Count(ConflictDuplicateGoalID), result.FormatReport())
}

func TestValidate_InvalidGoal(t *testing.T) {
	goals := []models.Goal{
		{ID: "1", Wish: "  "},
		{ID: "2", Wish: "Bad days", IsRecurring: true, RecurringDays: []int{7}},
		{ID: "3", Wish: "Negative", Streak: -1},
	}

	result := New().Validate(goals, nil)
	assert.Equal(t, 3, result.Count(ConflictInvalidGoal), result.FormatReport())
}

func TestValidate_MissingFolder(t *testing.T) {
	goals := []models.Goal{{ID: "1", Wish: "Orphan", FolderID: models.StringPtr("gone")}}

	result := New().Validate(goals, []models.Folder{{ID: "f1", Name: "Work"}})
	require.Equal(t, 1, result.Count(ConflictMissingFolder), result.FormatReport())
	assert.Contains(t, result.FormatReport(), "gone")
}

func TestValidate_Folders(t *testing.T) {
	folders := []models.Folder{
		{ID: "f1", Name: "Work"},
		{ID: "f2", Name: "work"},
		{ID: "f3", Name: "Home", Color: models.StringPtr("red")},
		{ID: "f3", Name: "Other"},
	}

	result := New().Validate(nil, folders)
	report := result.FormatReport()
	assert.Equal(t, 1, result.Count(ConflictDuplicateFolderName), report)
	assert.Equal(t, 1, result.Count(ConflictInvalidFolder), report)
	assert.Equal(t, 1, result.Count(ConflictDuplicateFolderID), report)
}

func TestValidate_RecurringWithDeadline(t *testing.T) {
	deadline := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	goals := []models.Goal{{ID: "1", Wish: "Both", IsRecurring: true, RecurringDays: []int{1}, Deadline: &deadline}}

	result := New().Validate(goals, nil)
	assert.Equal(t, 1, result.Count(ConflictRecurringDeadline), result.FormatReport())
}
