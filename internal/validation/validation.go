package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/novaplanner/nova/internal/models"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateGoalID     ConflictType = "duplicate_goal_id"
	ConflictDuplicateFolderID   ConflictType = "duplicate_folder_id"
	ConflictInvalidGoal         ConflictType = "invalid_goal"
	ConflictInvalidFolder       ConflictType = "invalid_folder"
	ConflictMissingFolder       ConflictType = "missing_folder"
	ConflictDuplicateFolderName ConflictType = "duplicate_folder_name"
	ConflictRecurringDeadline   ConflictType = "recurring_with_deadline"
)

// Conflict is one problem found in the stored collections.
type Conflict struct {
	Type        ConflictType
	Description string
	IDs         []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Count returns how many conflicts of the given type were found.
func (vr *ValidationResult) Count(t ConflictType) int {
	n := 0
	for _, c := range vr.Conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator checks goal and folder collections for integrity problems.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks goals and folders together so folder references can be resolved.
func (v *Validator) Validate(goals []models.Goal, folders []models.Folder) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	result.Conflicts = append(result.Conflicts, v.validateFolders(folders)...)
	result.Conflicts = append(result.Conflicts, v.validateGoals(goals, folders)...)
	return result
}

func (v *Validator) validateGoals(goals []models.Goal, folders []models.Folder) []Conflict {
	var conflicts []Conflict

	known := make(map[string]bool, len(folders))
	for _, f := range folders {
		known[f.ID] = true
	}

	ids := make(map[string]int, len(goals))
	for _, g := range goals {
		ids[g.ID]++

		if err := g.Validate(); err != nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictInvalidGoal,
				Description: fmt.Sprintf("Goal %q is invalid: %v", g.Title(), err),
				IDs:         []string{g.ID},
			})
		}
		if g.FolderID != nil && !known[*g.FolderID] {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictMissingFolder,
				Description: fmt.Sprintf("Goal %q references missing folder %s", g.Title(), *g.FolderID),
				IDs:         []string{g.ID},
			})
		}
		if g.IsRecurring && g.Deadline != nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictRecurringDeadline,
				Description: fmt.Sprintf("Goal %q is recurring and also has a deadline", g.Title()),
				IDs:         []string{g.ID},
			})
		}
	}

	for _, id := range sortedDuplicates(ids) {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictDuplicateGoalID,
			Description: fmt.Sprintf("Goal id %s appears %d times", id, ids[id]),
			IDs:         []string{id},
		})
	}
	return conflicts
}

func (v *Validator) validateFolders(folders []models.Folder) []Conflict {
	var conflicts []Conflict

	ids := make(map[string]int, len(folders))
	names := make(map[string][]string)
	for _, f := range folders {
		ids[f.ID]++
		if err := f.Validate(); err != nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictInvalidFolder,
				Description: fmt.Sprintf("Folder %q is invalid: %v", f.Name, err),
				IDs:         []string{f.ID},
			})
		}
		if name := strings.ToLower(strings.TrimSpace(f.Name)); name != "" {
			names[name] = append(names[name], f.ID)
		}
	}

	for _, id := range sortedDuplicates(ids) {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictDuplicateFolderID,
			Description: fmt.Sprintf("Folder id %s appears %d times", id, ids[id]),
			IDs:         []string{id},
		})
	}

	keys := make([]string, 0, len(names))
	for name := range names {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		if len(names[name]) > 1 {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDuplicateFolderName,
				Description: fmt.Sprintf("Duplicate folder name: %q (IDs: %v)", name, names[name]),
				IDs:         names[name],
			})
		}
	}
	return conflicts
}

func sortedDuplicates(counts map[string]int) []string {
	var dups []string
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}
