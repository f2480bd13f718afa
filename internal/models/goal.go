package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Goal is a single WOOP entry: Wish, Outcome, Obstacle, Plan.
type Goal struct {
	ID                string         `json:"id"`
	Wish              string         `json:"wish"`
	Outcome           string         `json:"outcome"`
	Obstacle          string         `json:"obstacle"`
	Plan              string         `json:"plan"`
	IsRecurring       bool           `json:"isRecurring"`
	RecurringDays     []int          `json:"recurringDays"` // 0=Monday..6=Sunday
	Deadline          *time.Time     `json:"deadline,omitempty"`
	Completed         bool           `json:"completed"`
	LastCompletedDate *time.Time     `json:"lastCompletedDate,omitempty"`
	Streak            int            `json:"streak"`
	FolderID          *string        `json:"folderId,omitempty"`
	OwnerID           *string        `json:"ownerId,omitempty"`
	Category          *string        `json:"category,omitempty"`
	LastModified      *time.Time     `json:"lastModified,omitempty"`
	LastModifiedBy    *string        `json:"lastModifiedBy,omitempty"`
	Version           int            `json:"version"`
	Collaborators     []Collaborator `json:"collaborators"`
	IsShared          *bool          `json:"isShared,omitempty"`
}

// InFolder reports whether the goal belongs to the given folder.
func (g Goal) InFolder(folderID string) bool {
	return g.FolderID != nil && *g.FolderID == folderID
}

// Title returns the wish, or a placeholder for goals saved without one.
func (g Goal) Title() string {
	if strings.TrimSpace(g.Wish) == "" {
		return "(untitled)"
	}
	return g.Wish
}

// Clone returns a deep copy so callers can't mutate store-owned slices or pointers.
func (g Goal) Clone() Goal {
	c := g
	c.RecurringDays = slices.Clone(g.RecurringDays)
	if g.Collaborators != nil {
		c.Collaborators = make([]Collaborator, len(g.Collaborators))
		for i, col := range g.Collaborators {
			c.Collaborators[i] = col.Clone()
		}
	}
	c.Deadline = cloneTime(g.Deadline)
	c.LastCompletedDate = cloneTime(g.LastCompletedDate)
	c.LastModified = cloneTime(g.LastModified)
	c.FolderID = cloneString(g.FolderID)
	c.OwnerID = cloneString(g.OwnerID)
	c.Category = cloneString(g.Category)
	c.LastModifiedBy = cloneString(g.LastModifiedBy)
	c.IsShared = cloneBool(g.IsShared)
	return c
}

// Validate checks the fields a goal must satisfy before it is stored.
func (g Goal) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("goal id cannot be empty")
	}
	if strings.TrimSpace(g.Wish) == "" {
		return fmt.Errorf("wish cannot be empty")
	}
	if g.Streak < 0 {
		return fmt.Errorf("streak cannot be negative")
	}
	if g.Version < 0 {
		return fmt.Errorf("version cannot be negative")
	}
	return ValidateRecurringDays(g.RecurringDays)
}

// ValidateRecurringDays checks that every day index is 0-6 and appears once.
func ValidateRecurringDays(days []int) error {
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("recurring day %d out of range (0=Monday..6=Sunday)", d)
		}
		if seen[d] {
			return fmt.Errorf("recurring day %d listed more than once", d)
		}
		seen[d] = true
	}
	return nil
}

// DayIndex converts a time.Weekday (Sunday=0) into the goal day index (Monday=0).
func DayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// IndexWeekday is the inverse of DayIndex.
func IndexWeekday(idx int) time.Weekday {
	return time.Weekday((idx + 1) % 7)
}

// DueOn reports whether a recurring goal is scheduled on the given day.
// Non-recurring goals are never "due" by weekday.
func (g Goal) DueOn(t time.Time) bool {
	if !g.IsRecurring {
		return false
	}
	idx := DayIndex(t.Weekday())
	for _, d := range g.RecurringDays {
		if d == idx {
			return true
		}
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
