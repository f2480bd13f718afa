package planner

import (
	"fmt"
	"slices"
	"strings"

	"github.com/novaplanner/nova/internal/models"
)

type FilterState int

const (
	FilterAll FilterState = iota
	FilterActive
	FilterCompleted
)

var filterStateNames = []string{"all", "active", "completed"}

func (f FilterState) String() string {
	if int(f) < 0 || int(f) >= len(filterStateNames) {
		return "unknown"
	}
	return filterStateNames[f]
}

// Next cycles to the following filter state.
func (f FilterState) Next() FilterState {
	return FilterState((int(f) + 1) % len(filterStateNames))
}

func ParseFilterState(s string) (FilterState, error) {
	for i, name := range filterStateNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return FilterState(i), nil
		}
	}
	return FilterAll, fmt.Errorf("invalid filter %q (expected %s)", s, strings.Join(filterStateNames, ", "))
}

type SortOrder int

const (
	SortManual SortOrder = iota
	SortDeadline
	SortNewest
	SortAlphabetical
)

var sortOrderNames = []string{"manual", "deadline", "newest", "alphabetical"}

func (o SortOrder) String() string {
	if int(o) < 0 || int(o) >= len(sortOrderNames) {
		return "unknown"
	}
	return sortOrderNames[o]
}

// Next cycles to the following sort order.
func (o SortOrder) Next() SortOrder {
	return SortOrder((int(o) + 1) % len(sortOrderNames))
}

func ParseSortOrder(s string) (SortOrder, error) {
	for i, name := range sortOrderNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return SortOrder(i), nil
		}
	}
	return SortManual, fmt.Errorf("invalid sort %q (expected %s)", s, strings.Join(sortOrderNames, ", "))
}

// FilterOptions selects and orders goals. A nil FolderID means every folder.
type FilterOptions struct {
	FolderID *string
	State    FilterState
	Sort     SortOrder
}

// FilterGoals returns copies of the goals selected by opts in the requested
// order. The input is never modified and the result shares no memory with it.
// Ordering is stable, so ties keep their input order.
func FilterGoals(goals []models.Goal, opts FilterOptions) []models.Goal {
	out := make([]models.Goal, 0, len(goals))
	for _, g := range goals {
		if opts.FolderID != nil && !g.InFolder(*opts.FolderID) {
			continue
		}
		switch opts.State {
		case FilterActive:
			if g.Completed {
				continue
			}
		case FilterCompleted:
			if !g.Completed {
				continue
			}
		}
		out = append(out, g.Clone())
	}

	switch opts.Sort {
	case SortDeadline:
		slices.SortStableFunc(out, byDeadline)
	case SortNewest:
		slices.SortStableFunc(out, byNewest)
	case SortAlphabetical:
		slices.SortStableFunc(out, func(a, b models.Goal) int {
			return strings.Compare(a.Wish, b.Wish)
		})
	}
	return out
}

// byDeadline orders ascending with missing deadlines last.
func byDeadline(a, b models.Goal) int {
	switch {
	case a.Deadline == nil && b.Deadline == nil:
		return 0
	case a.Deadline == nil:
		return 1
	case b.Deadline == nil:
		return -1
	}
	return a.Deadline.Compare(*b.Deadline)
}

// byNewest orders by lastModified descending. A missing timestamp counts as the
// earliest possible time.
func byNewest(a, b models.Goal) int {
	switch {
	case a.LastModified == nil && b.LastModified == nil:
		return 0
	case a.LastModified == nil:
		return 1
	case b.LastModified == nil:
		return -1
	}
	return b.LastModified.Compare(*a.LastModified)
}
