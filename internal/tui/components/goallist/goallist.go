package goallist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/novaplanner/nova/internal/constants"
	"github.com/novaplanner/nova/internal/models"
)

type AddGoalMsg struct{}

type EditGoalMsg struct {
	Goal models.Goal
}

type DeleteGoalMsg struct {
	ID string
}

type ToggleGoalMsg struct {
	ID string
}

type Item struct {
	Goal   models.Goal
	Folder string
}

func (i Item) Title() string {
	if i.Goal.Completed {
		return "✓ " + i.Goal.Title()
	}
	return "○ " + i.Goal.Title()
}

func (i Item) Description() string {
	var parts []string
	if i.Goal.Deadline != nil {
		parts = append(parts, "due "+i.Goal.Deadline.Format(constants.DateFormat))
	}
	if i.Goal.IsRecurring {
		parts = append(parts, formatDays(i.Goal.RecurringDays))
	}
	if i.Goal.Streak > 0 {
		parts = append(parts, fmt.Sprintf("🔥 %d", i.Goal.Streak))
	}
	if i.Folder != "" {
		parts = append(parts, i.Folder)
	}
	if i.Goal.Plan != "" {
		parts = append(parts, "plan: "+i.Goal.Plan)
	}
	if len(parts) == 0 {
		return "no deadline"
	}
	return strings.Join(parts, " | ")
}

func (i Item) FilterValue() string { return i.Goal.Wish }

func formatDays(days []int) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = models.IndexWeekday(d).String()[:3]
	}
	return strings.Join(names, ",")
}

type KeyMap struct {
	Add    key.Binding
	Edit   key.Binding
	Delete key.Binding
	Toggle key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle done"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Goals"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)

	// f and d belong to the planner, not paging
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("right", "pgdown"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("left", "pgup"))
	l.KeyMap.Quit = key.NewBinding(key.WithDisabled())

	return Model{list: l, keys: DefaultKeyMap()}
}

// SetGoals replaces the rows. folderNames maps folder ids to display names.
func (m *Model) SetGoals(goals []models.Goal, folderNames map[string]string) {
	items := make([]list.Item, len(goals))
	for i, g := range goals {
		item := Item{Goal: g}
		if g.FolderID != nil {
			item.Folder = folderNames[*g.FolderID]
		}
		items[i] = item
	}
	m.list.SetItems(items)
}

// Selected returns the goal under the cursor.
func (m Model) Selected() (models.Goal, bool) {
	if i, ok := m.list.SelectedItem().(Item); ok {
		return i.Goal, true
	}
	return models.Goal{}, false
}

func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) Index() int {
	return m.list.Index()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddGoalMsg{} }
		case key.Matches(msg, m.keys.Edit):
			if g, ok := m.Selected(); ok {
				return m, func() tea.Msg { return EditGoalMsg{Goal: g} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if g, ok := m.Selected(); ok {
				return m, func() tea.Msg { return DeleteGoalMsg{ID: g.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Toggle):
			if g, ok := m.Selected(); ok {
				return m, func() tea.Msg { return ToggleGoalMsg{ID: g.ID} }
			}
			return m, nil
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No goals here.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

func (m Model) KeyBindings() []key.Binding {
	return []key.Binding{m.keys.Add, m.keys.Edit, m.keys.Delete, m.keys.Toggle}
}
