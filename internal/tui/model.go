package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/planner"
	"github.com/novaplanner/nova/internal/tui/components/goallist"
)

type SessionState int

const (
	StateGoals SessionState = iota
	StateEditing
	StateConfirmDelete
)

// Planner is the part of the planner store the watch view drives.
type Planner interface {
	Goals() []models.Goal
	Folders() []models.Folder
	Online() bool
	LastError() error
	Subscribe(fn func(planner.Snapshot)) (cancel func())
	AddGoal(g models.Goal) (models.Goal, error)
	UpdateGoal(g models.Goal) (bool, error)
	DeleteGoal(id string) error
	ToggleGoalCompletion(id string) (models.Goal, bool, error)
}

// SnapshotMsg carries a store state change into the program.
type SnapshotMsg planner.Snapshot

type Model struct {
	store    Planner
	snaps    *snapshotFeed
	state    SessionState
	keys     KeyMap
	help     help.Model
	goalList goallist.Model
	form     *huh.Form
	goalForm *GoalFormModel
	editing  *models.Goal

	goals     []models.Goal
	folders   []models.Folder
	filter    planner.FilterState
	sort      planner.SortOrder
	folderIdx int // 0 is every folder, otherwise folders[folderIdx-1]

	status         string
	syncErr        error
	goalToDeleteID string
	quitting       bool
	width          int
	height         int
}

// New builds the watch model and subscribes it to store. The returned func
// cancels the subscription.
func New(store Planner, filter planner.FilterState, sort planner.SortOrder) (Model, func()) {
	feed := newSnapshotFeed()
	cancel := store.Subscribe(feed.push)

	m := Model{
		store:    store,
		snaps:    feed,
		state:    StateGoals,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		goalList: goallist.New(0, 0),
		goals:    store.Goals(),
		folders:  store.Folders(),
		filter:   filter,
		sort:     sort,
		syncErr:  store.LastError(),
	}
	m.refresh()
	return m, cancel
}

func (m Model) Init() tea.Cmd {
	return m.snaps.wait()
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Quit, m.keys.Help, m.keys.Filter, m.keys.Sort, m.keys.Folder}
	return append(keys, m.goalList.KeyBindings()...)
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Folder}
	view := []key.Binding{m.keys.Filter, m.keys.Sort}
	return [][]key.Binding{global, navigation, view, m.goalList.KeyBindings()}
}

// FilterOptions returns the options the list is currently rendered with.
func (m Model) FilterOptions() planner.FilterOptions {
	opts := planner.FilterOptions{State: m.filter, Sort: m.sort}
	if f, ok := m.currentFolder(); ok {
		opts.FolderID = models.StringPtr(f.ID)
	}
	return opts
}

func (m Model) currentFolder() (models.Folder, bool) {
	if m.folderIdx <= 0 || m.folderIdx > len(m.folders) {
		return models.Folder{}, false
	}
	return m.folders[m.folderIdx-1], true
}

func (m *Model) refresh() {
	if m.folderIdx > len(m.folders) {
		m.folderIdx = 0
	}
	names := make(map[string]string, len(m.folders))
	for _, f := range m.folders {
		names[f.ID] = f.Name
	}
	m.goalList.SetGoals(planner.FilterGoals(m.goals, m.FilterOptions()), names)
}

// reload pulls state straight from the store after a local mutation.
func (m *Model) reload() {
	m.goals = m.store.Goals()
	m.folders = m.store.Folders()
	m.refresh()
}

// snapshotFeed hands store snapshots to the program. Each snapshot is the full
// state, so only the newest pending one is kept.
type snapshotFeed struct {
	ch chan planner.Snapshot
}

func newSnapshotFeed() *snapshotFeed {
	return &snapshotFeed{ch: make(chan planner.Snapshot, 1)}
}

func (f *snapshotFeed) push(s planner.Snapshot) {
	for {
		select {
		case f.ch <- s:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *snapshotFeed) wait() tea.Cmd {
	return func() tea.Msg {
		return SnapshotMsg(<-f.ch)
	}
}
