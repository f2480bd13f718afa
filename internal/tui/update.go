package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/novaplanner/nova/internal/models"
	"github.com/novaplanner/nova/internal/planner"
	"github.com/novaplanner/nova/internal/tui/components/goallist"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.goalList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(planner.Snapshot(msg))
		return m, m.snaps.wait()
	}

	switch m.state {
	case StateEditing:
		return m.updateForm(msg)
	case StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Filter):
			m.filter = m.filter.Next()
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Sort):
			m.sort = m.sort.Next()
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Folder):
			m.folderIdx = (m.folderIdx + 1) % (len(m.folders) + 1)
			m.refresh()
			return m, nil
		}

	case goallist.AddGoalMsg:
		g := models.Goal{}
		if f, ok := m.currentFolder(); ok {
			g.FolderID = models.StringPtr(f.ID)
		}
		return m, m.startForm(nil, g)

	case goallist.EditGoalMsg:
		g := msg.Goal
		return m, m.startForm(&g, g)

	case goallist.DeleteGoalMsg:
		m.goalToDeleteID = msg.ID
		m.state = StateConfirmDelete
		return m, nil

	case goallist.ToggleGoalMsg:
		g, ok, err := m.store.ToggleGoalCompletion(msg.ID)
		switch {
		case err != nil:
			m.status = fmt.Sprintf("Failed to save: %v", err)
		case ok && g.Completed:
			m.status = fmt.Sprintf("Completed %q (streak %d)", g.Title(), g.Streak)
		case ok:
			m.status = fmt.Sprintf("Reopened %q", g.Title())
		}
		m.reload()
		return m, nil
	}

	var cmd tea.Cmd
	m.goalList, cmd = m.goalList.Update(msg)
	return m, cmd
}

func (m *Model) applySnapshot(s planner.Snapshot) {
	m.goals = s.Goals
	m.folders = s.Folders
	switch s.Cause {
	case planner.CauseRemoteError:
		m.syncErr = s.Err
	case planner.CauseRemote:
		m.syncErr = nil
		m.status = "Synced " + time.Now().Format("15:04:05")
	}
	m.refresh()
}

func (m *Model) startForm(editing *models.Goal, base models.Goal) tea.Cmd {
	m.editing = editing
	m.goalForm = goalFormFrom(base)
	m.form = NewGoalForm(m.goalForm, m.folders)
	m.state = StateEditing
	return m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		m.state = StateGoals
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		if err := m.saveForm(); err != nil {
			m.status = fmt.Sprintf("Failed to save: %v", err)
		}
		m.state = StateGoals
		m.reload()
	case huh.StateAborted:
		m.state = StateGoals
	}
	return m, cmd
}

// saveForm adds a new goal or updates the one being edited.
func (m *Model) saveForm() error {
	base := models.Goal{}
	if m.editing != nil {
		base = *m.editing
	}
	g, err := m.goalForm.apply(base)
	if err != nil {
		return err
	}

	if m.editing == nil {
		added, err := m.store.AddGoal(g)
		if err != nil {
			return err
		}
		m.status = fmt.Sprintf("Added %q", added.Title())
		return nil
	}

	ok, err := m.store.UpdateGoal(g)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("goal was deleted while editing")
	}
	m.status = fmt.Sprintf("Updated %q", g.Title())
	return nil
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		if err := m.store.DeleteGoal(m.goalToDeleteID); err != nil {
			m.status = fmt.Sprintf("Failed to delete: %v", err)
		} else {
			m.status = "Goal deleted"
		}
		m.goalToDeleteID = ""
		m.state = StateGoals
		m.reload()
	case key.Matches(keyMsg, m.keys.No):
		m.goalToDeleteID = ""
		m.state = StateGoals
	}
	return m, nil
}
