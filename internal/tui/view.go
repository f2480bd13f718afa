package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateEditing:
		content = docStyle.Render(m.form.View())
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	default:
		content = docStyle.Render(m.goalList.View())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewHeader() string {
	folder := "All folders"
	if f, ok := m.currentFolder(); ok {
		folder = f.Name
	}

	conn := offlineStyle.Render("○ offline")
	if m.store.Online() {
		conn = onlineStyle.Render("● online")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		activeTabStyle.Render(folder),
		inactiveTabStyle.Render("filter: "+m.filter.String()),
		inactiveTabStyle.Render("sort: "+m.sort.String()),
		inactiveTabStyle.Render(fmt.Sprintf("%d shown", m.goalList.Len())),
		inactiveTabStyle.Render(conn),
	)
}

func (m Model) viewStatus() string {
	if m.syncErr != nil {
		return warningStyle.Render("⚠ Sync error: " + m.syncErr.Error())
	}
	if m.status != "" {
		return inactiveTabStyle.Render(m.status)
	}
	return ""
}

func (m Model) viewConfirmDelete() string {
	name := m.goalToDeleteID
	for _, g := range m.goals {
		if g.ID == m.goalToDeleteID {
			name = g.Title()
			break
		}
	}
	return lipgloss.Place(m.width, max(m.height-6, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete %q?", name)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
