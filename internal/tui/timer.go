package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"worktimer/internal/control"
	"worktimer/internal/session"
)

// timerModel renders the main timer panel. All timing state lives in the
// controller's session; this model only reads it.
type timerModel struct {
	ctrl   *control.Controller
	width  int
	height int
}

func newTimerModel(c *control.Controller) timerModel {
	return timerModel{ctrl: c}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			if err := t.ctrl.Start(); err != nil {
				return t, func() tea.Msg {
					return statusMsg{text: fmt.Sprintf("Cannot start: %v", err), isError: true}
				}
			}
			return t, func() tea.Msg { return statusMsg{text: "Timer started"} }

		case key.Matches(msg, keys.Stop):
			t.ctrl.Stop()
			return t, func() tea.Msg { return statusMsg{text: "Timer stopped"} }
		}
	}
	return t, nil
}

func (t timerModel) view() string {
	w := t.width - 4

	project := t.ctrl.Active()
	projectLine := highlightStyle.Render(project)
	if project == "" {
		projectLine = mutedStyle.Render("No project. Press 2 to create one")
	}

	timeStr := t.ctrl.Display()
	var timeDisplay, indicator string
	switch t.ctrl.SessionState() {
	case session.Running:
		timeDisplay = timerRunningStyle.Width(w - 6).Render(timeStr)
		indicator = successStyle.Render("●  RUNNING")
	case session.Stopped:
		timeDisplay = timerPausedStyle.Width(w - 6).Render(timeStr)
		indicator = warningStyle.Render("■  STOPPED")
	default:
		timeDisplay = timerStyle.Width(w - 6).Render(timeStr)
		indicator = mutedStyle.Render("■  IDLE")
	}

	hint := mutedStyle.Render("s: start  x: stop")
	if project == "" {
		hint = mutedStyle.Render("Create a project before starting the timer")
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		projectLine,
		timeDisplay,
		indicator,
		hint,
	)

	style := panelStyle
	if t.ctrl.SessionState() == session.Running {
		style = activePanelStyle
	}
	main := style.Width(w).Render(content)

	total := mutedStyle.Render(fmt.Sprintf("  Project total: %s", formatHours(t.ctrl.TotalSeconds(project))))
	if project == "" {
		total = ""
	}

	return lipgloss.JoinVertical(lipgloss.Left, main, total)
}
