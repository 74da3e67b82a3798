package tui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"worktimer/internal/control"
	"worktimer/internal/session"
)

// App is the root Bubble Tea model. Time accumulation happens in the
// controller's session; the per-second tick here only refreshes the screen.
type App struct {
	ctrl       *control.Controller
	exportPath string
	width      int
	height     int

	activeView viewState
	showHelp   bool

	timer    timerModel
	projects projectsModel
	history  historyModel

	help    help.Model
	status  string
	statErr bool
	quitErr error
}

func NewApp(c *control.Controller, exportPath string) App {
	h := help.New()
	h.ShowAll = false

	return App{
		ctrl:       c,
		exportPath: exportPath,
		activeView: viewTimer,
		timer:      newTimerModel(c),
		projects:   newProjectsModel(c),
		history:    newHistoryModel(c),
		help:       h,
	}
}

// QuitErr returns the error from the shutdown flush, if any.
func (a App) QuitErr() error { return a.quitErr }

func (a App) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.projects.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// If the projects form is capturing input, delegate first.
		if a.projects.formActive {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			// The alt screen swallows anything printed here; the caller
			// reports the error once the program releases the terminal.
			a.quitErr = a.ctrl.Quit()
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Export):
			return a, a.doExport()
		case key.Matches(msg, keys.Import):
			return a, a.doImport()
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTimer
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewProjects
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewHistory
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % 3
			return a, nil
		}
		return a.updateActiveView(msg)

	case tickMsg:
		// Session ticks itself; this just triggers a re-render.
		return a, tickCmd()

	case statusMsg:
		a.status = msg.text
		a.statErr = msg.isError
		a.ctrl.ClearStatus()
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statErr = false
		a.ctrl.ClearStatus()
		return a, nil

	case importDoneMsg:
		a.status = "Import successful"
		a.statErr = false
		a.ctrl.ClearStatus()
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewProjects:
		a.projects, cmd = a.projects.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	}
	return a, cmd
}

func (a App) doExport() tea.Cmd {
	text := a.ctrl.ExportTo()
	path := a.exportPath
	return func() tea.Msg {
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return statusMsg{text: fmt.Sprintf("Export failed: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

func (a App) doImport() tea.Cmd {
	path := a.exportPath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return func() tea.Msg {
				return statusMsg{text: "No file to import at " + path, isError: true}
			}
		}
		return func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Import failed: %v", err), isError: true}
		}
	}
	if err := a.ctrl.ImportFrom(string(data)); err != nil {
		return func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Import failed: %v", err), isError: true}
		}
	}
	return func() tea.Msg { return importDoneMsg{} }
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view()
	case viewProjects:
		content = a.projects.view()
	case viewHistory:
		content = a.history.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("worktimer")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	// Controller-side messages (save failures and the like) take priority.
	statusText := a.status
	isErr := a.statErr
	if s := a.ctrl.Status(); s != "" {
		statusText = s
		isErr = false
	}
	status := ""
	if statusText != "" {
		if isErr {
			status = errorStyle.Render(" " + statusText)
		} else {
			status = mutedStyle.Render(" " + statusText)
		}
	}

	// Timer indicator in footer
	timerInfo := ""
	if a.ctrl.SessionState() == session.Running {
		timerInfo = successStyle.Render(" ● " + a.ctrl.Display())
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}
