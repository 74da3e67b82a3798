package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"worktimer/internal/control"
)

type projectsModel struct {
	ctrl   *control.Controller
	width  int
	height int

	cursor int

	formActive bool
	form       *huh.Form

	// Form field pointer (survives value copies)
	formName *string
}

func newProjectsModel(c *control.Controller) projectsModel {
	name := ""
	return projectsModel{ctrl: c, formName: &name}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	msgKey, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}

	projects := p.ctrl.Projects()
	if p.cursor >= len(projects) {
		p.cursor = max(0, len(projects)-1)
	}

	switch {
	case key.Matches(msgKey, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msgKey, keys.Down):
		if p.cursor < len(projects)-1 {
			p.cursor++
		}
	case key.Matches(msgKey, keys.Enter):
		if len(projects) > 0 {
			name := projects[p.cursor]
			p.ctrl.Switch(name)
			return p, func() tea.Msg {
				return statusMsg{text: "Switched to " + name}
			}
		}
	case key.Matches(msgKey, keys.New):
		return p.showNewProjectForm()
	case key.Matches(msgKey, keys.Delete):
		if len(projects) > 0 {
			return p.requestDelete(projects[p.cursor])
		}
	case key.Matches(msgKey, keys.Default):
		if len(projects) > 0 {
			name := projects[p.cursor]
			p.ctrl.SetDefault(name)
			return p, func() tea.Msg {
				return statusMsg{text: "Default project: " + name}
			}
		}
	case key.Matches(msgKey, keys.Back):
		p.ctrl.CancelDelete()
	}
	return p, nil
}

// requestDelete drives the two-press confirmation. The first press arms the
// project under the cursor; the second press on the same project commits.
func (p projectsModel) requestDelete(name string) (projectsModel, tea.Cmd) {
	armed := p.ctrl.ArmedTarget()
	if err := p.ctrl.RequestDelete(name); err != nil {
		return p, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Delete failed: %v", err), isError: true}
		}
	}
	if armed == name {
		if p.cursor >= len(p.ctrl.Projects()) {
			p.cursor = max(0, len(p.ctrl.Projects())-1)
		}
		return p, func() tea.Msg {
			return statusMsg{text: "Deleted " + name}
		}
	}
	return p, nil
}

func (p projectsModel) showNewProjectForm() (projectsModel, tea.Cmd) {
	*p.formName = ""
	p.ctrl.CancelDelete()

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project Name").Value(p.formName),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) updateForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		name := strings.TrimSpace(*p.formName)
		if name == "" {
			return p, nil
		}
		if err := p.ctrl.Add(name); err != nil {
			return p, func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("Cannot add: %v", err), isError: true}
			}
		}
		return p, func() tea.Msg {
			return statusMsg{text: "Added " + name}
		}
	}

	return p, cmd
}

func (p projectsModel) view() string {
	w := p.width - 4

	if p.formActive && p.form != nil {
		title := titleStyle.Render("New Project")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", p.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Projects")
	projects := p.ctrl.Projects()

	if len(projects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No projects yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	armed := p.ctrl.ArmedTarget()

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	header := mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %10s", "", "Name", "Total"))
	rows = append(rows, header)

	for i, name := range projects {
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		marks := ""
		if name == p.ctrl.DefaultProject() {
			marks += " " + accentStyle.Render("★")
		}
		if name == p.ctrl.Active() {
			marks += " " + successStyle.Render("●")
		}

		label := fmt.Sprintf("%s%-24s %10s", cursor, name, formatHours(p.ctrl.TotalSeconds(name)))
		switch {
		case name == armed:
			rows = append(rows, errorStyle.Render(label+"  press d again to delete")+marks)
		case armed != "":
			// Another project is armed; everything else is locked out.
			rows = append(rows, mutedStyle.Render(label)+marks)
		default:
			rows = append(rows, style.Render(label)+marks)
		}
	}

	rows = append(rows, "")
	hint := "  enter: switch  n: new  d: delete  *: set default"
	if armed != "" {
		hint = "  d: confirm delete  esc: cancel"
	}
	rows = append(rows, mutedStyle.Render(hint))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
