package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"worktimer/internal/control"
	"worktimer/internal/session"
)

// chartDays is how many trailing days the history chart covers.
const chartDays = 14

// historyModel shows the active project's per-day records: a bar chart of
// the recent days plus the full chronological table.
type historyModel struct {
	ctrl   *control.Controller
	width  int
	height int

	cursor int
	chart  barchart.Model
}

func newHistoryModel(c *control.Controller) historyModel {
	return historyModel{
		ctrl:  c,
		chart: barchart.New(60, 10),
	}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	msgKey, ok := msg.(tea.KeyMsg)
	if !ok {
		return h, nil
	}

	records := h.ctrl.History()
	if h.cursor >= len(records) {
		h.cursor = max(0, len(records)-1)
	}

	switch {
	case key.Matches(msgKey, keys.Up):
		if h.cursor > 0 {
			h.cursor--
		}
	case key.Matches(msgKey, keys.Down):
		if h.cursor < len(records)-1 {
			h.cursor++
		}
	case key.Matches(msgKey, keys.Delete):
		if len(records) > 0 {
			day := records[h.cursor].Day
			if err := h.ctrl.DeleteDay(day); err != nil {
				return h, func() tea.Msg {
					return statusMsg{text: fmt.Sprintf("Delete failed: %v", err), isError: true}
				}
			}
			return h, func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("Removed %s", day)}
			}
		}
	}
	return h, nil
}

func (h *historyModel) buildChart() {
	chartWidth := h.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if h.height > 30 {
		chartHeight = 14
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	seconds := make(map[string]int)
	for _, rec := range h.ctrl.History() {
		seconds[string(rec.Day)] = rec.Seconds
	}

	today := time.Now()
	var bars []barchart.BarData
	for i := chartDays - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		dateStr := d.Format("2006-01-02")
		hours := float64(seconds[dateStr]) / 3600.0

		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if hours == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("02"),
			Values: []barchart.BarValue{{Name: dateStr, Value: hours, Style: style}},
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	project := h.ctrl.Active()
	if project == "" {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("History"),
			"",
			mutedStyle.Render("No active project."),
		)
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render(fmt.Sprintf("History: %s", project))
	totals := highlightStyle.Render(fmt.Sprintf("%s total", formatHours(h.ctrl.TotalSeconds(project))))

	lastWorked := ""
	if t := h.ctrl.LastWorked(project); !t.IsZero() {
		lastWorked = mutedStyle.Render("last worked " + humanize.Time(t))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", totals, "  ", lastWorked)

	h.buildChart()
	chartView := h.chart.View()

	tableView := h.renderDayTable(w)
	nav := mutedStyle.Render("  ↑/↓: select  d: delete day")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", chartView, "", tableView, "", nav),
	)
}

func (h historyModel) renderDayTable(w int) string {
	records := h.ctrl.History()
	if len(records) == 0 {
		return mutedStyle.Render("  No time recorded yet")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %10s %10s", "Date", "Seconds", "Time")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 36))))

	for i, rec := range records {
		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-12s %10d %10s",
			cursor, rec.Day, rec.Seconds, session.FormatSeconds(rec.Seconds))))
	}

	return strings.Join(rows, "\n")
}
