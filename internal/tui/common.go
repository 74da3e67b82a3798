package tui

import (
	"fmt"
	"time"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewProjects
	viewHistory
)

var viewNames = []string{"Timer", "Projects", "History"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type importDoneMsg struct{}

// --- Helpers ---

func formatHours(secs int) string {
	return fmt.Sprintf("%.2fh", float64(secs)/3600)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
