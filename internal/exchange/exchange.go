// Package exchange implements the textual bulk format for the ledger:
// one `name,YYYY-MM-DD,seconds` record per line. There is no quoting, so
// project names containing commas are not supported.
package exchange

import (
	"fmt"
	"strconv"
	"strings"

	"worktimer/internal/ledger"
)

// MalformedLineError reports a line that does not split into exactly three
// fields. Line numbers are zero-based.
type MalformedLineError struct {
	Line int
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("line %d: expected name,date,seconds", e.Line)
}

// InvalidDateError reports a line whose date field is not an ISO date.
type InvalidDateError struct {
	Line  int
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("line %d: invalid date %q", e.Line, e.Value)
}

// InvalidSecondsError reports a line whose seconds field is not a
// non-negative integer.
type InvalidSecondsError struct {
	Line  int
	Value string
}

func (e *InvalidSecondsError) Error() string {
	return fmt.Sprintf("line %d: invalid seconds %q", e.Line, e.Value)
}

// Render serializes the whole ledger, projects in insertion order and days
// chronological within each project.
func Render(l *ledger.Ledger) string {
	var b strings.Builder
	for _, name := range l.Projects() {
		for _, rec := range l.Days(name) {
			fmt.Fprintf(&b, "%s,%s,%d\n", name, rec.Day, rec.Seconds)
		}
	}
	return b.String()
}

// Parse builds a fresh ledger from text. The first invalid line aborts the
// whole parse, so a failed import never touches the caller's ledger.
// An empty name field is malformed; the store refuses to load a nameless
// project, so letting one through would corrupt the persisted ledger.
// Duplicate (project, date) lines are last-write-wins.
func Parse(text string) (*ledger.Ledger, error) {
	lines := strings.Split(text, "\n")
	// A trailing final newline is not a record.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	l := ledger.New()
	for i, line := range lines {
		if strings.Count(line, ",") != 2 {
			return nil, &MalformedLineError{Line: i}
		}
		fields := strings.SplitN(line, ",", 3)
		if fields[0] == "" {
			return nil, &MalformedLineError{Line: i}
		}

		day, err := ledger.ParseDate(fields[1])
		if err != nil {
			return nil, &InvalidDateError{Line: i, Value: fields[1]}
		}

		seconds, err := strconv.Atoi(fields[2])
		if err != nil || seconds < 0 {
			return nil, &InvalidSecondsError{Line: i, Value: fields[2]}
		}

		l.Set(fields[0], day, seconds)
	}
	return l, nil
}
