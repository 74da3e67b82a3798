package ledger

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrDuplicateProject = errors.New("project already exists")
	ErrProjectNotFound  = errors.New("project not found")
	ErrEmptyProjectName = errors.New("project name is empty")
)

// Date is a local calendar date in ISO YYYY-MM-DD form. ISO dates sort
// chronologically as plain strings, which the ledger relies on.
type Date string

const dateLayout = "2006-01-02"

// Today returns the host's local calendar date.
func Today() Date {
	return Date(time.Now().Format(dateLayout))
}

// ParseDate validates s as an ISO calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", err
	}
	return Date(t.Format(dateLayout)), nil
}

// Time returns the date as a local midnight time.Time.
func (d Date) Time() time.Time {
	t, _ := time.ParseInLocation(dateLayout, string(d), time.Local)
	return t
}

func (d Date) String() string { return string(d) }

// DayRecord is one (date, accumulated seconds) pair of a project.
type DayRecord struct {
	Day     Date
	Seconds int
}

// Ledger maps project name to per-day accumulated seconds. Project names are
// case-sensitive and kept in insertion order, first created first. The ledger
// performs no accumulation: Set overwrites, callers own monotonicity.
type Ledger struct {
	order []string
	days  map[string]map[Date]int
}

func New() *Ledger {
	return &Ledger{days: make(map[string]map[Date]int)}
}

// Get returns the recorded seconds for (project, date), or 0 when absent.
func (l *Ledger) Get(project string, day Date) int {
	return l.days[project][day]
}

// Set overwrites the seconds for (project, date). An unknown project is
// created implicitly, same as writing into a fresh day-map. Negative values
// are clamped to 0.
func (l *Ledger) Set(project string, day Date, seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	m, ok := l.days[project]
	if !ok {
		m = make(map[Date]int)
		l.days[project] = m
		l.order = append(l.order, project)
	}
	m[day] = seconds
}

// CreateProject adds a project with an empty day-map.
func (l *Ledger) CreateProject(name string) error {
	if name == "" {
		return ErrEmptyProjectName
	}
	if _, ok := l.days[name]; ok {
		return ErrDuplicateProject
	}
	l.days[name] = make(map[Date]int)
	l.order = append(l.order, name)
	return nil
}

// DeleteProject removes a project and all its day records.
func (l *Ledger) DeleteProject(name string) error {
	if _, ok := l.days[name]; !ok {
		return ErrProjectNotFound
	}
	delete(l.days, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteDay removes a single day record. Removing an absent date is a no-op.
func (l *Ledger) DeleteDay(name string, day Date) error {
	m, ok := l.days[name]
	if !ok {
		return ErrProjectNotFound
	}
	delete(m, day)
	return nil
}

// Has reports whether the project exists.
func (l *Ledger) Has(name string) bool {
	_, ok := l.days[name]
	return ok
}

// TotalSeconds sums all recorded days of a project.
func (l *Ledger) TotalSeconds(project string) int {
	total := 0
	for _, sec := range l.days[project] {
		total += sec
	}
	return total
}

// Projects returns project names in insertion order.
func (l *Ledger) Projects() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// First returns the first-created project, or "" when the ledger is empty.
func (l *Ledger) First() string {
	if len(l.order) == 0 {
		return ""
	}
	return l.order[0]
}

// Len returns the number of projects.
func (l *Ledger) Len() int { return len(l.order) }

// Days returns the project's day records in chronological order.
func (l *Ledger) Days(project string) []DayRecord {
	m := l.days[project]
	if len(m) == 0 {
		return nil
	}
	out := make([]DayRecord, 0, len(m))
	for day, sec := range m {
		out = append(out, DayRecord{Day: day, Seconds: sec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// Clone returns a deep copy.
func (l *Ledger) Clone() *Ledger {
	c := New()
	for _, name := range l.order {
		c.order = append(c.order, name)
		m := make(map[Date]int, len(l.days[name]))
		for day, sec := range l.days[name] {
			m[day] = sec
		}
		c.days[name] = m
	}
	return c
}
