package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"worktimer/internal/ledger"
)

var (
	ErrNoActiveProject = errors.New("no active project")
	ErrAlreadyRunning  = errors.New("timer already running")
)

// stopTimeout bounds how long Stop waits for the ticker goroutine to exit.
const stopTimeout = 2 * time.Second

// State is the timer session state.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Session accumulates elapsing seconds for the active project. The counter
// is recomputed from wall-clock deltas on every tick, so scheduling jitter
// never skips or double-counts a second. At most one ticker goroutine runs
// at a time; Stop joins it with a bounded wait.
//
// The day is snapshotted when the session is seeded and never re-checked
// while running, so a session left running across midnight keeps
// accumulating into the original day's bucket.
type Session struct {
	mu        sync.Mutex
	state     State
	project   string
	day       ledger.Date
	base      int // seconds carried in at the last start
	counter   int
	startedAt time.Time

	now    func() time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

func New() *Session {
	return &Session{now: time.Now}
}

// NewWithClock injects a clock for deterministic tests.
func NewWithClock(now func() time.Time) *Session {
	return &Session{now: now}
}

// Seed puts the session in Idle for the given project with the given
// starting counter, snapshotting today as the session day. The caller must
// stop a running session first.
func (s *Session) Seed(project string, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = project
	s.day = ledger.Today()
	s.counter = seconds
	s.base = seconds
	s.state = Idle
}

// Start transitions Idle/Stopped to Running and launches the ticker
// goroutine. Starting without a project fails; starting while already
// running is rejected rather than spawning a second ticker.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.project == "" {
		return ErrNoActiveProject
	}
	if s.state == Running {
		return ErrAlreadyRunning
	}

	s.base = s.counter
	s.startedAt = s.now()
	s.state = Running

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	return nil
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick recomputes the counter from the wall clock. It is called by the
// ticker goroutine once per second and is safe to call directly with an
// injected clock in tests.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return
	}
	s.counter = s.base + int(s.now().Sub(s.startedAt)/time.Second)
}

// Stop transitions Running to Stopped, freezing the counter. It signals the
// ticker goroutine and waits up to stopTimeout for it to exit, proceeding
// regardless so shutdown never hangs. Stopping a non-running session is a
// no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
	}

	s.mu.Lock()
	s.counter = s.base + int(s.now().Sub(s.startedAt)/time.Second)
	s.state = Stopped
	s.mu.Unlock()
}

// Counter returns the current seconds value. While running this is the live
// value as of the last tick; callers wanting a final value must Stop first.
func (s *Session) Counter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return s.base + int(s.now().Sub(s.startedAt)/time.Second)
	}
	return s.counter
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Project() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// Day returns the calendar date snapshotted when the session was seeded.
func (s *Session) Day() ledger.Date {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// Display returns the formatted counter.
func (s *Session) Display() string {
	return FormatSeconds(s.Counter())
}

// FormatSeconds renders seconds as H:MM:SS. Zero renders as a placeholder
// to distinguish "untouched today" from "worked zero seconds". Hours keep
// counting past 24.
func FormatSeconds(seconds int) string {
	if seconds == 0 {
		return "--:--:--"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}
