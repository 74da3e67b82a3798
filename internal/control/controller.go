// Package control orchestrates project selection, the timer session and
// ledger persistence. The controller owns the ledger, the store and the
// session by composition; the presentation layer holds a controller
// reference and renders its read accessors.
//
// All mutating methods run on the foreground path. The session's ticker
// goroutine never touches the ledger, so the ledger needs no locking.
package control

import (
	"fmt"
	"time"

	"worktimer/internal/exchange"
	"worktimer/internal/ledger"
	"worktimer/internal/session"
	"worktimer/internal/store"
)

type Controller struct {
	ledger *ledger.Ledger
	store  *store.Store
	sess   *session.Session

	defaultProject string
	active         string
	armed          string // pending deletion target, "" when unarmed
	status         string
}

// New loads persisted state and seeds the session for the default project.
// configDefault is used only when the store carries no default yet (a
// first-run seed from the config file).
func New(st *store.Store, configDefault string) (*Controller, error) {
	l, def, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if def == "" {
		def = configDefault
	}

	c := &Controller{
		ledger:         l,
		store:          st,
		sess:           session.New(),
		defaultProject: def,
	}
	c.active = c.SelectDefaultOrFirst()
	c.sess.Seed(c.active, l.Get(c.active, ledger.Today()))
	return c, nil
}

// newWithSession is the test constructor; it skips loading and uses the
// given session (typically one with an injected clock).
func newWithSession(st *store.Store, sess *session.Session) *Controller {
	c := &Controller{ledger: ledger.New(), store: st, sess: sess}
	c.sess.Seed("", 0)
	return c
}

// SelectDefaultOrFirst resolves the project to activate: the default when it
// still exists, else the first-created project, else none. A stale default
// (project deleted after being marked) falls through to the first project.
func (c *Controller) SelectDefaultOrFirst() string {
	if c.defaultProject != "" && c.ledger.Has(c.defaultProject) {
		return c.defaultProject
	}
	return c.ledger.First()
}

// Start begins accumulating time for the active project.
func (c *Controller) Start() error {
	c.disarm()
	return c.sess.Start()
}

// Stop freezes the counter; the value becomes durable on the next switch or
// quit.
func (c *Controller) Stop() {
	c.disarm()
	c.sess.Stop()
}

// Switch flushes the current session into the ledger, persists, and reseeds
// the session for the new project. A running timer keeps running on the new
// project. Switching away with a zero counter never writes a zero-valued
// day record.
func (c *Controller) Switch(name string) {
	c.disarm()
	wasRunning := c.sess.State() == session.Running
	c.sess.Stop()

	c.flushSession()
	c.persist()

	c.active = name
	c.sess.Seed(name, c.ledger.Get(name, ledger.Today()))
	if wasRunning && name != "" {
		if err := c.sess.Start(); err != nil {
			c.status = fmt.Sprintf("Timer restart failed: %v", err)
		}
	}
}

// Add creates an empty project and immediately switches to it.
func (c *Controller) Add(name string) error {
	c.disarm()
	if err := c.ledger.CreateProject(name); err != nil {
		return err
	}
	c.Switch(name)
	return nil
}

// RequestDelete drives the two-step deletion state machine. The first call
// arms the target; a second call on the same target commits. A call for a
// different target while armed only clears the armed state, matching the
// original lockout of every other delete control.
func (c *Controller) RequestDelete(name string) error {
	if c.armed == "" {
		if !c.ledger.Has(name) {
			return ledger.ErrProjectNotFound
		}
		c.armed = name
		return nil
	}
	if c.armed != name {
		c.armed = ""
		return nil
	}

	c.armed = ""
	if err := c.ledger.DeleteProject(name); err != nil {
		return err
	}
	if c.defaultProject == name {
		c.defaultProject = ""
	}
	if c.active == name {
		c.sess.Stop()
		c.active = c.ledger.First()
		c.sess.Seed(c.active, c.ledger.Get(c.active, ledger.Today()))
	}
	c.persist()
	return nil
}

// CancelDelete clears a pending deletion without committing it.
func (c *Controller) CancelDelete() {
	c.armed = ""
}

// SetDefault marks the startup project. The none sentinel is ignored.
func (c *Controller) SetDefault(name string) {
	c.disarm()
	if name == "" {
		return
	}
	c.defaultProject = name
	c.persist()
}

// DeleteDay removes one day record of the active project. When the removed
// date is the session's day the counter is reseeded from the ledger, so the
// display drops back to the placeholder.
func (c *Controller) DeleteDay(day ledger.Date) error {
	c.disarm()
	if c.active == "" {
		return ledger.ErrProjectNotFound
	}
	if err := c.ledger.DeleteDay(c.active, day); err != nil {
		return err
	}
	if day == c.sess.Day() {
		wasRunning := c.sess.State() == session.Running
		c.sess.Stop()
		c.sess.Seed(c.active, c.ledger.Get(c.active, ledger.Today()))
		if wasRunning {
			c.sess.Start()
		}
	}
	c.persist()
	return nil
}

// ImportFrom replaces the entire ledger with the parsed text. This is a
// destructive overwrite; a failed parse leaves the existing ledger
// untouched.
func (c *Controller) ImportFrom(text string) error {
	c.disarm()
	parsed, err := exchange.Parse(text)
	if err != nil {
		c.status = fmt.Sprintf("Import failed: %v", err)
		return err
	}

	c.sess.Stop()
	c.ledger = parsed
	c.active = c.SelectDefaultOrFirst()
	c.sess.Seed(c.active, c.ledger.Get(c.active, ledger.Today()))
	c.persist()
	c.status = "Import successful"
	return nil
}

// ExportTo renders the ledger in the exchange format. The live session
// counter is not included until a switch or quit flushes it.
func (c *Controller) ExportTo() string {
	c.disarm()
	return exchange.Render(c.ledger)
}

// Quit flushes the session and persists. Persistence failure is returned
// but the session is stopped regardless, so shutdown never hangs.
func (c *Controller) Quit() error {
	c.disarm()
	c.sess.Stop()
	c.flushSession()
	if err := c.store.Save(c.ledger, c.defaultProject); err != nil {
		return fmt.Errorf("save on quit: %w", err)
	}
	return nil
}

// --- Read accessors for the presentation layer ---

func (c *Controller) Active() string { return c.active }

func (c *Controller) Display() string { return c.sess.Display() }

func (c *Controller) Counter() int { return c.sess.Counter() }

func (c *Controller) SessionState() session.State { return c.sess.State() }

func (c *Controller) Projects() []string { return c.ledger.Projects() }

func (c *Controller) DefaultProject() string { return c.defaultProject }

func (c *Controller) ArmedTarget() string { return c.armed }

// History returns the active project's day records, chronological.
func (c *Controller) History() []ledger.DayRecord {
	if c.active == "" {
		return nil
	}
	return c.ledger.Days(c.active)
}

func (c *Controller) TotalSeconds(name string) int {
	return c.ledger.TotalSeconds(name)
}

// TotalHours returns a project's lifetime total in fractional hours.
func (c *Controller) TotalHours(name string) float64 {
	return float64(c.ledger.TotalSeconds(name)) / 3600
}

// LastWorked returns the most recent recorded day of a project, or the zero
// time when it has none.
func (c *Controller) LastWorked(name string) time.Time {
	days := c.ledger.Days(name)
	if len(days) == 0 {
		return time.Time{}
	}
	return days[len(days)-1].Day.Time()
}

func (c *Controller) Status() string { return c.status }

func (c *Controller) ClearStatus() { c.status = "" }

// --- internals ---

// flushSession writes the session counter into the ledger. Only a positive
// counter writes, so no-op days never pollute the ledger.
func (c *Controller) flushSession() {
	if c.active == "" {
		return
	}
	if sec := c.sess.Counter(); sec > 0 {
		c.ledger.Set(c.active, c.sess.Day(), sec)
	}
}

// persist saves the whole ledger. Mid-session failures surface as a status
// message rather than crashing the session.
func (c *Controller) persist() {
	if err := c.store.Save(c.ledger, c.defaultProject); err != nil {
		c.status = fmt.Sprintf("Save failed: %v", err)
	}
}

func (c *Controller) disarm() {
	c.armed = ""
}
