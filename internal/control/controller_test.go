package control

import (
	"errors"
	"strings"
	"testing"
	"time"

	"worktimer/internal/ledger"
	"worktimer/internal/session"
	"worktimer/internal/store"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 15, 9, 0, 0, 0, time.Local)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestController(t *testing.T) (*Controller, *fakeClock) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clk := newFakeClock()
	c := newWithSession(st, session.NewWithClock(clk.now))
	return c, clk
}

// tickFor simulates n seconds of running time: the clock advances and the
// session ticks once per simulated second.
func tickFor(c *Controller, clk *fakeClock, n int) {
	for i := 0; i < n; i++ {
		clk.advance(time.Second)
		c.sess.Tick()
	}
}

func TestNewOnEmptyStore(t *testing.T) {
	st, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	c, err := New(st, "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Active() != "" {
		t.Fatalf("expected no active project, got %q", c.Active())
	}
	if err := c.Start(); !errors.Is(err, session.ErrNoActiveProject) {
		t.Fatalf("expected ErrNoActiveProject, got %v", err)
	}
}

func TestNewPicksStoredDefault(t *testing.T) {
	st, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	l := ledger.New()
	l.CreateProject("A")
	l.CreateProject("B")
	if err := st.Save(l, "B"); err != nil {
		t.Fatal(err)
	}

	c, err := New(st, "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Active() != "B" {
		t.Fatalf("expected default B active, got %q", c.Active())
	}
}

func TestNewConfigDefaultSeedsFirstRun(t *testing.T) {
	st, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	l := ledger.New()
	l.CreateProject("A")
	l.CreateProject("B")
	if err := st.Save(l, ""); err != nil {
		t.Fatal(err)
	}

	c, err := New(st, "B")
	if err != nil {
		t.Fatal(err)
	}
	if c.Active() != "B" {
		t.Fatalf("config default should apply when store has none, got %q", c.Active())
	}
}

func TestSelectDefaultOrFirst(t *testing.T) {
	c, _ := newTestController(t)
	if got := c.SelectDefaultOrFirst(); got != "" {
		t.Fatalf("empty ledger should select none, got %q", got)
	}

	c.ledger.CreateProject("A")
	c.ledger.CreateProject("B")
	if got := c.SelectDefaultOrFirst(); got != "A" {
		t.Fatalf("expected first-created A, got %q", got)
	}

	// Stale default falls back to the first project.
	c.defaultProject = "Z"
	if got := c.SelectDefaultOrFirst(); got != "A" {
		t.Fatalf("stale default should fall back to A, got %q", got)
	}

	c.defaultProject = "B"
	if got := c.SelectDefaultOrFirst(); got != "B" {
		t.Fatalf("expected default B, got %q", got)
	}
}

func TestAddSwitchesToNewProject(t *testing.T) {
	c, clk := newTestController(t)

	if err := c.Add("Work"); err != nil {
		t.Fatal(err)
	}
	if c.Active() != "Work" {
		t.Fatalf("expected Work active, got %q", c.Active())
	}
	if c.Counter() != 0 {
		t.Fatalf("fresh project should have counter 0, got %d", c.Counter())
	}

	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	tickFor(c, clk, 5)
	if c.Counter() != 5 {
		t.Fatalf("expected counter 5, got %d", c.Counter())
	}
	if c.Display() != "0:00:05" {
		t.Fatalf("expected display 0:00:05, got %q", c.Display())
	}

	// Forced flush via a self-switch persists today's 5 seconds.
	c.Switch("Work")

	l, _, err := c.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Get("Work", c.sess.Day()); got != 5 {
		t.Fatalf("expected 5 persisted seconds, got %d", got)
	}
}

func TestAddDuplicate(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")
	if err := c.Add("Work"); !errors.Is(err, ledger.ErrDuplicateProject) {
		t.Fatalf("expected ErrDuplicateProject, got %v", err)
	}
}

func TestSwitchNeverWritesZeroDay(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")
	c.Add("Hobby") // switches away from Work with counter 0

	if got := c.ledger.Get("Work", ledger.Today()); got != 0 {
		t.Fatalf("zero counter should not create a day record, got %d", got)
	}
	if len(c.ledger.Days("Work")) != 0 {
		t.Fatalf("spurious day records: %v", c.ledger.Days("Work"))
	}
}

func TestSwitchReseedsFromLedger(t *testing.T) {
	c, clk := newTestController(t)
	c.Add("Work")
	c.Add("Hobby")

	c.Switch("Work")
	c.Start()
	tickFor(c, clk, 10)
	c.Switch("Hobby")

	if got := c.ledger.Get("Work", c.sess.Day()); got != 10 {
		t.Fatalf("expected 10 flushed for Work, got %d", got)
	}

	// Back to Work: counter reseeds from the ledger.
	c.Switch("Work")
	if c.Counter() != 10 {
		t.Fatalf("expected reseeded counter 10, got %d", c.Counter())
	}
}

func TestSwitchKeepsTimerRunning(t *testing.T) {
	c, clk := newTestController(t)
	c.Add("Work")
	c.Add("Hobby")
	c.Switch("Work")

	c.Start()
	tickFor(c, clk, 3)
	c.Switch("Hobby")

	if c.SessionState() != session.Running {
		t.Fatal("switch should keep a running timer running")
	}
	tickFor(c, clk, 2)
	if got := c.Counter(); got != 2 {
		t.Fatalf("expected 2 seconds on Hobby, got %d", got)
	}
	c.Stop()
}

func TestStopFreezesCounter(t *testing.T) {
	c, clk := newTestController(t)
	c.Add("Work")
	c.Start()
	tickFor(c, clk, 4)
	c.Stop()

	clk.advance(100 * time.Second)
	if got := c.Counter(); got != 4 {
		t.Fatalf("counter should be frozen at 4, got %d", got)
	}

	// Restart resumes from the frozen value.
	c.Start()
	tickFor(c, clk, 1)
	if got := c.Counter(); got != 5 {
		t.Fatalf("expected resume to 5, got %d", got)
	}
	c.Stop()
}

func TestRequestDeleteArmCommit(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")
	c.Add("Hobby")

	if err := c.RequestDelete("Work"); err != nil {
		t.Fatal(err)
	}
	if c.ArmedTarget() != "Work" {
		t.Fatalf("expected Work armed, got %q", c.ArmedTarget())
	}
	if c.ledger.Has("Work") == false {
		t.Fatal("arming must not delete")
	}

	if err := c.RequestDelete("Work"); err != nil {
		t.Fatal(err)
	}
	if c.ArmedTarget() != "" {
		t.Fatal("commit should disarm")
	}
	if c.ledger.Has("Work") {
		t.Fatal("commit should delete")
	}

	// A third request starts a fresh cycle on a now-missing project.
	if err := c.RequestDelete("Work"); !errors.Is(err, ledger.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestRequestDeleteOtherTargetClears(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")
	c.Add("Hobby")

	c.RequestDelete("Work")
	if err := c.RequestDelete("Hobby"); err != nil {
		t.Fatal(err)
	}
	if c.ArmedTarget() != "" {
		t.Fatalf("different target should clear, got %q armed", c.ArmedTarget())
	}
	if !c.ledger.Has("Work") || !c.ledger.Has("Hobby") {
		t.Fatal("nothing should be deleted")
	}
}

func TestOtherActionsDisarm(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")
	c.Add("Hobby")

	c.RequestDelete("Work")
	c.Switch("Hobby")
	if c.ArmedTarget() != "" {
		t.Fatal("switch should disarm")
	}

	c.RequestDelete("Work")
	c.Add("Third")
	if c.ArmedTarget() != "" {
		t.Fatal("add should disarm")
	}

	c.RequestDelete("Work")
	c.CancelDelete()
	if c.ArmedTarget() != "" {
		t.Fatal("cancel should disarm")
	}
}

func TestDeleteActiveProjectFallsBack(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")
	c.Add("Hobby") // active

	c.RequestDelete("Hobby")
	c.RequestDelete("Hobby")
	if c.Active() != "Work" {
		t.Fatalf("expected fallback to Work, got %q", c.Active())
	}

	c.RequestDelete("Work")
	c.RequestDelete("Work")
	if c.Active() != "" {
		t.Fatalf("expected none after deleting last project, got %q", c.Active())
	}
}

func TestDeleteClearsStaleDefault(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")
	c.SetDefault("Work")

	c.RequestDelete("Work")
	c.RequestDelete("Work")
	if c.DefaultProject() != "" {
		t.Fatalf("default should clear with its project, got %q", c.DefaultProject())
	}
}

func TestSetDefault(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")

	c.SetDefault("")
	if c.DefaultProject() != "" {
		t.Fatal("none sentinel must not become default")
	}

	c.SetDefault("Work")
	if c.DefaultProject() != "Work" {
		t.Fatalf("expected default Work, got %q", c.DefaultProject())
	}

	// Persisted immediately.
	_, def, err := c.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if def != "Work" {
		t.Fatalf("default not persisted, got %q", def)
	}
}

func TestImportReplacesLedger(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Old")

	text := "Work,2024-01-01,120\nWork,2024-01-02,60\n"
	if err := c.ImportFrom(text); err != nil {
		t.Fatal(err)
	}
	if c.ledger.Has("Old") {
		t.Fatal("import should replace, not merge")
	}
	if got := c.TotalSeconds("Work"); got != 180 {
		t.Fatalf("expected Work total 180, got %d", got)
	}
	if c.Active() != "Work" {
		t.Fatalf("active should fall back after import, got %q", c.Active())
	}
	if c.Status() != "Import successful" {
		t.Fatalf("unexpected status %q", c.Status())
	}
}

func TestImportFailureLeavesLedgerUntouched(t *testing.T) {
	c, clk := newTestController(t)
	c.Add("Work")
	c.Start()
	tickFor(c, clk, 3)
	c.Stop()

	err := c.ImportFrom("Work,notadate,60\n")
	if err == nil {
		t.Fatal("expected import error")
	}
	if !strings.Contains(err.Error(), "line 0") {
		t.Fatalf("expected line 0 in error, got %v", err)
	}
	if !c.ledger.Has("Work") {
		t.Fatal("failed import must leave ledger untouched")
	}
	if c.Counter() != 3 {
		t.Fatalf("failed import must leave session untouched, got %d", c.Counter())
	}
	if !strings.Contains(c.Status(), "Import failed") {
		t.Fatalf("unexpected status %q", c.Status())
	}
}

func TestImportEmptyProjectNameRejected(t *testing.T) {
	c, _ := newTestController(t)
	if err := c.ImportFrom("Work,2024-01-01,60\n"); err != nil {
		t.Fatal(err)
	}

	// A nameless project must never reach the store: Load refuses it, so a
	// single accepted line would leave a database that no longer opens.
	if err := c.ImportFrom(",2024-01-02,5\n"); err == nil {
		t.Fatal("expected import error for empty project name")
	}
	if !c.ledger.Has("Work") {
		t.Fatal("failed import must leave ledger untouched")
	}

	l, _, err := c.store.Load()
	if err != nil {
		t.Fatalf("reload after rejected import: %v", err)
	}
	if !l.Has("Work") {
		t.Fatal("persisted ledger lost after rejected import")
	}
}

func TestExportBypassesSession(t *testing.T) {
	c, clk := newTestController(t)
	c.Add("Work")
	c.Start()
	tickFor(c, clk, 5)
	c.Stop()

	// Counter not yet flushed: export sees only the ledger.
	if got := c.ExportTo(); got != "" {
		t.Fatalf("unflushed session must not export, got %q", got)
	}

	c.Switch("Work") // flush
	got := c.ExportTo()
	want := "Work," + string(c.sess.Day()) + ",5\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestQuitFlushesAndPersists(t *testing.T) {
	c, clk := newTestController(t)
	c.Add("Work")
	c.Start()
	tickFor(c, clk, 8)

	if err := c.Quit(); err != nil {
		t.Fatal(err)
	}
	if c.SessionState() != session.Stopped {
		t.Fatal("quit should stop the session")
	}

	l, _, err := c.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Get("Work", c.sess.Day()); got != 8 {
		t.Fatalf("expected 8 persisted on quit, got %d", got)
	}
}

func TestQuitWithZeroCounter(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")
	if err := c.Quit(); err != nil {
		t.Fatal(err)
	}

	l, _, err := c.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Days("Work")) != 0 {
		t.Fatal("quit with zero counter must not write a day record")
	}
}

func TestDeleteDayReseedsToday(t *testing.T) {
	c, clk := newTestController(t)
	c.Add("Work")
	c.Start()
	tickFor(c, clk, 6)
	c.Stop()
	c.Switch("Work") // flush today's 6 seconds

	if err := c.DeleteDay(c.sess.Day()); err != nil {
		t.Fatal(err)
	}
	if c.Counter() != 0 {
		t.Fatalf("deleting today should reseed counter to 0, got %d", c.Counter())
	}
	if c.Display() != "--:--:--" {
		t.Fatalf("expected placeholder display, got %q", c.Display())
	}
}

func TestDeleteDayPersists(t *testing.T) {
	c, _ := newTestController(t)
	if err := c.ImportFrom("Work,2024-01-01,60\nWork,2024-01-02,30\n"); err != nil {
		t.Fatal(err)
	}

	if err := c.DeleteDay(ledger.Date("2024-01-01")); err != nil {
		t.Fatal(err)
	}

	// The deletion is durable on its own, not only after the next flush.
	l, _, err := c.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if l.Get("Work", ledger.Date("2024-01-01")) != 0 {
		t.Fatal("deleted day should be gone after reload")
	}
	if l.Get("Work", ledger.Date("2024-01-02")) != 30 {
		t.Fatal("other day records must survive")
	}
}

func TestDeleteDayOtherDate(t *testing.T) {
	c, clk := newTestController(t)
	c.Add("Work")
	c.ledger.Set("Work", ledger.Date("2020-01-01"), 99)
	c.Start()
	tickFor(c, clk, 2)
	c.Stop()

	if err := c.DeleteDay(ledger.Date("2020-01-01")); err != nil {
		t.Fatal(err)
	}
	if c.Counter() != 2 {
		t.Fatalf("deleting another day must not touch the counter, got %d", c.Counter())
	}
	if c.ledger.Get("Work", ledger.Date("2020-01-01")) != 0 {
		t.Fatal("day record should be gone")
	}
}

func TestHistory(t *testing.T) {
	c, _ := newTestController(t)
	if c.History() != nil {
		t.Fatal("no active project should mean no history")
	}

	c.Add("Work")
	c.ledger.Set("Work", ledger.Date("2024-02-01"), 20)
	c.ledger.Set("Work", ledger.Date("2024-01-01"), 10)

	h := c.History()
	if len(h) != 2 || h[0].Day != "2024-01-01" || h[1].Day != "2024-02-01" {
		t.Fatalf("unexpected history: %v", h)
	}
}

func TestTotalHours(t *testing.T) {
	c, _ := newTestController(t)
	c.Add("Work")
	c.ledger.Set("Work", ledger.Date("2024-01-01"), 5400)
	if got := c.TotalHours("Work"); got != 1.5 {
		t.Fatalf("expected 1.5 hours, got %v", got)
	}
}

func TestStatusLifecycle(t *testing.T) {
	c, _ := newTestController(t)
	c.ImportFrom("Work,2024-01-01,60\n")
	if c.Status() == "" {
		t.Fatal("import should set a status")
	}
	c.ClearStatus()
	if c.Status() != "" {
		t.Fatal("status should clear")
	}
}
