package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/boost/pkg/boost/engine"
	"github.com/jamesainslie/boost/pkg/boost/logging"
	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/profile"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

func ok(context.Context) (string, error) { return "done", nil }

func testCatalog(t *testing.T) *tweak.Catalog {
	t.Helper()
	cat, err := tweak.NewCatalog(
		tweak.Tweak{ID: "process.kill-bloat", Title: "Kill background apps", Category: tweak.ProcessCleanup, Forward: ok, ParallelSafe: true, Default: true},
		tweak.Tweak{ID: "services.stop", Title: "Stop services", Category: tweak.ProcessCleanup, Forward: ok, Reverse: ok, ParallelSafe: true, Default: true},
		tweak.Tweak{ID: "memory.idle-tasks", Title: "Run idle tasks", Category: tweak.Memory, Forward: func(context.Context) (string, error) {
			return "", errors.New("exit status 1")
		}, Default: true},
		tweak.Tweak{ID: "power.high-performance", Title: "High performance plan", Category: tweak.Power, Forward: ok, Reverse: ok},
	)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return cat
}

func testOptions(t *testing.T, mode plan.Mode) Options {
	cat := testCatalog(t)
	return Options{
		Catalog:   cat,
		Compiler:  plan.NewCompiler(cat),
		Scheduler: engine.New(engine.AlwaysElevated, engine.DefaultOptions()),
		Mode:      mode,
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestChecklist_Defaults(t *testing.T) {
	m := NewChecklistModel(testCatalog(t), nil, plan.Apply)

	if got := m.SelectedCount(); got != 3 {
		t.Errorf("SelectedCount() = %d, want 3", got)
	}
	if m.Selection().Enabled("power.high-performance") {
		t.Error("power.high-performance should not be checked by default")
	}
}

func TestChecklist_Keys(t *testing.T) {
	m := NewChecklistModel(testCatalog(t), nil, plan.Apply)

	m.HandleKey(" ")
	if m.Selection().Enabled("process.kill-bloat") {
		t.Error("space should uncheck the first tweak")
	}

	m.HandleKey("end")
	if cur, _ := m.Current(); cur.ID != "power.high-performance" {
		t.Errorf("cursor after end = %s, want power.high-performance", cur.ID)
	}
	m.HandleKey("x")
	if !m.Selection().Enabled("power.high-performance") {
		t.Error("x should check the tweak under the cursor")
	}

	m.HandleKey("k")
	if cur, _ := m.Current(); cur.ID != "memory.idle-tasks" {
		t.Errorf("cursor after k = %s, want memory.idle-tasks", cur.ID)
	}

	m.HandleKey("n")
	if got := m.SelectedCount(); got != 0 {
		t.Errorf("after n SelectedCount() = %d, want 0", got)
	}
	m.HandleKey("a")
	if got := m.SelectedCount(); got != 4 {
		t.Errorf("after a SelectedCount() = %d, want 4", got)
	}
	m.HandleKey("d")
	if got := m.SelectedCount(); got != 3 {
		t.Errorf("after d SelectedCount() = %d, want 3", got)
	}

	m.HandleKey("home")
	m.HandleKey("up")
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestChecklist_RestoreModeHidesOneWayTweaks(t *testing.T) {
	m := NewChecklistModel(testCatalog(t), nil, plan.Restore)

	// kill-bloat is checked by default but has no reverse action.
	sel := m.Selection()
	if sel.Enabled("process.kill-bloat") {
		t.Error("one-directional tweak must not be selected in restore mode")
	}
	if !sel.Enabled("services.stop") {
		t.Error("services.stop should stay selected")
	}

	m.HandleKey("a")
	if got := m.SelectedCount(); got != 2 {
		t.Errorf("after a SelectedCount() = %d, want 2 reversible tweaks", got)
	}

	m.HandleKey(" ")
	if m.Selection().Enabled("process.kill-bloat") {
		t.Error("toggling a one-directional tweak in restore mode should do nothing")
	}
}

func TestChecklist_View(t *testing.T) {
	m := NewChecklistModel(testCatalog(t), nil, plan.Apply)
	m.SetProfile("gaming")
	m.SetDimensions(100, 40)
	view := m.View()

	for _, want := range []string{"BOOST", "3 of 4 tweaks selected", "profile gaming", "PROCESS-CLEANUP", "Stop services", "reversible"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestChecklist_ScrollKeepsCursorVisible(t *testing.T) {
	m := NewChecklistModel(testCatalog(t), nil, plan.Apply)
	m.SetDimensions(80, 12)

	m.HandleKey("end")
	lines, cursorLine := m.lines()
	if cursorLine < m.offset || cursorLine >= m.offset+m.visibleRows() {
		t.Errorf("cursor line %d outside window [%d,%d) of %d lines", cursorLine, m.offset, m.offset+m.visibleRows(), len(lines))
	}
}

func TestRunModel(t *testing.T) {
	m := NewRunModel(plan.Apply, 2)
	if got := m.Percent(); got != 0 {
		t.Errorf("Percent() = %v, want 0", got)
	}

	m.AddOutcome(engine.Outcome{TweakID: "a", Status: engine.Succeeded, Message: "done"})
	m.SetProgress(1, 2)
	if got := m.Percent(); got != 0.5 {
		t.Errorf("Percent() = %v, want 0.5", got)
	}
	if view := m.View(); !strings.Contains(view, "Boosting") || !strings.Contains(view, "1/2") {
		t.Errorf("running view missing status:\n%s", view)
	}

	start := time.Now()
	run := &engine.Run{
		State:     engine.Completed,
		StartedAt: start,
		Outcomes: []engine.Outcome{
			{TweakID: "a", Status: engine.Succeeded, Message: "done"},
			{TweakID: "b", Status: engine.Failed, Message: "boom"},
		},
		FinishedAt: start.Add(time.Second),
	}
	m.SetDone(run, "+64 MiB")

	view := m.View()
	for _, want := range []string{"Finished with failures", "1 succeeded, 1 failed, 0 skipped", "boom", "+64 MiB", "2/2"} {
		if !strings.Contains(view, want) {
			t.Errorf("done view missing %q:\n%s", want, view)
		}
	}
}

func TestApp_RunFromChecklist(t *testing.T) {
	var m tea.Model = NewModel(testOptions(t, plan.Apply))

	m, cmd := m.Update(key("enter"))
	if got := m.(Model).state; got != StateRunning {
		t.Fatalf("state = %v, want StateRunning", got)
	}
	batch, isBatch := cmd().(tea.BatchMsg)
	if !isBatch || len(batch) == 0 {
		t.Fatalf("expected a batch of commands, got %T", cmd())
	}

	// The first command executes the run synchronously.
	done, isDone := batch[0]().(runDoneMsg)
	if !isDone {
		t.Fatal("first command did not return runDoneMsg")
	}
	m, _ = m.Update(done)

	final := m.(Model)
	if final.state != StateComplete {
		t.Fatalf("state = %v, want StateComplete", final.state)
	}
	res := final.Result()
	if res.Run == nil {
		t.Fatal("Result().Run is nil")
	}
	sum := res.Run.Summary()
	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 2 succeeded and 1 failed", sum)
	}
	if !strings.Contains(final.View(), "Finished with failures") {
		t.Error("complete view should report failures")
	}

	_, quit := m.Update(key("enter"))
	if quit == nil {
		t.Fatal("enter on the complete view should quit")
	}
	if _, isQuit := quit().(tea.QuitMsg); !isQuit {
		t.Error("expected tea.QuitMsg")
	}
}

func TestApp_EmptySelectionStaysOnChecklist(t *testing.T) {
	var m tea.Model = NewModel(testOptions(t, plan.Apply))

	m, _ = m.Update(key("n"))
	m, cmd := m.Update(key("enter"))
	if cmd != nil {
		t.Error("no command expected for an empty selection")
	}
	model := m.(Model)
	if model.state != StateChecklist {
		t.Errorf("state = %v, want StateChecklist", model.state)
	}
	if model.checklist.notice != "Nothing selected" {
		t.Errorf("notice = %q", model.checklist.notice)
	}
}

func TestApp_QuitBeforeRun(t *testing.T) {
	var m tea.Model = NewModel(testOptions(t, plan.Apply))

	m, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if res := m.(Model).Result(); res.Run != nil {
		t.Error("Result().Run should be nil when quitting before a run")
	}
}

func TestApp_SaveAndReloadProfile(t *testing.T) {
	store, err := profile.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	opts := testOptions(t, plan.Apply)
	opts.Profiles = store
	opts.Profile = "gaming"

	var m tea.Model = NewModel(opts)
	m, _ = m.Update(key("n"))
	m, _ = m.Update(key("end"))
	m, _ = m.Update(key(" "))
	m, _ = m.Update(key("s"))

	saved, err := store.Get("gaming")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(saved.Enabled) != 1 || saved.Enabled[0] != "power.high-performance" {
		t.Errorf("saved Enabled = %v", saved.Enabled)
	}

	saved.Enabled = []string{"services.stop", "memory.idle-tasks", "gone.tweak"}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	m, _ = m.Update(profileChangedMsg{name: "gaming"})

	model := m.(Model)
	if got := model.checklist.SelectedCount(); got != 2 {
		t.Errorf("SelectedCount() after reload = %d, want 2", got)
	}
	if !strings.Contains(model.checklist.notice, "1 unknown ids ignored") {
		t.Errorf("notice = %q", model.checklist.notice)
	}
}

func TestApp_SaveWithoutProfile(t *testing.T) {
	var m tea.Model = NewModel(testOptions(t, plan.Apply))
	m, _ = m.Update(key("s"))
	if !strings.Contains(m.(Model).checklist.notice, "--profile") {
		t.Errorf("notice = %q", m.(Model).checklist.notice)
	}
}

func TestLogViewer(t *testing.T) {
	buf := logging.NewLogBuffer(10)
	now := time.Now()
	for i, lvl := range []logging.Level{logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError} {
		buf.Add(logging.LogEntry{Time: now.Add(time.Duration(i) * time.Second), Level: lvl, Component: "engine", Message: "entry " + lvl.String()})
	}

	s := NewLogViewerState(buf)
	if got := len(s.Entries()); got != 3 {
		t.Errorf("Entries() at info = %d, want 3", got)
	}
	s.HandleKey("1", 2)
	if got := len(s.Entries()); got != 4 {
		t.Errorf("Entries() at debug = %d, want 4", got)
	}

	view := s.View(80, 4)
	if !strings.Contains(view, "entry error") || strings.Contains(view, "entry info") {
		t.Errorf("view should follow the newest two entries:\n%s", view)
	}

	s.HandleKey("up", 2)
	s.HandleKey("up", 2)
	view = s.View(80, 4)
	if !strings.Contains(view, "entry info") || strings.Contains(view, "entry error") {
		t.Errorf("view after scrolling up:\n%s", view)
	}

	s.Open = true
	if !s.HandleKey("esc", 2) || s.Open {
		t.Error("esc should close the pane")
	}
	if s.HandleKey("x", 2) {
		t.Error("unrelated keys should not be consumed")
	}
}

func TestLogViewer_NilBuffer(t *testing.T) {
	s := NewLogViewerState(nil)
	if entries := s.Entries(); entries != nil {
		t.Errorf("Entries() = %v, want nil", entries)
	}
	if view := s.View(80, 5); !strings.Contains(view, "Logs [info]") {
		t.Errorf("View() = %q", view)
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"repeat", repeatChar('─', 3), "───"},
		{"repeat negative", repeatChar('a', -1), ""},
		{"truncate short", truncate("short", 10), "short"},
		{"truncate long", truncate("a long message", 9), "a long..."},
		{"truncate tiny", truncate("abcdef", 2), "ab"},
		{"pad", padRight("ab", 4), "ab  "},
		{"center", center("ab", 6), "  ab  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestRenderRunMetrics(t *testing.T) {
	if got := renderRunMetrics(0, ""); got != "" {
		t.Errorf("renderRunMetrics(0, \"\") = %q, want empty", got)
	}
	got := renderRunMetrics(1500*time.Millisecond, "+1.0 GiB")
	if !strings.Contains(got, "Time: 1.5s") || !strings.Contains(got, "Available RAM: +1.0 GiB") {
		t.Errorf("renderRunMetrics() = %q", got)
	}
}

func TestApp_RejectedRun(t *testing.T) {
	opts := testOptions(t, plan.Apply)
	opts.Scheduler = engine.New(engine.GateFunc(func() bool { return false }), engine.DefaultOptions())

	var m tea.Model = NewModel(opts)
	m, cmd := m.Update(key("enter"))
	batch := cmd().(tea.BatchMsg)
	m, _ = m.Update(batch[0]())

	model := m.(Model)
	if model.Result().Run.State != engine.Rejected {
		t.Fatalf("state = %v, want Rejected", model.Result().Run.State)
	}
	if !strings.Contains(model.View(), "Run rejected: administrator privileges required") {
		t.Errorf("view should explain the rejection:\n%s", model.View())
	}
}
