package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/boost/pkg/boost/engine"
	"github.com/jamesainslie/boost/pkg/boost/logging"
	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/profile"
	"github.com/jamesainslie/boost/pkg/boost/progress"
	"github.com/jamesainslie/boost/pkg/boost/sysinfo"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateChecklist AppState = iota
	StateRunning
	StateComplete
)

// Options configures the TUI application.
type Options struct {
	Catalog   *tweak.Catalog
	Compiler  *plan.Compiler
	Scheduler *engine.Scheduler
	Mode      plan.Mode

	// Selection is pre-checked. Nil uses the catalog defaults.
	Selection plan.Selection

	// Profiles and Profile enable saving with "s" and reloading the
	// checklist when the profile file changes on disk.
	Profiles *profile.Store
	Profile  string

	// AvailableRAM measures memory before and after the run. Nil skips
	// the measurement.
	AvailableRAM func() (uint64, error)
}

// Result is what the TUI hands back to the CLI.
type Result struct {
	// Run is nil when the user quit before starting.
	Run       *engine.Run
	Selection plan.Selection
	RAMDelta  string
}

// Model is the main Bubble Tea model for the boost TUI.
type Model struct {
	state     AppState
	options   Options
	checklist ChecklistModel
	running   RunModel
	logs      *LogViewerState

	ctx    context.Context
	cancel context.CancelFunc

	events        <-chan progress.Event
	profileEvents chan string

	run      *engine.Run
	ramDelta string

	width  int
	height int
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	checklist := NewChecklistModel(opts.Catalog, opts.Selection, opts.Mode)
	checklist.SetProfile(opts.Profile)

	return Model{
		state:         StateChecklist,
		options:       opts,
		checklist:     checklist,
		logs:          NewLogViewerState(logging.Buffer()),
		ctx:           ctx,
		cancel:        cancel,
		profileEvents: make(chan string, 1),
		width:         80,
		height:        24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	if m.options.Profiles == nil || m.options.Profile == "" {
		return nil
	}
	return tea.Batch(m.watchProfiles(), m.listenForProfile())
}

type (
	// eventMsg carries one scheduler notification.
	eventMsg progress.Event

	// runDoneMsg is sent once Execute returns.
	runDoneMsg struct {
		run      *engine.Run
		ramDelta string
	}

	// profileChangedMsg is sent when the active profile file changes.
	profileChangedMsg struct{ name string }

	// tickUIMsg triggers a redraw while a run is in flight.
	tickUIMsg struct{}
)

func (m Model) tickUI() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickUIMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickUIMsg:
		if m.state == StateRunning {
			return m, m.tickUI()
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != StateRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.running.spinner, cmd = m.running.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		switch msg.Type {
		case progress.EventOutcome:
			m.running.AddOutcome(msg.Outcome)
		case progress.EventProgress:
			m.running.SetProgress(msg.Completed, msg.Total)
		}
		return m, m.listenForEvents()

	case runDoneMsg:
		m.run = msg.run
		m.ramDelta = msg.ramDelta
		m.running.SetDone(msg.run, msg.ramDelta)
		m.state = StateComplete
		return m, nil

	case profileChangedMsg:
		if m.state == StateChecklist {
			m.reloadProfile(msg.name)
		}
		return m, m.listenForProfile()
	}

	return m, nil
}

func (m *Model) resize() {
	listHeight := m.height
	if m.logs.Open {
		listHeight = m.height - m.logHeight()
	}
	m.checklist.SetDimensions(m.width, listHeight)
	m.running.SetDimensions(m.width, listHeight)
}

func (m Model) logHeight() int {
	return max(m.height/3, 5)
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.logs.Open && m.logs.HandleKey(key, m.logHeight()-2) {
		m.resize()
		return m, nil
	}

	switch m.state {
	case StateChecklist:
		switch key {
		case "ctrl+c", "q", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			return m.startRun()
		case "s":
			m.saveProfile()
		case "l":
			m.logs.Toggle()
			m.resize()
		default:
			m.checklist.HandleKey(key)
		}

	case StateRunning:
		// A run cannot be interrupted; every planned tweak gets an outcome.
		if key == "l" {
			m.logs.Toggle()
			m.resize()
		}

	case StateComplete:
		switch key {
		case "ctrl+c", "q", "esc", "enter":
			m.cancel()
			return m, tea.Quit
		case "l":
			m.logs.Toggle()
			m.resize()
		}
	}

	return m, nil
}

// startRun compiles the checked tweaks and executes them in the background.
func (m Model) startRun() (tea.Model, tea.Cmd) {
	sel := m.checklist.Selection()
	p, err := m.options.Compiler.Compile(sel, m.options.Mode)
	if err != nil {
		m.checklist.notice = err.Error()
		return m, nil
	}
	if p.Empty() {
		m.checklist.notice = "Nothing selected"
		return m, nil
	}

	b := progress.New()
	sub := b.Subscribe()
	m.events = sub.Events
	m.state = StateRunning
	m.running = NewRunModel(m.options.Mode, p.Total())
	m.resize()

	ctx := m.ctx
	sched := m.options.Scheduler
	measure := m.options.AvailableRAM
	execute := func() tea.Msg {
		var before uint64
		measured := false
		if measure != nil {
			if v, err := measure(); err == nil {
				before, measured = v, true
			}
		}

		run := sched.Execute(ctx, p, b)
		b.Close()

		done := runDoneMsg{run: run}
		if measured {
			if after, err := measure(); err == nil {
				done.ramDelta = sysinfo.Delta(before, after)
			}
		}
		return done
	}

	return m, tea.Batch(execute, m.listenForEvents(), m.running.spinner.Tick, m.tickUI())
}

// listenForEvents waits for the next scheduler notification.
func (m Model) listenForEvents() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

// watchProfiles blocks on the profile directory until the TUI exits.
func (m Model) watchProfiles() tea.Cmd {
	ctx := m.ctx
	store := m.options.Profiles
	want := m.options.Profile
	ch := m.profileEvents
	return func() tea.Msg {
		err := store.Watch(ctx, func(name string) {
			if name != want {
				return
			}
			select {
			case ch <- name:
			default:
			}
		})
		if err != nil {
			logging.Get("tui").Warn("profile watch stopped", "error", err)
		}
		return nil
	}
}

func (m Model) listenForProfile() tea.Cmd {
	ctx := m.ctx
	ch := m.profileEvents
	return func() tea.Msg {
		select {
		case name := <-ch:
			return profileChangedMsg{name: name}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) reloadProfile(name string) {
	p, err := m.options.Profiles.Get(name)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			m.checklist.notice = fmt.Sprintf("Profile %s was removed", name)
			return
		}
		m.checklist.notice = fmt.Sprintf("Reloading profile %s: %v", name, err)
		return
	}
	sel, unknown := p.Selection(m.options.Catalog)
	m.checklist.SetSelection(sel)
	m.checklist.notice = fmt.Sprintf("Profile %s reloaded, %s", name, m.checklist.Summary())
	if len(unknown) > 0 {
		m.checklist.notice += fmt.Sprintf(" (%d unknown ids ignored)", len(unknown))
	}
	logging.Get("tui").Info("profile reloaded", "profile", name, "selected", m.checklist.SelectedCount())
}

func (m *Model) saveProfile() {
	if m.options.Profiles == nil || m.options.Profile == "" {
		m.checklist.notice = "No active profile, start with --profile NAME to save"
		return
	}
	p := profile.FromSelection(m.options.Profile, "", m.checklist.Selection())
	if existing, err := m.options.Profiles.Get(m.options.Profile); err == nil {
		p.Description = existing.Description
	}
	if err := m.options.Profiles.Save(p); err != nil {
		m.checklist.notice = fmt.Sprintf("Saving profile: %v", err)
		return
	}
	m.checklist.notice = fmt.Sprintf("Saved profile %s", m.options.Profile)
}

// View renders the current state.
func (m Model) View() string {
	var body string
	switch m.state {
	case StateChecklist:
		body = m.checklist.View()
	case StateRunning, StateComplete:
		body = m.renderRun()
	}

	if !m.logs.Open {
		return body
	}
	return body + "\n" + m.logs.View(max(m.width-2, 20), m.logHeight())
}

func (m Model) renderRun() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString(renderAppHeader(m.options.Mode, m.running.total, m.checklist.catalog.Len(), m.options.Profile))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.running.View())

	b.WriteString("\n")
	if m.state == StateComplete {
		b.WriteString(center(keyHints("enter", "Exit", "l", "logs"), contentWidth))
	} else {
		b.WriteString(center(keyHints("l", "logs"), contentWidth))
	}

	return outerBoxStyle.Width(max(m.width-2, 0)).Render(b.String())
}

// Result returns the outcome of the session.
func (m Model) Result() Result {
	return Result{
		Run:       m.run,
		Selection: m.checklist.Selection(),
		RAMDelta:  m.ramDelta,
	}
}

// Run starts the TUI application and blocks until it exits.
func Run(opts Options) (Result, error) {
	if opts.Catalog == nil || opts.Compiler == nil || opts.Scheduler == nil {
		return Result{}, errors.New("tui: catalog, compiler and scheduler are required")
	}

	model := NewModel(opts)
	p := tea.NewProgram(model, tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return Result{}, err
	}
	m, ok := final.(Model)
	if !ok {
		return Result{}, errors.New("tui: unexpected model type")
	}
	return m.Result(), nil
}
