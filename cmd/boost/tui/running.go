package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/boost/pkg/boost/engine"
	"github.com/jamesainslie/boost/pkg/boost/plan"
)

// RunModel shows a run in progress and, once finished, its outcomes.
type RunModel struct {
	spinner   spinner.Model
	bar       progress.Model
	mode      plan.Mode
	outcomes  []engine.Outcome
	completed int
	total     int
	startTime time.Time
	elapsed   time.Duration
	ramDelta  string
	err       error
	done      bool
	width     int
	height    int
}

// NewRunModel creates the progress view for a run of total tweaks.
func NewRunModel(mode plan.Mode, total int) RunModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	bar := progress.New(
		progress.WithSolidFill(string(successColor)),
		progress.WithoutPercentage(),
	)

	return RunModel{
		spinner:   s,
		bar:       bar,
		mode:      mode,
		total:     total,
		startTime: time.Now(),
		width:     80,
		height:    24,
	}
}

// SetDimensions updates the available screen size.
func (m *RunModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
}

// AddOutcome records a finished tweak.
func (m *RunModel) AddOutcome(o engine.Outcome) {
	m.outcomes = append(m.outcomes, o)
}

// SetProgress records the scheduler's completed count.
func (m *RunModel) SetProgress(completed, total int) {
	m.completed = completed
	m.total = total
}

// SetDone marks the run finished. The run's own outcome log replaces
// whatever was collected from events, since a slow reader may have missed
// some.
func (m *RunModel) SetDone(run *engine.Run, ramDelta string) {
	m.done = true
	m.ramDelta = ramDelta
	if run == nil {
		return
	}
	m.err = run.Err()
	m.outcomes = append([]engine.Outcome(nil), run.Outcomes...)
	m.completed = len(run.Outcomes)
	m.elapsed = run.Duration()
}

// Percent returns the completed share, 0 to 1.
func (m RunModel) Percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.completed) / float64(m.total)
}

// counts tallies the collected outcomes.
func (m RunModel) counts() (succeeded, failed, skipped int) {
	for _, o := range m.outcomes {
		switch o.Status {
		case engine.Succeeded:
			succeeded++
		case engine.Failed:
			failed++
		case engine.Skipped:
			skipped++
		}
	}
	return succeeded, failed, skipped
}

func statusMarker(s engine.Status) string {
	switch s {
	case engine.Succeeded:
		return successTextStyle.Render("✓")
	case engine.Failed:
		return errorTextStyle.Render("✗")
	default:
		return mutedTextStyle.Render("–")
	}
}

func renderOutcome(o engine.Outcome, idWidth, width int) string {
	msg := truncate(o.Message, max(width-idWidth-8, 10))
	switch o.Status {
	case engine.Failed:
		msg = errorTextStyle.Render(msg)
	case engine.Skipped:
		msg = mutedTextStyle.Render(msg)
	}
	return fmt.Sprintf("  %s %s  %s", statusMarker(o.Status), padRight(o.TweakID, idWidth), msg)
}

// View renders the run.
func (m RunModel) View() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	m.bar.Width = max(contentWidth-12, 10)
	b.WriteString("  ")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString(fmt.Sprintf("  %d/%d", m.completed, m.total))
	b.WriteString("\n\n")

	idWidth := 0
	for _, o := range m.outcomes {
		idWidth = max(idWidth, len(o.TweakID))
	}

	// Keep the newest outcomes on screen.
	rows := max(m.height-12, 3)
	start := max(len(m.outcomes)-rows, 0)
	for _, o := range m.outcomes[start:] {
		b.WriteString(renderOutcome(o, idWidth, contentWidth))
		b.WriteString("\n")
	}

	if m.done {
		if metrics := renderRunMetrics(m.elapsed, m.ramDelta); metrics != "" {
			b.WriteString("\n")
			b.WriteString(metrics)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m RunModel) renderStatus() string {
	verb := "Boosting"
	if m.mode == plan.Restore {
		verb = "Restoring"
	}
	if !m.done {
		elapsed := time.Since(m.startTime).Round(100 * time.Millisecond)
		return fmt.Sprintf("  %s %s...  %s", m.spinner.View(), verb, mutedTextStyle.Render(elapsed.String()))
	}

	if m.err != nil {
		return errorTextStyle.Render("  Run rejected: " + m.err.Error())
	}

	succeeded, failed, skipped := m.counts()
	summary := fmt.Sprintf("%d succeeded, %d failed, %d skipped", succeeded, failed, skipped)
	if failed > 0 {
		return warningTextStyle.Render("  Finished with failures: ") + summary
	}
	return successTextStyle.Render("  Done: ") + summary
}
