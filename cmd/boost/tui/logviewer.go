package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/boost/pkg/boost/logging"
)

// filterEntriesByLevel returns entries at or above the specified level.
func filterEntriesByLevel(entries []logging.LogEntry, minLevel logging.Level) []logging.LogEntry {
	result := make([]logging.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Level >= minLevel {
			result = append(result, e)
		}
	}
	return result
}

// clampLogScroll ensures the scroll offset stays within valid bounds.
func clampLogScroll(offset, totalEntries, visibleRows int) int {
	if totalEntries <= visibleRows {
		return 0
	}
	maxOffset := totalEntries - visibleRows
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func logLevelStyle(level logging.Level) lipgloss.Style {
	switch level {
	case logging.LevelDebug:
		return logDebugStyle
	case logging.LevelWarn:
		return logWarnStyle
	case logging.LevelError:
		return logErrorStyle
	default:
		return logInfoStyle
	}
}

// logLevelChar returns a single character for the log level.
func logLevelChar(level logging.Level) string {
	switch level {
	case logging.LevelDebug:
		return "D"
	case logging.LevelInfo:
		return "I"
	case logging.LevelWarn:
		return "W"
	case logging.LevelError:
		return "E"
	default:
		return "?"
	}
}

// renderLogEntry renders one entry as "HH:MM:SS [L] component: message".
func renderLogEntry(entry logging.LogEntry, width int) string {
	comp := entry.Component
	if len(comp) > 10 {
		comp = comp[:10]
	}

	prefixWidth := 8 + 1 + 3 + 1 + len(comp) + 2
	msg := truncate(entry.Message, max(width-prefixWidth, 10))

	return fmt.Sprintf("%s %s %s: %s",
		logTimeStyle.Render(entry.Time.Format("15:04:05")),
		logLevelStyle(entry.Level).Render("["+logLevelChar(entry.Level)+"]"),
		logComponentStyle.Render(comp),
		msg)
}

// LogViewerState holds the state of the log pane. Entries come from the
// ring buffer logging keeps in TUI mode.
type LogViewerState struct {
	Open         bool
	FilterLevel  logging.Level
	// ScrollOffset counts lines back from the newest entry.
	ScrollOffset int
	buffer       *logging.LogBuffer
}

// NewLogViewerState creates a closed log viewer over buf. A nil buf shows
// an empty pane.
func NewLogViewerState(buf *logging.LogBuffer) *LogViewerState {
	return &LogViewerState{
		FilterLevel: logging.LevelInfo,
		buffer:      buf,
	}
}

// Toggle opens or closes the pane.
func (s *LogViewerState) Toggle() {
	s.Open = !s.Open
}

// SetFilterLevel sets the filter level and resets scrolling.
func (s *LogViewerState) SetFilterLevel(level logging.Level) {
	s.FilterLevel = level
	s.ScrollOffset = 0
}

// Entries returns the buffered entries that pass the filter, oldest first.
func (s *LogViewerState) Entries() []logging.LogEntry {
	if s.buffer == nil {
		return nil
	}
	return filterEntriesByLevel(s.buffer.Entries(), s.FilterLevel)
}

// ScrollUp moves one line towards older entries.
func (s *LogViewerState) ScrollUp(visibleRows int) {
	maxOffset := max(len(s.Entries())-visibleRows, 0)
	if s.ScrollOffset < maxOffset {
		s.ScrollOffset++
	}
}

// ScrollDown moves one line towards the newest entry.
func (s *LogViewerState) ScrollDown() {
	if s.ScrollOffset > 0 {
		s.ScrollOffset--
	}
}

// HandleKey processes keys while the pane is open. It reports whether the
// key was consumed.
func (s *LogViewerState) HandleKey(key string, visibleRows int) bool {
	switch key {
	case "1":
		s.SetFilterLevel(logging.LevelDebug)
	case "2":
		s.SetFilterLevel(logging.LevelInfo)
	case "3":
		s.SetFilterLevel(logging.LevelWarn)
	case "4":
		s.SetFilterLevel(logging.LevelError)
	case "up", "k":
		s.ScrollUp(visibleRows)
	case "down", "j":
		s.ScrollDown()
	case "esc", "l":
		s.Open = false
	default:
		return false
	}
	return true
}

// View renders the pane in height lines.
func (s *LogViewerState) View(width, height int) string {
	if height < 3 {
		return ""
	}

	var b strings.Builder
	title := lipgloss.NewStyle().Bold(true).Foreground(primaryColor).
		Render(fmt.Sprintf(" Logs [%s] ", s.FilterLevel))
	b.WriteString(title + mutedTextStyle.Render("[1-4] filter  [Esc] close"))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")

	visibleRows := height - 2
	entries := s.Entries()
	offset := clampLogScroll(len(entries)-visibleRows-s.ScrollOffset, len(entries), visibleRows)

	end := min(offset+visibleRows, len(entries))
	for _, e := range entries[offset:end] {
		b.WriteString(renderLogEntry(e, width))
		b.WriteString("\n")
	}
	return b.String()
}
