package tui

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// ChecklistModel is the tweak checklist shown before a run.
type ChecklistModel struct {
	catalog  *tweak.Catalog
	items    []tweak.Tweak
	selected plan.Selection
	mode     plan.Mode
	profile  string
	cursor   int
	offset   int
	width    int
	height   int

	// notice is a one-line status message such as "profile saved".
	notice string
}

// NewChecklistModel creates a checklist over every catalog tweak with sel
// pre-checked.
func NewChecklistModel(cat *tweak.Catalog, sel plan.Selection, mode plan.Mode) ChecklistModel {
	if sel == nil {
		sel = plan.Defaults(cat)
	}
	return ChecklistModel{
		catalog:  cat,
		items:    cat.All(),
		selected: sel.Clone(),
		mode:     mode,
		width:    80,
		height:   24,
	}
}

// SetDimensions updates the available screen size.
func (m *ChecklistModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.ensureVisible()
}

// SetProfile sets the profile name shown in the header.
func (m *ChecklistModel) SetProfile(name string) {
	m.profile = name
}

// SetSelection replaces the checked set.
func (m *ChecklistModel) SetSelection(sel plan.Selection) {
	m.selected = sel.Clone()
}

// Selection returns a copy of the checked set. In restore mode tweaks
// without a reverse action are left out.
func (m ChecklistModel) Selection() plan.Selection {
	out := make(plan.Selection, len(m.items))
	for _, t := range m.items {
		out[t.ID] = m.selected.Enabled(t.ID) && m.available(t)
	}
	return out
}

// SelectedCount returns how many runnable tweaks are checked.
func (m ChecklistModel) SelectedCount() int {
	return m.Selection().Count()
}

// Current returns the tweak under the cursor.
func (m ChecklistModel) Current() (tweak.Tweak, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return tweak.Tweak{}, false
	}
	return m.items[m.cursor], true
}

func (m ChecklistModel) available(t tweak.Tweak) bool {
	return m.mode != plan.Restore || t.Reversible()
}

// HandleKey processes navigation and toggle keys.
func (m *ChecklistModel) HandleKey(key string) {
	m.notice = ""
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.items)-1, 0)
	case "pgup":
		m.cursor = max(m.cursor-m.visibleRows(), 0)
	case "pgdown":
		m.cursor = min(m.cursor+m.visibleRows(), max(len(m.items)-1, 0))
	case " ", "x":
		if t, ok := m.Current(); ok && m.available(t) {
			m.selected[t.ID] = !m.selected.Enabled(t.ID)
		}
	case "a":
		for _, t := range m.items {
			m.selected[t.ID] = m.available(t)
		}
	case "n":
		for _, t := range m.items {
			m.selected[t.ID] = false
		}
	case "d":
		m.selected = plan.Defaults(m.catalog)
	}
	m.ensureVisible()
}

// visibleRows is the number of list lines that fit on screen.
func (m ChecklistModel) visibleRows() int {
	// header, divider, blank, description, blank, hints, notice, border
	return max(m.height-10, 3)
}

// lines renders the list with category headings and returns the line
// index of the cursor row.
func (m ChecklistModel) lines() ([]string, int) {
	width := 0
	for _, t := range m.items {
		width = max(width, len(t.Title))
	}

	var out []string
	cursorLine := 0
	var cat tweak.Category = -1
	for i, t := range m.items {
		if t.Category != cat {
			cat = t.Category
			out = append(out, categoryStyle.Render(strings.ToUpper(cat.String())))
		}
		if i == m.cursor {
			cursorLine = len(out)
		}
		out = append(out, m.renderItem(i, t, width))
	}
	return out, cursorLine
}

func (m *ChecklistModel) ensureVisible() {
	_, line := m.lines()
	rows := m.visibleRows()
	if line < m.offset {
		m.offset = line
	}
	if line >= m.offset+rows {
		m.offset = line - rows + 1
	}
	m.offset = max(m.offset, 0)
}

func (m ChecklistModel) renderItem(i int, t tweak.Tweak, width int) string {
	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}

	box := uncheckedStyle.Render("[ ]")
	if m.selected.Enabled(t.ID) && m.available(t) {
		box = checkedStyle.Render("[x]")
	}

	var tags []string
	if t.Reversible() {
		tags = append(tags, "reversible")
	}
	if t.RequiresExternalProcess {
		tags = append(tags, "external")
	}
	label := padRight(t.Title, width)
	tagText := ""
	if len(tags) > 0 {
		tagText = "  " + mutedTextStyle.Render(strings.Join(tags, ", "))
	}

	style := normalItemStyle
	switch {
	case !m.available(t):
		box = disabledItemStyle.Render("[-]")
		style = disabledItemStyle
	case i == m.cursor:
		style = selectedItemStyle
	}
	return cursor + box + " " + style.Render(label) + tagText
}

// View renders the checklist.
func (m ChecklistModel) View() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString(renderAppHeader(m.mode, m.SelectedCount(), len(m.items), m.profile))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	lines, _ := m.lines()
	end := min(m.offset+m.visibleRows(), len(lines))
	for _, line := range lines[m.offset:end] {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if t, ok := m.Current(); ok && t.Description != "" {
		b.WriteString(descriptionStyle.Render(truncate(t.Description, contentWidth)))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(warningTextStyle.Render(m.notice))
		b.WriteString("\n")
	}

	action := "Boost"
	if m.mode == plan.Restore {
		action = "Restore"
	}
	b.WriteString(keyHints("space", "toggle", "a", "all", "n", "none", "d", "defaults",
		"s", "save", "l", "logs", "enter", action, "q", "quit"))

	return outerBoxStyle.Width(max(m.width-2, 0)).Render(b.String())
}

// Summary returns e.g. "12 tweaks selected".
func (m ChecklistModel) Summary() string {
	n := m.SelectedCount()
	if n == 1 {
		return "1 tweak selected"
	}
	return fmt.Sprintf("%d tweaks selected", n)
}
