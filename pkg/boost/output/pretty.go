package output

import (
	"bytes"
	"fmt"
	"strings"
)

// PrettyFormatter renders a styled report for terminals using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	if r.State == "rejected" {
		w.WriteString(ErrorBox.Render(ErrorStyle.Bold(true).Render("Run rejected") + "\n" + r.Error))
		w.WriteString("\n")
		return nil
	}

	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatOutcomes(r))
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
		w.WriteString("\n")
		for _, warning := range r.Warnings {
			w.WriteString(WarningStyle.Render("  " + warning))
			w.WriteString("\n")
		}
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Report) string {
	parts := []string{
		TitleStyle.Render(capitalize(r.Mode)),
		LabelStyle.Render("Run:") + " " + ValueStyle.Render(shortID(r.RunID)),
		LabelStyle.Render("Took:") + " " + ValueStyle.Render(formatDuration(r.Duration)),
	}
	if r.RAMDelta != "" {
		parts = append(parts, LabelStyle.Render("RAM:")+" "+ValueStyle.Render(r.RAMDelta))
	}
	return HeaderBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatOutcomes(r *Report) string {
	if len(r.Outcomes) == 0 {
		return MutedStyle.Render("  Nothing to do") + "\n"
	}

	width := 0
	for _, o := range r.Outcomes {
		width = max(width, len(o.Tweak))
	}

	var sb strings.Builder
	phase := ""
	for _, o := range r.Outcomes {
		if o.Phase != phase {
			phase = o.Phase
			sb.WriteString(PhaseStyle.Render(phase))
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "  %s %s  %s %s\n",
			StatusGlyph(o.Status),
			padRight(o.Tweak, width),
			StatusStyle(o.Status).Render(o.Message),
			MutedStyle.Render("("+o.DurationText+")"))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Report) string {
	s := r.Summary
	parts := []string{
		SuccessStyle.Render(fmt.Sprintf("%d succeeded", s.Succeeded)),
	}
	if s.Failed > 0 {
		parts = append(parts, ErrorStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	} else {
		parts = append(parts, MutedStyle.Render("0 failed"))
	}
	parts = append(parts, MutedStyle.Render(fmt.Sprintf("%d skipped", s.Skipped)))
	parts = append(parts, MutedStyle.Render("Use -o plain for unformatted output"))
	return FooterBox.Render(strings.Join(parts, "  "))
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
