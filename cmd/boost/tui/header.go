package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/boost/pkg/boost/plan"
)

// renderAppHeader renders the title line shared by every view: the mode,
// how many tweaks are selected and the active profile, if any.
func renderAppHeader(mode plan.Mode, selected, total int, profileName string) string {
	icon := "⚡"
	appName := titleStyle.Render("BOOST")
	if mode == plan.Restore {
		appName = titleStyle.Render("BOOST RESTORE")
	}

	stats := mutedTextStyle.Render(fmt.Sprintf("  %d of %d tweaks selected", selected, total))
	header := fmt.Sprintf(" %s %s%s", icon, appName, stats)

	if profileName != "" {
		profileStyle := lipgloss.NewStyle().Foreground(accentColor)
		header += profileStyle.Render("  • profile " + profileName)
	}
	return header
}

// renderRunMetrics renders the summary line of a finished run. It returns
// an empty string when there is nothing to report.
func renderRunMetrics(elapsed time.Duration, ramDelta string) string {
	var parts []string
	if elapsed > 0 {
		parts = append(parts, fmt.Sprintf("Time: %v", elapsed.Round(time.Millisecond)))
	}
	if ramDelta != "" {
		parts = append(parts, "Available RAM: "+ramDelta)
	}
	if len(parts) == 0 {
		return ""
	}
	return mutedTextStyle.Render("  " + strings.Join(parts, "  |  "))
}
