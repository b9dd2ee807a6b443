package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// WritePlan prints the phases of p in execution order. Parallel-safe
// tweaks are listed before the sequential ones of each phase.
func WritePlan(w io.Writer, p *plan.Plan, styled bool) error {
	title := fmt.Sprintf("%s plan: %d tweaks in %d phases", p.Mode, p.Total(), len(p.Phases))
	if styled {
		title = TitleStyle.Render(title)
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	if p.Empty() {
		_, err := fmt.Fprintln(w, "  nothing selected")
		return err
	}

	for i, ph := range p.Phases {
		name := fmt.Sprintf("%d. %s", i+1, ph.Name)
		if styled {
			name = PhaseStyle.Render(name)
		}
		fmt.Fprintln(w, name)
		for _, t := range ph.Parallel {
			fmt.Fprintf(w, "   %s %s\n", mark("∥", styled), t.ID)
		}
		for _, t := range ph.Sequential {
			fmt.Fprintf(w, "   %s %s\n", mark("→", styled), t.ID)
		}
	}
	return nil
}

func mark(s string, styled bool) string {
	if styled {
		return MutedStyle.Render(s)
	}
	return s
}

// WriteCatalog prints every tweak in cat with its category, flags and
// whether sel enables it.
func WriteCatalog(w io.Writer, cat *tweak.Catalog, sel plan.Selection) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ON\tID\tCATEGORY\tFLAGS\tTITLE")
	for _, t := range cat.All() {
		on := " "
		if sel.Enabled(t.ID) {
			on = "x"
		}
		fmt.Fprintf(tw, "[%s]\t%s\t%s\t%s\t%s\n", on, t.ID, t.Category, flags(t), t.Title)
	}
	return tw.Flush()
}

// flags renders r (reversible), p (parallel-safe) and x (external process).
func flags(t tweak.Tweak) string {
	var b strings.Builder
	for _, f := range []struct {
		set bool
		c   byte
	}{
		{t.Reversible(), 'r'},
		{t.ParallelSafe, 'p'},
		{t.RequiresExternalProcess, 'x'},
	} {
		if f.set {
			b.WriteByte(f.c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
