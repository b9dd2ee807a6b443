package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes an aligned, uncolored table suitable for piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	if r.State == "rejected" {
		fmt.Fprintf(w, "rejected: %s\n", r.Error)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	if _, err := tw.Write([]byte("STATUS\tPHASE\tTWEAK\tDURATION\tMESSAGE\n")); err != nil {
		return err
	}
	for _, o := range r.Outcomes {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Status, o.Phase, o.Tweak, o.DurationText, o.Message); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%d succeeded, %d failed, %d skipped in %s\n",
		r.Summary.Succeeded, r.Summary.Failed, r.Summary.Skipped, formatDuration(r.Duration))
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
