package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

var tableHeader = []string{"STATUS", "PHASE", "TWEAK", "DURATION", "MESSAGE"}

func row(o OutcomeInfo) []string {
	return []string{o.Status, o.Phase, o.Tweak, o.DurationText, o.Message}
}

// TSVFormatter formats outcomes as tab-separated values.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(strings.Join(tableHeader, "\t"))
	w.WriteString("\n")
	for _, o := range r.Outcomes {
		fields := row(o)
		for i := range fields {
			fields[i] = strings.NewReplacer("\t", " ", "\n", " ").Replace(fields[i])
		}
		w.WriteString(strings.Join(fields, "\t"))
		w.WriteString("\n")
	}
	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats outcomes as RFC 4180 comma-separated values.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	for _, o := range r.Outcomes {
		if err := writer.Write(row(o)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats outcomes as a GitHub-flavored Markdown table
// followed by a summary line.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString("| " + strings.Join(tableHeader, " | ") + " |\n")
	w.WriteString("|" + strings.Repeat("------|", len(tableHeader)) + "\n")
	for _, o := range r.Outcomes {
		fields := row(o)
		for i := range fields {
			fields[i] = escapeMarkdownPipe(fields[i])
		}
		w.WriteString("| " + strings.Join(fields, " | ") + " |\n")
	}
	fmt.Fprintf(w, "\n**%d succeeded, %d failed, %d skipped**\n",
		r.Summary.Succeeded, r.Summary.Failed, r.Summary.Skipped)
	return nil
}

// escapeMarkdownPipe escapes pipe characters for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
