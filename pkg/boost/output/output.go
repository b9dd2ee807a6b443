// Package output renders run reports in the formats accepted by --output
// (pretty, plain, json, yaml, tsv, csv, markdown, template).
//
// The package uses a registry so formatters can be selected by name:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.NewReport(run)); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/boost/pkg/boost/engine"
)

// OutcomeInfo is one tweak result prepared for output.
type OutcomeInfo struct {
	Tweak    string        `json:"tweak" yaml:"tweak"`
	Title    string        `json:"title" yaml:"title"`
	Phase    string        `json:"phase" yaml:"phase"`
	Status   string        `json:"status" yaml:"status"`
	Message  string        `json:"message" yaml:"message"`
	Duration time.Duration `json:"-" yaml:"-"`

	// DurationText is Duration rounded for display, e.g. "12ms".
	DurationText string `json:"duration" yaml:"duration"`
}

// Summary counts outcomes by status.
type Summary struct {
	Planned   int `json:"planned" yaml:"planned"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Skipped   int `json:"skipped" yaml:"skipped"`
}

// Report is a finished run prepared for formatting.
type Report struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Mode       string        `json:"mode" yaml:"mode"`
	State      string        `json:"state" yaml:"state"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"-" yaml:"-"`
	DurationMS int64         `json:"duration_ms" yaml:"duration_ms"`
	Summary    Summary       `json:"summary" yaml:"summary"`
	Outcomes   []OutcomeInfo `json:"outcomes" yaml:"outcomes"`

	// Warnings are notes from the command, such as unknown profile ids.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// RAMDelta is the change in available memory over the run, if measured.
	RAMDelta string `json:"ram_delta,omitempty" yaml:"ram_delta,omitempty"`
}

// NewReport converts a run. Outcomes keep completion order.
func NewReport(run *engine.Run) *Report {
	sum := run.Summary()
	r := &Report{
		RunID:      run.ID,
		Mode:       run.Mode.String(),
		State:      run.State.String(),
		StartedAt:  run.StartedAt,
		Duration:   run.Duration(),
		DurationMS: run.Duration().Milliseconds(),
		Summary: Summary{
			Planned:   run.Planned(),
			Succeeded: sum.Succeeded,
			Failed:    sum.Failed,
			Skipped:   sum.Skipped,
		},
		Outcomes: make([]OutcomeInfo, 0, len(run.Outcomes)),
	}
	if err := run.Err(); err != nil {
		r.Error = err.Error()
	}
	for _, o := range run.Outcomes {
		r.Outcomes = append(r.Outcomes, OutcomeInfo{
			Tweak:        o.TweakID,
			Title:        o.Title,
			Phase:        o.Phase,
			Status:       o.Status.String(),
			Message:      o.Message,
			Duration:     o.Duration,
			DurationText: formatDuration(o.Duration),
		})
	}
	return r
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted report to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}
