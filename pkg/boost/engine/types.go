// Package engine executes compiled tweak plans.
//
// The Scheduler runs phases strictly in order. Within a phase the parallel
// group is spread across a bounded worker pool and the sequential group runs
// afterwards, one tweak at a time. Every planned tweak yields exactly one
// Outcome; a failing or panicking tweak never affects its siblings.
package engine

import (
	"errors"
	"time"

	"github.com/jamesainslie/boost/pkg/boost/plan"
)

// Engine errors. They are wrapped into Outcome messages and Run.Err.
var (
	ErrPrivilegeDenied = errors.New("administrator privileges required")
	ErrTimeout         = errors.New("tweak timed out")
	ErrPanic           = errors.New("tweak panicked")
	ErrNoAction        = errors.New("no action for this direction")
)

// Status is the result of a single tweak.
type Status int

// Outcome statuses.
const (
	Succeeded Status = iota
	Failed
	Skipped
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome records what happened to one tweak. Outcomes are immutable once
// recorded.
type Outcome struct {
	TweakID  string
	Title    string
	Phase    string
	Status   Status
	Message  string
	Duration time.Duration

	// Err is the underlying error for Failed outcomes.
	Err error
}

// RunState is the lifecycle state of a Run.
type RunState int

// Run states. A run moves Idle -> Running -> Completed, or Idle -> Rejected
// when the privilege gate fails. There is no failed state for a whole run.
const (
	Idle RunState = iota
	Running
	Completed
	Rejected
)

// String returns the lowercase state name.
func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Run is one execution of a plan.
type Run struct {
	ID         string
	Mode       plan.Mode
	State      RunState
	Phases     []plan.Phase
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time

	err error
}

// Err returns ErrPrivilegeDenied for rejected runs and nil otherwise.
func (r *Run) Err() error {
	return r.err
}

// Duration returns the wall time of the run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Planned returns the number of tweaks in the run's phases.
func (r *Run) Planned() int {
	n := 0
	for _, ph := range r.Phases {
		n += ph.Len()
	}
	return n
}

// Summary counts outcomes by status.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Summary tallies the run's outcomes.
func (r *Run) Summary() Summary {
	s := Summary{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.Status {
		case Succeeded:
			s.Succeeded++
		case Failed:
			s.Failed++
		case Skipped:
			s.Skipped++
		}
	}
	return s
}

// Outcome returns the outcome for a tweak id.
func (r *Run) Outcome(id string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.TweakID == id {
			return o, true
		}
	}
	return Outcome{}, false
}
