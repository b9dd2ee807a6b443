package engine

// ProgressSink receives outcomes and progress while a run executes.
//
// Calls arrive from worker goroutines, one at a time: the scheduler
// serializes notification so completed counts are observed in strictly
// increasing order. Implementations must still be safe to call from any
// goroutine and must not block for long, since workers wait on them.
// Implementations that drive a UI are responsible for marshalling onto the
// UI's own thread.
type ProgressSink interface {
	// OnOutcome is called once per tweak as soon as its outcome is known.
	OnOutcome(Outcome)

	// OnProgress is called after each OnOutcome. completed increases by one
	// per call and total is fixed for the run.
	OnProgress(completed, total int)
}

// SinkFuncs adapts plain functions to a ProgressSink. Nil fields are
// ignored.
type SinkFuncs struct {
	Outcome  func(Outcome)
	Progress func(completed, total int)
}

// OnOutcome calls f.Outcome if set.
func (f SinkFuncs) OnOutcome(o Outcome) {
	if f.Outcome != nil {
		f.Outcome(o)
	}
}

// OnProgress calls f.Progress if set.
func (f SinkFuncs) OnProgress(completed, total int) {
	if f.Progress != nil {
		f.Progress(completed, total)
	}
}

// Discard is a sink that ignores everything.
var Discard ProgressSink = SinkFuncs{}

// PrivilegeGate reports whether the process may make system changes.
type PrivilegeGate interface {
	IsElevated() bool
}

// GateFunc adapts a function to a PrivilegeGate.
type GateFunc func() bool

// IsElevated calls f.
func (f GateFunc) IsElevated() bool { return f() }

// AlwaysElevated is a gate that always passes. Used for dry runs and tests.
var AlwaysElevated PrivilegeGate = GateFunc(func() bool { return true })
