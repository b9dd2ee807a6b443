package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/boost/pkg/boost/logging"
	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// Defaults for Options.
const (
	DefaultWorkers         = 4
	DefaultExternalTimeout = 30 * time.Second
)

// Options configures a Scheduler.
type Options struct {
	// Workers bounds how many parallel-safe tweaks run at once.
	Workers int

	// ExternalTimeout is the deadline for tweaks that shell out and have no
	// timeout of their own.
	ExternalTimeout time.Duration
}

// DefaultOptions returns the stock scheduler options.
func DefaultOptions() Options {
	return Options{
		Workers:         DefaultWorkers,
		ExternalTimeout: DefaultExternalTimeout,
	}
}

// fill replaces zero values with defaults.
func (o *Options) fill() {
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}
	if o.ExternalTimeout <= 0 {
		o.ExternalTimeout = DefaultExternalTimeout
	}
}

// Scheduler executes plans. A Scheduler holds no per-run state and may run
// several plans in sequence.
type Scheduler struct {
	gate PrivilegeGate
	opts Options
}

// New returns a scheduler guarded by gate. A nil gate rejects every run.
func New(gate PrivilegeGate, opts Options) *Scheduler {
	opts.fill()
	if gate == nil {
		gate = GateFunc(func() bool { return false })
	}
	return &Scheduler{
		gate: gate,
		opts: opts,
	}
}

// Options returns the effective scheduler options.
func (s *Scheduler) Options() Options {
	return s.opts
}

// Execute runs p and returns the finished run. It blocks until every planned
// tweak has an outcome. The privilege gate is consulted exactly once; when
// it fails the run is Rejected and no action is invoked.
//
// Cancelling ctx does not stop a run in progress. Values carried by ctx are
// passed through to actions.
func (s *Scheduler) Execute(ctx context.Context, p *plan.Plan, sink ProgressSink) *Run {
	if p == nil {
		p = &plan.Plan{}
	}
	if sink == nil {
		sink = Discard
	}

	run := &Run{
		ID:        uuid.NewString(),
		Mode:      p.Mode,
		State:     Idle,
		Phases:    p.Phases,
		StartedAt: time.Now(),
	}
	log := logging.Get("engine").With("run", run.ID[:8], "mode", p.Mode)

	if !s.gate.IsElevated() {
		run.State = Rejected
		run.err = ErrPrivilegeDenied
		run.FinishedAt = time.Now()
		log.Warn("run rejected", "reason", ErrPrivilegeDenied)
		return run
	}

	run.State = Running
	run.Outcomes = make([]Outcome, 0, p.Total())
	log.Info("run started", "phases", len(p.Phases), "tweaks", p.Total(), "workers", s.opts.Workers)

	ctx = context.WithoutCancel(ctx)
	rec := &recorder{run: run, sink: sink, total: p.Total(), log: log}

	for _, ph := range p.Phases {
		log.Debug("phase started", "phase", ph.Name, "parallel", len(ph.Parallel), "sequential", len(ph.Sequential))
		s.runParallel(ctx, ph, p.Mode, rec)
		for _, t := range ph.Sequential {
			rec.record(s.runOne(ctx, ph.Name, t, p.Mode))
		}
	}

	run.State = Completed
	run.FinishedAt = time.Now()
	sum := run.Summary()
	log.Info("run completed",
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"duration", run.Duration().Round(time.Millisecond))
	return run
}

// runParallel drains the phase's parallel group through a bounded pool and
// returns once every worker has finished.
func (s *Scheduler) runParallel(ctx context.Context, ph plan.Phase, mode plan.Mode, rec *recorder) {
	if len(ph.Parallel) == 0 {
		return
	}

	workers := min(s.opts.Workers, len(ph.Parallel))
	queue := make(chan tweak.Tweak, len(ph.Parallel))
	for _, t := range ph.Parallel {
		queue <- t
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range queue {
				rec.record(s.runOne(ctx, ph.Name, t, mode))
			}
		}()
	}
	wg.Wait()
}

type result struct {
	detail string
	err    error
}

// runOne invokes a single tweak action and converts whatever happens into
// an Outcome.
func (s *Scheduler) runOne(ctx context.Context, phase string, t tweak.Tweak, mode plan.Mode) Outcome {
	out := Outcome{TweakID: t.ID, Title: t.Title, Phase: phase}

	action := t.Action(mode.Reverse())
	if action == nil {
		out.Status = Skipped
		out.Message = ErrNoAction.Error()
		return out
	}

	timeout := s.timeoutFor(t)
	actx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		detail, err := action(actx)
		done <- result{detail: detail, err: err}
	}()

	var res result
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case res = <-done:
		case <-timer.C:
			// The action goroutine is abandoned; its buffered send never blocks.
			res = result{err: fmt.Errorf("%w after %s", ErrTimeout, timeout)}
		}
	} else {
		res = <-done
	}
	out.Duration = time.Since(start)

	if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && actx.Err() != nil {
		res.err = fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, res.err)
	}

	if res.err != nil {
		out.Status = Failed
		out.Err = res.err
		out.Message = res.err.Error()
		return out
	}

	out.Status = Succeeded
	out.Message = res.detail
	if out.Message == "" {
		out.Message = "done"
	}
	return out
}

// timeoutFor returns the deadline for t, or zero for no deadline.
func (s *Scheduler) timeoutFor(t tweak.Tweak) time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	if t.RequiresExternalProcess {
		return s.opts.ExternalTimeout
	}
	return 0
}

// recorder appends outcomes and notifies the sink under a single lock so
// that progress reaches the sink in order.
type recorder struct {
	mu    sync.Mutex
	run   *Run
	sink  ProgressSink
	total int
	log   *logging.Logger
}

func (r *recorder) record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.run.Outcomes = append(r.run.Outcomes, o)
	completed := len(r.run.Outcomes)

	if o.Status == Failed {
		r.log.Warn("tweak failed", "tweak", o.TweakID, "error", o.Message, "duration", o.Duration)
	} else {
		r.log.Debug("tweak finished", "tweak", o.TweakID, "status", o.Status, "duration", o.Duration)
	}

	r.notify(func() { r.sink.OnOutcome(o) })
	r.notify(func() { r.sink.OnProgress(completed, r.total) })
}

// notify shields the run from a panicking sink.
func (r *recorder) notify(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("progress sink panicked", "panic", p)
		}
	}()
	fn()
}
