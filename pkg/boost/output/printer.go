package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/jamesainslie/boost/pkg/boost/engine"
)

// Printer is an engine.ProgressSink that writes one line per finished
// tweak, for non-interactive runs.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	total  int
	done   int
	styled bool
}

// NewPrinter returns a printer for a run of total tweaks. styled enables
// colored status markers.
func NewPrinter(w io.Writer, total int, styled bool) *Printer {
	return &Printer{w: w, total: total, styled: styled}
}

// OnOutcome implements engine.ProgressSink.
func (p *Printer) OnOutcome(o engine.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	width := len(fmt.Sprint(p.total))
	status := o.Status.String()
	marker := status
	msg := o.Message
	if p.styled {
		marker = StatusGlyph(status)
		msg = StatusStyle(status).Render(msg)
	}
	fmt.Fprintf(p.w, "[%*d/%d] %s %s  %s\n", width, p.done, p.total, marker, o.TweakID, msg)
}

// OnProgress implements engine.ProgressSink.
func (p *Printer) OnProgress(completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = completed
	p.total = total
}

// Ensure Printer implements engine.ProgressSink.
var _ engine.ProgressSink = (*Printer)(nil)
