// Package plan compiles a selection of tweaks into an ordered execution plan.
//
// Compilation is a pure function of the catalog, the phase layout, the
// selection and the mode. The same inputs always produce the same plan.
package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// Mode selects the direction of a run.
type Mode int

// Run modes.
const (
	Apply Mode = iota
	Restore
)

// String returns "apply" or "restore".
func (m Mode) String() string {
	if m == Restore {
		return "restore"
	}
	return "apply"
}

// Reverse reports whether the mode runs reverse actions.
func (m Mode) Reverse() bool {
	return m == Restore
}

// ErrInvalidMode is returned by ParseMode for unknown names.
var ErrInvalidMode = errors.New("invalid mode")

// ParseMode parses "apply" or "restore".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "apply", "":
		return Apply, nil
	case "restore", "revert":
		return Restore, nil
	default:
		return Apply, fmt.Errorf("%w: %s", ErrInvalidMode, s)
	}
}

// Phase is a group of tweaks that completes before the next phase starts.
// The parallel group runs first, then the sequential group in order.
type Phase struct {
	Name       string
	Parallel   []tweak.Tweak
	Sequential []tweak.Tweak
}

// Len returns the number of tweaks in the phase.
func (p Phase) Len() int {
	return len(p.Parallel) + len(p.Sequential)
}

// Tweaks returns the phase's tweaks, parallel group first.
func (p Phase) Tweaks() []tweak.Tweak {
	out := make([]tweak.Tweak, 0, p.Len())
	out = append(out, p.Parallel...)
	return append(out, p.Sequential...)
}

// Plan is an ordered list of non-empty phases.
type Plan struct {
	Mode   Mode
	Phases []Phase
}

// Total returns the number of tweaks across all phases.
func (p *Plan) Total() int {
	n := 0
	for _, ph := range p.Phases {
		n += ph.Len()
	}
	return n
}

// Empty reports whether the plan has no tweaks.
func (p *Plan) Empty() bool {
	return p.Total() == 0
}

// IDs returns every planned tweak id in execution order.
func (p *Plan) IDs() []string {
	ids := make([]string, 0, p.Total())
	for _, ph := range p.Phases {
		for _, t := range ph.Tweaks() {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Compile builds the plan for sel in the given mode. Unknown ids in sel are
// ignored. In Restore mode only reversible tweaks are included. Tweaks whose
// category is not mapped by layout are placed in a trailing "other" phase.
func Compile(cat *tweak.Catalog, layout Layout, sel Selection, mode Mode) (*Plan, error) {
	if cat == nil {
		return nil, errors.New("nil catalog")
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	specs := layout.Phases(mode)
	phases := make([]Phase, len(specs)+1)
	for i, ps := range specs {
		phases[i].Name = ps.Name
	}
	phases[len(specs)].Name = OtherPhase

	for _, t := range cat.All() {
		if !sel.Enabled(t.ID) {
			continue
		}
		if mode == Restore && !t.Reversible() {
			continue
		}

		idx := phaseOf(specs, t.Category)
		if idx < 0 {
			idx = len(specs)
		}
		if t.ParallelSafe {
			phases[idx].Parallel = append(phases[idx].Parallel, t)
		} else {
			phases[idx].Sequential = append(phases[idx].Sequential, t)
		}
	}

	p := &Plan{Mode: mode}
	for _, ph := range phases {
		if ph.Len() > 0 {
			p.Phases = append(p.Phases, ph)
		}
	}
	return p, nil
}

// Compiler binds a catalog and layout for repeated compilation.
type Compiler struct {
	Catalog *tweak.Catalog
	Layout  Layout
}

// NewCompiler returns a compiler using the default layout.
func NewCompiler(cat *tweak.Catalog) *Compiler {
	return &Compiler{Catalog: cat, Layout: DefaultLayout()}
}

// Compile builds the plan for sel in mode.
func (c *Compiler) Compile(sel Selection, mode Mode) (*Plan, error) {
	return Compile(c.Catalog, c.Layout, sel, mode)
}
