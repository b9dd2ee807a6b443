package plan

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// ErrInvalidLayout is returned when a layout maps one category to more than
// one phase of the same mode.
var ErrInvalidLayout = errors.New("invalid phase layout")

// OtherPhase names the trailing phase that collects tweaks whose category
// the layout does not map.
const OtherPhase = "other"

// PhaseSpec names a phase and the categories it runs.
type PhaseSpec struct {
	Name       string
	Categories []tweak.Category
}

// Layout is the fixed phase order for each mode.
type Layout struct {
	Apply   []PhaseSpec
	Restore []PhaseSpec
}

// DefaultLayout returns the stock ordering: processes are cleared before
// memory is reclaimed, power and gaming follow, and system policy goes
// last. Restore brings services back first and the power plan last.
func DefaultLayout() Layout {
	return Layout{
		Apply: []PhaseSpec{
			{Name: "process", Categories: []tweak.Category{tweak.ProcessCleanup}},
			{Name: "memory", Categories: []tweak.Category{tweak.Memory}},
			{Name: "power", Categories: []tweak.Category{tweak.Power}},
			{Name: "gaming", Categories: []tweak.Category{tweak.Gaming}},
			{Name: "system", Categories: []tweak.Category{tweak.Network, tweak.SystemPolicy}},
		},
		Restore: []PhaseSpec{
			{Name: "services", Categories: []tweak.Category{tweak.ProcessCleanup}},
			{Name: "app-policy", Categories: []tweak.Category{tweak.SystemPolicy, tweak.Network, tweak.Gaming}},
			{Name: "power", Categories: []tweak.Category{tweak.Power}},
		},
	}
}

// Phases returns the phase specs for mode.
func (l Layout) Phases(mode Mode) []PhaseSpec {
	if mode == Restore {
		return l.Restore
	}
	return l.Apply
}

// Validate checks that no category is assigned twice within a mode.
func (l Layout) Validate() error {
	for _, mode := range []Mode{Apply, Restore} {
		seen := make(map[tweak.Category]string)
		for _, ps := range l.Phases(mode) {
			if ps.Name == "" {
				return fmt.Errorf("%w: %s phase without a name", ErrInvalidLayout, mode)
			}
			for _, c := range ps.Categories {
				if prev, ok := seen[c]; ok {
					return fmt.Errorf("%w: %s category %s in both %q and %q",
						ErrInvalidLayout, mode, c, prev, ps.Name)
				}
				seen[c] = ps.Name
			}
		}
	}
	return nil
}

// phaseOf returns the index of the phase that runs category c, or -1.
func phaseOf(specs []PhaseSpec, c tweak.Category) int {
	for i, ps := range specs {
		for _, pc := range ps.Categories {
			if pc == c {
				return i
			}
		}
	}
	return -1
}
