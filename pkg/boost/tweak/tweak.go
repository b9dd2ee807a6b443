// Package tweak defines performance tweaks and the immutable catalog that
// holds them.
//
// A Tweak pairs a forward Action with an optional reverse Action. Tweaks
// without a reverse action are one-directional and never appear in a
// restore plan.
//
//	cat, err := tweak.NewCatalog(
//	    tweak.Tweak{ID: "power.ultimate", Category: tweak.Power, Forward: activate},
//	)
//	t, err := cat.Lookup("power.ultimate")
package tweak

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Category groups tweaks by the subsystem they touch. The declared order is
// the catalog's listing order.
type Category int

// Categories in listing order.
const (
	ProcessCleanup Category = iota
	Memory
	Power
	Gaming
	Network
	SystemPolicy
)

// Categories returns every known category in listing order.
func Categories() []Category {
	return []Category{ProcessCleanup, Memory, Power, Gaming, Network, SystemPolicy}
}

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case ProcessCleanup:
		return "process-cleanup"
	case Memory:
		return "memory"
	case Power:
		return "power"
	case Gaming:
		return "gaming"
	case Network:
		return "network"
	case SystemPolicy:
		return "system-policy"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c >= ProcessCleanup && c <= SystemPolicy
}

// ParseCategory parses a category name as produced by String.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Action performs one direction of a tweak. A nil error means the change
// was made; detail is a short human-readable summary of what happened.
type Action func(ctx context.Context) (detail string, err error)

// Tweak is a single named system change.
type Tweak struct {
	// ID is stable and unique within a catalog.
	ID string

	// Title is the checklist label.
	Title string

	// Description explains the change in one or two sentences.
	Description string

	Category Category

	// Forward applies the tweak. Required.
	Forward Action

	// Reverse undoes the tweak. Nil for one-directional tweaks.
	Reverse Action

	// ParallelSafe tweaks may run concurrently with other parallel-safe
	// tweaks in the same phase without coordination.
	ParallelSafe bool

	// RequiresExternalProcess marks tweaks that shell out and therefore run
	// under the scheduler's external-process timeout.
	RequiresExternalProcess bool

	// Timeout overrides the scheduler's timeout for this tweak. Zero uses
	// the scheduler default for external tweaks and no deadline otherwise.
	Timeout time.Duration

	// Default marks tweaks enabled in a fresh selection.
	Default bool
}

// Reversible reports whether the tweak has a reverse action.
func (t Tweak) Reversible() bool {
	return t.Reverse != nil
}

// Action returns the action for the given direction. Restore returns nil for
// one-directional tweaks.
func (t Tweak) Action(reverse bool) Action {
	if reverse {
		return t.Reverse
	}
	return t.Forward
}
