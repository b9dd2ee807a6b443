package plan

import (
	"fmt"
	"sort"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

// Selection maps tweak ids to their enabled flag. Ids that are not in the
// catalog are ignored when compiling.
type Selection map[string]bool

// NewSelection returns a selection with the given ids enabled.
func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// Defaults returns a selection with every default-checked tweak enabled and
// every other tweak explicitly disabled.
func Defaults(cat *tweak.Catalog) Selection {
	s := make(Selection, cat.Len())
	for _, t := range cat.All() {
		s[t.ID] = t.Default
	}
	return s
}

// All returns a selection with every catalog tweak enabled.
func All(cat *tweak.Catalog) Selection {
	return NewSelection(cat.IDs()...)
}

// Enabled reports whether id is selected.
func (s Selection) Enabled(id string) bool {
	return s[id]
}

// IDs returns the enabled ids in sorted order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s))
	for id, on := range s {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of enabled ids.
func (s Selection) Count() int {
	n := 0
	for _, on := range s {
		if on {
			n++
		}
	}
	return n
}

// Clone returns a copy of the selection.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for id, on := range s {
		out[id] = on
	}
	return out
}

// Matcher matches tweak ids against glob patterns such as "power.*".
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles the given patterns. An empty pattern list matches
// nothing.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether id matches any pattern.
func (m *Matcher) Match(id string) bool {
	for _, g := range m.globs {
		if g.Match(id) {
			return true
		}
	}
	return false
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool {
	return len(m.globs) == 0
}

// Narrow derives a selection from base. When only is non-empty, just the
// catalog tweaks matching it are enabled (ignoring base). Tweaks matching
// skip are then disabled.
func Narrow(cat *tweak.Catalog, base Selection, only, skip []string) (Selection, error) {
	onlyM, err := NewMatcher(only)
	if err != nil {
		return nil, err
	}
	skipM, err := NewMatcher(skip)
	if err != nil {
		return nil, err
	}

	out := base.Clone()
	if !onlyM.Empty() {
		out = make(Selection, cat.Len())
		for _, id := range cat.IDs() {
			out[id] = onlyM.Match(id)
		}
	}
	for _, id := range cat.IDs() {
		if skipM.Match(id) {
			out[id] = false
		}
	}
	return out, nil
}
