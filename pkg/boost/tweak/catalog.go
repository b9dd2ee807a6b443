package tweak

import (
	"errors"
	"fmt"
	"sort"
)

// Catalog errors.
var (
	ErrNotFound        = errors.New("tweak not found")
	ErrDuplicateID     = errors.New("duplicate tweak id")
	ErrInvalidTweak    = errors.New("invalid tweak")
	ErrUnknownCategory = errors.New("unknown category")
)

// Catalog is an immutable, ordered set of tweaks. It is safe for concurrent
// use since nothing mutates it after construction.
type Catalog struct {
	ordered []Tweak
	index   map[string]int
	decl    map[string]int
}

// NewCatalog validates the definitions and builds a catalog. Tweaks are
// ordered by category, then by the order they were passed in.
func NewCatalog(defs ...Tweak) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]Tweak, 0, len(defs)),
		index:   make(map[string]int, len(defs)),
		decl:    make(map[string]int, len(defs)),
	}

	for i, t := range defs {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: definition %d has no id", ErrInvalidTweak, i)
		}
		if _, dup := c.decl[t.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
		}
		if !t.Category.Valid() {
			return nil, fmt.Errorf("%w: %s has category %d", ErrUnknownCategory, t.ID, int(t.Category))
		}
		if t.Forward == nil {
			return nil, fmt.Errorf("%w: %s has no forward action", ErrInvalidTweak, t.ID)
		}
		if t.Title == "" {
			t.Title = t.ID
		}
		c.decl[t.ID] = i
		c.ordered = append(c.ordered, t)
	}

	sort.SliceStable(c.ordered, func(i, j int) bool {
		return c.ordered[i].Category < c.ordered[j].Category
	})
	for i, t := range c.ordered {
		c.index[t.ID] = i
	}

	return c, nil
}

// MustCatalog is like NewCatalog but panics on error. Intended for tests and
// package-level fixtures.
func MustCatalog(defs ...Tweak) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the tweak with the given id.
func (c *Catalog) Lookup(id string) (Tweak, error) {
	i, ok := c.index[id]
	if !ok {
		return Tweak{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.ordered[i], nil
}

// All returns every tweak in category order, then declaration order. The
// returned slice is a copy.
func (c *Catalog) All() []Tweak {
	out := make([]Tweak, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// ByCategory returns the tweaks in one category in declaration order.
func (c *Catalog) ByCategory(cat Category) []Tweak {
	var out []Tweak
	for _, t := range c.ordered {
		if t.Category == cat {
			out = append(out, t)
		}
	}
	return out
}

// IDs returns every tweak id in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.ordered))
	for i, t := range c.ordered {
		ids[i] = t.ID
	}
	return ids
}

// Position returns the position of id in catalog order, or -1.
func (c *Catalog) Position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Len returns the number of tweaks in the catalog.
func (c *Catalog) Len() int {
	return len(c.ordered)
}
