package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

func noop(context.Context) (string, error) { return "", nil }

func ids(ts []tweak.Tweak) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

// abcCatalog: A and B are parallel-safe in phase one, C is sequential in
// phase two. Only B and C are reversible.
func abcCatalog() (*tweak.Catalog, Layout) {
	cat := tweak.MustCatalog(
		tweak.Tweak{ID: "A", Category: tweak.Memory, Forward: noop, ParallelSafe: true},
		tweak.Tweak{ID: "B", Category: tweak.Memory, Forward: noop, Reverse: noop, ParallelSafe: true},
		tweak.Tweak{ID: "C", Category: tweak.Power, Forward: noop, Reverse: noop},
	)
	phases := []PhaseSpec{
		{Name: "phase1", Categories: []tweak.Category{tweak.Memory}},
		{Name: "phase2", Categories: []tweak.Category{tweak.Power}},
	}
	return cat, Layout{Apply: phases, Restore: phases}
}

func TestCompile_ApplyGroupsByPhase(t *testing.T) {
	t.Parallel()

	cat, layout := abcCatalog()
	p, err := Compile(cat, layout, NewSelection("A", "B", "C"), Apply)
	require.NoError(t, err)

	require.Len(t, p.Phases, 2)
	assert.Equal(t, "phase1", p.Phases[0].Name)
	assert.Equal(t, []string{"A", "B"}, ids(p.Phases[0].Parallel))
	assert.Empty(t, p.Phases[0].Sequential)

	assert.Equal(t, "phase2", p.Phases[1].Name)
	assert.Empty(t, p.Phases[1].Parallel)
	assert.Equal(t, []string{"C"}, ids(p.Phases[1].Sequential))

	assert.Equal(t, 3, p.Total())
	assert.Equal(t, Apply, p.Mode)
}

func TestCompile_RestoreKeepsReversibleOnly(t *testing.T) {
	t.Parallel()

	cat, layout := abcCatalog()
	p, err := Compile(cat, layout, NewSelection("A", "B", "C"), Restore)
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C"}, p.IDs())
	for _, ph := range p.Phases {
		for _, tw := range ph.Tweaks() {
			assert.True(t, tw.Reversible(), "%s is not reversible", tw.ID)
		}
	}
}

func TestCompile_EmptySelection(t *testing.T) {
	t.Parallel()

	cat, layout := abcCatalog()
	for _, mode := range []Mode{Apply, Restore} {
		p, err := Compile(cat, layout, Selection{}, mode)
		require.NoError(t, err)
		assert.Empty(t, p.Phases)
		assert.True(t, p.Empty())
	}
}

func TestCompile_IgnoresUnknownAndDisabledIDs(t *testing.T) {
	t.Parallel()

	cat, layout := abcCatalog()
	sel := Selection{"A": true, "B": false, "ghost": true}

	p, err := Compile(cat, layout, sel, Apply)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, p.IDs())
}

func TestCompile_PlannedSetEqualsEnabledSet(t *testing.T) {
	t.Parallel()

	cat := tweak.MustCatalog(
		tweak.Tweak{ID: "k", Category: tweak.ProcessCleanup, Forward: noop, Reverse: noop, ParallelSafe: true},
		tweak.Tweak{ID: "m", Category: tweak.Memory, Forward: noop},
		tweak.Tweak{ID: "p", Category: tweak.Power, Forward: noop, Reverse: noop},
		tweak.Tweak{ID: "g", Category: tweak.Gaming, Forward: noop, ParallelSafe: true},
		tweak.Tweak{ID: "n", Category: tweak.Network, Forward: noop, ParallelSafe: true},
		tweak.Tweak{ID: "s", Category: tweak.SystemPolicy, Forward: noop, Reverse: noop, ParallelSafe: true},
	)
	sel := NewSelection("k", "m", "p", "g", "n", "s")

	p, err := Compile(cat, DefaultLayout(), sel, Apply)
	require.NoError(t, err)
	assert.ElementsMatch(t, sel.IDs(), p.IDs())

	names := make([]string, len(p.Phases))
	for i, ph := range p.Phases {
		names[i] = ph.Name
	}
	assert.Equal(t, []string{"process", "memory", "power", "gaming", "system"}, names)

	r, err := Compile(cat, DefaultLayout(), sel, Restore)
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "s", "p"}, r.IDs())
}

func TestCompile_Deterministic(t *testing.T) {
	t.Parallel()

	cat, layout := abcCatalog()
	sel := NewSelection("C", "B", "A")

	first, err := Compile(cat, layout, sel, Apply)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Compile(cat, layout, sel, Apply)
		require.NoError(t, err)
		assert.Equal(t, first.IDs(), again.IDs())
		require.Len(t, again.Phases, len(first.Phases))
		for j := range first.Phases {
			assert.Equal(t, first.Phases[j].Name, again.Phases[j].Name)
			assert.Equal(t, ids(first.Phases[j].Parallel), ids(again.Phases[j].Parallel))
			assert.Equal(t, ids(first.Phases[j].Sequential), ids(again.Phases[j].Sequential))
		}
	}
}

func TestCompile_UnmappedCategoryGoesToOtherPhase(t *testing.T) {
	t.Parallel()

	cat, _ := abcCatalog()
	layout := Layout{Apply: []PhaseSpec{{Name: "only-power", Categories: []tweak.Category{tweak.Power}}}}

	p, err := Compile(cat, layout, NewSelection("A", "C"), Apply)
	require.NoError(t, err)
	require.Len(t, p.Phases, 2)
	assert.Equal(t, "only-power", p.Phases[0].Name)
	assert.Equal(t, OtherPhase, p.Phases[1].Name)
	assert.Equal(t, []string{"A"}, ids(p.Phases[1].Parallel))
}

func TestCompile_InvalidLayout(t *testing.T) {
	t.Parallel()

	cat, _ := abcCatalog()
	layout := Layout{Apply: []PhaseSpec{
		{Name: "one", Categories: []tweak.Category{tweak.Memory}},
		{Name: "two", Categories: []tweak.Category{tweak.Memory}},
	}}

	_, err := Compile(cat, layout, NewSelection("A"), Apply)
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = Compile(nil, DefaultLayout(), NewSelection("A"), Apply)
	assert.Error(t, err)
}

func TestDefaultLayout_Valid(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultLayout().Validate())
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"apply", Apply, false},
		{"", Apply, false},
		{"Restore", Restore, false},
		{"revert", Restore, false},
		{"sideways", Apply, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidMode)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want.String(), got.String())
	}
}
