package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

func testCatalog(t *testing.T) *tweak.Catalog {
	t.Helper()
	nop := func(context.Context) (string, error) { return "", nil }
	cat, err := tweak.NewCatalog(
		tweak.Tweak{ID: "memory.trim-self", Category: tweak.Memory, Forward: nop},
		tweak.Tweak{ID: "power.ultimate", Category: tweak.Power, Forward: nop},
		tweak.Tweak{ID: "gaming.game-dvr", Category: tweak.Gaming, Forward: nop},
	)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return cat
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(""); err == nil {
		t.Fatal("NewStore(\"\") error = nil, want error")
	}
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if s.Dir() == "" {
		t.Fatal("Dir() is empty")
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		valid bool
	}{
		{"gaming", true},
		{"Gaming_2", true},
		{"low-latency.v2", true},
		{"", false},
		{"-leading", false},
		{"../escape", false},
		{"has space", false},
		{"a/b", false},
	}
	for _, tt := range tests {
		err := ValidateName(tt.name)
		if tt.valid && err != nil {
			t.Errorf("ValidateName(%q) error = %v, want nil", tt.name, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) error = %v, want ErrInvalidName", tt.name, err)
		}
	}
}

func TestStore_SaveGet(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "profiles")
	s, _ := NewStore(dir)

	p := &Profile{Name: "gaming", Description: "for games", Enabled: []string{"power.ultimate", "gaming.game-dvr"}}
	if err := s.Save(p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gaming.yaml")); err != nil {
		t.Fatalf("profile file not written: %v", err)
	}

	got, err := s.Get("gaming")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Description != "for games" {
		t.Errorf("Description = %q", got.Description)
	}
	if len(got.Enabled) != 2 || got.Enabled[0] != "gaming.game-dvr" {
		t.Errorf("Enabled = %v, want sorted ids", got.Enabled)
	}
	if got.Created.IsZero() || got.Updated.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestStore_SaveKeepsCreated(t *testing.T) {
	t.Parallel()

	s, _ := NewStore(t.TempDir())
	if err := s.Save(&Profile{Name: "p", Enabled: []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	first, _ := s.Get("p")

	if err := s.Save(&Profile{Name: "p", Enabled: []string{"b"}, Created: time.Unix(0, 0)}); err != nil {
		t.Fatal(err)
	}
	second, _ := s.Get("p")

	if !second.Created.Equal(first.Created) {
		t.Errorf("Created changed from %v to %v", first.Created, second.Created)
	}
	if second.Enabled[0] != "b" {
		t.Errorf("Enabled = %v, want [b]", second.Enabled)
	}
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	s, _ := NewStore(t.TempDir())
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get("../x"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("Get() error = %v, want ErrInvalidName", err)
	}
}

func TestStore_ListDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, _ := NewStore(dir)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.Save(&Profile{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	// Unparseable and foreign files are skipped.
	_ = os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("enabled: [unterminated"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644)

	list, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 || list[0].Name != "alpha" || list[2].Name != "zeta" {
		t.Fatalf("List() = %+v", list)
	}

	if err := s.Delete("mid"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete("mid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrNotFound", err)
	}
	list, _ = s.List()
	if len(list) != 2 {
		t.Fatalf("List() after delete = %d profiles, want 2", len(list))
	}
}

func TestStore_ListMissingDir(t *testing.T) {
	t.Parallel()

	s, _ := NewStore(filepath.Join(t.TempDir(), "absent"))
	list, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("List() = %v, want empty slice", list)
	}
}

func TestStore_ConcurrentSave(t *testing.T) {
	t.Parallel()

	s, _ := NewStore(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Save(&Profile{Name: "shared", Enabled: []string{"x"}}); err != nil {
				t.Errorf("Save() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if _, err := s.Get("shared"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestProfile_Selection(t *testing.T) {
	t.Parallel()

	cat := testCatalog(t)
	p := &Profile{Name: "p", Enabled: []string{"power.ultimate", "removed.tweak"}}

	sel, unknown := p.Selection(cat)
	if !sel.Enabled("power.ultimate") {
		t.Error("power.ultimate should be enabled")
	}
	if sel.Enabled("memory.trim-self") {
		t.Error("memory.trim-self should be disabled")
	}
	if _, ok := sel["memory.trim-self"]; !ok {
		t.Error("catalog tweaks should be present in the selection")
	}
	if len(unknown) != 1 || unknown[0] != "removed.tweak" {
		t.Errorf("unknown = %v", unknown)
	}
}

func TestFromSelection(t *testing.T) {
	t.Parallel()

	sel := plan.NewSelection("b", "a")
	sel["c"] = false
	p := FromSelection("mine", "desc", sel)
	if p.Name != "mine" || len(p.Enabled) != 2 || p.Enabled[0] != "a" {
		t.Fatalf("FromSelection() = %+v", p)
	}
}

func TestStore_Watch(t *testing.T) {
	t.Parallel()

	s, _ := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 16)
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, func(name string) { changed <- name }) }()

	// Give the watcher time to register before writing.
	deadline := time.After(2 * time.Second)
	for {
		if err := s.Save(&Profile{Name: "watched"}); err != nil {
			t.Fatal(err)
		}
		select {
		case name := <-changed:
			if name != "watched" {
				t.Fatalf("onChange(%q), want watched", name)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch() error = %v", err)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no change notification")
		}
	}
}
