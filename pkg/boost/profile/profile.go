// Package profile stores named selection sets as YAML files, one per
// profile, in a single directory.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/boost/pkg/boost/plan"
	"github.com/jamesainslie/boost/pkg/boost/tweak"
)

const ext = ".yaml"

// Profile errors.
var (
	ErrNotFound    = errors.New("profile not found")
	ErrInvalidName = errors.New("invalid profile name")
)

// Profile is a saved selection.
type Profile struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Enabled     []string  `yaml:"enabled"`
	Created     time.Time `yaml:"created"`
	Updated     time.Time `yaml:"updated"`
}

// FromSelection builds a profile holding the enabled ids of sel.
func FromSelection(name, description string, sel plan.Selection) *Profile {
	return &Profile{
		Name:        name,
		Description: description,
		Enabled:     sel.IDs(),
	}
}

// Selection expands the profile against cat. Catalog tweaks not named by
// the profile are disabled. Ids the catalog does not know are returned
// separately so callers can warn about them.
func (p *Profile) Selection(cat *tweak.Catalog) (plan.Selection, []string) {
	sel := make(plan.Selection, cat.Len())
	for _, id := range cat.IDs() {
		sel[id] = false
	}
	var unknown []string
	for _, id := range p.Enabled {
		if _, err := cat.Lookup(id); err != nil {
			unknown = append(unknown, id)
			continue
		}
		sel[id] = true
	}
	return sel, unknown
}

// ValidateName checks that name is usable as a file name on every platform.
func ValidateName(name string) error {
	if name == "" || len(name) > 64 {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case (r == '-' || r == '_' || r == '.') && i > 0:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// Store manages profile files in a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("profile directory cannot be empty")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+ext)
}

// Save writes p, replacing any profile with the same name. Created is kept
// from the existing profile.
func (s *Store) Save(p *Profile) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.Updated = now
	if existing, err := s.read(p.Name); err == nil {
		p.Created = existing.Created
	} else if p.Created.IsZero() {
		p.Created = now
	}
	enabled := append([]string(nil), p.Enabled...)
	sort.Strings(enabled)
	p.Enabled = enabled

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}

	path := s.path(p.Name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing profile: %w", err)
	}
	return nil
}

// Get reads a profile by name.
func (s *Store) Get(name string) (*Profile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(name)
}

func (s *Store) read(name string) (*Profile, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", name, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, nil
}

// List returns all readable profiles sorted by name. Files that fail to
// parse are skipped.
func (s *Store) List() ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile directory: %w", err)
	}

	out := []Profile{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		p, err := s.read(strings.TrimSuffix(e.Name(), ext))
		if err != nil {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a profile.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}
