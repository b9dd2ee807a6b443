// Package backup persists the pre-change state that reversible tweaks need
// to undo themselves: the previously active power scheme, the services a
// run stopped, registry values it overwrote.
//
// A backup is written once. Applying the same tweak again does not replace
// the original value, so restore always returns to the state before the
// first apply. Restoring deletes the record.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	prefixRecord = "b:"
	schemaKey    = "m:__schema__"
)

// SchemaVersion is the on-disk layout version.
const SchemaVersion = 1

// ErrNotFound is returned when no backup exists for a tweak value.
var ErrNotFound = errors.New("backup not found")

// Record is a saved pre-change value.
type Record struct {
	TweakID   string    `json:"tweak_id"`
	Name      string    `json:"name"`
	Value     string    `json:"value,omitempty"`
	Values    []string  `json:"values,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Schema describes the store layout.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a Badger-backed backup store. It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store in the directory path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening backup store: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(tweakID, name string) []byte {
	return []byte(prefixRecord + tweakID + "/" + name)
}

// SaveOnce stores r unless a record for the same tweak and name exists.
// It reports whether r was written.
func (s *Store) SaveOnce(r Record) (bool, error) {
	if r.TweakID == "" || r.Name == "" {
		return false, errors.New("backup record needs a tweak id and a name")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return false, err
	}

	saved := false
	err = s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(r.TweakID, r.Name)
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		saved = true
		return txn.Set(key, data)
	})
	if err != nil {
		return false, fmt.Errorf("saving backup %s/%s: %w", r.TweakID, r.Name, err)
	}
	return saved, nil
}

// Append adds values to the record's Values, creating the record if needed.
// Values already present are not duplicated and Value is never touched, so
// a record built up over several applies still holds the first state.
func (s *Store) Append(tweakID, name string, values ...string) error {
	if tweakID == "" || name == "" {
		return errors.New("backup record needs a tweak id and a name")
	}
	if len(values) == 0 {
		return nil
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(tweakID, name)
		r := Record{TweakID: tweakID, Name: name, CreatedAt: time.Now()}

		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		seen := make(map[string]bool, len(r.Values))
		for _, v := range r.Values {
			seen[v] = true
		}
		for _, v := range values {
			if !seen[v] {
				seen[v] = true
				r.Values = append(r.Values, v)
			}
		}
		sort.Strings(r.Values)

		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("appending backup %s/%s: %w", tweakID, name, err)
	}
	return nil
}

// Get returns the record for a tweak value.
func (s *Store) Get(tweakID, name string) (Record, error) {
	var r Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(tweakID, name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, fmt.Errorf("%w: %s/%s", ErrNotFound, tweakID, name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("reading backup %s/%s: %w", tweakID, name, err)
	}
	return r, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(tweakID, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(tweakID, name))
	})
}

// List returns every record, or only those for tweakID when it is not
// empty, ordered by tweak id then name.
func (s *Store) List(tweakID string) ([]Record, error) {
	prefix := []byte(prefixRecord)
	if tweakID != "" {
		prefix = []byte(prefixRecord + tweakID + "/")
	}

	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TweakID != out[j].TweakID {
			return out[i].TweakID < out[j].TweakID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Clear deletes every record, or only those for tweakID when it is not
// empty. It returns how many records were removed.
func (s *Store) Clear(tweakID string) (int, error) {
	recs, err := s.List(tweakID)
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, r := range recs {
		if err := wb.Delete(recordKey(r.TweakID, r.Name)); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("clearing backups: %w", err)
	}
	return len(recs), nil
}

// Schema returns the stored schema, or nil for a store that predates it.
func (s *Store) Schema() *Schema {
	var schema *Schema
	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			schema = &Schema{}
			return json.Unmarshal(val, schema)
		})
	})
	return schema
}

// ensureSchema stamps new stores and refuses stores written by a newer
// version.
func (s *Store) ensureSchema() error {
	if cur := s.Schema(); cur != nil {
		if cur.Version > SchemaVersion {
			return fmt.Errorf("backup store schema %d is newer than supported %d", cur.Version, SchemaVersion)
		}
		if cur.Version == SchemaVersion {
			return nil
		}
	}
	data, err := json.Marshal(Schema{Version: SchemaVersion, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), data)
	})
}

// String renders a record for listings.
func (r Record) String() string {
	v := r.Value
	if len(r.Values) > 0 {
		v = strings.Join(r.Values, ",")
	}
	return fmt.Sprintf("%s/%s=%s", r.TweakID, r.Name, v)
}
