package store

import (
	"encoding/json"
	"fmt"

	"ctrlplane/internal/ids"
)

// Map is a stable map from a 16-byte entity id to a JSON-serialized record,
// keyed under a family-specific prefix so every entity family can share one
// underlying Database without colliding keys (§6 "Persistence layout": each
// entity family maps to a dedicated stable map under a distinct memory id).
//
// Ordering within a Map is lexicographic over the key bytes (§3), which
// Scan already provides since ids.ID sorts the same way as its raw bytes.
type Map[T any] struct {
	db     Database
	prefix []byte
}

// NewMap constructs a stable map for one entity family.
func NewMap[T any](db Database, family string) *Map[T] {
	return &Map[T]{db: db, prefix: []byte(family + ":")}
}

func (m *Map[T]) key(id ids.ID) []byte {
	return append(append([]byte(nil), m.prefix...), id[:]...)
}

// Put inserts or overwrites the record at id.
func (m *Map[T]) Put(id ids.ID, record *T) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return m.db.Put(m.key(id), raw)
}

// Get loads the record at id, reporting whether it existed.
func (m *Map[T]) Get(id ids.ID) (*T, bool, error) {
	raw, err := m.db.Get(m.key(id))
	if err == ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var record T
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false, fmt.Errorf("decode record: %w", err)
	}
	return &record, true, nil
}

// Delete removes the record at id. Deleting an absent id is a no-op.
func (m *Map[T]) Delete(id ids.ID) error {
	return m.db.Delete(m.key(id))
}

// ForEach iterates every record in the map in ascending id order, stopping
// early if fn returns false.
func (m *Map[T]) ForEach(fn func(id ids.ID, record *T) bool) error {
	return m.db.Scan(m.prefix, func(key, value []byte) bool {
		idBytes := key[len(m.prefix):]
		if len(idBytes) != 16 {
			return true
		}
		var id ids.ID
		copy(id[:], idBytes)
		var record T
		if err := json.Unmarshal(value, &record); err != nil {
			return true
		}
		return fn(id, &record)
	})
}

// All materializes every record in the map, in ascending id order.
func (m *Map[T]) All() ([]*T, error) {
	var out []*T
	err := m.ForEach(func(_ ids.ID, record *T) bool {
		out = append(out, record)
		return true
	})
	return out, err
}
