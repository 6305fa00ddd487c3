// Package index implements secondary indexes over the stable maps — by
// status, requester, approver, resource, fullname/version, and the
// sort-key indexes the query layer needs. Modeled on
// core/state/manager.go's prefix-index idiom (tokenPrefix, balancePrefix,
// rolePrefix, ...), generalized into a reusable keyed-set abstraction.
package index

import (
	"bytes"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/store"
)

// Set is a secondary index mapping an arbitrary index-key byte string to a
// set of entity ids, stored as "(index_key_bytes ++ entity_id) with empty
// value" entries so a prefix scan on index_key_bytes alone enumerates every
// entity under that key (§6 "Persistence layout").
type Set struct {
	db     store.Database
	prefix []byte
}

// NewSet constructs a secondary index under a distinct family prefix.
func NewSet(db store.Database, family string) *Set {
	return &Set{db: db, prefix: []byte(family + "#")}
}

func (s *Set) entryKey(indexKey []byte, id ids.ID) []byte {
	k := make([]byte, 0, len(s.prefix)+len(indexKey)+16)
	k = append(k, s.prefix...)
	k = append(k, indexKey...)
	k = append(k, id[:]...)
	return k
}

// Add records that id is indexed under indexKey.
func (s *Set) Add(indexKey []byte, id ids.ID) error {
	return s.db.Put(s.entryKey(indexKey, id), []byte{})
}

// Remove drops the (indexKey, id) entry. Removing an absent entry is a
// no-op, matching "on delete, only removal runs" (§5).
func (s *Set) Remove(indexKey []byte, id ids.ID) error {
	return s.db.Delete(s.entryKey(indexKey, id))
}

// Lookup returns every entity id indexed under exactly indexKey.
func (s *Set) Lookup(indexKey []byte) ([]ids.ID, error) {
	full := append(append([]byte(nil), s.prefix...), indexKey...)
	want := len(full) + 16
	var out []ids.ID
	err := s.db.Scan(full, func(key, _ []byte) bool {
		if len(key) != want {
			return true // a longer key that merely starts with indexKey
		}
		var id ids.ID
		copy(id[:], key[len(key)-16:])
		out = append(out, id)
		return true
	})
	return out, err
}

// ScanPrefix returns every entity id indexed under a key with the given
// prefix — used for the external-canister wildcard-validation prefix scan
// described in §4.3, and for range-style lookups (created-at, expiration).
func (s *Set) ScanPrefix(keyPrefix []byte) ([]ids.ID, error) {
	full := append(append([]byte(nil), s.prefix...), keyPrefix...)
	var out []ids.ID
	err := s.db.Scan(full, func(key, _ []byte) bool {
		if len(key) < 16 {
			return true
		}
		var id ids.ID
		copy(id[:], key[len(key)-16:])
		out = append(out, id)
		return true
	})
	return out, err
}

// Reindex applies the symmetric-difference update §5 describes
// ("save_entry_indexes(new, old_opt)... on insert/update, old-entry
// indexes are removed before new ones are added; on delete, only removal
// runs"): entries present only in oldKeys are removed, entries present
// only in newKeys are added, and entries present in both are left alone.
func (s *Set) Reindex(id ids.ID, oldKeys, newKeys [][]byte) error {
	newSet := make(map[string][]byte, len(newKeys))
	for _, k := range newKeys {
		newSet[string(k)] = k
	}
	oldSet := make(map[string][]byte, len(oldKeys))
	for _, k := range oldKeys {
		oldSet[string(k)] = k
	}

	for ks, k := range oldSet {
		if _, keep := newSet[ks]; !keep {
			if err := s.Remove(k, id); err != nil {
				return err
			}
		}
	}
	for ks, k := range newSet {
		if _, existed := oldSet[ks]; !existed {
			if err := s.Add(k, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// EncodeUint64 produces a big-endian fixed-width key component so numeric
// index keys (timestamps, versions) sort the same way numerically as they
// do lexicographically.
func EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// EncodeString produces a NUL-terminated key component so variable-length
// string keys can be concatenated with a following fixed-width component
// without ambiguity.
func EncodeString(s string) []byte {
	return append([]byte(s), 0)
}

// Equal reports whether two encoded index keys are identical.
func Equal(a, b []byte) bool { return bytes.Equal(a, b) }
