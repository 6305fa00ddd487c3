// Package store implements durable ordered mappings from typed keys to
// serialized records, stable across upgrades. Modeled on the
// storage.Database interface (storage/db.go) and its in-memory/LevelDB
// pair.
package store

import (
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Database is a generic key-value store abstraction so the engine can run
// against an in-memory map in tests and a durable LevelDB instance in
// production, without either L1 map knowing which backs it.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	// Scan iterates entries whose key has the given prefix, in
	// lexicographic key order, invoking fn until it returns false.
	Scan(prefix []byte, fn func(key, value []byte) bool) error
	Close() error
}

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = fmt.Errorf("store: key not found")

// MemDB is an in-memory Database, used by the engine's test suite the same
// way an in-memory MemDB backs other unit test suites.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (db *MemDB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := append([]byte(nil), value...)
	db.data[string(key)] = cp
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

func (db *MemDB) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	db.mu.RLock()
	keys := make([]string, 0, len(db.data))
	for k := range db.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			keys = append(keys, k)
		}
	}
	db.mu.RUnlock()

	sortStrings(keys)
	for _, k := range keys {
		db.mu.RLock()
		v := db.data[k]
		db.mu.RUnlock()
		if !fn([]byte(k), v) {
			break
		}
	}
	return nil
}

func (db *MemDB) Close() error { return nil }

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// LevelDB is a persistent key-value store backing the deployed control
// plane, modeled on storage.LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Put(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

func (l *LevelDB) Close() error { return l.db.Close() }
