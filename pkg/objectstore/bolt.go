// Package objectstore provides a bbolt-backed reference implementation of
// contract.ObjectStore: one BoltStore per DBObject, staging a transaction's
// writes in memory between enlist and commit and applying them to its
// bucket in a single bbolt update at commit time.
package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cuemby/txmgr/pkg/contract"
	bolt "go.etcd.io/bbolt"
)

// Enlister is the subset of *manager.Manager a BoltStore needs to enlist
// itself the first time it sees an unfamiliar write id. Declared here
// rather than imported directly so objectstore never depends on manager.
type Enlister interface {
	Enlist(storeID string, txID int64) (int64, error)
}

// BoltStore is a single DBObject's shard, backed by its own bucket in the
// bbolt database file it opens and closes itself.
type BoltStore struct {
	id   string
	db   *bolt.DB
	mgr  Enlister
	seen map[int64]bool

	mu     sync.Mutex
	staged map[int64]map[string][]byte // writeID -> key -> value (nil = delete)
}

// Open opens (creating if necessary) the bbolt database at dbPath and
// returns a BoltStore for id, creating its bucket if absent.
func Open(dbPath, id string, mgr Enlister) (*BoltStore, error) {
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("objectstore: opening %s: %w", dbPath, err)
	}
	bucket := []byte(id)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("objectstore: creating bucket %s: %w", id, err)
	}
	return &BoltStore{
		id:     id,
		db:     db,
		mgr:    mgr,
		seen:   make(map[int64]bool),
		staged: make(map[int64]map[string][]byte),
	}, nil
}

func (s *BoltStore) ID() string   { return s.id }
func (s *BoltStore) Path() string { return s.id }

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Get reads a committed value by key, outside of any transaction.
func (s *BoltStore) Get(key string) ([]byte, bool, error) {
	var val []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.id))
		v := b.Get([]byte(key))
		if v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	return val, val != nil, err
}

// Put stages a write under txID, enlisting with the manager on first sight
// of this write id.
func (s *BoltStore) Put(ctx context.Context, txID int64, key string, value []byte) error {
	if err := s.ensureEnlisted(txID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[txID][key] = append([]byte(nil), value...)
	return nil
}

// Delete stages a deletion under txID.
func (s *BoltStore) Delete(ctx context.Context, txID int64, key string) error {
	if err := s.ensureEnlisted(txID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[txID][key] = nil
	return nil
}

func (s *BoltStore) ensureEnlisted(txID int64) error {
	s.mu.Lock()
	if s.seen[txID] {
		s.mu.Unlock()
		return nil
	}
	s.staged[txID] = make(map[string][]byte)
	s.seen[txID] = true
	s.mu.Unlock()

	_, err := s.mgr.Enlist(s.id, txID)
	return err
}

// Prepare has nothing to validate beyond the staged writes already being in
// memory; it always reports Prepared unless nothing was staged, in which
// case the write had no effect on this store.
func (s *BoltStore) Prepare(ctx context.Context, writeID, prepareID int64) (contract.PrepareResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.staged[writeID]) == 0 {
		delete(s.staged, writeID)
		return contract.CommittedNoChanges, nil
	}
	return contract.Prepared, nil
}

// SealPrepare returns a deterministic JSON object describing the staged
// mutation, sorted by key so the fragment is byte-stable across runs.
func (s *BoltStore) SealPrepare(ctx context.Context, writeID int64) (string, error) {
	s.mu.Lock()
	ops := s.staged[writeID]
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s.mu.Unlock()

	seal := make(map[string]any, len(keys))
	for _, k := range keys {
		if v := ops[k]; v != nil {
			var decoded any
			if err := json.Unmarshal(v, &decoded); err == nil {
				seal[k] = decoded
			} else {
				seal[k] = string(v)
			}
		} else {
			seal[k] = nil
		}
	}
	data, err := json.Marshal(seal)
	if err != nil {
		return "", fmt.Errorf("objectstore: sealing %s: %w", s.id, err)
	}
	return string(data), nil
}

// Commit applies the staged writes to the bucket in a single update
// transaction and discards the staged set.
func (s *BoltStore) Commit(ctx context.Context, writeID int64) error {
	s.mu.Lock()
	ops := s.staged[writeID]
	delete(s.staged, writeID)
	delete(s.seen, writeID)
	s.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.id))
		for k, v := range ops {
			if v == nil {
				if err := b.Delete([]byte(k)); err != nil {
					return err
				}
				continue
			}
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Rollback discards the staged write without touching the bucket.
func (s *BoltStore) Rollback(ctx context.Context, writeID int64) error {
	s.mu.Lock()
	delete(s.staged, writeID)
	delete(s.seen, writeID)
	s.mu.Unlock()
	return nil
}
