package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cuemby/txmgr/pkg/clientpool"
	"github.com/cuemby/txmgr/pkg/config"
	"github.com/cuemby/txmgr/pkg/contract"
	"github.com/cuemby/txmgr/pkg/manager"
	"github.com/cuemby/txmgr/pkg/objectstore"
)

// system bundles everything a running txmgrd instance owns: the manager, its
// object stores, and the client pool that backs it as a contract.Catalog.
type system struct {
	mgr    *manager.Manager
	pool   *clientpool.Pool
	stores map[string]*objectstore.BoltStore
}

// Store implements contract.Catalog.
func (s *system) Store(id string) (contract.ObjectStore, bool) {
	st, ok := s.stores[id]
	return st, ok
}

// AllocateClient implements contract.Catalog by delegating to the pool.
func (s *system) AllocateClient(ctx context.Context) (contract.Client, error) {
	return s.pool.AllocateClient(ctx)
}

// RecycleClient implements contract.Catalog by delegating to the pool.
func (s *system) RecycleClient(c contract.Client) {
	s.pool.RecycleClient(c)
}

// buildSystem wires a manager.Manager over one BoltStore per storeID, backed
// by a shared clientpool.Pool, the way a production deployment of this
// library would assemble its own contract.Catalog.
func buildSystem(cfg config.Config, storeIDs []string, registry *clientpool.Registry) (*system, error) {
	pool, err := clientpool.New(clientpool.Config{Size: cfg.ClientPoolSize, Registry: registry})
	if err != nil {
		return nil, fmt.Errorf("txmgrd: building client pool: %w", err)
	}

	sys := &system{pool: pool, stores: make(map[string]*objectstore.BoltStore, len(storeIDs))}

	mgr := manager.New(manager.Config{
		SysDir:     cfg.SysDir,
		MaxLogSize: cfg.MaxLogSize,
		Catalog:    sys,
	})
	sys.mgr = mgr

	for _, id := range storeIDs {
		dbPath := filepath.Join(cfg.ObjectStoreDataDir, id+".db")
		st, err := objectstore.Open(dbPath, id, mgr)
		if err != nil {
			return nil, fmt.Errorf("txmgrd: opening store %s: %w", id, err)
		}
		sys.stores[id] = st
	}
	return sys, nil
}

func (s *system) close() {
	for _, st := range s.stores {
		_ = st.Close()
	}
}
