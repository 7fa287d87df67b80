// Package clientpool implements contract.Client and the system-client pool
// half of contract.Catalog: a fixed-size set of trigger-running workers the
// manager borrows for the duration of a validate/rectify/distribute phase
// and returns when the phase finishes.
package clientpool

import (
	"context"
	"fmt"

	"github.com/cuemby/txmgr/pkg/contract"
)

// TriggerFunc is application logic registered against one store id and
// trigger kind ("validate", "rectify", "distribute"). A non-nil error fails
// the phase for the whole transaction.
type TriggerFunc func(ctx context.Context, store contract.ObjectStore, txID int64) error

// Registry maps storeID -> kind -> TriggerFunc. A lookup miss is not an
// error: a store with no registered trigger of a given kind automatically
// passes that phase.
type Registry struct {
	triggers map[string]map[string]TriggerFunc
}

// NewRegistry returns an empty Registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{triggers: make(map[string]map[string]TriggerFunc)}
}

// Register binds fn as storeID's trigger for kind, replacing any previous
// registration for the same pair.
func (r *Registry) Register(storeID, kind string, fn TriggerFunc) {
	if r.triggers[storeID] == nil {
		r.triggers[storeID] = make(map[string]TriggerFunc)
	}
	r.triggers[storeID][kind] = fn
}

func (r *Registry) lookup(storeID, kind string) (TriggerFunc, bool) {
	byKind, ok := r.triggers[storeID]
	if !ok {
		return nil, false
	}
	fn, ok := byKind[kind]
	return fn, ok
}

// client implements contract.Client by dispatching through a shared
// Registry; every pooled client is functionally identical, so the pool can
// hand out any of them interchangeably.
type client struct {
	registry *Registry
}

// RunTrigger implements contract.Client.
func (c *client) RunTrigger(ctx context.Context, kind string, store contract.ObjectStore, txID int64) error {
	fn, ok := c.registry.lookup(store.ID(), kind)
	if !ok {
		return nil
	}
	return fn(ctx, store, txID)
}

// Pool is a fixed-size, channel-backed pool of system Client workers.
type Pool struct {
	slots chan contract.Client
}

// Config configures a Pool.
type Config struct {
	Size     int
	Registry *Registry
}

// New constructs a Pool with cfg.Size interchangeable workers, all sharing
// cfg.Registry.
func New(cfg Config) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("clientpool: size must be positive, got %d", cfg.Size)
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	p := &Pool{slots: make(chan contract.Client, cfg.Size)}
	for i := 0; i < cfg.Size; i++ {
		p.slots <- &client{registry: cfg.Registry}
	}
	return p, nil
}

// AllocateClient implements contract.Catalog's client-pool half, blocking
// until a worker is free or ctx is done.
func (p *Pool) AllocateClient(ctx context.Context) (contract.Client, error) {
	select {
	case c := <-p.slots:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RecycleClient returns c to the pool.
func (p *Pool) RecycleClient(c contract.Client) {
	select {
	case p.slots <- c:
	default:
		// Pool was already full — a caller recycled a client it didn't
		// allocate from this pool. Drop it rather than block or panic.
	}
}
