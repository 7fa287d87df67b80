// Package contract declares the interfaces the transaction manager consumes
// from its external collaborators. TxM never constructs these types itself:
// a Catalog supplies ObjectStore instances and a pool of system Clients, and
// the manager only ever calls through the interfaces below. Keeping them in
// their own package (rather than on pkg/manager) lets pkg/objectstore and
// pkg/clientpool implement them without importing the manager.
package contract

import "context"

// PrepareResult is the outcome an ObjectStore reports for one store's
// participation in a transaction's prepare phase.
type PrepareResult int

const (
	// Prepared means the store accepted the write and is holding it open
	// for seal/commit.
	Prepared PrepareResult = iota
	// CommittedNoChanges means the store observed no net effect for this
	// write id (e.g. a write that undid itself) and needs no further
	// participation; it is dropped from the transaction silently.
	CommittedNoChanges
	// FailedRolledBack means the store could not prepare the write and has
	// already rolled itself back; the whole transaction must abort.
	FailedRolledBack
)

func (r PrepareResult) String() string {
	switch r {
	case Prepared:
		return "Prepared"
	case CommittedNoChanges:
		return "CommittedNoChanges"
	case FailedRolledBack:
		return "FailedRolledBack"
	default:
		return "Unknown"
	}
}

// ObjectStore is a per-DBObject storage shard. TxM treats every store as
// opaque beyond this contract: it does not know how a store persists data,
// only how to drive it through a transaction.
type ObjectStore interface {
	// ID returns the store's identifier, stable for the lifetime of the
	// catalog. Used as the key in a TxRecord's seal map and, ordered
	// ascending, as the deterministic iteration order for triggers.
	ID() string

	// Path returns the JSON key this store's seal fragment is written under
	// in a commit log record.
	Path() string

	// Prepare asks the store to stage writeID for the commit attempting to
	// claim prepareID.
	Prepare(ctx context.Context, writeID, prepareID int64) (PrepareResult, error)

	// SealPrepare returns the JSON fragment summarizing writeID's effect on
	// this store. Called exactly once per store per transaction, after all
	// trigger phases have run.
	SealPrepare(ctx context.Context, writeID int64) (string, error)

	// Commit finalizes writeID. Errors here are heuristic: the log record
	// is already durable, so the manager treats a Commit error as a fatal
	// inconsistency rather than a rollback.
	Commit(ctx context.Context, writeID int64) error

	// Rollback discards writeID's staged effect on this store. Errors are
	// logged and swallowed; rollback is the universal recovery path and
	// must not itself fail the caller.
	Rollback(ctx context.Context, writeID int64) error
}

// Worker resolves the per-client serialization helper an ObjectStore uses
// while preparing or sealing a write on behalf of a particular client
// transaction.
type Worker interface {
	// WorkerFor returns the worker bound to writeID's originating client.
	WorkerFor(writeID int64) (any, error)
}

// Client executes application-level logic. TxM uses Client objects as
// ephemeral workers to run validators, rectifiers, and distributors during
// the prepare pipeline.
type Client interface {
	// RunTrigger invokes the named trigger kind ("validate", "rectify",
	// "distribute") against store for the synthetic transaction id txID.
	// A non-nil error fails that phase for the whole transaction.
	RunTrigger(ctx context.Context, kind string, store ObjectStore, txID int64) error
}

// Catalog creates, holds, and enables/disables the transaction manager; it
// supplies store instances by id and a pool of system Client objects used to
// run triggers.
type Catalog interface {
	// Store resolves an ObjectStore by id, or reports ok=false if unknown.
	Store(id string) (ObjectStore, bool)

	// AllocateClient reserves a system Client for trigger execution. The
	// manager returns it via RecycleClient as soon as the validate, rectify
	// or distribute phase that allocated it ends; it does not hold a client
	// until the transaction terminates.
	AllocateClient(ctx context.Context) (Client, error)

	// RecycleClient returns a Client to the pool.
	RecycleClient(Client)
}
