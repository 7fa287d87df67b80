// Package txrecord implements the per-transaction state machine the manager
// owns one instance of for every in-flight transaction. A TxRecord never
// reaches back into the manager: it is a plain value the manager mutates and
// indexes by writeId and clientId, resolving what would otherwise be a
// cyclic reference between record and manager by giving the manager sole
// ownership.
package txrecord

import (
	"sort"

	"github.com/cuemby/txmgr/pkg/future"
	"github.com/cuemby/txmgr/pkg/txid"
)

// ClientID identifies the owning client fiber; opaque to TxM beyond equality.
type ClientID = string

// Record is one transaction's mutable state.
type Record struct {
	WriteID  int64
	ClientID ClientID
	ClientTx any // opaque handle the catalog's Client pool looks workers up by
	System   bool

	ReadID    int64 // NoTx until first enlistment
	PrepareID int64 // NoTx until prepared

	Status Status

	// sealOrder holds enlisted store ids in ascending order; seals holds
	// the per-store seal fragment once captured. The key set is the
	// enlisted set and, per invariant 6, never shrinks once Status reaches
	// Prepared.
	sealOrder []string
	seals     map[string]*string

	// Pending is the deferred result handed back to the client's commit
	// call, resolved exactly once when the record reaches a terminal
	// status.
	Pending *future.Future[bool]

	onTerminate []func(Status)
}

// New creates a fresh InFlight record for a just-begun transaction.
func New(writeID int64, clientID ClientID, clientTx any, system bool) *Record {
	return &Record{
		WriteID:  writeID,
		ClientID: clientID,
		ClientTx: clientTx,
		System:   system,
		ReadID:   txid.NoTx,
		PrepareID: txid.NoTx,
		Status:   InFlight,
		seals:    make(map[string]*string),
	}
}

// Enlist adds storeID to the enlisted set, idempotently refusing a second
// enlistment of the same store (callers must check IsEnlisted first; this
// only guards against accidental double inserts).
func (r *Record) Enlist(storeID string) {
	if _, ok := r.seals[storeID]; ok {
		return
	}
	r.seals[storeID] = nil
	r.sealOrder = append(r.sealOrder, storeID)
	sort.Strings(r.sealOrder)
}

// IsEnlisted reports whether storeID is part of this transaction.
func (r *Record) IsEnlisted(storeID string) bool {
	_, ok := r.seals[storeID]
	return ok
}

// Unenlist removes storeID from the enlisted set. Used when a store reports
// FailedRolledBack or CommittedNoChanges during prepare.
func (r *Record) Unenlist(storeID string) {
	if _, ok := r.seals[storeID]; !ok {
		return
	}
	delete(r.seals, storeID)
	for i, id := range r.sealOrder {
		if id == storeID {
			r.sealOrder = append(r.sealOrder[:i], r.sealOrder[i+1:]...)
			break
		}
	}
}

// EnlistedStores returns the enlisted store ids in deterministic ascending
// order — the order triggers and seal are applied in, per SPEC_FULL.md's
// resolution of the unspecified trigger-iteration-order open question.
func (r *Record) EnlistedStores() []string {
	out := make([]string, len(r.sealOrder))
	copy(out, r.sealOrder)
	return out
}

// Empty reports whether no store is currently enlisted.
func (r *Record) Empty() bool { return len(r.sealOrder) == 0 }

// SetSeal records storeID's captured seal fragment.
func (r *Record) SetSeal(storeID, seal string) {
	s := seal
	r.seals[storeID] = &s
}

// Seal returns storeID's seal fragment and whether it has been captured yet.
func (r *Record) Seal(storeID string) (string, bool) {
	s, ok := r.seals[storeID]
	if !ok || s == nil {
		return "", false
	}
	return *s, true
}

// UnsealedStores returns enlisted stores whose seal has not yet been
// captured, in deterministic order.
func (r *Record) UnsealedStores() []string {
	var out []string
	for _, id := range r.sealOrder {
		if r.seals[id] == nil {
			out = append(out, id)
		}
	}
	return out
}

// OnTerminate registers a callback invoked once, after the record's status
// is set to a terminal value. If the record is already terminal the
// callback runs immediately.
func (r *Record) OnTerminate(fn func(Status)) {
	if r.Status.Terminal() {
		fn(r.Status)
		return
	}
	r.onTerminate = append(r.onTerminate, fn)
}

// Terminate transitions the record to a terminal status and fires every
// registered termination callback. Calling Terminate on an already-terminal
// record is a no-op guard against double-termination bugs upstream.
func (r *Record) Terminate(status Status) {
	if !status.Terminal() {
		panic("txrecord: Terminate called with non-terminal status " + status.String())
	}
	if r.Status.Terminal() {
		return
	}
	r.Status = status
	callbacks := r.onTerminate
	r.onTerminate = nil
	for _, cb := range callbacks {
		cb(status)
	}
}
