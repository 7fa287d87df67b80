package manager

import (
	"context"

	"github.com/cuemby/txmgr/pkg/contract"
	"github.com/cuemby/txmgr/pkg/txid"
	"github.com/cuemby/txmgr/pkg/txrecord"
)

// kickPipeline pops the next backlog entry, if any, and takes the prepare
// slot on its behalf. Caller must hold mu. The goroutine it spawns runs the
// full prepare → commit/rollback pipeline and, on completion, releases the
// slot and calls kickPipeline again — a uniform drain path that unifies
// "I take the slot" and "I drain the backlog" into one function.
func (m *Manager) kickPipeline() {
	if m.currentlyPreparing != txid.NoTx {
		return
	}
	if len(m.pendingPrepare) == 0 {
		return
	}
	next := m.pendingPrepare[0]
	m.pendingPrepare = m.pendingPrepare[1:]
	m.currentlyPreparing = next

	go m.runTransaction(next)
}

// runTransaction drives one record through prepare → validate → rectify →
// distribute → seal → commit, or rollback on any stage's failure. It holds
// the prepare slot through seal and releases it (kicking the backlog) before
// the commit or rollback step.
func (m *Manager) runTransaction(writeID int64) {
	ctx := context.Background()

	ok, err := m.runPreparePipeline(ctx, writeID)

	m.mu.Lock()
	rec := m.byWriteID[writeID]
	m.currentlyPreparing = txid.NoTx
	m.kickPipeline()
	m.mu.Unlock()

	if rec == nil {
		// Empty-transaction or already-terminated fast paths terminate the
		// record inside the pipeline stages themselves; nothing left to do.
		return
	}

	if !ok {
		m.rollback(ctx, writeID, err)
		return
	}

	m.runBatchedCommit(ctx, []*txrecord.Record{rec})
}

// runPreparePipeline executes prepare, then validate/rectify/distribute/seal
// in sequence, stopping at the first stage that reports failure. It reports
// ok=false for a clean validator/rectifier/distributor rejection and returns
// a non-nil error when the record is missing, a client cannot be allocated,
// or a seal call fails.
//
// The exact validate/rectify/distribute trigger-selection algorithm is
// underspecified upstream (see SPEC_FULL.md); this selects triggers by
// asking the Catalog's Client for each enlisted store in ascending store-id
// order and treats "no trigger registered" as an automatic pass, which
// preserves the documented phase-id and read-only-elsewhere contracts.
func (m *Manager) runPreparePipeline(ctx context.Context, writeID int64) (bool, error) {
	m.mu.Lock()
	rec, ok := m.byWriteID[writeID]
	if !ok {
		m.mu.Unlock()
		return false, illegalState("prepare", "no record for write id %d", writeID)
	}
	if rec.Empty() {
		m.terminate(rec, txrecord.Committed, nil)
		m.mu.Unlock()
		return true, nil
	}
	prepareID := m.lastPrepared + 1
	rec.PrepareID = prepareID
	rec.Status = txrecord.Preparing
	stores := rec.EnlistedStores()
	m.mu.Unlock()

	if !m.runPrepare(ctx, rec, prepareID, stores) {
		return false, nil
	}

	for _, phase := range []struct {
		status txrecord.Status
		kind   string
	}{
		{txrecord.Validating, "validate"},
		{txrecord.Rectifying, "rectify"},
		{txrecord.Distributing, "distribute"},
	} {
		ok, err := m.runTriggerPhase(ctx, rec, phase.status, phase.kind)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if err := m.runSeal(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// runPrepare dispatches store.Prepare to every enlisted store. A
// FailedRolledBack result fails the whole transaction; CommittedNoChanges
// unenlists the store without failing anything; Prepared leaves the store
// enlisted for the remaining phases.
func (m *Manager) runPrepare(ctx context.Context, rec *txrecord.Record, prepareID int64, stores []string) bool {
	catalog := m.cfg.Catalog
	failed := false

	for _, storeID := range stores {
		store, ok := catalog.Store(storeID)
		if !ok {
			continue
		}
		result, err := store.Prepare(ctx, rec.WriteID, prepareID)
		if err != nil {
			m.logger.Warn().Str("store_id", storeID).Int64("write_id", rec.WriteID).Err(err).Msg("store prepare failed")
			failed = true
			m.mu.Lock()
			rec.Unenlist(storeID)
			m.mu.Unlock()
			continue
		}
		switch result {
		case contract.FailedRolledBack:
			failed = true
			m.mu.Lock()
			rec.Unenlist(storeID)
			m.mu.Unlock()
		case contract.CommittedNoChanges:
			m.mu.Lock()
			rec.Unenlist(storeID)
			m.mu.Unlock()
		case contract.Prepared:
			// stays enlisted
		}
	}

	m.mu.Lock()
	empty := rec.Empty()
	if failed {
		if empty {
			m.terminate(rec, txrecord.RolledBack, nil)
		}
		m.mu.Unlock()
		return false
	}
	if empty {
		m.terminate(rec, txrecord.Committed, nil)
		m.mu.Unlock()
		return false
	}
	rec.Status = txrecord.Prepared
	m.mu.Unlock()
	return true
}

// runTriggerPhase advances rec through one of validate/rectify/distribute.
// A store with no registered trigger of kind automatically passes.
func (m *Manager) runTriggerPhase(ctx context.Context, rec *txrecord.Record, status txrecord.Status, kind string) (bool, error) {
	m.mu.Lock()
	rec.Status = status
	stores := rec.EnlistedStores()
	m.mu.Unlock()

	if len(stores) == 0 {
		return true, nil
	}

	client, err := m.cfg.Catalog.AllocateClient(ctx)
	if err != nil {
		return false, err
	}
	defer m.cfg.Catalog.RecycleClient(client)

	phaseTxID := txid.GenerateTxId(rec.WriteID, phaseOf(status))

	for _, storeID := range stores {
		store, ok := m.cfg.Catalog.Store(storeID)
		if !ok {
			continue
		}
		if err := client.RunTrigger(ctx, kind, store, phaseTxID); err != nil {
			m.logger.Info().Str("store_id", storeID).Str("kind", kind).Err(err).Msg("trigger rejected transaction")
			return false, nil
		}
		if kind == "rectify" {
			if err := m.sealStore(ctx, rec, storeID); err != nil {
				return false, err
			}
		}
	}

	if kind == "distribute" {
		// A distributor may have enlisted additional stores; loop until a
		// pass over the current enlisted set adds nothing new.
		for {
			m.mu.Lock()
			after := rec.EnlistedStores()
			m.mu.Unlock()
			if sameSet(stores, after) {
				break
			}
			stores = after
			for _, storeID := range stores {
				store, ok := m.cfg.Catalog.Store(storeID)
				if !ok {
					continue
				}
				if err := client.RunTrigger(ctx, kind, store, phaseTxID); err != nil {
					return false, nil
				}
			}
		}
	}

	return true, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func phaseOf(status txrecord.Status) txid.Phase {
	switch status {
	case txrecord.Validating:
		return txid.PhaseValidating
	case txrecord.Rectifying:
		return txid.PhaseRectifying
	case txrecord.Distributing:
		return txid.PhaseDistributing
	default:
		return txid.PhaseOpen
	}
}

// sealStore captures one store's seal fragment immediately after rectify
// succeeds for it, rather than waiting for every store to finish rectifying.
func (m *Manager) sealStore(ctx context.Context, rec *txrecord.Record, storeID string) error {
	store, ok := m.cfg.Catalog.Store(storeID)
	if !ok {
		return illegalState("seal", "unknown store %q", storeID)
	}
	seal, err := store.SealPrepare(ctx, rec.WriteID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	rec.SetSeal(storeID, seal)
	m.mu.Unlock()
	return nil
}

// runSeal seals every enlisted store whose seal has not yet been captured,
// then marks the record Sealed and advances lastPrepared.
func (m *Manager) runSeal(ctx context.Context, rec *txrecord.Record) error {
	m.mu.Lock()
	unsealed := rec.UnsealedStores()
	m.mu.Unlock()

	for _, storeID := range unsealed {
		if err := m.sealStore(ctx, rec, storeID); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.lastPrepared = rec.PrepareID
	rec.Status = txrecord.Sealed
	m.mu.Unlock()
	return nil
}
