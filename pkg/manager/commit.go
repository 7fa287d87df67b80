package manager

import (
	"context"

	"github.com/cuemby/txmgr/pkg/future"
	"github.com/cuemby/txmgr/pkg/txid"
	"github.com/cuemby/txmgr/pkg/txlog"
	"github.com/cuemby/txmgr/pkg/txrecord"
)

// Commit begins the prepare/commit pipeline for writeID. If the pipeline is
// free and the backlog is empty, the record takes the prepare slot at once
// and a new goroutine runs the whole pipeline for it; otherwise the record is
// enqueued and drained in FIFO order through kickPipeline. Either way Commit
// returns without waiting, and the returned future resolves when the record
// terminates.
func (m *Manager) Commit(writeID int64) (*future.Future[bool], error) {
	m.mu.Lock()

	if err := m.checkEnabled("commit"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	rec, ok := m.byWriteID[writeID]
	if !ok {
		m.mu.Unlock()
		return nil, illegalState("commit", "no record for write id %d", writeID)
	}
	if rec.Status != txrecord.InFlight {
		m.mu.Unlock()
		return nil, illegalState("commit", "write %d is %s, not InFlight", writeID, rec.Status)
	}

	rec.Pending = future.New[bool]()
	rec.Status = txrecord.Enqueued

	takeSlot := m.currentlyPreparing == txid.NoTx && len(m.pendingPrepare) == 0
	if takeSlot {
		m.currentlyPreparing = writeID
	} else {
		m.pendingPrepare = append(m.pendingPrepare, writeID)
	}
	pending := rec.Pending
	m.mu.Unlock()

	if takeSlot {
		go m.runTransaction(writeID)
	} else {
		// The slot may have been free with a nonempty backlog; either way
		// kickPipeline is idempotent and starts draining if nothing else
		// currently holds the slot.
		m.mu.Lock()
		m.kickPipeline()
		m.mu.Unlock()
	}

	return pending, nil
}

// Rollback terminates writeID immediately unless it is already mid-commit or
// mid-rollback, in which case the caller's future resolves alongside
// whichever drain is already underway.
func (m *Manager) Rollback(writeID int64) (*future.Future[bool], error) {
	m.mu.Lock()
	rec, ok := m.byWriteID[writeID]
	if !ok {
		m.mu.Unlock()
		return nil, illegalState("rollback", "no record for write id %d", writeID)
	}
	if rec.Status == txrecord.Committed || rec.Status == txrecord.RolledBack {
		m.mu.Unlock()
		return nil, illegalState("rollback", "write %d already terminal (%s)", writeID, rec.Status)
	}

	if rec.Pending == nil {
		rec.Pending = future.New[bool]()
	}
	pending := rec.Pending

	if rec.Status == txrecord.Committing || rec.Status == txrecord.RollingBack {
		m.mu.Unlock()
		return pending, nil
	}
	rec.Status = txrecord.RollingBack
	stores := rec.EnlistedStores()
	m.mu.Unlock()

	go m.doRollback(context.Background(), rec, stores)

	return pending, nil
}

// rollback is the internal helper the pipeline calls when a prepare-phase
// stage fails; it reuses doRollback after moving the record into RollingBack.
func (m *Manager) rollback(ctx context.Context, writeID int64, cause error) {
	m.mu.Lock()
	rec, ok := m.byWriteID[writeID]
	if !ok {
		m.mu.Unlock()
		return
	}
	if rec.Status == txrecord.Committed || rec.Status == txrecord.RolledBack {
		m.mu.Unlock()
		return
	}
	rec.Status = txrecord.RollingBack
	stores := rec.EnlistedStores()
	m.mu.Unlock()

	if cause != nil {
		m.logger.Warn().Int64("write_id", writeID).Err(cause).Msg("rolling back after pipeline error")
	}
	m.doRollback(ctx, rec, stores)
}

// doRollback dispatches store.Rollback to every enlisted store, swallowing
// and logging errors, then terminates the record.
func (m *Manager) doRollback(ctx context.Context, rec *txrecord.Record, stores []string) {
	for _, storeID := range stores {
		store, ok := m.cfg.Catalog.Store(storeID)
		if !ok {
			continue
		}
		if err := store.Rollback(ctx, rec.WriteID); err != nil {
			m.logger.Warn().Str("store_id", storeID).Int64("write_id", rec.WriteID).Err(err).Msg("store rollback failed, continuing")
		}
	}

	m.mu.Lock()
	m.terminate(rec, txrecord.RolledBack, nil)
	m.mu.Unlock()
}

// runBatchedCommit commits a prepareId-ascending batch of Sealed records.
// Outside of disable()'s drain this is always called with a
// single-element slice, but the log-append and store-commit steps are
// identical either way.
func (m *Manager) runBatchedCommit(ctx context.Context, records []*txrecord.Record) {
	for _, rec := range records {
		m.commitOne(ctx, rec)
	}
}

func (m *Manager) commitOne(ctx context.Context, rec *txrecord.Record) {
	m.mu.Lock()
	if rec.Status != txrecord.Sealed {
		m.mu.Unlock()
		return
	}
	rec.Status = txrecord.Committing

	if rec.Empty() {
		m.terminate(rec, txrecord.Committed, nil)
		m.mu.Unlock()
		return
	}
	if rec.PrepareID != m.lastCommitted+1 {
		m.mu.Unlock()
		panic(&FatalInconsistencyError{
			WriteID: rec.WriteID,
			Cause:   illegalState("commit", "prepare id %d is not lastCommitted+1 (%d)", rec.PrepareID, m.lastCommitted+1),
		})
	}

	entries := make([]txlog.SealEntry, 0, len(rec.EnlistedStores()))
	for _, storeID := range rec.EnlistedStores() {
		seal, _ := rec.Seal(storeID)
		store, ok := m.cfg.Catalog.Store(storeID)
		path := storeID
		if ok {
			path = store.Path()
		}
		entries = append(entries, txlog.SealEntry{Path: path, Seal: seal})
	}
	prepareID := rec.PrepareID
	stores := rec.EnlistedStores()
	now := m.now()
	m.mu.Unlock()

	if err := m.log.AppendCommit(prepareID, now, entries); err != nil {
		// The log write itself failing before durability isn't the fatal
		// case — no store has been told to commit yet — so this transaction
		// rolls back instead of panicking.
		m.logger.Error().Int64("write_id", rec.WriteID).Err(err).Msg("failed to append commit record, rolling back")
		m.mu.Lock()
		m.terminate(rec, txrecord.RolledBack, err)
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.lastCommitted = prepareID
	m.mu.Unlock()

	var commitErr error
	for _, storeID := range stores {
		store, ok := m.cfg.Catalog.Store(storeID)
		if !ok {
			continue
		}
		if err := store.Commit(ctx, rec.WriteID); err != nil {
			commitErr = &FatalInconsistencyError{WriteID: rec.WriteID, StoreID: storeID, Cause: err}
			m.logger.Error().Str("store_id", storeID).Int64("write_id", rec.WriteID).Err(err).
				Msg("store commit failed after durable log write — log and store state may now disagree")
		}
	}

	m.mu.Lock()
	if commitErr != nil {
		m.terminate(rec, txrecord.RolledBack, commitErr)
		m.mu.Unlock()
		panic(commitErr)
	}
	m.terminate(rec, txrecord.Committed, nil)
	m.mu.Unlock()
}
