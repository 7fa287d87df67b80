package manager

import (
	"context"
	"fmt"
	"sort"

	"github.com/cuemby/txmgr/pkg/future"
	"github.com/cuemby/txmgr/pkg/txlog"
	"github.com/cuemby/txmgr/pkg/txrecord"
)

// Enable transitions the manager into the Enabled state: valid from Initial
// or Disabled. It opens the log if a matching status/segment pair exists,
// creates one otherwise, and falls back to Recover on any mismatch.
// Re-enabling from Disabled additionally requires the prior drain to have
// finished (remainingTerminating == 0).
func (m *Manager) Enable() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Initial && m.state != Disabled {
		return illegalState("enable", "manager is %s, not Initial or Disabled", m.state)
	}
	if m.state == Disabled && m.remainingTerminating != 0 {
		return illegalState("enable", "previous disable is still draining %d records", m.remainingTerminating)
	}

	now := m.now()
	var l *txlog.Log
	var err error

	switch {
	case !txlog.Exists(m.cfg.SysDir):
		l, err = txlog.Create(m.cfg.SysDir, m.cfg.MaxLogSize, now, m.logger)
		if err != nil {
			// No status file, but segments may still be on disk.
			m.logger.Warn().Err(err).Msg("no status file and log creation failed, invoking recovery")
			l, err = txlog.Recover(m.cfg.SysDir, m.cfg.MaxLogSize, now, m.logger)
		}
	default:
		l, err = txlog.Open(m.cfg.SysDir, m.cfg.MaxLogSize, m.logger)
		if err != nil {
			m.logger.Warn().Err(err).Msg("log inconsistent on enable, invoking recovery")
			l, err = txlog.Recover(m.cfg.SysDir, m.cfg.MaxLogSize, now, m.logger)
		}
	}
	if err != nil {
		return fmt.Errorf("txmgr: enable failed: %w", err)
	}

	m.log = l
	m.lastCommitted = l.LastCommitted()
	m.lastPrepared = l.LastCommitted()
	m.state = Enabled
	m.logger.Info().Int64("last_committed", m.lastCommitted).Msg("transaction manager enabled")
	return nil
}

// Disable transitions the manager out of Enabled. It is valid from any
// state; from Enabled it walks every live record and schedules either a
// commit (Sealed records, when abort is false) or a rollback, then returns a
// future that resolves once every scheduled drain has terminated and the
// log is closed.
func (m *Manager) Disable(abort bool) *future.Future[bool] {
	m.mu.Lock()

	if m.state != Enabled {
		m.mu.Unlock()
		return future.Resolved(true, nil)
	}

	result := future.New[bool]()
	m.disableResult = result
	m.remainingTerminating = 1 // held until the walk below finishes

	var toCommit []*txrecord.Record
	var toRollback []*txrecord.Record

	for _, rec := range m.byWriteID {
		if rec.Status.Terminal() || rec.Status == txrecord.Committing || rec.Status == txrecord.RollingBack {
			continue
		}
		m.remainingTerminating++
		if rec.Status == txrecord.Sealed && !abort {
			// Leave Status as Sealed: commitOne makes the Sealed -> Committing
			// transition itself, the same way the normal commit path does.
			toCommit = append(toCommit, rec)
		} else {
			rec.Status = txrecord.RollingBack
			toRollback = append(toRollback, rec)
		}
	}

	sort.Slice(toCommit, func(i, j int) bool { return toCommit[i].PrepareID < toCommit[j].PrepareID })

	m.state = Disabled
	m.mu.Unlock()

	ctx := context.Background()
	if len(toCommit) > 0 {
		go m.runBatchedCommit(ctx, toCommit)
	}
	for _, rec := range toRollback {
		go m.doRollback(ctx, rec, rec.EnlistedStores())
	}

	m.mu.Lock()
	m.remainingTerminating--
	if m.remainingTerminating == 0 {
		m.finishDisable()
	}
	m.mu.Unlock()

	return result
}

// finishDisable closes the log and resolves the pending disable future.
// Caller must hold mu.
func (m *Manager) finishDisable() {
	if m.log != nil {
		if err := m.log.Close(nil, m.now()); err != nil {
			m.logger.Warn().Err(err).Msg("error closing transaction log on disable")
		}
	}
	if m.disableResult != nil {
		m.disableResult.Respond(true, nil)
		m.disableResult = nil
	}
	m.logger.Info().Msg("transaction manager disabled")
}

// Close shuts the manager down: if Enabled, disables (aborting iff cause is
// non-nil) and waits for the drain, then marks the manager Closed.
func (m *Manager) Close(cause error) error {
	m.mu.Lock()
	enabled := m.state == Enabled
	m.mu.Unlock()

	if enabled {
		result := m.Disable(cause != nil)
		if _, err := result.Wait(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.state = Closed
	m.mu.Unlock()
	return nil
}
