package manager

import (
	"sync"
	"time"

	"github.com/cuemby/txmgr/pkg/contract"
	"github.com/cuemby/txmgr/pkg/future"
	"github.com/cuemby/txmgr/pkg/txid"
	"github.com/cuemby/txmgr/pkg/txlog"
	"github.com/cuemby/txmgr/pkg/txrecord"
	"github.com/rs/zerolog"
)

// lifecycleState is the manager's own state machine: Initial → Enabled →
// Disabled → Closed, independent of any single transaction's Status.
type lifecycleState int

const (
	Initial lifecycleState = iota
	Enabled
	Disabled
	Closed
)

func (s lifecycleState) String() string {
	switch s {
	case Initial:
		return "Initial"
	case Enabled:
		return "Enabled"
	case Disabled:
		return "Disabled"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Config configures a Manager. SysDir and MaxLogSize feed txlog directly;
// Catalog supplies stores and the system Client pool.
type Config struct {
	SysDir     string
	MaxLogSize int64
	Catalog    contract.Catalog
	Logger     zerolog.Logger

	// Now, when set, overrides time.Now — used by tests that need
	// deterministic timestamps in log records.
	Now func() time.Time
}

// Manager is the transaction manager core: the single authority over
// transaction identity, the prepare pipeline, the commit log, and the
// lifecycle all of those are gated by.
//
// Every field below is guarded by mu: a single mutex, released for the
// duration of any call into a store or trigger, serializes access instead
// of a cooperative single-threaded run loop with suspension points (see
// DESIGN.md for the reasoning).
type Manager struct {
	cfg    Config
	logger zerolog.Logger

	mu    sync.Mutex
	state lifecycleState

	log *txlog.Log

	txCount       int64
	lastPrepared  int64
	lastCommitted int64

	byWriteID  map[int64]*txrecord.Record
	byClientID map[txrecord.ClientID]*txrecord.Record
	byReadID   map[int64]int

	currentlyPreparing int64
	pendingPrepare      []int64

	remainingTerminating int
	disableResult        *future.Future[bool]
}

// New constructs a Manager in the Initial state. Call Enable before issuing
// any transaction.
func New(cfg Config) *Manager {
	return &Manager{
		cfg:                 cfg,
		logger:              cfg.Logger,
		state:               Initial,
		byWriteID:           make(map[int64]*txrecord.Record),
		byClientID:          make(map[txrecord.ClientID]*txrecord.Record),
		byReadID:            make(map[int64]int),
		currentlyPreparing:  txid.NoTx,
		lastPrepared:        0,
		lastCommitted:       0,
	}
}

func (m *Manager) now() time.Time {
	if m.cfg.Now != nil {
		return m.cfg.Now()
	}
	return time.Now()
}

// State reports the manager's current lifecycle state.
func (m *Manager) State() lifecycleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// checkEnabled asserts the precondition every externally callable operation
// requires. Caller must hold mu.
func (m *Manager) checkEnabled(op string) error {
	if m.state != Enabled {
		return illegalState(op, "manager is %s, not Enabled", m.state)
	}
	return nil
}

// Begin allocates a fresh write id for clientID and indexes a new InFlight
// record under it. No I/O.
func (m *Manager) Begin(clientID txrecord.ClientID, clientTx any, system bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkEnabled("begin"); err != nil {
		return txid.NoTx, err
	}
	if _, exists := m.byClientID[clientID]; exists {
		return txid.NoTx, illegalState("begin", "client %q already has an active transaction", clientID)
	}

	m.txCount++
	writeID := txid.GenerateWriteId(m.txCount)
	rec := txrecord.New(writeID, clientID, clientTx, system)
	m.byWriteID[writeID] = rec
	m.byClientID[clientID] = rec

	m.logger.Debug().Int64("write_id", writeID).Str("client_id", clientID).Msg("began transaction")
	return writeID, nil
}

// Enlist binds storeID into txID's transaction. Called by an
// ObjectStore the first time it observes an unfamiliar write id.
func (m *Manager) Enlist(storeID string, txID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !txid.IsWriteTx(txID) {
		return txid.NoTx, illegalState("enlist", "id %d is not a write id", txID)
	}
	rec, ok := m.byWriteID[txID]
	if !ok {
		return txid.NoTx, illegalState("enlist", "no record for write id %d", txID)
	}

	if rec.ReadID == txid.NoTx {
		if err := m.checkEnabled("enlist"); err != nil {
			return txid.NoTx, err
		}
		rec.ReadID = m.lastPrepared
		m.byReadID[rec.ReadID]++
	}

	if rec.IsEnlisted(storeID) {
		return txid.NoTx, illegalState("enlist", "store %q already enlisted in write %d", storeID, txID)
	}
	if rec.Status != txrecord.InFlight && rec.Status != txrecord.Distributing {
		return txid.NoTx, illegalState("enlist", "write %d is %s, not InFlight or Distributing", txID, rec.Status)
	}

	rec.Enlist(storeID)
	return rec.ReadID, nil
}

// unindex removes a record from every index once it reaches a
// terminal status and decrements its readId's reference count. Caller must
// hold mu.
func (m *Manager) unindex(rec *txrecord.Record) {
	delete(m.byWriteID, rec.WriteID)
	delete(m.byClientID, rec.ClientID)
	if rec.ReadID != txid.NoTx {
		m.byReadID[rec.ReadID]--
		if m.byReadID[rec.ReadID] <= 0 {
			delete(m.byReadID, rec.ReadID)
		}
	}
}

// Snapshot is a point-in-time view of manager status, used by
// pkg/metrics.Collector.
type Snapshot struct {
	State               string
	LastPrepared        int64
	LastCommitted        int64
	PrepareBacklogDepth int
	ByStatus            map[string]int
}

// Snapshot reports the manager's current status without mutating anything.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	byStatus := make(map[string]int)
	for _, rec := range m.byWriteID {
		byStatus[rec.Status.String()]++
	}

	return Snapshot{
		State:               m.state.String(),
		LastPrepared:        m.lastPrepared,
		LastCommitted:       m.lastCommitted,
		PrepareBacklogDepth: len(m.pendingPrepare),
		ByStatus:            byStatus,
	}
}

// terminate transitions rec to a terminal status, unindexes it, resolves its
// pending future if any, and — if the manager is mid-drain (disable in
// progress) — counts it toward remainingTerminating. Caller must hold mu.
func (m *Manager) terminate(rec *txrecord.Record, status txrecord.Status, err error) {
	rec.Terminate(status)
	m.unindex(rec)
	if rec.Pending != nil {
		rec.Pending.Respond(status == txrecord.Committed, err)
	}
	if m.remainingTerminating > 0 {
		m.remainingTerminating--
		if m.remainingTerminating == 0 {
			m.finishDisable()
		}
	}
}
