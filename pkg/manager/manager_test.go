package manager

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cuemby/txmgr/pkg/contract"
	"github.com/cuemby/txmgr/pkg/future"
	"github.com/cuemby/txmgr/pkg/txid"
	"github.com/cuemby/txmgr/pkg/txrecord"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu           sync.Mutex
	id           string
	path         string
	prepareResp  contract.PrepareResult
	prepareErr   error
	seal         string
	prepareCalls []int64
	commitCalls  []int64
	rollbackCalls []int64
}

func newFakeStore(id string) *fakeStore {
	return &fakeStore{id: id, path: id, prepareResp: contract.Prepared, seal: `{"ok":true}`}
}

func (s *fakeStore) ID() string   { return s.id }
func (s *fakeStore) Path() string { return s.path }

func (s *fakeStore) Prepare(ctx context.Context, writeID, prepareID int64) (contract.PrepareResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prepareCalls = append(s.prepareCalls, writeID)
	return s.prepareResp, s.prepareErr
}

func (s *fakeStore) SealPrepare(ctx context.Context, writeID int64) (string, error) {
	return s.seal, nil
}

func (s *fakeStore) Commit(ctx context.Context, writeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitCalls = append(s.commitCalls, writeID)
	return nil
}

func (s *fakeStore) Rollback(ctx context.Context, writeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbackCalls = append(s.rollbackCalls, writeID)
	return nil
}

type fakeClient struct{}

func (fakeClient) RunTrigger(ctx context.Context, kind string, store contract.ObjectStore, txID int64) error {
	return nil
}

type fakeCatalog struct {
	stores map[string]contract.ObjectStore
}

func newFakeCatalog(stores ...*fakeStore) *fakeCatalog {
	c := &fakeCatalog{stores: make(map[string]contract.ObjectStore)}
	for _, s := range stores {
		c.stores[s.id] = s
	}
	return c
}

func (c *fakeCatalog) Store(id string) (contract.ObjectStore, bool) {
	s, ok := c.stores[id]
	return s, ok
}

func (c *fakeCatalog) AllocateClient(ctx context.Context) (contract.Client, error) {
	return fakeClient{}, nil
}

func (c *fakeCatalog) RecycleClient(contract.Client) {}

func newTestManager(t *testing.T, catalog contract.Catalog) *Manager {
	t.Helper()
	dir := t.TempDir()
	m := New(Config{
		SysDir:     dir,
		MaxLogSize: 1 << 20,
		Catalog:    catalog,
		Logger:     zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.Disabled),
	})
	require.NoError(t, m.Enable())
	return m
}

func TestBeginRequiresEnabled(t *testing.T) {
	m := New(Config{Catalog: newFakeCatalog(), Logger: zerolog.Nop()})
	_, err := m.Begin("client-1", nil, false)
	require.Error(t, err)
	var ise *IllegalStateError
	assert.ErrorAs(t, err, &ise)
}

func TestBeginRejectsDuplicateClient(t *testing.T) {
	m := newTestManager(t, newFakeCatalog())
	_, err := m.Begin("client-1", nil, false)
	require.NoError(t, err)

	_, err = m.Begin("client-1", nil, false)
	require.Error(t, err)
}

func TestEnlistAssignsReadIDOnFirstCall(t *testing.T) {
	store := newFakeStore("store-a")
	m := newTestManager(t, newFakeCatalog(store))

	writeID, err := m.Begin("client-1", nil, false)
	require.NoError(t, err)

	readID, err := m.Enlist("store-a", writeID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), readID)

	_, err = m.Enlist("store-a", writeID)
	assert.Error(t, err, "double enlistment must be rejected")
}

func TestCommitEmptyTransactionResolvesCommitted(t *testing.T) {
	m := newTestManager(t, newFakeCatalog())

	writeID, err := m.Begin("client-1", nil, false)
	require.NoError(t, err)

	pending, err := m.Commit(writeID)
	require.NoError(t, err)

	ok, err := pending.Wait()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCommitSingleStoreHappyPath(t *testing.T) {
	store := newFakeStore("store-a")
	m := newTestManager(t, newFakeCatalog(store))

	writeID, err := m.Begin("client-1", nil, false)
	require.NoError(t, err)
	_, err = m.Enlist("store-a", writeID)
	require.NoError(t, err)

	pending, err := m.Commit(writeID)
	require.NoError(t, err)

	ok, err := pending.Wait()
	require.NoError(t, err)
	assert.True(t, ok)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.prepareCalls, 1)
	assert.Len(t, store.commitCalls, 1)
	assert.Equal(t, int64(1), m.lastCommitted)
}

func TestCommitRollsBackOnPrepareFailure(t *testing.T) {
	store := newFakeStore("store-a")
	store.prepareResp = contract.FailedRolledBack
	m := newTestManager(t, newFakeCatalog(store))

	writeID, err := m.Begin("client-1", nil, false)
	require.NoError(t, err)
	_, err = m.Enlist("store-a", writeID)
	require.NoError(t, err)

	pending, err := m.Commit(writeID)
	require.NoError(t, err)

	ok, err := pending.Wait()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRollbackFromInFlight(t *testing.T) {
	store := newFakeStore("store-a")
	m := newTestManager(t, newFakeCatalog(store))

	writeID, err := m.Begin("client-1", nil, false)
	require.NoError(t, err)
	_, err = m.Enlist("store-a", writeID)
	require.NoError(t, err)

	pending, err := m.Rollback(writeID)
	require.NoError(t, err)

	ok, err := pending.Wait()
	require.NoError(t, err)
	assert.False(t, ok)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.rollbackCalls, 1)
}

func TestDisableCommitsSealedRecordsInsteadOfStalling(t *testing.T) {
	store := newFakeStore("store-a")
	m := newTestManager(t, newFakeCatalog(store))

	// Build a record already sitting at Sealed, as one would be caught
	// between runSeal and runBatchedCommit mid-pipeline, and splice it
	// directly into the manager's indexes.
	rec := txrecord.New(txid.GenerateWriteId(1), "client-1", nil, false)
	rec.Enlist("store-a")
	rec.SetSeal("store-a", `{"ok":true}`)

	m.mu.Lock()
	rec.PrepareID = m.lastCommitted + 1
	rec.Status = txrecord.Sealed
	m.byWriteID[rec.WriteID] = rec
	m.byClientID[rec.ClientID] = rec
	m.mu.Unlock()

	result := m.Disable(false)
	ok, err := result.Wait()
	require.NoError(t, err)
	assert.True(t, ok, "disable's future must resolve once the sealed record actually commits")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.commitCalls, 1, "a sealed record must be committed, not stranded, by disable(abort=false)")
}

func TestCommitsAreFIFOAcrossBacklog(t *testing.T) {
	store := newFakeStore("store-a")
	m := newTestManager(t, newFakeCatalog(store))

	const n = 5
	pendings := make([]*future.Future[bool], 0, n)
	for i := 0; i < n; i++ {
		writeID, err := m.Begin(fmt.Sprintf("client-%d", i), nil, false)
		require.NoError(t, err)
		_, err = m.Enlist("store-a", writeID)
		require.NoError(t, err)
		p, err := m.Commit(writeID)
		require.NoError(t, err)
		pendings = append(pendings, p)
	}

	for _, p := range pendings {
		ok, err := p.Wait()
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, int64(n), m.lastCommitted)
}
