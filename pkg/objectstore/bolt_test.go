package objectstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cuemby/txmgr/pkg/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnlister struct{ nextReadID int64 }

func (f *fakeEnlister) Enlist(storeID string, txID int64) (int64, error) {
	return f.nextReadID, nil
}

func TestPutStagesAndCommitPersists(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "data.db"), "widgets", &fakeEnlister{})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, -4, "a", []byte(`{"n":1}`)))

	result, err := store.Prepare(ctx, -4, 1)
	require.NoError(t, err)
	assert.Equal(t, contract.Prepared, result)

	seal, err := store.SealPrepare(ctx, -4)
	require.NoError(t, err)
	assert.Contains(t, seal, `"a"`)

	require.NoError(t, store.Commit(ctx, -4))

	val, ok, err := store.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"n":1}`, string(val))
}

func TestPrepareWithNoStagedWritesReportsNoChanges(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "data.db"), "widgets", &fakeEnlister{})
	require.NoError(t, err)
	defer store.Close()

	result, err := store.Prepare(context.Background(), -4, 1)
	require.NoError(t, err)
	assert.Equal(t, contract.CommittedNoChanges, result)
}

func TestRollbackDiscardsStagedWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "data.db"), "widgets", &fakeEnlister{})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, -4, "a", []byte(`1`)))
	require.NoError(t, store.Rollback(ctx, -4))

	_, ok, err := store.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}
