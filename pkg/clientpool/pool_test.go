package clientpool

import (
	"context"
	"testing"

	"github.com/cuemby/txmgr/pkg/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct{ id string }

func (s fakeStore) ID() string   { return s.id }
func (s fakeStore) Path() string { return s.id }
func (s fakeStore) Prepare(context.Context, int64, int64) (contract.PrepareResult, error) {
	return contract.Prepared, nil
}
func (s fakeStore) SealPrepare(context.Context, int64) (string, error) { return "{}", nil }
func (s fakeStore) Commit(context.Context, int64) error                { return nil }
func (s fakeStore) Rollback(context.Context, int64) error              { return nil }

func TestRegisteredTriggerRuns(t *testing.T) {
	reg := NewRegistry()
	called := false
	reg.Register("store-a", "validate", func(ctx context.Context, store contract.ObjectStore, txID int64) error {
		called = true
		return nil
	})

	pool, err := New(Config{Size: 1, Registry: reg})
	require.NoError(t, err)

	ctx := context.Background()
	c, err := pool.AllocateClient(ctx)
	require.NoError(t, err)
	defer pool.RecycleClient(c)

	require.NoError(t, c.RunTrigger(ctx, "validate", fakeStore{id: "store-a"}, -4))
	assert.True(t, called)
}

func TestUnregisteredTriggerPasses(t *testing.T) {
	pool, err := New(Config{Size: 1})
	require.NoError(t, err)

	ctx := context.Background()
	c, err := pool.AllocateClient(ctx)
	require.NoError(t, err)
	defer pool.RecycleClient(c)

	assert.NoError(t, c.RunTrigger(ctx, "validate", fakeStore{id: "store-a"}, -4))
}

func TestAllocateBlocksUntilCapacity(t *testing.T) {
	pool, err := New(Config{Size: 1})
	require.NoError(t, err)

	ctx := context.Background()
	c1, err := pool.AllocateClient(ctx)
	require.NoError(t, err)

	ctx2, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pool.AllocateClient(ctx2)
	assert.Error(t, err, "pool exhausted and context already cancelled")

	pool.RecycleClient(c1)
	c2, err := pool.AllocateClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c2)
}
