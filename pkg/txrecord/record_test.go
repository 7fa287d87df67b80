package txrecord

import (
	"testing"

	"github.com/cuemby/txmgr/pkg/txid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordDefaults(t *testing.T) {
	r := New(txid.GenerateWriteId(1), "client-1", "tx-handle", false)
	assert.Equal(t, InFlight, r.Status)
	assert.Equal(t, txid.NoTx, r.ReadID)
	assert.Equal(t, txid.NoTx, r.PrepareID)
	assert.True(t, r.Empty())
}

func TestEnlistOrderingIsDeterministic(t *testing.T) {
	r := New(txid.GenerateWriteId(1), "client-1", nil, false)
	r.Enlist("store-b")
	r.Enlist("store-a")
	r.Enlist("store-c")
	assert.Equal(t, []string{"store-a", "store-b", "store-c"}, r.EnlistedStores())
}

func TestUnenlistRemovesStore(t *testing.T) {
	r := New(txid.GenerateWriteId(1), "client-1", nil, false)
	r.Enlist("s1")
	r.Enlist("s2")
	r.Unenlist("s1")
	assert.False(t, r.IsEnlisted("s1"))
	assert.Equal(t, []string{"s2"}, r.EnlistedStores())
}

func TestSealTracking(t *testing.T) {
	r := New(txid.GenerateWriteId(1), "client-1", nil, false)
	r.Enlist("s1")
	r.Enlist("s2")
	assert.ElementsMatch(t, []string{"s1", "s2"}, r.UnsealedStores())

	r.SetSeal("s1", `{"a":1}`)
	seal, ok := r.Seal("s1")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, seal)
	assert.Equal(t, []string{"s2"}, r.UnsealedStores())
}

func TestTerminateFiresCallbacksOnce(t *testing.T) {
	r := New(txid.GenerateWriteId(1), "client-1", nil, false)
	var calls int
	var lastStatus Status
	r.OnTerminate(func(s Status) {
		calls++
		lastStatus = s
	})

	r.Terminate(Committed)
	r.Terminate(RolledBack) // no-op, already terminal

	assert.Equal(t, 1, calls)
	assert.Equal(t, Committed, lastStatus)
	assert.Equal(t, Committed, r.Status)
}

func TestOnTerminateRunsImmediatelyIfAlreadyTerminal(t *testing.T) {
	r := New(txid.GenerateWriteId(1), "client-1", nil, false)
	r.Terminate(RolledBack)

	var called bool
	r.OnTerminate(func(Status) { called = true })
	assert.True(t, called)
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, Committed.Terminal())
	assert.True(t, RolledBack.Terminal())
	assert.False(t, InFlight.Terminal())

	assert.True(t, Preparing.InPreparePipeline())
	assert.True(t, Sealing.InPreparePipeline())
	assert.False(t, Sealed.InPreparePipeline())
	assert.False(t, InFlight.InPreparePipeline())
}
