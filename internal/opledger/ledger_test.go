package opledger

import (
	"errors"
	"testing"
	"time"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/vaulterr"
	"github.com/dreamware/immuvault/internal/xorspace"
	"github.com/stretchr/testify/require"
)

func newTestOp(holders ...byte) (*IDataOp, []xorspace.Name) {
	names := make([]xorspace.Name, len(holders))
	for i, b := range holders {
		names[i][0] = b
	}
	op := NewIDataOp(Request{}, OpPut, names, time.Now())
	return op, names
}

func TestLedgerInsertRejectsDuplicate(t *testing.T) {
	l := NewLedger()
	op, _ := newTestOp(1, 2, 3)
	id := chunk.NewMessageID()

	require.NoError(t, l.Insert(id, op))
	err := l.Insert(id, op)
	require.ErrorIs(t, err, vaulterr.ErrDuplicateMessageID)
}

func TestLedgerRemoveIfConcludedOnlyWhenDone(t *testing.T) {
	l := NewLedger()
	op, names := newTestOp(1, 2)
	id := chunk.NewMessageID()
	require.NoError(t, l.Insert(id, op))

	require.False(t, l.RemoveIfConcluded(id), "op with pending holders must not be removed")

	op.SetState(names[0], RpcState{Kind: Actioned})
	require.False(t, l.RemoveIfConcluded(id))

	op.SetState(names[1], RpcState{Kind: Actioned})
	require.True(t, l.RemoveIfConcluded(id))
	require.Nil(t, l.Get(id))
}

func TestSweepTimeoutsConcludesStaleOps(t *testing.T) {
	l := NewLedger()
	op, _ := newTestOp(1)
	op.DispatchedAt = time.Now().Add(-time.Hour)
	id := chunk.NewMessageID()
	require.NoError(t, l.Insert(id, op))

	concluded := l.SweepTimeouts(time.Now(), time.Minute)
	require.Contains(t, concluded, id)
	require.True(t, op.Concluded())
}

func TestIDataOpFirstErrorWins(t *testing.T) {
	op, names := newTestOp(1, 2)
	sentinel := errors.New("boom")
	op.SetState(names[0], RpcState{Kind: Actioned})
	op.SetState(names[1], RpcState{Kind: Actioned, Err: sentinel})
	require.ErrorIs(t, op.AnyError(), sentinel)
}

func TestSetStateRejectsUnknownHolder(t *testing.T) {
	op, _ := newTestOp(1)
	var stranger xorspace.Name
	stranger[0] = 99
	require.False(t, op.SetState(stranger, RpcState{Kind: Actioned}))
}

func TestSetStateRejectsRegression(t *testing.T) {
	op, names := newTestOp(1)
	require.True(t, op.SetState(names[0], RpcState{Kind: Actioned}))
	require.False(t, op.SetState(names[0], RpcState{Kind: TimedOut}), "terminal state must not regress")
}
