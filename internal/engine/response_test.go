package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/metastore"
	"github.com/dreamware/immuvault/internal/opledger"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/vaulterr"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// seedMetadata writes addr's metadata directly, bypassing admission,
// for tests that need a record with a known holder set to already
// exist before driving response handling.
func seedMetadata(t *testing.T, store metastore.Store, addr chunk.Address, holders ...xorspace.Name) {
	t.Helper()
	meta := chunk.NewMetadata()
	for _, h := range holders {
		meta.AddHolder(h)
	}
	require.NoError(t, store.Put(addr, meta))
}

// TestDeleteReducesHoldersProgressively: a DELETE
// against a three-holder record removes one holder per response and
// only erases the metadata record once the last holder has concluded
// — and only then does the client see the terminal response.
func TestDeleteReducesHoldersProgressively(t *testing.T) {
	ctx := context.Background()
	a, b, c := randomName(t), randomName(t), randomName(t)
	e, get, meta := newSoloEngine(t, []xorspace.Name{a, b, c})

	addr := newAddress(t, chunk.Published)
	seedMetadata(t, meta, addr, a, b, c)

	id := newMessageID(t)
	e.admitDelete(ctx, routing.ClientRequest{Kind: routing.ReqDelete, Address: addr}, testAccountKey(t), id)
	assert.Empty(t, get(), "DELETE admission itself must not resolve the client yet")

	e.handleInboundResponse(ctx, &routing.ResponseMsg{Response: routing.OpResponse{Kind: routing.RespMutation}, From: a, MessageID: id})
	assert.Empty(t, get(), "one of three holders concluding must not resolve the client yet")
	remaining, err := meta.Get(addr)
	require.NoError(t, err)
	assert.ElementsMatch(t, []xorspace.Name{b, c}, remaining.HolderList())

	e.handleInboundResponse(ctx, &routing.ResponseMsg{Response: routing.OpResponse{Kind: routing.RespMutation}, From: b, MessageID: id})
	assert.Empty(t, get(), "two of three holders concluding must not resolve the client yet")
	remaining, err = meta.Get(addr)
	require.NoError(t, err)
	assert.ElementsMatch(t, []xorspace.Name{c}, remaining.HolderList())

	e.handleInboundResponse(ctx, &routing.ResponseMsg{Response: routing.OpResponse{Kind: routing.RespMutation}, From: c, MessageID: id})
	responses := get()
	require.Len(t, responses, 1)
	assert.NoError(t, responses[0].Response.Err)

	_, err = meta.Get(addr)
	assert.ErrorIs(t, err, metastore.ErrNotFound, "the record must be removed entirely once the last holder concludes")
}

// TestDeleteAnyHolderErrorSurfacesOnConclusion covers AnyError(): if
// any one holder reports an error, the client-visible outcome carries
// that error once the op concludes, even though the other holders
// succeeded.
func TestDeleteAnyHolderErrorSurfacesOnConclusion(t *testing.T) {
	ctx := context.Background()
	a, b := randomName(t), randomName(t)
	e, get, meta := newSoloEngine(t, []xorspace.Name{a, b})

	addr := newAddress(t, chunk.Published)
	seedMetadata(t, meta, addr, a, b)

	id := newMessageID(t)
	e.admitDelete(ctx, routing.ClientRequest{Kind: routing.ReqDelete, Address: addr}, testAccountKey(t), id)

	e.handleInboundResponse(ctx, &routing.ResponseMsg{Response: routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrMutationFailed}, From: a, MessageID: id})
	assert.Empty(t, get())
	e.handleInboundResponse(ctx, &routing.ResponseMsg{Response: routing.OpResponse{Kind: routing.RespMutation}, From: b, MessageID: id})

	responses := get()
	require.Len(t, responses, 1)
	assert.ErrorIs(t, responses[0].Response.Err, vaulterr.ErrMutationFailed)
}

// TestDuplicateMessageIDRejected: a second admission attempt reusing
// a message id still live in the operation ledger is rejected
// outright, and the original op is left completely untouched.
func TestDuplicateMessageIDRejected(t *testing.T) {
	ctx := context.Background()
	holders := []xorspace.Name{randomName(t), randomName(t), randomName(t)}
	e, get, _ := newSoloEngine(t, holders)

	addr1 := newAddress(t, chunk.Published)
	addr2 := newAddress(t, chunk.Published)
	requester := testAccountKey(t)
	id := newMessageID(t)

	e.admitPut(ctx, routing.ClientRequest{Kind: routing.ReqPut, Address: addr1, Data: []byte("first")}, requester, id)
	assert.Empty(t, get(), "the first PUT has no holder replies yet, so it must not have concluded")

	e.admitPut(ctx, routing.ClientRequest{Kind: routing.ReqPut, Address: addr2, Data: []byte("second")}, requester, id)
	responses := get()
	require.Len(t, responses, 1)
	assert.ErrorIs(t, responses[0].Response.Err, vaulterr.ErrDuplicateMessageID)

	op := e.Role.Data.Ledger.Get(id)
	require.NotNil(t, op, "the original op must still be live under this message id")
	assert.Equal(t, opledger.OpPut, op.Type)
	assert.Equal(t, addr1, op.Request.Address)
}
