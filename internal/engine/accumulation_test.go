package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/routing"
)

// TestThresholdAccumulationAcrossElders drives a PUT through a
// three-elder, threshold-2 section: the entry elder's share alone is
// not enough, so the request only proceeds once a second elder has
// seen the circulating copy, contributed its own share, and crossed
// the threshold. Every elder that crosses performs the data handling
// itself, so all three metadata stores converge on the same holder
// set.
func TestThresholdAccumulationAcrossElders(t *testing.T) {
	tc := newTestClusterElders(t, 3, 2, 3)
	addr := newAddress(t, chunk.Published)
	requester := testAccountKey(t)
	data := []byte("threshold-gated payload")

	tc.submit(t, routing.ReqPut, addr, data, requester, newMessageID(t))
	putResp := tc.await(t)
	require.NoError(t, putResp.Response.Err)
	assert.Equal(t, routing.RespMutation, putResp.Response.Kind)

	for i, meta := range tc.elderMetas {
		meta := meta
		tc.eventually(t, 2*time.Second, func() bool {
			m, err := meta.Get(addr)
			return err == nil && len(m.HolderList()) == len(tc.adults)
		})
		m, err := meta.Get(addr)
		require.NoError(t, err, "elder %d metadata", i)
		assert.ElementsMatch(t, tc.adultNames(), m.HolderList(), "elder %d holder set", i)
	}

	tc.submit(t, routing.ReqGet, addr, nil, requester, newMessageID(t))
	getResp := tc.await(t)
	require.NoError(t, getResp.Response.Err)
	assert.Equal(t, data, getResp.Response.Data)
}

// TestUnsignedRequestDoesNotAdmitBelowThreshold pins the negative
// half of the contract: a single elder's share in a threshold-2
// section must never admit the request on its own, so nothing reaches
// a holder and no client response is produced until a second elder
// participates.
func TestUnsignedRequestDoesNotAdmitBelowThreshold(t *testing.T) {
	identity.EnsureBLSInit()
	keySet, shares, err := identity.NewTestSectionKeySet(2, 2)
	require.NoError(t, err)

	e, get, _ := newSoloEngineKeys(t, nil, keySet, shares[0])
	addr := newAddress(t, chunk.Published)

	// The solo engine's nopNode never delivers VoteFor anywhere, so
	// not even the entry elder's own broadcast share reaches its
	// accumulator, let alone a second elder's.
	e.handleAccumulatedRequest(context.Background(), &routing.RequestMsg{
		Request:   routing.ClientRequest{Kind: routing.ReqPut, Address: addr, Data: []byte("x")},
		Requester: testAccountKey(t),
		From:      e.Name,
		MessageID: newMessageID(t),
	})

	assert.Empty(t, get(), "no terminal response may exist below threshold")
	assert.Equal(t, 0, e.Role.Data.Ledger.Len(), "no op may be admitted below threshold")
}
