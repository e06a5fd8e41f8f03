package engine

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/immuvault/internal/blobstore"
	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/metastore"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/routing/mock"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// testCluster wires one or more elders and a pool of adult holders
// over the in-process mock routing double, each running its own
// Engine.Run loop exactly as cmd/vaultnode would over a real network
// — just without sockets. It is the harness every end-to-end
// test in this package drives. Client traffic always enters through
// the first elder; the others only participate in accumulation and
// their own (idempotent) post-threshold data handling.
type testCluster struct {
	t      *testing.T
	group  *mock.Group
	keySet *identity.SectionKeySet

	elder      *Engine
	elderName  xorspace.Name
	elderMeta  metastore.Store
	elderMetas []metastore.Store

	adults     map[xorspace.Name]*Engine
	adultNodes map[xorspace.Name]*mock.Node
	adultBlobs map[xorspace.Name]*blobstore.Store

	client    chan routing.ClientEvent
	responses chan ClientResponse

	ctx context.Context
}

// newTestCluster is the single-elder, threshold-1 harness most
// scenarios use: the accumulation round trip (sign -> VoteFor ->
// self-delivered Consensus -> Accumulator.Add reaching threshold
// immediately) stays fully deterministic without a second elder.
func newTestCluster(t *testing.T, numAdults int) *testCluster {
	t.Helper()
	return newTestClusterElders(t, 1, 1, numAdults)
}

func newTestClusterElders(t *testing.T, numElders, threshold, numAdults int) *testCluster {
	t.Helper()
	identity.EnsureBLSInit()
	keySet, shares, err := identity.NewTestSectionKeySet(numElders, threshold)
	require.NoError(t, err)

	group := mock.NewGroup()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	responses := make(chan ClientResponse, 64)
	clientEvents := make(chan routing.ClientEvent, 64)

	tc := &testCluster{
		t:          t,
		group:      group,
		keySet:     keySet,
		adults:     make(map[xorspace.Name]*Engine, numAdults),
		adultNodes: make(map[xorspace.Name]*mock.Node, numAdults),
		adultBlobs: make(map[xorspace.Name]*blobstore.Store, numAdults),
		client:     clientEvents,
		responses:  responses,
		ctx:        ctx,
	}

	for i := 0; i < numElders; i++ {
		meta := metastore.NewMemStore()
		name := randomName(t)
		node := mock.NewNode(group, name)
		node.Promote()
		cfg := Config{
			Name:          name,
			Node:          node,
			KeySet:        keySet,
			OwnShare:      shares[i],
			OwnAccountKey: testAccountKey(t),
			Meta:          meta,
			FullAdults:    metastore.NewMemFullAdults(),
			Blobs:         blobstore.NewStore(),
			OpTimeout:     time.Hour,
		}
		events := clientEvents
		if i == 0 {
			// Only the entry elder reports to the client; the rest still
			// reach threshold and run their own data handling, but have
			// nowhere to deliver a terminal response.
			cfg.OnClientResponse = func(cr ClientResponse) { responses <- cr }
		} else {
			events = make(chan routing.ClientEvent)
		}
		elder := New(cfg)
		elder.handleConnected()
		elder.handlePromoted()
		go elder.Run(ctx, node.Inbox(), events, make(chan routing.OperatorCommand))

		tc.elderMetas = append(tc.elderMetas, meta)
		if i == 0 {
			tc.elder = elder
			tc.elderName = name
			tc.elderMeta = meta
		}
	}

	for i := 0; i < numAdults; i++ {
		tc.addAdult(t)
	}
	return tc
}

// addAdult registers and starts one more adult holder in the running
// cluster, for scenarios (duplication) that need to introduce a
// fresh replacement node after the cluster is already up.
func (tc *testCluster) addAdult(t *testing.T) xorspace.Name {
	t.Helper()
	name := randomName(t)
	node := mock.NewNode(tc.group, name)
	blobs := blobstore.NewStore()
	e := New(Config{
		Name:       name,
		Node:       node,
		KeySet:     tc.keySet,
		Meta:       metastore.NewMemStore(),
		FullAdults: metastore.NewMemFullAdults(),
		Blobs:      blobs,
		OpTimeout:  time.Hour,
	})
	e.handleConnected()
	tc.adults[name] = e
	tc.adultNodes[name] = node
	tc.adultBlobs[name] = blobs
	go e.Run(tc.ctx, node.Inbox(), make(chan routing.ClientEvent), make(chan routing.OperatorCommand))
	return name
}

// depart removes an adult from the section and broadcasts MemberLeft
// to the rest of the cluster, matching how a real routing layer would
// react to a peer disconnecting.
func (tc *testCluster) depart(name xorspace.Name) {
	tc.adultNodes[name].Depart()
	tc.group.BroadcastMemberLeft(name)
}

// adultNames returns every adult's name, for assertions that need to
// name a holder without caring which.
func (tc *testCluster) adultNames() []xorspace.Name {
	out := make([]xorspace.Name, 0, len(tc.adults))
	for n := range tc.adults {
		out = append(out, n)
	}
	return out
}

// submit encodes req as an unsigned client request and feeds it
// through the elder's client-transport channel, the same path
// cmd/vaultnode's client API would drive a real PUT/GET/DELETE
// through.
func (tc *testCluster) submit(t *testing.T, kind routing.RequestKind, addr chunk.Address, data []byte, requester identity.AccountKey, id chunk.MessageID) {
	t.Helper()
	rpc := routing.Rpc{Kind: routing.RpcRequest, Request: &routing.RequestMsg{
		Request:   routing.ClientRequest{Kind: kind, Address: addr, Data: data},
		Requester: requester,
		From:      tc.elderName,
		MessageID: id,
	}}
	payload, err := routing.Encode(rpc)
	require.NoError(t, err)
	tc.client <- routing.ClientEvent{Kind: routing.ClientNewMessage, Message: payload}
}

// await blocks for the next ClientResponse, failing the test if none
// arrives within the timeout — every scenario in this package expects
// exactly one terminal response per submitted operation.
func (tc *testCluster) await(t *testing.T) ClientResponse {
	t.Helper()
	select {
	case cr := <-tc.responses:
		return cr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client response")
		return ClientResponse{}
	}
}

// drainNone asserts no client response arrives within a short window,
// for scenarios where a repair round must complete without ever
// surfacing anything to a client (duplication never talks to a
// client handler at all).
func (tc *testCluster) drainNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case cr := <-tc.responses:
		t.Fatalf("unexpected client response: %+v", cr)
	case <-time.After(within):
	}
}

// eventually polls cond until it returns true or timeout elapses,
// for assertions on state a background repair chain converges to
// asynchronously with no client-visible signal.
func (tc *testCluster) eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// nopNode is a routing.Node stub that never actually delivers
// anything: SendMessage and VoteFor are no-ops, so any holder targets
// it names stay in the Sent state forever. It exists for tests that
// drive a single Engine synchronously (no goroutines, no timing) and
// only care about the admission-time decision, never a holder's
// reply — the message-id collision and progressive-response tests
// feed responses back by calling the Engine's handlers directly
// instead of waiting on this Node to deliver anything.
type nopNode struct {
	name   xorspace.Name
	adults []xorspace.Name
	elders []xorspace.Name
}

func (n nopNode) OurAdults() []xorspace.Name                         { return n.adults }
func (n nopNode) OurElders() []xorspace.Name                         { return n.elders }
func (n nopNode) ClosestKnownEldersTo(xorspace.Name) []xorspace.Name { return n.elders }
func (n nopNode) MatchesOurPrefix(xorspace.Name) bool                { return true }
func (n nopNode) OurPrefix() routing.Prefix                          { return routing.Prefix{} }
func (n nopNode) OurName() xorspace.Name                             { return n.name }
func (n nopNode) SendMessage(context.Context, routing.Destination, routing.Destination, []byte) error {
	return nil
}
func (n nopNode) VoteFor(context.Context, []byte) error { return nil }

// newSoloEngine builds a single Elder-role Engine wired to nopNode,
// for tests that drive admission and response handling directly and
// synchronously, without any concurrency to reason about.
func newSoloEngine(t *testing.T, holders []xorspace.Name) (*Engine, func() []ClientResponse, metastore.Store) {
	t.Helper()
	identity.EnsureBLSInit()
	keySet, shares, err := identity.NewTestSectionKeySet(1, 1)
	require.NoError(t, err)
	return newSoloEngineKeys(t, holders, keySet, shares[0])
}

// newSoloEngineKeys is newSoloEngine with an explicit key set, for
// tests that need a threshold the solo engine cannot reach alone.
func newSoloEngineKeys(t *testing.T, holders []xorspace.Name, keySet *identity.SectionKeySet, share *identity.SectionSecretShare) (*Engine, func() []ClientResponse, metastore.Store) {
	t.Helper()
	var mu sync.Mutex
	var seen []ClientResponse
	meta := metastore.NewMemStore()
	e := New(Config{
		Name:          randomName(t),
		Node:          nopNode{name: randomName(t), adults: holders},
		KeySet:        keySet,
		OwnShare:      share,
		OwnAccountKey: testAccountKey(t),
		Meta:          meta,
		FullAdults:    metastore.NewMemFullAdults(),
		Blobs:         blobstore.NewStore(),
		OnClientResponse: func(cr ClientResponse) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, cr)
		},
		OpTimeout: time.Hour,
	})
	e.handleConnected()
	e.handlePromoted()
	get := func() []ClientResponse {
		mu.Lock()
		defer mu.Unlock()
		out := make([]ClientResponse, len(seen))
		copy(out, seen)
		return out
	}
	return e, get, meta
}

func randomName(t *testing.T) xorspace.Name {
	t.Helper()
	var n xorspace.Name
	_, err := rand.Read(n[:])
	require.NoError(t, err)
	return n
}

func testAccountKey(t *testing.T) identity.AccountKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return identity.AccountKey(pub)
}

func newAddress(t *testing.T, tag chunk.Tag) chunk.Address {
	t.Helper()
	return chunk.Address{Name: randomName(t), Tag: tag}
}

func newMessageID(t *testing.T) chunk.MessageID {
	t.Helper()
	return chunk.NewMessageID()
}
