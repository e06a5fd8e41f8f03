// Package integration exercises the real production wiring — HTTP
// peer transport (internal/transport), membership
// (internal/membership) and the Coordinator (internal/engine) —
// across three separate processes' worth of state running in one
// test binary.
//
// internal/engine's own harness_test.go already covers the
// admission/response/duplication scenarios against
// internal/routing/mock, a synchronous in-process double; this
// suite's job is narrower and complementary: prove the same
// Coordinator logic still produces the right outcomes once
// internal/transport's real HTTP sockets and internal/membership's
// Table/Peers/Node sit underneath it instead.
package integration

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/immuvault/internal/blobstore"
	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/engine"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/membership"
	"github.com/dreamware/immuvault/internal/metastore"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/transport"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// vaultPeer bundles one running Engine with the real transport.Server
// and membership.Node underneath it, standing in for one vaultnode
// process.
type vaultPeer struct {
	name   xorspace.Name
	engine *engine.Engine
	server *transport.Server
	events chan routing.Event
}

// vaultCluster is a small fixed-membership section: one elder and
// two adults, every peer already knowing every other peer's address
// (the operator-supplied --peer bootstrap list run.go reads, rather
// than a live MemberJoined handshake — joining handshakes belong to
// the routing layer, which this engine never implements).
type vaultCluster struct {
	t         *testing.T
	elder     *vaultPeer
	adults    []*vaultPeer
	clientEvt chan routing.ClientEvent
	responses chan engine.ClientResponse
	ctx       context.Context
}

func newVaultCluster(t *testing.T, basePort int) *vaultCluster {
	t.Helper()
	identity.EnsureBLSInit()
	keySet, shares, err := identity.NewTestSectionKeySet(1, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	names := make([]xorspace.Name, 3)
	addrs := make([]string, 3)
	for i := range names {
		names[i] = randomName(t)
		addrs[i] = fmt.Sprintf("127.0.0.1:%d", basePort+i)
	}

	table := membership.NewTable()
	table.AddElder(names[0])
	table.AddAdult(names[1])
	table.AddAdult(names[2])
	peers := transport.NewPeers()
	for i, n := range names {
		peers.Set(n, addrs[i], i == 0)
	}

	clientEvt := make(chan routing.ClientEvent, 64)
	responses := make(chan engine.ClientResponse, 64)

	build := func(i int, share *identity.SectionSecretShare) *vaultPeer {
		events := make(chan routing.Event, 256)
		node := &membership.Node{Table: table, Peers: peers, Name: names[i]}
		srv := transport.NewServer(addrs[i], routing.NodeDest(names[i]), events)
		go func() {
			_ = srv.ListenAndServe()
		}()
		t.Cleanup(func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		})

		cfg := engine.Config{
			Name:          names[i],
			Node:          node,
			KeySet:        keySet,
			OwnShare:      share,
			OwnAccountKey: testAccountKey(t),
			Meta:          metastore.NewMemStore(),
			FullAdults:    metastore.NewMemFullAdults(),
			Blobs:         blobstore.NewStore(),
			OpTimeout:     time.Hour,
		}
		if i == 0 {
			cfg.OnClientResponse = func(cr engine.ClientResponse) { responses <- cr }
		}
		e := engine.New(cfg)
		// Only the elder is the client's entry point; the adults get a
		// private client channel nothing ever writes to.
		peerClientEvt := clientEvt
		if i != 0 {
			peerClientEvt = make(chan routing.ClientEvent)
		}
		go e.Run(ctx, events, peerClientEvt, make(chan routing.OperatorCommand))

		return &vaultPeer{name: names[i], engine: e, server: srv, events: events}
	}

	elderPeer := build(0, shares[0])
	adult1 := build(1, nil)
	adult2 := build(2, nil)

	waitForListener(t, addrs[0])
	waitForListener(t, addrs[1])
	waitForListener(t, addrs[2])

	// Synthesize each peer's Connected (and, for the elder, Promoted)
	// event exactly as run.go's startup goroutine does once its own
	// transport is confirmed up.
	for _, p := range []*vaultPeer{elderPeer, adult1, adult2} {
		p.events <- routing.Event{Kind: routing.Connected}
	}
	elderPeer.events <- routing.Event{Kind: routing.Promoted}
	time.Sleep(50 * time.Millisecond)

	return &vaultCluster{
		t:         t,
		elder:     elderPeer,
		adults:    []*vaultPeer{adult1, adult2},
		clientEvt: clientEvt,
		responses: responses,
		ctx:       ctx,
	}
}

func (c *vaultCluster) submit(t *testing.T, req routing.ClientRequest, requester identity.AccountKey) engine.ClientResponse {
	t.Helper()
	id := chunk.NewMessageID()
	rpc := routing.Rpc{Kind: routing.RpcRequest, Request: &routing.RequestMsg{
		Request:   req,
		Requester: requester,
		From:      c.elder.name,
		MessageID: id,
	}}
	payload, err := routing.Encode(rpc)
	require.NoError(t, err)
	c.clientEvt <- routing.ClientEvent{Kind: routing.ClientNewMessage, Message: payload}

	select {
	case cr := <-c.responses:
		require.Equal(t, id, cr.MessageID)
		return cr
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for response to message %s", id)
		return engine.ClientResponse{}
	}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server at %s never became ready", addr)
}

// TestVaultClusterPutGetDelete drives PUT then GET then DELETE over
// real HTTP sockets and the production membership.Node /
// transport.Server wiring instead of the mock routing double
// internal/engine's own tests use.
func TestVaultClusterPutGetDelete(t *testing.T) {
	cluster := newVaultCluster(t, 19301)

	addr := chunk.Address{Name: randomName(t), Tag: chunk.Published}
	data := []byte("hello immutable world")

	putResp := cluster.submit(t, routing.ClientRequest{Kind: routing.ReqPut, Address: addr, Data: data}, nil)
	require.NoError(t, putResp.Response.Err)
	require.Nil(t, putResp.Refund)

	getResp := cluster.submit(t, routing.ClientRequest{Kind: routing.ReqGet, Address: addr}, nil)
	require.NoError(t, getResp.Response.Err)
	require.True(t, bytes.Equal(data, getResp.Response.Data))

	delResp := cluster.submit(t, routing.ClientRequest{Kind: routing.ReqDelete, Address: addr}, nil)
	require.NoError(t, delResp.Response.Err)

	getAfterDelete := cluster.submit(t, routing.ClientRequest{Kind: routing.ReqGet, Address: addr}, nil)
	require.Error(t, getAfterDelete.Response.Err)
}

// TestVaultClusterUnpublishedAccessControl: a non-owner GET of an
// Unpublished chunk is denied, the owner's own GET succeeds.
func TestVaultClusterUnpublishedAccessControl(t *testing.T) {
	cluster := newVaultCluster(t, 19311)

	owner := testAccountKey(t)
	stranger := testAccountKey(t)
	addr := chunk.Address{Name: randomName(t), Tag: chunk.Unpublished}

	putResp := cluster.submit(t, routing.ClientRequest{Kind: routing.ReqPut, Address: addr, Data: []byte("secret")}, owner)
	require.NoError(t, putResp.Response.Err)

	deniedResp := cluster.submit(t, routing.ClientRequest{Kind: routing.ReqGet, Address: addr}, stranger)
	require.Error(t, deniedResp.Response.Err)

	allowedResp := cluster.submit(t, routing.ClientRequest{Kind: routing.ReqGet, Address: addr}, owner)
	require.NoError(t, allowedResp.Response.Err)
	require.Equal(t, []byte("secret"), allowedResp.Response.Data)
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
