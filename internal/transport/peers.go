package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/immuvault/internal/xorspace"
)

// httpClient is shared across every outbound request for connection
// reuse, matching internal/cluster's package-level httpClient.
var httpClient = &http.Client{Timeout: 5 * time.Second}

// Peers is a registry of section-peer addresses this process knows
// how to reach, keyed by routing name. It is the production
// collaborator behind routing.Node.SendMessage for Node
// destinations; Section destinations fan out to every known elder.
type Peers struct {
	mu      sync.RWMutex
	addrs   map[xorspace.Name]string
	elders  map[xorspace.Name]struct{}
}

// NewPeers returns an empty registry.
func NewPeers() *Peers {
	return &Peers{addrs: make(map[xorspace.Name]string), elders: make(map[xorspace.Name]struct{})}
}

// Set records addr ("host:port") as where name can be reached.
func (p *Peers) Set(name xorspace.Name, addr string, isElder bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addrs[name] = addr
	if isElder {
		p.elders[name] = struct{}{}
	} else {
		delete(p.elders, name)
	}
}

// Remove forgets name, e.g. after a MemberLeft departure.
func (p *Peers) Remove(name xorspace.Name) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.addrs, name)
	delete(p.elders, name)
}

// Addr returns the known address for name, if any.
func (p *Peers) Addr(name xorspace.Name) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.addrs[name]
	return a, ok
}

// Elders returns every peer currently marked as an elder.
func (p *Peers) Elders() []xorspace.Name {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]xorspace.Name, 0, len(p.elders))
	for n := range p.elders {
		out = append(out, n)
	}
	return out
}

// All returns every known peer address, for health monitoring.
func (p *Peers) All() map[xorspace.Name]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[xorspace.Name]string, len(p.addrs))
	for n, a := range p.addrs {
		out[n] = a
	}
	return out
}

// PostRPC POSTs a gob-encoded Rpc envelope to the peer's node-unicast
// /rpc endpoint, the transport-level realization of
// send_message(Node→Node).
func PostRPC(ctx context.Context, addr string, encoded []byte) error {
	return postRPC(ctx, baseURL(addr)+"/rpc", encoded)
}

// PostRPCSection POSTs to the peer's section-addressed /rpc/section
// endpoint instead, the transport-level realization of
// send_message(Section→Section) — the distinction matters to
// internal/engine, which only gates Request/Duplicate through the
// Signature Accumulator when they arrive section-addressed.
func PostRPCSection(ctx context.Context, addr string, encoded []byte) error {
	return postRPC(ctx, baseURL(addr)+"/rpc/section", encoded)
}

// baseURL accepts both full "http://host:port" addresses and the bare
// "host:port" form bootstrap lists tend to carry.
func baseURL(addr string) string {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}

func postRPC(ctx context.Context, url string, encoded []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("transport: post %s: status %d", url, resp.StatusCode)
	}
	return nil
}
