package main

import (
	"sync"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/engine"
)

// pendingResponses bridges Engine's single onClientResponse callback
// back to whichever HTTP handler goroutine is blocked waiting for a
// particular MessageID's terminal response. The engine itself is
// single-threaded; this registry is the only place in vaultnode that
// needs a lock, since many client HTTP requests can be in flight
// concurrently.
type pendingResponses struct {
	mu      sync.Mutex
	waiters map[chunk.MessageID]chan engine.ClientResponse
}

func newPendingResponses() *pendingResponses {
	return &pendingResponses{waiters: make(map[chunk.MessageID]chan engine.ClientResponse)}
}

// register allocates the channel a caller should receive on for id,
// before the request that will produce it is ever submitted to the
// engine — avoiding a race where the response arrives before the
// waiter exists.
func (p *pendingResponses) register(id chunk.MessageID) chan engine.ClientResponse {
	ch := make(chan engine.ClientResponse, 1)
	p.mu.Lock()
	p.waiters[id] = ch
	p.mu.Unlock()
	return ch
}

// forget removes id's waiter without delivering anything, for a
// caller that gave up (e.g. a request context was cancelled).
func (p *pendingResponses) forget(id chunk.MessageID) {
	p.mu.Lock()
	delete(p.waiters, id)
	p.mu.Unlock()
}

// deliver is the engine.Config.OnClientResponse callback: it routes
// one terminal ClientResponse to its waiter, if any is still
// registered.
func (p *pendingResponses) deliver(cr engine.ClientResponse) {
	p.mu.Lock()
	ch, ok := p.waiters[cr.MessageID]
	if ok {
		delete(p.waiters, cr.MessageID)
	}
	p.mu.Unlock()
	if ok {
		ch <- cr
	}
}
