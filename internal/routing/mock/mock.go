// Package mock is an in-process double for internal/routing.Node:
// single-section (MatchesOurPrefix always true), with SendMessage
// fanning out synchronously into each peer's routing-event channel
// instead of crossing a real network. Used by internal/engine's tests
// to drive multi-node scenarios deterministically, without HTTP or
// real sockets.
package mock

import (
	"context"
	"sync"

	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// Group is a single-section membership shared by every Node minted
// from it.
type Group struct {
	mu     sync.RWMutex
	adults map[xorspace.Name]*Node
	elders map[xorspace.Name]*Node
}

// NewGroup returns an empty section.
func NewGroup() *Group {
	return &Group{adults: make(map[xorspace.Name]*Node), elders: make(map[xorspace.Name]*Node)}
}

// Node is one section peer's routing.Node implementation, backed by
// the shared Group for membership and a per-node inbox for delivery.
type Node struct {
	group *Group
	name  xorspace.Name
	inbox chan routing.Event
}

// NewNode mints a peer named name, initially an adult, registered
// into group. Inbox is buffered generously since this is a test
// double, not a production transport.
func NewNode(group *Group, name xorspace.Name) *Node {
	n := &Node{group: group, name: name, inbox: make(chan routing.Event, 256)}
	group.mu.Lock()
	group.adults[name] = n
	group.mu.Unlock()
	return n
}

// Promote moves this node from the adult set to the elder set,
// mirroring the routing layer's own membership bookkeeping around a
// Promoted event.
func (n *Node) Promote() {
	n.group.mu.Lock()
	defer n.group.mu.Unlock()
	delete(n.group.adults, n.name)
	n.group.elders[n.name] = n
}

// Depart removes this node from the section entirely, simulating a
// MemberLeft departure; it does not itself emit the MemberLeft event
// to other nodes — the caller does that via BroadcastMemberLeft, matching the
// real routing layer's separation of membership change from event
// delivery.
func (n *Node) Depart() {
	n.group.mu.Lock()
	defer n.group.mu.Unlock()
	delete(n.group.adults, n.name)
	delete(n.group.elders, n.name)
}

// Inbox exposes the routing-events channel internal/engine.Engine.Run
// should select on for this node.
func (n *Node) Inbox() <-chan routing.Event { return n.inbox }

// Deliver pushes ev directly into this node's inbox, for tests that
// want to synthesize an event (e.g. MemberLeft) without a real
// SendMessage round trip.
func (n *Node) Deliver(ev routing.Event) { n.inbox <- ev }

func (n *Node) OurAdults() []xorspace.Name {
	n.group.mu.RLock()
	defer n.group.mu.RUnlock()
	out := make([]xorspace.Name, 0, len(n.group.adults))
	for name := range n.group.adults {
		out = append(out, name)
	}
	return out
}

func (n *Node) OurElders() []xorspace.Name {
	n.group.mu.RLock()
	defer n.group.mu.RUnlock()
	out := make([]xorspace.Name, 0, len(n.group.elders))
	for name := range n.group.elders {
		out = append(out, name)
	}
	return out
}

func (n *Node) ClosestKnownEldersTo(target xorspace.Name) []xorspace.Name {
	elders := n.OurElders()
	xorspace.SortByDistance(elders, target)
	return elders
}

func (n *Node) MatchesOurPrefix(xorspace.Name) bool { return true }

func (n *Node) OurPrefix() routing.Prefix { return routing.Prefix{} }

func (n *Node) OurName() xorspace.Name { return n.name }

// SendMessage delivers payload synchronously into the destination
// node's inbox as a MessageReceived event. A Section destination
// fans out to every current elder, the broadcast fabric
// Request/Duplicate accumulation rides on.
func (n *Node) SendMessage(_ context.Context, src, dst routing.Destination, payload []byte) error {
	ev := routing.Event{Kind: routing.MessageReceived, Src: src, Dst: dst, Payload: payload}
	switch dst.Kind {
	case routing.DestNode:
		n.group.mu.RLock()
		target := n.group.adults[dst.Node]
		if target == nil {
			target = n.group.elders[dst.Node]
		}
		n.group.mu.RUnlock()
		if target != nil {
			target.inbox <- ev
		}
	case routing.DestSection:
		n.group.mu.RLock()
		targets := make([]*Node, 0, len(n.group.elders))
		for _, e := range n.group.elders {
			targets = append(targets, e)
		}
		n.group.mu.RUnlock()
		for _, t := range targets {
			t.inbox <- ev
		}
	}
	return nil
}

// VoteFor delivers payload to every elder's inbox as a Consensus
// event, the mock's stand-in for real vote aggregation.
func (n *Node) VoteFor(_ context.Context, payload []byte) error {
	n.group.mu.RLock()
	targets := make([]*Node, 0, len(n.group.elders))
	for _, e := range n.group.elders {
		targets = append(targets, e)
	}
	n.group.mu.RUnlock()
	ev := routing.Event{Kind: routing.Consensus, Payload: payload}
	for _, t := range targets {
		t.inbox <- ev
	}
	return nil
}

// BroadcastMemberLeft delivers a MemberLeft event to every remaining
// node in the group except the departed one, matching how a real
// routing layer's membership change fans out to every section peer.
func (g *Group) BroadcastMemberLeft(name xorspace.Name) {
	g.mu.RLock()
	targets := make([]*Node, 0, len(g.adults)+len(g.elders))
	for _, n := range g.adults {
		targets = append(targets, n)
	}
	for _, n := range g.elders {
		targets = append(targets, n)
	}
	g.mu.RUnlock()
	for _, t := range targets {
		t.Deliver(routing.Event{Kind: routing.MemberLeft, Member: name})
	}
}
