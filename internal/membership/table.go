package membership

import (
	"sync"

	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/transport"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// Table is the section-membership half of a production routing.Node:
// who is currently an adult, who is currently an elder. Generalized
// from coordinator.ShardRegistry's assignments map, keyed by routing
// name instead of shard ID.
type Table struct {
	mu     sync.RWMutex
	adults map[xorspace.Name]struct{}
	elders map[xorspace.Name]struct{}
}

// NewTable returns an empty section.
func NewTable() *Table {
	return &Table{adults: make(map[xorspace.Name]struct{}), elders: make(map[xorspace.Name]struct{})}
}

func (t *Table) AddAdult(name xorspace.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.adults[name] = struct{}{}
}

func (t *Table) AddElder(name xorspace.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.adults, name)
	t.elders[name] = struct{}{}
}

func (t *Table) Remove(name xorspace.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.adults, name)
	delete(t.elders, name)
}

func (t *Table) Adults() []xorspace.Name {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]xorspace.Name, 0, len(t.adults))
	for n := range t.adults {
		out = append(out, n)
	}
	return out
}

func (t *Table) Elders() []xorspace.Name {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]xorspace.Name, 0, len(t.elders))
	for n := range t.elders {
		out = append(out, n)
	}
	return out
}

// Node composes a Table with a transport.Peers address book and this
// node's own name/prefix to implement routing.Node in production.
type Node struct {
	Table  *Table
	Peers  *transport.Peers
	Name   xorspace.Name
	Prefix routing.Prefix
}

func (n *Node) OurAdults() []xorspace.Name { return n.Table.Adults() }
func (n *Node) OurElders() []xorspace.Name { return n.Table.Elders() }

func (n *Node) ClosestKnownEldersTo(target xorspace.Name) []xorspace.Name {
	elders := n.Table.Elders()
	xorspace.SortByDistance(elders, target)
	return elders
}

func (n *Node) MatchesOurPrefix(name xorspace.Name) bool { return n.Prefix.Matches(name) }
func (n *Node) OurPrefix() routing.Prefix                { return n.Prefix }
func (n *Node) OurName() xorspace.Name                   { return n.Name }
