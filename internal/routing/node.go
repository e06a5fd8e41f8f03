package routing

import (
	"context"

	"github.com/dreamware/immuvault/internal/xorspace"
)

// Prefix names the region of XOR-space one section is responsible
// for. A single-section deployment (no cross-section migration) uses
// the zero-length Prefix, which matches every name.
type Prefix struct {
	Bits  int
	Value xorspace.Name
}

// Matches reports whether name falls under this prefix.
func (p Prefix) Matches(name xorspace.Name) bool {
	for i := 0; i < p.Bits; i++ {
		byteIdx, bitIdx := i/8, 7-(i%8)
		a := (p.Value[byteIdx] >> bitIdx) & 1
		b := (name[byteIdx] >> bitIdx) & 1
		if a != b {
			return false
		}
	}
	return true
}

// DestKind distinguishes a single-node destination from a whole
// section addressed by its prefix.
type DestKind uint8

const (
	DestNode DestKind = iota
	DestSection
)

// Destination is the src/dst pair SendMessage and MessageReceived
// carry: either one node or a whole section named by prefix.
type Destination struct {
	Kind   DestKind
	Node   xorspace.Name
	Prefix Prefix
}

func NodeDest(name xorspace.Name) Destination { return Destination{Kind: DestNode, Node: name} }
func SectionDest(p Prefix) Destination        { return Destination{Kind: DestSection, Prefix: p} }

// Node is the routing/overlay layer's interface, consumed but never
// implemented by the core. Membership is exposed as raw, unsorted
// sets; internal/holderselect does the XOR sort once, in one place,
// against whichever address is being resolved right now — the routing
// layer itself has no fixed "distance to" until a call site supplies
// a target.
type Node interface {
	// OurAdults returns the current section adults, unsorted.
	OurAdults() []xorspace.Name
	// OurElders returns the current section elders, unsorted.
	OurElders() []xorspace.Name
	// ClosestKnownEldersTo returns elders (possibly of another
	// section) closest to name, used when a request must be
	// forwarded toward its authority rather than handled locally.
	ClosestKnownEldersTo(name xorspace.Name) []xorspace.Name
	// MatchesOurPrefix reports whether name falls in our section.
	MatchesOurPrefix(name xorspace.Name) bool
	// OurPrefix returns the section prefix we are currently
	// responsible for.
	OurPrefix() Prefix
	// OurName returns this node's own routing name.
	OurName() xorspace.Name
	// SendMessage hands payload to the routing layer for delivery
	// from src to dst. It does not block on the peer's response;
	// responses arrive later as a MessageReceived event.
	SendMessage(ctx context.Context, src, dst Destination, payload []byte) error
	// VoteFor casts this node's vote for a consensus action. The
	// routing layer owns what reaching consensus actually means; the
	// Coordinator only sees the resulting Consensus events.
	VoteFor(ctx context.Context, payload []byte) error
}
