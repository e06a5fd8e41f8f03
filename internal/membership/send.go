package membership

import (
	"context"
	"fmt"

	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/transport"
)

// SendMessage implements routing.Node.SendMessage over HTTP: a Node
// destination is posted directly to its known address; a Section
// destination fans out to every elder this Node currently knows
// about, since in this single-section deployment "the section" is
// simply its elder set.
func (n *Node) SendMessage(ctx context.Context, _, dst routing.Destination, payload []byte) error {
	switch dst.Kind {
	case routing.DestNode:
		addr, ok := n.Peers.Addr(dst.Node)
		if !ok {
			return fmt.Errorf("membership: no known address for %s", dst.Node)
		}
		return transport.PostRPC(ctx, addr, payload)
	case routing.DestSection:
		var firstErr error
		for _, elder := range n.Peers.Elders() {
			addr, ok := n.Peers.Addr(elder)
			if !ok {
				continue
			}
			if err := transport.PostRPCSection(ctx, addr, payload); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	default:
		return fmt.Errorf("membership: unknown destination kind %d", dst.Kind)
	}
}

// VoteFor fans a consensus payload out to every known elder, the
// closest this single-process member can come to mirroring a real
// routing layer's vote aggregation.
func (n *Node) VoteFor(ctx context.Context, payload []byte) error {
	return n.SendMessage(ctx, routing.NodeDest(n.Name), routing.SectionDest(n.Prefix), payload)
}
