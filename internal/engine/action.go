package engine

import (
	"context"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// ActionKind enumerates the closed outbound-action set. run pumps
// any follow-up Action a handler returns until it sees nil.
type ActionKind uint8

const (
	ActForwardClientRequest ActionKind = iota
	ActProxyClientRequest
	ActRespondToClientHandlers
	ActRespondToOurDataHandlers
	ActSendToPeers
	ActSendToSection
	ActRespondToClient
	ActVoteFor
)

// Action is one outbound instruction; only the fields its Kind needs
// are populated.
type Action struct {
	Kind ActionKind

	Rpc     routing.Rpc
	Targets []xorspace.Name
	Section routing.Prefix

	MessageID chunk.MessageID
	Response  routing.OpResponse
	Refund    *int
}

// ClientResponse is the terminal, client-visible outcome of one
// operation (RespondToClient), delivered through Engine's
// configurable callback since the client-handler subsystem itself
// lives outside this engine.
type ClientResponse struct {
	MessageID chunk.MessageID
	Response  routing.OpResponse
	Refund    *int
}

// run executes a and any follow-up Action it produces until the chain
// bottoms out, mirroring the dispatch pump.
func (e *Engine) run(ctx context.Context, a *Action) {
	for a != nil {
		a = e.dispatch(ctx, a)
	}
}

func (e *Engine) dispatch(ctx context.Context, a *Action) *Action {
	switch a.Kind {
	case ActSendToPeers:
		return e.dispatchSendToPeers(ctx, a)

	case ActSendToSection:
		e.sendEncoded(ctx, routing.SectionDest(e.Node.OurPrefix()), routing.SectionDest(a.Section), a.Rpc, "SendToSection")
		return nil

	case ActRespondToOurDataHandlers:
		prefix := e.Node.OurPrefix()
		e.sendEncoded(ctx, routing.SectionDest(prefix), routing.SectionDest(prefix), a.Rpc, "RespondToOurDataHandlers")
		return nil

	case ActRespondToClientHandlers:
		if e.Role.Client != nil {
			e.Role.Client.Forward(a.Rpc)
			return nil
		}
		return &Action{Kind: ActSendToSection, Rpc: a.Rpc, Section: e.Node.OurPrefix()}

	case ActForwardClientRequest, ActProxyClientRequest:
		if e.Role.Client != nil {
			e.Role.Client.Forward(a.Rpc)
		}
		return nil

	case ActRespondToClient:
		if e.onClientResponse != nil {
			e.onClientResponse(ClientResponse{MessageID: a.MessageID, Response: a.Response, Refund: a.Refund})
		} else {
			e.log.WithField("message_id", a.MessageID.String()).Warn("engine: no client response sink configured, dropping final response")
		}
		return nil

	case ActVoteFor:
		payload, err := routing.Encode(a.Rpc)
		if err != nil {
			e.log.WithError(err).Error("engine: encode rpc for VoteFor")
			return nil
		}
		if err := e.Node.VoteFor(ctx, payload); err != nil {
			e.log.WithError(err).Warn("engine: VoteFor failed")
		}
		return nil

	default:
		e.log.WithField("kind", a.Kind).Error("engine: unknown action kind")
		return nil
	}
}

func (e *Engine) sendEncoded(ctx context.Context, src, dst routing.Destination, rpc routing.Rpc, actionName string) {
	payload, err := routing.Encode(rpc)
	if err != nil {
		e.log.WithError(err).WithField("action", actionName).Error("engine: encode rpc failed")
		return
	}
	if err := e.Node.SendMessage(ctx, src, dst, payload); err != nil {
		e.log.WithError(err).WithField("action", actionName).Warn("engine: send failed")
	}
}

// dispatchSendToPeers realizes SendToPeers{targets,rpc}: for each
// target, accumulate locally if the target is us, else
// send_message(Node→Node).
func (e *Engine) dispatchSendToPeers(ctx context.Context, a *Action) *Action {
	for _, t := range a.Targets {
		if t == e.Name {
			e.handleLocalDispatch(ctx, a.Rpc)
			continue
		}
		e.sendEncoded(ctx, routing.NodeDest(e.Name), routing.NodeDest(t), a.Rpc, "SendToPeers")
	}
	return nil
}

// handleLocalDispatch serves a.Rpc against this node's own holder
// state instead of looping it over the network, then feeds the result
// straight into response processing exactly as if a round trip had
// occurred.
func (e *Engine) handleLocalDispatch(ctx context.Context, rpc routing.Rpc) {
	switch rpc.Kind {
	case routing.RpcRequest:
		resp := e.serveHolderRequest(rpc.Request.Request)
		e.handleInboundResponse(ctx, &routing.ResponseMsg{
			Requester: rpc.Request.Requester,
			Response:  resp,
			From:      e.Name,
			MessageID: rpc.Request.MessageID,
		})
	case routing.RpcDuplicate:
		resp := e.serveDuplicate(*rpc.Duplicate)
		e.handleInboundResponse(ctx, &routing.ResponseMsg{
			Response:  resp,
			From:      e.Name,
			MessageID: rpc.Duplicate.MessageID,
		})
	default:
		e.log.WithField("kind", rpc.Kind.String()).Warn("engine: SendToPeers target is us for an unsupported rpc kind")
	}
}
