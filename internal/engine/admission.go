package engine

import (
	"context"
	"time"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/holderselect"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/opledger"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/vaulterr"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// admit realizes request admission for a client- or app-sourced
// request that has already cleared the signature accumulator's
// threshold. It never runs for node-sourced GetForCopy traffic,
// which bypasses admission entirely (see accumulation.go).
func (e *Engine) admit(ctx context.Context, req routing.ClientRequest, requester identity.AccountKey, messageID chunk.MessageID) {
	if e.Role.Data == nil {
		e.log.Warn("engine: dropping admission, no data handler yet")
		return
	}
	switch req.Kind {
	case routing.ReqPut:
		e.admitPut(ctx, req, requester, messageID)
	case routing.ReqGet:
		e.admitGet(ctx, req, requester, messageID)
	case routing.ReqDelete:
		e.admitDelete(ctx, req, requester, messageID)
	}
}

func (e *Engine) admitPut(ctx context.Context, req routing.ClientRequest, requester identity.AccountKey, messageID chunk.MessageID) {
	dh := e.Role.Data
	if _, err := dh.Meta.Get(req.Address); err == nil {
		// Metadata already exists: Published PUTs are idempotent,
		// Unpublished PUTs are always rejected.
		if req.Address.Tag == chunk.Published {
			e.run(ctx, e.respond(messageID, routing.OpResponse{Kind: routing.RespMutation}, nil))
			return
		}
		refund := vaulterr.CostOfPut
		e.run(ctx, e.respond(messageID, routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrDataExists}, &refund))
		return
	}

	holders := e.selectHolders(req.Address)
	op := opledger.NewIDataOp(opledger.Request{Address: req.Address, Requester: requester, Data: req.Data}, opledger.OpPut, holders, time.Now())
	if err := dh.Ledger.Insert(messageID, op); err != nil {
		refund := vaulterr.CostOfPut
		e.run(ctx, e.respond(messageID, routing.OpResponse{Kind: routing.RespMutation, Err: err}, &refund))
		return
	}
	e.run(ctx, &Action{Kind: ActSendToPeers, Targets: holders, Rpc: routing.Rpc{
		Kind: routing.RpcRequest,
		Request: &routing.RequestMsg{
			Request:   req,
			Requester: requester,
			From:      e.Name,
			MessageID: messageID,
		},
	}})
}

func (e *Engine) admitGet(ctx context.Context, req routing.ClientRequest, requester identity.AccountKey, messageID chunk.MessageID) {
	dh := e.Role.Data
	meta, err := dh.Meta.Get(req.Address)
	if err != nil {
		e.run(ctx, e.respond(messageID, routing.OpResponse{Kind: routing.RespGetIData, Err: vaulterr.ErrNoSuchData}, nil))
		return
	}
	if req.Address.Tag == chunk.Unpublished && (meta.Owner == nil || !meta.Owner.Equal(requester)) {
		e.run(ctx, e.respond(messageID, routing.OpResponse{Kind: routing.RespGetIData, Err: vaulterr.ErrAccessDenied}, nil))
		return
	}
	targets := meta.HolderList()
	op := opledger.NewIDataOp(opledger.Request{Address: req.Address, Requester: requester}, opledger.OpGet, targets, time.Now())
	if err := dh.Ledger.Insert(messageID, op); err != nil {
		e.run(ctx, e.respond(messageID, routing.OpResponse{Kind: routing.RespGetIData, Err: err}, nil))
		return
	}
	e.run(ctx, &Action{Kind: ActSendToPeers, Targets: targets, Rpc: routing.Rpc{
		Kind: routing.RpcRequest,
		Request: &routing.RequestMsg{
			Request:   req,
			Requester: requester,
			From:      e.Name,
			MessageID: messageID,
		},
	}})
}

func (e *Engine) admitDelete(ctx context.Context, req routing.ClientRequest, requester identity.AccountKey, messageID chunk.MessageID) {
	dh := e.Role.Data
	meta, err := dh.Meta.Get(req.Address)
	if err != nil {
		e.run(ctx, e.respond(messageID, routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrNoSuchData}, nil))
		return
	}
	if req.Address.Tag == chunk.Unpublished && (meta.Owner == nil || !meta.Owner.Equal(requester)) {
		e.run(ctx, e.respond(messageID, routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrAccessDenied}, nil))
		return
	}
	targets := meta.HolderList()
	op := opledger.NewIDataOp(opledger.Request{Address: req.Address, Requester: requester}, opledger.OpDelete, targets, time.Now())
	if err := dh.Ledger.Insert(messageID, op); err != nil {
		e.run(ctx, e.respond(messageID, routing.OpResponse{Kind: routing.RespMutation, Err: err}, nil))
		return
	}
	e.run(ctx, &Action{Kind: ActSendToPeers, Targets: targets, Rpc: routing.Rpc{
		Kind: routing.RpcRequest,
		Request: &routing.RequestMsg{
			Request:   req,
			Requester: requester,
			From:      e.Name,
			MessageID: messageID,
		},
	}})
}

// selectHolders runs the holder selector against this node's current
// membership view, excluding any peer the full-adults set names as
// out of space.
func (e *Engine) selectHolders(addr chunk.Address) []xorspace.Name {
	var full []xorspace.Name
	if e.Role.Data != nil && e.Role.Data.FullAdults != nil {
		if names, err := e.Role.Data.FullAdults.All(); err != nil {
			e.log.WithError(err).Warn("engine: failed to read full-adults set, treating as empty")
		} else {
			full = names
		}
	}
	return holderselect.SelectN(e.Node.OurAdults(), e.Node.OurElders(), full, addr.Name, e.replicaCount)
}

func (e *Engine) respond(id chunk.MessageID, resp routing.OpResponse, refund *int) *Action {
	return &Action{Kind: ActRespondToClient, MessageID: id, Response: resp, Refund: refund}
}
