package engine

import (
	"context"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/opledger"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/vaulterr"
)

// handleInboundResponse realizes response processing for one
// holder's reply to an in-flight IDataOp. It is fed both by
// network-delivered Response traffic and, for a target that turned
// out to be this very node, directly by handleLocalDispatch.
func (e *Engine) handleInboundResponse(ctx context.Context, resp *routing.ResponseMsg) {
	if e.Role.Data == nil {
		e.log.Warn("engine: dropping response, no data handler")
		return
	}
	ledger := e.Role.Data.Ledger
	op := ledger.Get(resp.MessageID)
	if op == nil {
		e.log.WithField("message_id", resp.MessageID.String()).Warn("engine: dropping response for unrecognized or concluded op")
		return
	}

	wasAnyActioned := op.IsAnyActioned()
	if !op.SetState(resp.From, opledger.RpcState{Kind: opledger.Actioned, Err: resp.Response.Err}) {
		e.log.WithFields(map[string]interface{}{
			"message_id": resp.MessageID.String(),
			"holder":     resp.From.String(),
		}).Warn("engine: dropping response from unrecognized holder or already-terminal state")
		return
	}

	if resp.Response.Err == vaulterr.ErrHolderFull && e.Role.Data.FullAdults != nil {
		if err := e.Role.Data.FullAdults.Add(resp.From); err != nil {
			e.log.WithError(err).Warn("engine: failed to record full adult")
		}
	}

	switch op.Type {
	case opledger.OpPut:
		e.handlePutResponse(ctx, resp, op)
	case opledger.OpDelete:
		e.handleDeleteResponse(ctx, resp, op)
	case opledger.OpGet:
		e.handleGetResponse(ctx, resp, wasAnyActioned)
	case opledger.OpGetForCopy:
		e.handleGetForCopyResponse(ctx, resp, op, wasAnyActioned)
	case opledger.OpCopy:
		e.handleCopyResponse(ctx, resp, op)
	}

	if ledger.RemoveIfConcluded(resp.MessageID) {
		e.log.WithField("message_id", resp.MessageID.String()).Debug("engine: op concluded, removed from ledger")
	}
}

func (e *Engine) handlePutResponse(ctx context.Context, resp *routing.ResponseMsg, op *opledger.IDataOp) {
	dh := e.Role.Data
	meta, err := dh.Meta.Get(op.Request.Address)
	if err != nil {
		meta = chunk.NewMetadata()
	}
	if meta.HasHolder(resp.From) {
		e.log.WithField("holder", resp.From.String()).Warn("engine: duplicate holder response for PUT")
	}
	meta.AddHolder(resp.From)
	if op.Request.Address.Tag == chunk.Unpublished && meta.Owner == nil && op.Request.Requester != nil {
		owner := op.Request.Requester
		meta.Owner = &owner
	}
	if err := dh.Meta.Put(op.Request.Address, meta); err != nil {
		e.log.WithError(err).Error("engine: failed to persist metadata after PUT response")
	}

	// The client sees a single Ok the moment the op concludes,
	// regardless of which individual holders actually succeeded; a
	// holder that failed its copy is picked up later by duplication,
	// not surfaced here.
	if op.Concluded() {
		e.run(ctx, e.respond(resp.MessageID, routing.OpResponse{Kind: routing.RespMutation}, nil))
	}
}

func (e *Engine) handleDeleteResponse(ctx context.Context, resp *routing.ResponseMsg, op *opledger.IDataOp) {
	dh := e.Role.Data
	if resp.Response.Err == nil {
		meta, err := dh.Meta.Get(op.Request.Address)
		if err == nil {
			if meta.RemoveHolder(resp.From) {
				if err := dh.Meta.Remove(op.Request.Address); err != nil {
					e.log.WithError(err).Error("engine: failed to remove emptied metadata record")
				}
			} else if err := dh.Meta.Put(op.Request.Address, meta); err != nil {
				e.log.WithError(err).Error("engine: failed to persist metadata after DELETE response")
			}
		}
	}

	if op.Concluded() {
		outcome := routing.OpResponse{Kind: routing.RespMutation, Err: op.AnyError()}
		e.run(ctx, e.respond(resp.MessageID, outcome, nil))
	}
}

func (e *Engine) handleGetResponse(ctx context.Context, resp *routing.ResponseMsg, wasAnyActioned bool) {
	if !wasAnyActioned {
		e.run(ctx, e.respond(resp.MessageID, resp.Response, nil))
	}
}
