package engine

import (
	"context"
	"time"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/metastore"
	"github.com/dreamware/immuvault/internal/opledger"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// handleMemberLeft realizes duplication on MemberLeft: every chunk
// the departed peer held loses that holder from its metadata, and
// every chunk left with at least one surviving holder gets a repair
// kicked off.
func (e *Engine) handleMemberLeft(ctx context.Context, name xorspace.Name) {
	dh := e.Role.Data
	if dh == nil {
		return
	}
	affected, err := metastore.HolderReport(dh.Meta, name)
	if err != nil {
		e.log.WithError(err).Error("engine: metadata scan failed on MemberLeft")
		return
	}
	type repair struct {
		addr   chunk.Address
		holder xorspace.Name
	}
	var repairs []repair
	for _, rec := range affected {
		if rec.Meta.RemoveHolder(name) {
			if err := dh.Meta.Remove(rec.Addr); err != nil {
				e.log.WithError(err).Error("engine: failed to remove emptied metadata record on MemberLeft")
			}
			continue
		}
		if err := dh.Meta.Put(rec.Addr, rec.Meta); err != nil {
			e.log.WithError(err).Error("engine: failed to persist metadata on MemberLeft")
			continue
		}
		if holders := rec.Meta.HolderList(); len(holders) > 0 {
			repairs = append(repairs, repair{addr: rec.Addr, holder: holders[0]})
		}
	}
	for _, r := range repairs {
		e.initiateGetForCopy(ctx, r.addr, r.holder)
	}
}

// initiateGetForCopy asks one surviving holder for a chunk's bytes,
// a node-sourced, non-accumulated, single-share-authenticated request
// tracked under its own IDataOp exactly like a client op —
// duplication operations carry the same DuplicateMessageId
// protection.
func (e *Engine) initiateGetForCopy(ctx context.Context, addr chunk.Address, holder xorspace.Name) {
	dh := e.Role.Data
	messageID := chunk.NewMessageID()
	op := opledger.NewIDataOp(opledger.Request{Address: addr, Requester: e.ownAccountKey}, opledger.OpGetForCopy, []xorspace.Name{holder}, time.Now())
	if err := dh.Ledger.Insert(messageID, op); err != nil {
		e.log.WithError(err).Warn("engine: GetForCopy message id collision, skipping this repair round")
		return
	}
	req := routing.RequestMsg{
		Request:         routing.ClientRequest{Kind: routing.ReqGet, Address: addr},
		Requester:       e.ownAccountKey,
		RequesterIsNode: true,
		From:            e.Name,
		MessageID:       messageID,
	}
	if e.ownShare != nil {
		req.Proof = &routing.ProofShare{
			ShareIndex:     e.ownShare.Index,
			SignatureShare: e.ownShare.SignShare(messageID[:]),
			Message:        messageID[:],
		}
	}
	e.run(ctx, &Action{Kind: ActSendToPeers, Targets: []xorspace.Name{holder}, Rpc: routing.Rpc{Kind: routing.RpcRequest, Request: &req}})
}

// handleGetForCopyResponse reacts to the surviving holder's reply: on
// success, a freshly selected adult is chosen and a Duplicate is
// initiated carrying the recovered bytes.
func (e *Engine) handleGetForCopyResponse(ctx context.Context, resp *routing.ResponseMsg, op *opledger.IDataOp, wasAnyActioned bool) {
	if wasAnyActioned {
		return
	}
	if resp.Response.Err != nil {
		e.log.WithError(resp.Response.Err).Warn("engine: GetForCopy source holder failed, abandoning this repair round")
		return
	}
	dh := e.Role.Data
	meta, err := dh.Meta.Get(op.Request.Address)
	if err != nil {
		e.log.WithError(err).Warn("engine: metadata vanished mid-repair, abandoning")
		return
	}
	newHolder, ok := e.pickNewHolder(op.Request.Address, meta)
	if !ok {
		e.log.WithField("address", op.Request.Address.String()).Warn("engine: no eligible replacement holder found")
		return
	}
	e.initiateDuplicate(ctx, op.Request.Address, resp.Response.Data, newHolder)
}

// initiateDuplicate dispatches the recovered bytes to newHolder via
// the same sign-and-broadcast accumulation path a client PUT uses,
// tracked under its own OpCopy entry so the new holder's reply can
// be matched back to this repair.
func (e *Engine) initiateDuplicate(ctx context.Context, addr chunk.Address, data []byte, newHolder xorspace.Name) {
	dh := e.Role.Data
	messageID := chunk.NewMessageID()
	op := opledger.NewIDataOp(opledger.Request{Address: addr, Requester: e.ownAccountKey, Data: data}, opledger.OpCopy, []xorspace.Name{newHolder}, time.Now())
	if err := dh.Ledger.Insert(messageID, op); err != nil {
		e.log.WithError(err).Warn("engine: Duplicate message id collision, skipping this repair round")
		return
	}
	dup := &routing.DuplicateMsg{Address: addr, Holders: []xorspace.Name{newHolder}, Data: data, From: e.Name, MessageID: messageID}
	e.handleAccumulatedDuplicate(ctx, dup)
}

// handleCopyResponse reacts to the new holder's Put outcome: success
// broadcasts DuplicationComplete so every elder records the new
// holder against the address.
func (e *Engine) handleCopyResponse(ctx context.Context, resp *routing.ResponseMsg, op *opledger.IDataOp) {
	if resp.Response.Err != nil {
		e.log.WithError(resp.Response.Err).Warn("engine: new holder failed to store duplicated chunk")
		return
	}
	e.run(ctx, &Action{Kind: ActSendToSection, Section: e.Node.OurPrefix(), Rpc: routing.Rpc{
		Kind: routing.RpcDuplicationComplete,
		DuplicationComplete: &routing.DuplicationCompleteMsg{
			Address:   op.Request.Address,
			NewHolder: resp.From,
			MessageID: resp.MessageID,
		},
	}})
}

// handleDuplicationComplete records the new holder against the
// address in this node's own metadata; the broadcast lands on every
// recipient, including the originating elder.
func (e *Engine) handleDuplicationComplete(ctx context.Context, msg *routing.DuplicationCompleteMsg) {
	dh := e.Role.Data
	if dh == nil {
		return
	}
	meta, err := dh.Meta.Get(msg.Address)
	if err != nil {
		meta = chunk.NewMetadata()
	}
	meta.AddHolder(msg.NewHolder)
	if err := dh.Meta.Put(msg.Address, meta); err != nil {
		e.log.WithError(err).Error("engine: failed to persist metadata after DuplicationComplete")
	}
}

// pickNewHolder runs the Holder Selector against addr and returns the
// first candidate not already recorded as a holder.
func (e *Engine) pickNewHolder(addr chunk.Address, meta *chunk.Metadata) (xorspace.Name, bool) {
	for _, c := range e.selectHolders(addr) {
		if !meta.HasHolder(c) {
			return c, true
		}
	}
	return xorspace.Name{}, false
}
