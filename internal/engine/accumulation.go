package engine

import (
	"context"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/sigaccum"
	"github.com/dreamware/immuvault/internal/vaulterr"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// handleMessageReceived is the routing layer's MessageReceived
// dispatch point. A wire Rpc carries no field saying "this is still
// circulating for section-wide signature accumulation" versus "this
// is the final unicast to one holder" — that distinction lives
// entirely in which Destination kind the message arrived under,
// threaded through by internal/transport's two HTTP endpoints.
func (e *Engine) handleMessageReceived(ctx context.Context, ev routing.Event) {
	rpc, err := routing.Decode(ev.Payload)
	if err != nil {
		e.log.WithError(err).Warn("engine: dropping undecodable message")
		return
	}
	e.handleRpc(ctx, ev.Dst.Kind, rpc)
}

// handleConsensusPayload is the routing layer's Consensus event
// dispatch point: the payload is an encoded Rpc fanned out by
// VoteFor, already carrying a signed proof share. It is handled
// exactly like a section-addressed message — both are the broadcast
// fabric the accumulation protocol relies on.
func (e *Engine) handleConsensusPayload(ctx context.Context, payload []byte) {
	rpc, err := routing.Decode(payload)
	if err != nil {
		e.log.WithError(err).Warn("engine: dropping undecodable consensus payload")
		return
	}
	e.handleRpc(ctx, routing.DestSection, rpc)
}

func (e *Engine) handleRpc(ctx context.Context, dstKind routing.DestKind, rpc routing.Rpc) {
	switch rpc.Kind {
	case routing.RpcRequest:
		if dstKind == routing.DestSection {
			e.handleAccumulatedRequest(ctx, rpc.Request)
		} else {
			e.handleHolderRequest(ctx, rpc.Request)
		}
	case routing.RpcResponse:
		e.handleInboundResponse(ctx, rpc.Response)
	case routing.RpcDuplicate:
		if dstKind == routing.DestSection {
			e.handleAccumulatedDuplicate(ctx, rpc.Duplicate)
		} else {
			e.handleHolderDuplicate(ctx, rpc.Duplicate)
		}
	case routing.RpcDuplicationComplete:
		e.handleDuplicationComplete(ctx, rpc.DuplicationComplete)
	default:
		e.log.WithField("kind", rpc.Kind.String()).Warn("engine: unrecognized rpc kind")
	}
}

// handleAccumulatedRequest handles Request traffic circulating
// section-wide: an unsigned copy gets this elder's own share attached
// and is broadcast; an already-signed copy (whether bounced back to
// us by our own broadcast or relayed from another elder) is fed to
// the accumulator — and, if this elder has not yet contributed its
// own share for the key, it signs and broadcasts one too, so every
// elder's share eventually circulates and the threshold is reachable
// no matter which elder a client happened to enter through. A
// threshold crossing admits the request. Every elder that
// independently crosses threshold performs the (idempotent) admission
// work itself — consensus ordering that would let only one elder act
// belongs to the routing layer, not this engine.
func (e *Engine) handleAccumulatedRequest(ctx context.Context, req *routing.RequestMsg) {
	if req.RequesterIsNode {
		e.log.Warn("engine: node-sourced request arrived as section traffic, dropping")
		return
	}
	key := requestKey(req.Request, req.MessageID)
	wrap := func(p *routing.ProofShare) routing.Rpc {
		signed := *req
		signed.Proof = p
		return routing.Rpc{Kind: routing.RpcRequest, Request: &signed}
	}
	if req.Proof == nil {
		e.broadcastOwnShare(ctx, key, wrap)
		return
	}
	acc := e.Role.Accumulator
	if acc == nil {
		e.log.Warn("engine: no accumulator available, dropping signed request")
		return
	}
	thresholdCrossed, ok := e.addShare(acc, key, *req.Proof)
	if !ok {
		return
	}
	if !thresholdCrossed && e.ownShare != nil && !acc.HasShare(key, e.ownShare.Index) {
		e.broadcastOwnShare(ctx, key, wrap)
		thresholdCrossed, _ = e.addShare(acc, key, routing.ProofShare{
			ShareIndex:     e.ownShare.Index,
			SignatureShare: e.ownShare.SignShare(key.RequestDigest[:]),
			Message:        key.RequestDigest[:],
		})
	}
	if thresholdCrossed {
		e.admit(ctx, req.Request, req.Requester, req.MessageID)
	}
}

// addShare feeds one share to acc. The first return reports whether
// this share crossed the threshold; the second is false when the share
// was rejected as invalid or its key had already been accumulated.
func (e *Engine) addShare(acc *sigaccum.Accumulator, key sigaccum.Key, proof routing.ProofShare) (thresholdCrossed, ok bool) {
	_, err := acc.Add(key, sigaccum.ProofShare{
		Index:     proof.ShareIndex,
		Signature: proof.SignatureShare,
		Message:   proof.Message,
	})
	switch err {
	case nil:
		return true, true
	case sigaccum.ErrNotEnoughShares:
		return false, true
	case sigaccum.ErrAlreadyAccumulated:
		// Another share already pushed this key past threshold and the
		// accumulated request was admitted then.
		return false, false
	default:
		e.log.WithError(err).Warn("engine: rejecting bad signature share")
		return false, false
	}
}

// broadcastOwnShare signs key's digest with this elder's secret share
// and votes the signed copy out to the section, the one broadcast
// each elder contributes per key.
func (e *Engine) broadcastOwnShare(ctx context.Context, key sigaccum.Key, wrap func(*routing.ProofShare) routing.Rpc) {
	if e.ownShare == nil {
		e.log.Warn("engine: no section share, cannot sign")
		return
	}
	msg := key.RequestDigest[:]
	proof := &routing.ProofShare{
		ShareIndex:     e.ownShare.Index,
		SignatureShare: e.ownShare.SignShare(msg),
		Message:        msg,
	}
	e.run(ctx, &Action{Kind: ActVoteFor, Rpc: wrap(proof)})
}

// handleHolderRequest serves a final, already-admitted dispatch to
// this node as holder: a normal sub-request has no proof at all
// (admission already happened at the dispatching elder); a
// node-sourced GetForCopy carries a single share as authentication,
// verified against the section's key set before the bytes are
// handed over. A node-sourced request without a share is dropped.
func (e *Engine) handleHolderRequest(ctx context.Context, req *routing.RequestMsg) {
	if req.RequesterIsNode {
		if req.Proof == nil {
			e.log.Warn("engine: rejecting node-sourced request, no proof share")
			return
		}
		if err := e.verifySingleShare(*req.Proof); err != nil {
			e.log.WithError(err).Warn("engine: rejecting node-sourced request, bad proof share")
			return
		}
	}
	resp := e.serveHolderRequest(req.Request)
	e.run(ctx, &Action{Kind: ActSendToPeers, Targets: []xorspace.Name{req.From}, Rpc: routing.Rpc{
		Kind: routing.RpcResponse,
		Response: &routing.ResponseMsg{
			Requester: req.Requester,
			Response:  resp,
			From:      e.Name,
			MessageID: req.MessageID,
		},
	}})
}

// handleAccumulatedDuplicate mirrors handleAccumulatedRequest for
// Duplicate traffic: an unsigned copy gets this elder's share
// broadcast, signed copies accumulate (with this elder contributing
// its own share the first time it sees the key), and a threshold
// crossing dispatches the Duplicate to its new holder.
func (e *Engine) handleAccumulatedDuplicate(ctx context.Context, dup *routing.DuplicateMsg) {
	key := duplicateKey(*dup)
	wrap := func(p *routing.ProofShare) routing.Rpc {
		signed := *dup
		signed.Proof = p
		return routing.Rpc{Kind: routing.RpcDuplicate, Duplicate: &signed}
	}
	if dup.Proof == nil {
		e.broadcastOwnShare(ctx, key, wrap)
		return
	}
	acc := e.Role.Accumulator
	if acc == nil {
		e.log.Warn("engine: no accumulator available, dropping signed duplicate")
		return
	}
	thresholdCrossed, ok := e.addShare(acc, key, *dup.Proof)
	if !ok {
		return
	}
	if !thresholdCrossed && e.ownShare != nil && !acc.HasShare(key, e.ownShare.Index) {
		e.broadcastOwnShare(ctx, key, wrap)
		thresholdCrossed, _ = e.addShare(acc, key, routing.ProofShare{
			ShareIndex:     e.ownShare.Index,
			SignatureShare: e.ownShare.SignShare(key.RequestDigest[:]),
			Message:        key.RequestDigest[:],
		})
	}
	if thresholdCrossed {
		e.run(ctx, &Action{Kind: ActSendToPeers, Targets: dup.Holders, Rpc: routing.Rpc{Kind: routing.RpcDuplicate, Duplicate: dup}})
	}
}

// handleHolderDuplicate serves the final Duplicate dispatch: this
// node is the newly selected holder, it stores the bytes and replies
// directly to the initiating elder named in From.
func (e *Engine) handleHolderDuplicate(ctx context.Context, dup *routing.DuplicateMsg) {
	resp := e.serveDuplicate(*dup)
	e.run(ctx, &Action{Kind: ActSendToPeers, Targets: []xorspace.Name{dup.From}, Rpc: routing.Rpc{
		Kind: routing.RpcResponse,
		Response: &routing.ResponseMsg{
			Response:  resp,
			From:      e.Name,
			MessageID: dup.MessageID,
		},
	}})
}

// verifySingleShare checks a lone proof share against the section key
// set without requiring threshold, the authentication-only check a
// node-sourced GetForCopy uses in place of full accumulation.
func (e *Engine) verifySingleShare(proof routing.ProofShare) error {
	if e.keySet == nil {
		return vaulterr.ErrAccessDenied
	}
	identity.EnsureBLSInit()
	if _, ok := e.keySet.Shares[proof.ShareIndex]; !ok {
		return vaulterr.ErrAccessDenied
	}
	acc := sigaccum.NewAccumulator(&identity.SectionKeySet{Threshold: 1, GroupKey: e.keySet.GroupKey, Shares: e.keySet.Shares})
	_, err := acc.Add(sigaccum.Key{MessageID: chunk.MessageID{}}, sigaccum.ProofShare{
		Index:     proof.ShareIndex,
		Signature: proof.SignatureShare,
		Message:   proof.Message,
	})
	if err != nil && err != sigaccum.ErrNotEnoughShares {
		return vaulterr.ErrAccessDenied
	}
	return nil
}

// requestKey derives the signature accumulator key for a client
// request: its canonical wire bytes, digested, paired with the
// message id it travels under.
func requestKey(req routing.ClientRequest, id chunk.MessageID) sigaccum.Key {
	return sigaccum.Key{RequestDigest: sigaccum.DigestRequest(canonicalRequestBytes(req, id)), MessageID: id}
}

func duplicateKey(dup routing.DuplicateMsg) sigaccum.Key {
	return sigaccum.Key{RequestDigest: sigaccum.DigestRequest(canonicalDuplicateBytes(dup)), MessageID: dup.MessageID}
}

func canonicalRequestBytes(req routing.ClientRequest, id chunk.MessageID) []byte {
	addr := req.Address.Encode()
	b := make([]byte, 0, len(addr)+len(req.Data)+len(id)+1)
	b = append(b, byte(req.Kind))
	b = append(b, addr...)
	b = append(b, req.Data...)
	b = append(b, id[:]...)
	return b
}

func canonicalDuplicateBytes(dup routing.DuplicateMsg) []byte {
	addr := dup.Address.Encode()
	b := make([]byte, 0, len(addr)+len(dup.Data)+len(dup.MessageID))
	b = append(b, addr...)
	b = append(b, dup.Data...)
	b = append(b, dup.MessageID[:]...)
	return b
}
