package engine

import (
	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/vaulterr"
)

// serveHolderRequest executes req against this node's own Chunk Blob
// Store, the holder-level primitive every dispatched Put/Get/Delete
// sub-request (and every node-sourced GetForCopy) ultimately bottoms
// out in. It is never gated by admission — the metadata/ownership
// checks already happened at whichever Coordinator dispatched this
// sub-request; a holder only ever moves bytes.
func (e *Engine) serveHolderRequest(req routing.ClientRequest) routing.OpResponse {
	if e.Role.Data == nil {
		return routing.OpResponse{Kind: respKindFor(req.Kind), Err: vaulterr.ErrMutationFailed}
	}
	switch req.Kind {
	case routing.ReqPut:
		if err := e.Role.Data.Blobs.Put(req.Address, req.Data); err != nil {
			return routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrMutationFailed}
		}
		return routing.OpResponse{Kind: routing.RespMutation}
	case routing.ReqGet:
		data, err := e.Role.Data.Blobs.Get(req.Address)
		if err != nil {
			return routing.OpResponse{Kind: routing.RespGetIData, Err: vaulterr.ErrNoSuchData}
		}
		return routing.OpResponse{Kind: routing.RespGetIData, Data: data}
	case routing.ReqDelete:
		_ = e.Role.Data.Blobs.Delete(req.Address)
		return routing.OpResponse{Kind: routing.RespMutation}
	default:
		return routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrMutationFailed}
	}
}

// serveDuplicate writes dup's bytes to this node's chunk blob store,
// the terminal step of the duplication workflow: the newly selected
// holder simply stores what it was sent.
func (e *Engine) serveDuplicate(dup routing.DuplicateMsg) routing.OpResponse {
	if e.Role.Data == nil {
		return routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrMutationFailed}
	}
	if err := e.Role.Data.Blobs.Put(dup.Address, dup.Data); err != nil {
		return routing.OpResponse{Kind: routing.RespMutation, Err: vaulterr.ErrMutationFailed}
	}
	return routing.OpResponse{Kind: routing.RespMutation}
}

func respKindFor(k routing.RequestKind) routing.ResponseKind {
	if k == routing.ReqGet {
		return routing.RespGetIData
	}
	return routing.RespMutation
}
