package routing

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/vaulterr"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// ProofShare is one elder's partial signature over a request,
// carried on the wire so the recipient's signature accumulator (or,
// for node-sourced duplication requests, a single-share check) can
// verify it.
type ProofShare struct {
	ShareIndex     identity.SectionShareIndex
	SignatureShare []byte
	Message        []byte
}

// RequestKind distinguishes the three client-facing operations this
// engine admits.
type RequestKind uint8

const (
	ReqPut RequestKind = iota
	ReqGet
	ReqDelete
)

func (k RequestKind) String() string {
	switch k {
	case ReqPut:
		return "Put"
	case ReqGet:
		return "Get"
	case ReqDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// ClientRequest is the operation payload of a Request envelope: what
// the client (or, for duplication, a peer node) is asking for.
type ClientRequest struct {
	Kind    RequestKind
	Address chunk.Address
	Data    []byte // Put only
}

// RequestMsg is the Request envelope variant. RequesterIsNode
// distinguishes a node-sourced duplication GET (single-share
// authenticated, never accumulated) from a client/app-sourced request
// (threshold-accumulated). From names the node that actually
// dispatched this wire message: a node-sourced GetForCopy has no
// other way for the serving holder to learn which node's response
// channel to reply to once the transport no longer has a live
// connection to hand a reply back on.
type RequestMsg struct {
	Request         ClientRequest
	Requester       identity.AccountKey
	RequesterIsNode bool
	From            xorspace.Name
	MessageID       chunk.MessageID
	Proof           *ProofShare
}

// ResponseKind distinguishes the two client-visible response shapes:
// a bare mutation outcome and a data-carrying get outcome.
type ResponseKind uint8

const (
	RespMutation ResponseKind = iota
	RespGetIData
)

// OpResponse is the result half of a Response envelope: either a
// bare mutation outcome (Put/Delete) or a GetIData outcome carrying
// the chunk bytes on success.
type OpResponse struct {
	Kind ResponseKind
	Err  error
	Data []byte
}

func (r OpResponse) gobEncode() (respGob, error) {
	g := respGob{Kind: r.Kind, Data: r.Data}
	if r.Err != nil {
		g.ErrMsg = r.Err.Error()
	}
	return g, nil
}

// respGob is OpResponse's wire shape: errors don't implement
// GobEncode on their own, so they travel as a string and are
// rehydrated on the receiving side — back into the vaulterr sentinel
// the message names where possible, so sender and receiver agree on
// error identity, not just text.
type respGob struct {
	ErrMsg string
	Data   []byte
	Kind   ResponseKind
}

// ResponseMsg is the Response envelope variant. It serves both a
// holder's reply to the Coordinator and the Coordinator's final reply
// to a client/data handler — one shape for both hops. From names the
// holder that produced this response, the response-side counterpart
// of RequestMsg.From: the operation ledger's per-holder state map is
// keyed by holder name, and that name must travel on the wire rather
// than be inferred from a transport connection that may not map 1:1
// to it.
type ResponseMsg struct {
	Requester identity.AccountKey
	Response  OpResponse
	From      xorspace.Name
	MessageID chunk.MessageID
	Refund    *int
}

// DuplicateMsg is the Duplicate envelope variant, carrying Data (the
// duplication workflow requires the chunk's bytes to actually reach
// the new holder) and From (the initiating elder's name, so the new
// holder's Ok/Err reply — which arrives as a plain Response — finds
// its way back to the ledger entry tracking this copy instead of
// needing a live transport connection to carry it).
type DuplicateMsg struct {
	Address   chunk.Address
	Holders   []xorspace.Name
	Data      []byte
	From      xorspace.Name
	MessageID chunk.MessageID
	Proof     *ProofShare
}

// DuplicationCompleteMsg notifies recipients to record NewHolder
// against Address in their metadata, the terminal broadcast of one
// duplication round.
type DuplicationCompleteMsg struct {
	Address   chunk.Address
	NewHolder xorspace.Name
	MessageID chunk.MessageID
}

// RpcKind tags which variant of the Rpc envelope is populated.
type RpcKind uint8

const (
	RpcRequest RpcKind = iota
	RpcResponse
	RpcDuplicate
	RpcDuplicationComplete
)

func (k RpcKind) String() string {
	switch k {
	case RpcRequest:
		return "Request"
	case RpcResponse:
		return "Response"
	case RpcDuplicate:
		return "Duplicate"
	case RpcDuplicationComplete:
		return "DuplicationComplete"
	default:
		return "Unknown"
	}
}

// Rpc is the wire envelope exchanged over Node.SendMessage: exactly
// one of Request/Response/Duplicate/DuplicationComplete is populated,
// selected by Kind.
type Rpc struct {
	Request             *RequestMsg
	Response            *ResponseMsg
	Duplicate           *DuplicateMsg
	DuplicationComplete *DuplicationCompleteMsg
	Kind                RpcKind
}

// wireRpc is Rpc's gob-safe shadow: OpResponse.Err is an interface
// value gob cannot encode directly, so Response is flattened to
// respGob for transport and rehydrated on decode.
type wireRpc struct {
	Request             *RequestMsg
	Response            *wireResponseMsg
	Duplicate           *DuplicateMsg
	DuplicationComplete *DuplicationCompleteMsg
	Kind                RpcKind
}

type wireResponseMsg struct {
	Requester identity.AccountKey
	Response  respGob
	From      xorspace.Name
	MessageID chunk.MessageID
	Refund    *int
}

func init() {
	gob.Register(ClientRequest{})
}

// Encode serializes an Rpc to bytes for Node.SendMessage. Gob is
// sufficient here because, unlike the on-disk chunk.Address key, the
// envelope never needs to be read back by a different process
// version, only the process generation that sent it.
func Encode(rpc Rpc) ([]byte, error) {
	w := wireRpc{
		Kind:                rpc.Kind,
		Request:             rpc.Request,
		Duplicate:           rpc.Duplicate,
		DuplicationComplete: rpc.DuplicationComplete,
	}
	if rpc.Response != nil {
		g, _ := rpc.Response.Response.gobEncode()
		w.Response = &wireResponseMsg{
			Requester: rpc.Response.Requester,
			Response:  g,
			From:      rpc.Response.From,
			MessageID: rpc.Response.MessageID,
			Refund:    rpc.Response.Refund,
		}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, fmt.Errorf("routing: encode rpc: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(b []byte) (Rpc, error) {
	var w wireRpc
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return Rpc{}, fmt.Errorf("routing: decode rpc: %w", err)
	}
	rpc := Rpc{
		Kind:                w.Kind,
		Request:             w.Request,
		Duplicate:           w.Duplicate,
		DuplicationComplete: w.DuplicationComplete,
	}
	if w.Response != nil {
		resp := OpResponse{Kind: w.Response.Response.Kind, Data: w.Response.Response.Data}
		if msg := w.Response.Response.ErrMsg; msg != "" {
			if resp.Err = vaulterr.FromMessage(msg); resp.Err == nil {
				resp.Err = errString(msg)
			}
		}
		rpc.Response = &ResponseMsg{
			Requester: w.Response.Requester,
			Response:  resp,
			From:      w.Response.From,
			MessageID: w.Response.MessageID,
			Refund:    w.Response.Refund,
		}
	}
	return rpc, nil
}

type errString string

func (e errString) Error() string { return string(e) }
