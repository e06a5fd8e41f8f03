package opledger

import (
	"time"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// OpType distinguishes the five kinds of holder-facing operation this
// ledger tracks. GetForCopy and Copy exist only for the duplication
// workflow: GetForCopy fetches a chunk's bytes from a surviving
// holder, Copy pushes those bytes to a freshly selected replacement
// holder.
type OpType uint8

const (
	OpPut OpType = iota
	OpGet
	OpDelete
	OpGetForCopy
	OpCopy
)

func (t OpType) String() string {
	switch t {
	case OpPut:
		return "put"
	case OpGet:
		return "get"
	case OpDelete:
		return "delete"
	case OpGetForCopy:
		return "get-for-copy"
	case OpCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// Request is the client- or node-originated request an IDataOp is
// tracking the fan-out of.
type Request struct {
	Address   chunk.Address
	Requester identity.AccountKey
	Data      []byte // only meaningful for OpPut/OpCopy
}

// IDataOp tracks one in-flight fan-out: which holders a request was
// dispatched to, and how each one has resolved so far.
type IDataOp struct {
	Request      Request
	Type         OpType
	RpcStates    map[xorspace.Name]RpcState
	DispatchedAt time.Time
}

// NewIDataOp creates an op dispatched to exactly the given holders,
// all starting in the Sent state.
func NewIDataOp(req Request, opType OpType, holders []xorspace.Name, now time.Time) *IDataOp {
	states := make(map[xorspace.Name]RpcState, len(holders))
	for _, h := range holders {
		states[h] = RpcState{Kind: Sent}
	}
	return &IDataOp{Request: req, Type: opType, RpcStates: states, DispatchedAt: now}
}

// SetState transitions one holder's state. Reports false if the
// holder is not part of this op (an unrecognized sender the caller
// drops with a warning) or if its current state is already terminal
// (a state never regresses).
func (op *IDataOp) SetState(holder xorspace.Name, next RpcState) bool {
	cur, ok := op.RpcStates[holder]
	if !ok || cur.IsTerminal() {
		return false
	}
	op.RpcStates[holder] = next
	return true
}

// IsAnyActioned reports whether at least one holder has reached
// Actioned, used by the GET path's first-responder-wins rule.
func (op *IDataOp) IsAnyActioned() bool {
	for _, s := range op.RpcStates {
		if s.Kind == Actioned {
			return true
		}
	}
	return false
}

// Concluded reports whether every holder has left the Sent state. A
// PUT/DELETE only replies to the client once every dispatched holder
// has resolved, not on the first response.
func (op *IDataOp) Concluded() bool {
	for _, s := range op.RpcStates {
		if !s.IsTerminal() {
			return false
		}
	}
	return true
}

// AnyError returns a non-nil error recorded by one of the holders, or
// nil if every holder that reached Actioned succeeded. The holders are
// scanned in map order, so when several holders recorded an error,
// which one is returned is not defined.
func (op *IDataOp) AnyError() error {
	for _, s := range op.RpcStates {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// SuccessCount returns how many holders reached a successful Actioned
// state. The engine's GET path does not consult it: the first holder
// response of any kind answers the client (see IsAnyActioned).
func (op *IDataOp) SuccessCount() int {
	n := 0
	for _, s := range op.RpcStates {
		if s.IsActionedOK() {
			n++
		}
	}
	return n
}
