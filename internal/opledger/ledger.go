package opledger

import (
	"sync"
	"time"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/vaulterr"
)

// Ledger is the operation ledger: a map from MessageID to the IDataOp
// it is tracking, guarded by a single sync.RWMutex around a plain
// map, since every access here is either a short read or a short
// structural mutation, never a long-held lock across I/O.
type Ledger struct {
	mu  sync.RWMutex
	ops map[chunk.MessageID]*IDataOp
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{ops: make(map[chunk.MessageID]*IDataOp)}
}

// Insert adds a new op under id. Returns vaulterr.ErrDuplicateMessageID
// if id is already present — even if the existing op has since
// concluded and simply hasn't been reaped yet, a reused id is always
// rejected.
func (l *Ledger) Insert(id chunk.MessageID, op *IDataOp) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.ops[id]; exists {
		return vaulterr.ErrDuplicateMessageID
	}
	l.ops[id] = op
	return nil
}

// Get returns the op tracked under id, or nil if none is present
// (e.g. an unrecognized or already-concluded id — callers drop the
// response with a warning).
func (l *Ledger) Get(id chunk.MessageID) *IDataOp {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ops[id]
}

// RemoveIfConcluded deletes the op under id if and only if it has
// concluded, reporting whether it did so.
func (l *Ledger) RemoveIfConcluded(id chunk.MessageID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	op, ok := l.ops[id]
	if !ok || !op.Concluded() {
		return false
	}
	delete(l.ops, id)
	return true
}

// Len reports how many ops are currently tracked, for tests and
// operator inspection.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ops)
}

// SweepTimeouts transitions every Sent rpc_state older than maxAge to
// TimedOut across all tracked ops, returning the MessageIDs of ops
// that newly became concluded as a result. The caller is responsible
// for running response-processing and RemoveIfConcluded against each
// returned id.
func (l *Ledger) SweepTimeouts(now time.Time, maxAge time.Duration) []chunk.MessageID {
	l.mu.Lock()
	defer l.mu.Unlock()

	var newlyConcluded []chunk.MessageID
	for id, op := range l.ops {
		if now.Sub(op.DispatchedAt) < maxAge {
			continue
		}
		changed := false
		for holder, state := range op.RpcStates {
			if state.Kind == Sent {
				op.RpcStates[holder] = RpcState{Kind: TimedOut}
				changed = true
			}
		}
		if changed && op.Concluded() {
			newlyConcluded = append(newlyConcluded, id)
		}
	}
	return newlyConcluded
}
