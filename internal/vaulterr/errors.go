// Package vaulterr is the client-visible error taxonomy: a small,
// closed set of reasons a PUT/GET/DELETE can fail, shared by
// internal/opledger, internal/routing, and internal/engine so every
// layer reports failures the same way instead of inventing ad hoc
// error strings.
package vaulterr

import "errors"

var (
	// ErrDataExists is returned when a PUT targets an address that
	// already has metadata recorded — always for Unpublished chunks,
	// only as an internal idempotent no-op (not client-visible) for
	// Published chunks.
	ErrDataExists = errors.New("vaulterr: data already exists at this address")
	// ErrNoSuchData is returned when a GET or DELETE targets an
	// address with no metadata record.
	ErrNoSuchData = errors.New("vaulterr: no such data")
	// ErrAccessDenied is returned when a GET or DELETE's requester is
	// not the recorded owner of an Unpublished chunk.
	ErrAccessDenied = errors.New("vaulterr: access denied")
	// ErrDuplicateMessageID is returned when a client (or node) reuses
	// a MessageID already present in the Operation Ledger.
	ErrDuplicateMessageID = errors.New("vaulterr: duplicate message id")
	// ErrHolderFull is a holder's response reason indicating it has no
	// space left; the coordinator uses it to populate the full-adults
	// set.
	ErrHolderFull = errors.New("vaulterr: holder reports full")
	// ErrMutationFailed is a generic holder-side mutation failure not
	// covered by a more specific reason above.
	ErrMutationFailed = errors.New("vaulterr: mutation failed")
	// ErrOperationTimedOut is the client-visible reason given for an op
	// the timeout sweep concluded without a single holder responding.
	ErrOperationTimedOut = errors.New("vaulterr: operation timed out")
)

// CostOfPut is the refund amount credited to a client whose PUT
// ultimately fails; no other request kind ever refunds.
const CostOfPut = 1

var byMessage = map[string]error{
	ErrDataExists.Error():         ErrDataExists,
	ErrNoSuchData.Error():         ErrNoSuchData,
	ErrAccessDenied.Error():       ErrAccessDenied,
	ErrDuplicateMessageID.Error(): ErrDuplicateMessageID,
	ErrHolderFull.Error():         ErrHolderFull,
	ErrMutationFailed.Error():     ErrMutationFailed,
	ErrOperationTimedOut.Error():  ErrOperationTimedOut,
}

// FromMessage maps an error message back onto its sentinel, or nil if
// the message names no error in this taxonomy. Errors travel the wire
// as bare strings (an error value has no portable encoding), and a
// holder's reason must compare equal to the sentinel again on the
// receiving side — the Coordinator's Full-Adults bookkeeping and the
// client-facing status mapping both switch on these identities.
func FromMessage(msg string) error {
	return byMessage[msg]
}
