// Package opledger implements the Operation Ledger: the map from an
// in-flight MessageID to the IDataOp tracking which holders have
// responded and how.
//
// An IDataOp's RpcState per holder only ever moves forward —
// Sent -> Actioned | HolderGone | TimedOut — never backward, and once
// every holder's state has left Sent the op is "concluded" and removed
// from the ledger. A second insert under a MessageID already present
// is always rejected as DuplicateMessageId, regardless of whether the
// existing op has concluded; once the op has been removed, its
// MessageID can be inserted again.
package opledger
