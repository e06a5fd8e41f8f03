// Package sigaccum implements the Signature Accumulator: a map from
// (request-digest, message-id) to the set of ProofShares received so
// far for it, combining them into a group BLS signature once a
// quorum (the section key set's Threshold) has arrived.
//
// Every key accumulates a proof at most once (AlreadyAccumulated
// guards re-combination), a share from an index already recorded for
// the same key is a no-op rather than a double-count, and a share that
// fails verification against the section's public key set is rejected
// outright (InvalidShare) rather than silently ignored, so a malformed
// or malicious elder message is visible in logs.
package sigaccum
