// Package holderselect implements the Holder Selector: given a
// chunk's address, the section's known adults and elders, and the
// Full-Adults set, pick REPLICA_COUNT peers to hold a copy.
//
// The algorithm is pure: it takes a
// membership snapshot as plain slices and returns a plain slice,
// taking no lock and touching no store, so internal/engine can call it
// inline inside a request-admission decision without worrying about
// reentrancy.
package holderselect
