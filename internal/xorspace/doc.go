// Package xorspace implements the 32-byte XOR address space that
// every chunk, peer, and holder name in this repository is drawn from.
//
// # Overview
//
// Names live in a flat 256-bit space. The only operation the rest of
// the codebase needs from that space is "how close is name A to name
// B", defined as the big-endian numeric value of A XOR B — smaller is
// closer. Holder selection (internal/holderselect) sorts candidate
// adults, and the elders it falls back to, by distance to a chunk's
// address; section membership (internal/membership) sorts elders the
// same way when asked for the elders closest to a name.
//
// There is deliberately no routing/prefix-splitting logic here: a
// single section owns the whole address space, so "does this name
// match our prefix" is always true (see internal/routing/mock, which
// mirrors this directly).
package xorspace
