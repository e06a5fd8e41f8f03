// Package identity holds the two unrelated key types this engine
// deals with: account keys, identifying a client/app/node, and
// section keys, the BLS threshold keypair elders use to prove
// consensus.
//
// The two must never be confused. An AccountKey answers "who is
// asking"; a SectionKeySet answers "did enough elders agree". Mixing
// them would let a single client's signature stand in for section
// consensus, which is exactly the bug the dual-algorithm split in
// this package prevents.
package identity
