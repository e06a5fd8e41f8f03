package sigaccum

import (
	"crypto/sha256"
	"errors"
	"sync"

	"github.com/herumi/bls-eth-go-binary/bls"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/identity"
)

// Reasons an Add can fail with.
var (
	ErrNotEnoughShares    = errors.New("sigaccum: not enough shares yet")
	ErrAlreadyAccumulated = errors.New("sigaccum: key already has a combined proof")
	ErrInvalidShare       = errors.New("sigaccum: share failed verification")
)

// Key identifies what is being accumulated: one request (digested to a
// fixed width so arbitrary-length request bytes can be a map key)
// combined with the MessageID it belongs to — two distinct requests
// sharing a message id accumulate separately.
type Key struct {
	RequestDigest [32]byte
	MessageID     chunk.MessageID
}

// DigestRequest produces the RequestDigest half of a Key from a
// request's canonical wire bytes.
func DigestRequest(canonicalBytes []byte) [32]byte {
	return sha256.Sum256(canonicalBytes)
}

// ProofShare is one elder's partial signature over a request, keyed to
// its position in the section's threshold key set.
type ProofShare struct {
	Index     identity.SectionShareIndex
	Signature []byte
	Message   []byte
}

// CombinedProof is the group signature recovered once threshold valid
// shares for a Key have arrived.
type CombinedProof struct {
	Key       Key
	Signature []byte
}

type entry struct {
	shares   map[identity.SectionShareIndex]bls.Sign
	message  []byte
	combined *CombinedProof
}

// Accumulator accumulates ProofShares per Key against one section's
// threshold key set.
type Accumulator struct {
	keySet *identity.SectionKeySet

	mu      sync.Mutex
	entries map[Key]*entry
}

// NewAccumulator returns an Accumulator that verifies shares against
// keySet.
func NewAccumulator(keySet *identity.SectionKeySet) *Accumulator {
	return &Accumulator{keySet: keySet, entries: make(map[Key]*entry)}
}

// Add records share against key, returning the CombinedProof once
// enough valid shares have accumulated. Before that point it returns
// (nil, ErrNotEnoughShares). A key that has already produced a proof
// rejects every further Add with ErrAlreadyAccumulated, even a
// well-formed late share.
func (a *Accumulator) Add(key Key, share ProofShare) (*CombinedProof, error) {
	pub, ok := a.keySet.Shares[share.Index]
	if !ok {
		return nil, ErrInvalidShare
	}
	var sig bls.Sign
	if err := sig.Deserialize(share.Signature); err != nil {
		return nil, ErrInvalidShare
	}
	if !sig.VerifyByte(&pub, share.Message) {
		return nil, ErrInvalidShare
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	e, exists := a.entries[key]
	if !exists {
		e = &entry{shares: make(map[identity.SectionShareIndex]bls.Sign), message: share.Message}
		a.entries[key] = e
	}
	if e.combined != nil {
		return nil, ErrAlreadyAccumulated
	}
	e.shares[share.Index] = sig

	if len(e.shares) < a.keySet.Threshold {
		return nil, ErrNotEnoughShares
	}

	combined, err := recover(e.shares, a.keySet.Threshold)
	if err != nil {
		return nil, ErrInvalidShare
	}
	e.combined = &CombinedProof{Key: key, Signature: combined}
	return e.combined, nil
}

// HasShare reports whether a share from the given index has already
// been recorded against key, either as a pending share or folded into
// a combined proof. Elders use it to decide whether they still owe
// their own share for a circulating request.
func (a *Accumulator) HasShare(key Key, index identity.SectionShareIndex) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[key]
	if !ok {
		return false
	}
	if e.combined != nil {
		return true
	}
	_, ok = e.shares[index]
	return ok
}

func recover(shares map[identity.SectionShareIndex]bls.Sign, threshold int) ([]byte, error) {
	sigVec := make([]bls.Sign, 0, threshold)
	idVec := make([]bls.ID, 0, threshold)
	count := 0
	for idx, sig := range shares {
		if count == threshold {
			break
		}
		var id bls.ID
		if err := id.SetDecString(decimal(uint32(idx))); err != nil {
			return nil, err
		}
		idVec = append(idVec, id)
		sigVec = append(sigVec, sig)
		count++
	}
	var recovered bls.Sign
	if err := recovered.Recover(sigVec, idVec); err != nil {
		return nil, err
	}
	return recovered.Serialize(), nil
}

func decimal(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}
