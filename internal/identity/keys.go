package identity

import (
	"crypto/ed25519"
	"errors"
	"sync"

	"github.com/herumi/bls-eth-go-binary/bls"
)

// AccountKey identifies a client, an app acting on a client's behalf,
// or a node. ChunkMetadata.Owner and every requester comparison in
// this repo compares AccountKeys, never SectionKeys.
type AccountKey ed25519.PublicKey

// Equal reports whether two account keys are the same bytes.
func (k AccountKey) Equal(other AccountKey) bool {
	return ed25519.PublicKey(k).Equal(ed25519.PublicKey(other))
}

// blsOnce guards the process-wide BLS curve initialization the herumi
// binding requires before any SecretKey/PublicKey/Sign method is used.
var blsOnce sync.Once

func ensureBLSInit() {
	blsOnce.Do(func() {
		_ = bls.Init(bls.BLS12_381)
		bls.SetETHmode(bls.EthModeDraft07)
	})
}

// EnsureBLSInit performs the process-wide BLS curve initialization if
// it has not already happened. Exported so callers that verify a
// share (internal/engine, checking a node-sourced request's single
// proof share) can guarantee the curve is ready even when they never
// went through NewTestSectionKeySet themselves.
func EnsureBLSInit() { ensureBLSInit() }

// SectionShareIndex is an elder's position within the section's
// threshold key set, used both to derive that elder's secret share
// and to recover the combined group signature from a quorum of shares.
type SectionShareIndex uint32

// SectionSecretShare is one elder's share of the section's BLS secret
// key. It never leaves the elder that holds it; only the signatures it
// produces are ever sent on the wire.
type SectionSecretShare struct {
	Index SectionShareIndex
	sk    bls.SecretKey
}

// SignShare signs msg with this elder's secret share, producing a
// partial signature suitable for submission to the Signature
// Accumulator as part of a ProofShare.
func (s *SectionSecretShare) SignShare(msg []byte) []byte {
	sig := s.sk.SignByte(msg)
	return sig.Serialize()
}

// SectionKeySet is the public side of a section's threshold BLS
// keypair: the combined group public key plus the per-index public
// key shares needed to verify an individual elder's signature share
// before it is admitted to the accumulator.
type SectionKeySet struct {
	Threshold int
	GroupKey  bls.PublicKey
	Shares    map[SectionShareIndex]bls.PublicKey
}

// NewTestSectionKeySet generates a fresh threshold key set of size n
// with the given threshold, for use in tests and local development. It
// is not how a production section would provision keys (that happens
// via the routing layer's DKG, out of scope here), but it produces
// genuinely valid BLS shares an Accumulator will accept.
func NewTestSectionKeySet(n, threshold int) (*SectionKeySet, []*SectionSecretShare, error) {
	ensureBLSInit()
	if threshold < 1 || threshold > n {
		return nil, nil, errors.New("identity: threshold must be in [1, n]")
	}

	var master bls.SecretKey
	master.SetByCSPRNG()
	msk := master.GetMasterSecretKey(threshold)

	keySet := &SectionKeySet{
		Threshold: threshold,
		Shares:    make(map[SectionShareIndex]bls.PublicKey, n),
	}
	masterPub := bls.GetMasterPublicKey(msk)
	keySet.GroupKey = masterPub[0]

	shares := make([]*SectionSecretShare, 0, n)
	for i := 1; i <= n; i++ {
		var id bls.ID
		if err := id.SetDecString(itoa(i)); err != nil {
			return nil, nil, err
		}
		var sk bls.SecretKey
		if err := sk.Set(msk, &id); err != nil {
			return nil, nil, err
		}
		pub := sk.GetPublicKey()
		idx := SectionShareIndex(i)
		keySet.Shares[idx] = *pub
		shares = append(shares, &SectionSecretShare{Index: idx, sk: sk})
	}
	return keySet, shares, nil
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
