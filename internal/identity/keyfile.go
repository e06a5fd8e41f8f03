package identity

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/herumi/bls-eth-go-binary/bls"
)

// wireSectionKeySet is SectionKeySet's on-disk shape: bls.PublicKey
// does not implement gob's interfaces itself, so the group key and
// every share's public key cross the wire as their own Serialize()
// bytes, the same way ProofShare.Signature already does for bls.Sign.
type wireSectionKeySet struct {
	Threshold int
	GroupKey  []byte
	Shares    map[SectionShareIndex][]byte
}

// WriteSectionKeySet writes the section's public key material to
// path, for distributing to every peer that will verify proof shares
// against it.
func WriteSectionKeySet(path string, ks *SectionKeySet) error {
	w := wireSectionKeySet{Threshold: ks.Threshold, GroupKey: ks.GroupKey.Serialize(), Shares: make(map[SectionShareIndex][]byte, len(ks.Shares))}
	for idx, pub := range ks.Shares {
		w.Shares[idx] = pub.Serialize()
	}
	return writeGobFile(path, w)
}

// ReadSectionKeySet loads a SectionKeySet previously written by
// WriteSectionKeySet.
func ReadSectionKeySet(path string) (*SectionKeySet, error) {
	ensureBLSInit()
	var w wireSectionKeySet
	if err := readGobFile(path, &w); err != nil {
		return nil, err
	}
	ks := &SectionKeySet{Threshold: w.Threshold, Shares: make(map[SectionShareIndex]bls.PublicKey, len(w.Shares))}
	if err := ks.GroupKey.Deserialize(w.GroupKey); err != nil {
		return nil, fmt.Errorf("identity: bad group key in %s: %w", path, err)
	}
	for idx, raw := range w.Shares {
		var pub bls.PublicKey
		if err := pub.Deserialize(raw); err != nil {
			return nil, fmt.Errorf("identity: bad share %d public key in %s: %w", idx, path, err)
		}
		ks.Shares[idx] = pub
	}
	return ks, nil
}

// wireSectionSecretShare is SectionSecretShare's on-disk shape. This
// file is this elder's own secret and must never be handed to another
// peer.
type wireSectionSecretShare struct {
	Index  SectionShareIndex
	Secret []byte
}

// WriteSectionSecretShare writes one elder's own secret share to
// path.
func WriteSectionSecretShare(path string, s *SectionSecretShare) error {
	w := wireSectionSecretShare{Index: s.Index, Secret: s.sk.Serialize()}
	return writeGobFile(path, w)
}

// ReadSectionSecretShare loads a secret share previously written by
// WriteSectionSecretShare.
func ReadSectionSecretShare(path string) (*SectionSecretShare, error) {
	ensureBLSInit()
	var w wireSectionSecretShare
	if err := readGobFile(path, &w); err != nil {
		return nil, err
	}
	var sk bls.SecretKey
	if err := sk.Deserialize(w.Secret); err != nil {
		return nil, fmt.Errorf("identity: bad secret share in %s: %w", path, err)
	}
	return &SectionSecretShare{Index: w.Index, sk: sk}, nil
}

func writeGobFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readGobFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
