package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"

	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// nodeIdentity is the gob-encoded shape persisted at root_dir/identity,
// a plain single-file gob record like engine.FileStateStore's role
// state — this file just never changes once written, so there is
// nothing to make atomic.
type nodeIdentity struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// loadOrCreateIdentity returns this peer's routing name and account
// key, generating and persisting a fresh Ed25519 keypair at path on
// first run. An Ed25519 public key is exactly 32 bytes, the same
// width as xorspace.Name, so the routing name is simply the public
// key's bytes — this peer's node id and its AccountKey (used as
// PUT's implicit owner when a node, not a client, is the requester)
// are one and the same value.
func loadOrCreateIdentity(path string) (xorspace.Name, identity.AccountKey, error) {
	if id, err := readIdentity(path); err == nil {
		return nameFromPublicKey(id.Public), identity.AccountKey(id.Public), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return xorspace.Name{}, nil, err
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return xorspace.Name{}, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xorspace.Name{}, nil, err
	}
	if err := writeIdentity(path, nodeIdentity{Public: pub, Private: priv}); err != nil {
		return xorspace.Name{}, nil, err
	}
	return nameFromPublicKey(pub), identity.AccountKey(pub), nil
}

func nameFromPublicKey(pub ed25519.PublicKey) xorspace.Name {
	var n xorspace.Name
	copy(n[:], pub)
	return n
}

func readIdentity(path string) (nodeIdentity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nodeIdentity{}, err
	}
	defer f.Close()
	var id nodeIdentity
	if err := gob.NewDecoder(f).Decode(&id); err != nil {
		return nodeIdentity{}, err
	}
	return id, nil
}

func writeIdentity(path string, id nodeIdentity) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(id); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
