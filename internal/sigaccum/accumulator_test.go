package sigaccum

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/identity"
)

func TestAccumulatorRequiresThreshold(t *testing.T) {
	keySet, shares, err := identity.NewTestSectionKeySet(4, 3)
	require.NoError(t, err)

	acc := NewAccumulator(keySet)
	key := Key{MessageID: chunk.NewMessageID()}
	msg := []byte("put chunk X")

	for i := 0; i < 2; i++ {
		sig := shares[i].SignShare(msg)
		proof, err := acc.Add(key, ProofShare{Index: shares[i].Index, Signature: sig, Message: msg})
		require.Nil(t, proof)
		require.ErrorIs(t, err, ErrNotEnoughShares)
	}

	sig := shares[2].SignShare(msg)
	proof, err := acc.Add(key, ProofShare{Index: shares[2].Index, Signature: sig, Message: msg})
	require.NoError(t, err)
	require.NotNil(t, proof)
	require.Equal(t, key, proof.Key)
}

func TestAccumulatorRejectsDoubleAccumulate(t *testing.T) {
	keySet, shares, err := identity.NewTestSectionKeySet(3, 2)
	require.NoError(t, err)

	acc := NewAccumulator(keySet)
	key := Key{MessageID: chunk.NewMessageID()}
	msg := []byte("delete chunk Y")

	for i := 0; i < 2; i++ {
		sig := shares[i].SignShare(msg)
		_, _ = acc.Add(key, ProofShare{Index: shares[i].Index, Signature: sig, Message: msg})
	}

	sig := shares[2].SignShare(msg)
	_, err = acc.Add(key, ProofShare{Index: shares[2].Index, Signature: sig, Message: msg})
	require.ErrorIs(t, err, ErrAlreadyAccumulated)
}

func TestAccumulatorRejectsInvalidShare(t *testing.T) {
	keySet, shares, err := identity.NewTestSectionKeySet(3, 2)
	require.NoError(t, err)

	acc := NewAccumulator(keySet)
	key := Key{MessageID: chunk.NewMessageID()}

	sig := shares[0].SignShare([]byte("signed for the wrong message"))
	_, err = acc.Add(key, ProofShare{Index: shares[0].Index, Signature: sig, Message: []byte("actual message")})
	require.ErrorIs(t, err, ErrInvalidShare)
}
