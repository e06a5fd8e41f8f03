package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/vaulterr"
)

// TestResponseErrorSurvivesWire pins the one non-obvious property of
// the envelope encoding: a holder's failure reason travels as text,
// but must compare equal to its vaulterr sentinel again on the
// receiving side — the Coordinator's Full-Adults bookkeeping keys off
// exactly that identity.
func TestResponseErrorSurvivesWire(t *testing.T) {
	in := Rpc{Kind: RpcResponse, Response: &ResponseMsg{
		Response:  OpResponse{Kind: RespMutation, Err: vaulterr.ErrHolderFull},
		MessageID: chunk.NewMessageID(),
	}}
	payload, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(payload)
	require.NoError(t, err)
	require.ErrorIs(t, out.Response.Response.Err, vaulterr.ErrHolderFull)
}

// TestResponseUnknownErrorKeepsMessage: a reason outside the taxonomy
// still crosses the wire with its text intact, it just loses sentinel
// identity.
func TestResponseUnknownErrorKeepsMessage(t *testing.T) {
	in := Rpc{Kind: RpcResponse, Response: &ResponseMsg{
		Response:  OpResponse{Kind: RespGetIData, Err: errors.New("disk melted")},
		MessageID: chunk.NewMessageID(),
	}}
	payload, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(payload)
	require.NoError(t, err)
	require.EqualError(t, out.Response.Response.Err, "disk melted")
}

func TestRequestRoundTripKeepsProof(t *testing.T) {
	id := chunk.NewMessageID()
	in := Rpc{Kind: RpcRequest, Request: &RequestMsg{
		Request:   ClientRequest{Kind: ReqGet, Address: chunk.Address{Tag: chunk.Unpublished}},
		MessageID: id,
		Proof:     &ProofShare{ShareIndex: 3, SignatureShare: []byte{1, 2}, Message: []byte{9}},
	}}
	payload, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, id, out.Request.MessageID)
	require.NotNil(t, out.Request.Proof)
	require.EqualValues(t, 3, out.Request.Proof.ShareIndex)
}
