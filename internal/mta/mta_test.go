package mta

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quorumkey/threshold-ecdsa/internal/ot"
	"github.com/quorumkey/threshold-ecdsa/internal/params"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
)

var testGroup = curve.Secp256k1{}

func setupPair(t *testing.T, h *hash.Hash) (*ot.CorreOTSendSetup, *ot.CorreOTReceiveSetup) {
	t.Helper()
	sender, setupMsg, err := ot.NewBaseOTSender(h.Clone(), testGroup)
	require.NoError(t, err)
	B, err := ot.BaseOTVerifySetup(h.Clone(), testGroup, setupMsg)
	require.NoError(t, err)
	var delta [params.SecBytes]byte
	_, err = rand.Read(delta[:])
	require.NoError(t, err)
	msg, sendSetup, err := ot.BaseOTReceive(h.Clone(), B, delta)
	require.NoError(t, err)
	receiveSetup, err := sender.BaseOTSend(h.Clone(), msg)
	require.NoError(t, err)
	return sendSetup, receiveSetup
}

func TestMtA(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("mta")})
	sendSetup, receiveSetup := setupPair(t, h)

	k := sample.ScalarUnit(rand.Reader, testGroup)
	gammaI := sample.ScalarUnit(rand.Reader, testGroup)
	gammaJ := sample.ScalarUnit(rand.Reader, testGroup)
	w := sample.ScalarUnit(rand.Reader, testGroup)

	initiator, startMsg, err := NewInitiator(h.Clone(), receiveSetup, k, gammaI)
	require.NoError(t, err)

	response, kGammaJ, gammaWJ, err := Respond(h.Clone(), sendSetup, gammaJ, w, startMsg)
	require.NoError(t, err)

	kGammaI, gammaWI, err := initiator.Finish(response)
	require.NoError(t, err)

	kGamma := testGroup.NewScalar().Set(kGammaI).Add(kGammaJ)
	require.True(t, kGamma.Equal(testGroup.NewScalar().Set(k).Mul(gammaJ)))

	gammaW := testGroup.NewScalar().Set(gammaWI).Add(gammaWJ)
	require.True(t, gammaW.Equal(testGroup.NewScalar().Set(gammaI).Mul(w)))
}

func TestMtARejectsMissingMessages(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("mta nil")})
	sendSetup, receiveSetup := setupPair(t, h)

	k := sample.ScalarUnit(rand.Reader, testGroup)
	gamma := sample.ScalarUnit(rand.Reader, testGroup)

	initiator, _, err := NewInitiator(h.Clone(), receiveSetup, k, gamma)
	require.NoError(t, err)

	_, _, _, err = Respond(h.Clone(), sendSetup, gamma, k, nil)
	require.ErrorIs(t, err, ot.ErrProtocol)

	_, _, err = initiator.Finish(nil)
	require.ErrorIs(t, err, ot.ErrProtocol)
}
