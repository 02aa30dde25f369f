package ot

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quorumkey/threshold-ecdsa/internal/params"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
)

var testGroup = curve.Secp256k1{}

func runBaseOT(t *testing.T, h *hash.Hash) (*CorreOTSendSetup, *CorreOTReceiveSetup) {
	t.Helper()
	sender, setupMsg, err := NewBaseOTSender(h.Clone(), testGroup)
	require.NoError(t, err)
	B, err := BaseOTVerifySetup(h.Clone(), testGroup, setupMsg)
	require.NoError(t, err)

	var delta [params.SecBytes]byte
	_, err = rand.Read(delta[:])
	require.NoError(t, err)

	msg, sendSetup, err := BaseOTReceive(h.Clone(), B, delta)
	require.NoError(t, err)
	receiveSetup, err := sender.BaseOTSend(h.Clone(), msg)
	require.NoError(t, err)
	return sendSetup, receiveSetup
}

func TestBaseOT(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("base ot")})
	sendSetup, receiveSetup := runBaseOT(t, h)

	for k := 0; k < params.OTParam; k++ {
		if bitAt(sendSetup.Delta[:], k) == 0 {
			require.Equal(t, receiveSetup.K0[k], sendSetup.KDelta[k])
		} else {
			require.Equal(t, receiveSetup.K1[k], sendSetup.KDelta[k])
		}
	}
}

func TestBaseOTRejectsBadProof(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("base ot proof")})
	_, setupMsg, err := NewBaseOTSender(h.Clone(), testGroup)
	require.NoError(t, err)

	other := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("other session")})
	_, err = BaseOTVerifySetup(other, testGroup, setupMsg)
	require.ErrorIs(t, err, ErrProtocol)
}

func TestCorreOTExtension(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("corre ot")})
	sendSetup, receiveSetup := runBaseOT(t, h)

	choices := make([]byte, 16)
	_, err := rand.Read(choices)
	require.NoError(t, err)
	batchSize := 8 * len(choices)

	msg, receiveResult := CorreOTReceive(h.Clone(), receiveSetup, choices)
	sendResult, err := CorreOTSend(h.Clone(), sendSetup, batchSize, msg)
	require.NoError(t, err)

	// Q[j] = T[j] ⊕ xⱼ·Δ
	for j := 0; j < batchSize; j++ {
		expected := receiveResult.T[j]
		if bitAt(choices, j) == 1 {
			for b := 0; b < params.SecBytes; b++ {
				expected[b] ^= sendSetup.Delta[b]
			}
		}
		require.Equal(t, expected, sendResult.Q[j])
	}
}

func TestCorreOTExtensionsAreIndependent(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("corre ot salt")})
	_, receiveSetup := runBaseOT(t, h)

	choices := make([]byte, 16)
	ctx1 := h.Fork(&hash.BytesWithDomain{TheDomain: "Extension", Bytes: []byte{1}})
	ctx2 := h.Fork(&hash.BytesWithDomain{TheDomain: "Extension", Bytes: []byte{2}})
	msg1, _ := CorreOTReceive(ctx1, receiveSetup, choices)
	msg2, _ := CorreOTReceive(ctx2, receiveSetup, choices)

	// same setup and same choices, but a different context, must produce
	// unrelated masked rows.
	require.NotEqual(t, msg1.U, msg2.U)
}

func TestExtendedOT(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("extended ot")})
	sendSetup, receiveSetup := runBaseOT(t, h)

	choices := make([]byte, 16)
	_, err := rand.Read(choices)
	require.NoError(t, err)
	batchSize := 8 * len(choices)

	msg, receiveResult := ExtendedOTReceive(h.Clone(), receiveSetup, choices)
	sendResult, err := ExtendedOTSend(h.Clone(), sendSetup, batchSize, msg)
	require.NoError(t, err)

	for i := 0; i < batchSize; i++ {
		if bitAt(choices, i) == 0 {
			require.Equal(t, sendResult._V0[i], receiveResult._VChoices[i])
		} else {
			require.Equal(t, sendResult._V1[i], receiveResult._VChoices[i])
		}
	}
}

func TestExtendedOTDetectsTampering(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("extended ot tamper")})
	sendSetup, receiveSetup := runBaseOT(t, h)

	choices := make([]byte, 16)
	msg, _ := ExtendedOTReceive(h.Clone(), receiveSetup, choices)
	msg.X[0] ^= 1
	_, err := ExtendedOTSend(h.Clone(), sendSetup, 8*len(choices), msg)
	require.ErrorIs(t, err, ErrConsistency)
}

func TestAdditiveOT(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("additive ot")})
	sendSetup, receiveSetup := runBaseOT(t, h)

	alpha := [2]curve.Scalar{
		sample.Scalar(rand.Reader, testGroup),
		sample.Scalar(rand.Reader, testGroup),
	}
	choices := make([]byte, 8)
	_, err := rand.Read(choices)
	require.NoError(t, err)
	batchSize := 8 * len(choices)

	receiver := NewAdditiveOTReceiver(h.Clone(), receiveSetup, testGroup, choices)
	receiveMsg := receiver.Round1()

	sender := NewAdditiveOTSender(h.Clone(), sendSetup, batchSize, alpha)
	sendMsg, senderResult, err := sender.Round1(receiveMsg)
	require.NoError(t, err)

	receiverResult, err := receiver.Round2(sendMsg)
	require.NoError(t, err)

	for i := 0; i < batchSize; i++ {
		for k := 0; k < 2; k++ {
			sum := testGroup.NewScalar().Set(senderResult[i][k]).Add(receiverResult[i][k])
			expected := testGroup.NewScalar()
			if bitAt(choices, i) == 1 {
				expected.Set(alpha[k])
			}
			require.True(t, sum.Equal(expected), "instance %d input %d", i, k)
		}
	}
}

func TestMultiply(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("multiply")})
	sendSetup, receiveSetup := runBaseOT(t, h)

	alpha := sample.Scalar(rand.Reader, testGroup)
	beta := sample.Scalar(rand.Reader, testGroup)

	receiver, err := NewMultiplyReceiver(h.Clone(), receiveSetup, beta)
	require.NoError(t, err)
	receiveMsg := receiver.Round1()

	sender := NewMultiplySender(h.Clone(), sendSetup, alpha)
	sendMsg, senderShare, err := sender.Round1(receiveMsg)
	require.NoError(t, err)

	receiverShare, err := receiver.Round2(sendMsg)
	require.NoError(t, err)

	sum := testGroup.NewScalar().Set(senderShare).Add(receiverShare)
	expected := testGroup.NewScalar().Set(alpha).Mul(beta)
	require.True(t, sum.Equal(expected))
}

func TestMultiplyDetectsBadCheckValue(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("multiply tamper")})
	sendSetup, receiveSetup := runBaseOT(t, h)

	alpha := sample.Scalar(rand.Reader, testGroup)
	beta := sample.Scalar(rand.Reader, testGroup)

	receiver, err := NewMultiplyReceiver(h.Clone(), receiveSetup, beta)
	require.NoError(t, err)
	receiveMsg := receiver.Round1()

	sender := NewMultiplySender(h.Clone(), sendSetup, alpha)
	sendMsg, _, err := sender.Round1(receiveMsg)
	require.NoError(t, err)

	bad, err := sample.Scalar(rand.Reader, testGroup).MarshalBinary()
	require.NoError(t, err)
	sendMsg.UCheck = bad

	_, err = receiver.Round2(sendMsg)
	require.ErrorIs(t, err, ErrConsistency)
}

func TestEncodeRoundTrip(t *testing.T) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test", Bytes: []byte("encode")})
	gadget := makeGadget(h, testGroup)
	noise := gadget[scalarBitLen(testGroup):]

	beta := sample.Scalar(rand.Reader, testGroup)
	choices, err := encode(beta, noise)
	require.NoError(t, err)
	require.Equal(t, len(gadget), 8*len(choices))

	recovered := testGroup.NewScalar()
	mul := testGroup.NewScalar()
	for i := range gadget {
		if bitAt(choices, i) == 1 {
			recovered.Add(mul.Set(gadget[i]))
		}
	}
	require.True(t, recovered.Equal(beta))
}
