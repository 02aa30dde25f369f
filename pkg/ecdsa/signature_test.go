package ecdsa

import (
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
)

var testGroup = curve.Secp256k1{}

// sign produces a plain single-party ECDSA signature, for exercising
// verification and serialization.
func sign(x curve.Scalar, hash []byte) Signature {
	group := x.Curve()
	k := sample.ScalarUnit(rand.Reader, group)
	R := k.ActOnBase()
	r := R.XScalar()
	m := curve.FromHash(group, hash)

	// s = k⁻¹(m + r·x)
	s := group.NewScalar().Set(r).Mul(x).Add(m)
	s.Mul(group.NewScalar().Set(k).Invert())
	return Signature{R: R, S: s}
}

func messageHash(msg string) []byte {
	digest := sha256.Sum256([]byte(msg))
	return digest[:]
}

func TestSignatureVerify(t *testing.T) {
	x := sample.ScalarUnit(rand.Reader, testGroup)
	X := x.ActOnBase()
	hash := messageHash("hello")

	sig := sign(x, hash)
	assert.True(t, sig.Verify(X, hash))
	assert.False(t, sig.Verify(X, messageHash("goodbye")))

	Y := sample.ScalarUnit(rand.Reader, testGroup).ActOnBase()
	assert.False(t, sig.Verify(Y, hash))
}

func TestSignatureNormalize(t *testing.T) {
	x := sample.ScalarUnit(rand.Reader, testGroup)
	X := x.ActOnBase()
	hash := messageHash("normalize")

	sig := sign(x, hash)
	sig.Normalize()
	assert.False(t, sig.S.IsOverHalfOrder())
	assert.True(t, sig.Verify(X, hash))

	// normalizing twice changes nothing
	assert.False(t, sig.Normalize())
}

func TestSignatureRecoveryID(t *testing.T) {
	x := sample.ScalarUnit(rand.Reader, testGroup)
	hash := messageHash("recovery")

	sig := sign(x, hash)
	v := sig.RecoveryID()
	assert.LessOrEqual(t, v, byte(3))
	// the x coordinate of a random nonce point essentially never exceeds the
	// order, so the reduction bit must be clear.
	assert.Less(t, v, byte(2))
}

func TestSignatureSerialize(t *testing.T) {
	x := sample.ScalarUnit(rand.Reader, testGroup)
	hash := messageHash("serialize")
	sig := sign(x, hash)

	compact, err := sig.SerializeCompact()
	require.NoError(t, err)
	assert.Len(t, compact, 64)

	der, err := sig.SerializeDER()
	require.NoError(t, err)
	require.NotEmpty(t, der)
	assert.EqualValues(t, 0x30, der[0])
	assert.EqualValues(t, len(der)-2, der[1])

	// the DER form is accepted by decred's own parser and verifier
	parsed, err := decredecdsa.ParseDERSignature(der)
	require.NoError(t, err)
	assert.Equal(t, der, parsed.Serialize())

	xBytes, err := x.ActOnBase().MarshalBinary()
	require.NoError(t, err)
	pub, err := secp256k1.ParsePubKey(xBytes)
	require.NoError(t, err)
	assert.True(t, parsed.Verify(hash, pub))
}

func TestSignatureMarshalRoundTrip(t *testing.T) {
	x := sample.ScalarUnit(rand.Reader, testGroup)
	hash := messageHash("marshal")
	sig := sign(x, hash)

	rBytes, err := sig.R.MarshalBinary()
	require.NoError(t, err)
	sBytes, err := sig.S.MarshalBinary()
	require.NoError(t, err)

	decoded := EmptySignature(testGroup)
	require.NoError(t, decoded.R.UnmarshalBinary(rBytes))
	require.NoError(t, decoded.S.UnmarshalBinary(sBytes))
	assert.True(t, decoded.Verify(x.ActOnBase(), hash))
}
