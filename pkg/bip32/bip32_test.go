package bip32

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
)

var testGroup = curve.Secp256k1{}

func testKey(t *testing.T) (curve.Point, []byte) {
	t.Helper()
	public := sample.ScalarUnit(rand.Reader, testGroup).ActOnBase()
	chaining := make([]byte, 32)
	_, err := rand.Read(chaining)
	require.NoError(t, err)
	return public, chaining
}

func TestDeriveScalarDeterministic(t *testing.T) {
	public, chaining := testKey(t)

	tweak1, child1, err := DeriveScalar(public, chaining, 7)
	require.NoError(t, err)
	tweak2, child2, err := DeriveScalar(public, chaining, 7)
	require.NoError(t, err)

	assert.True(t, tweak1.Equal(tweak2))
	assert.Equal(t, child1, child2)
	assert.Len(t, child1, 32)
}

func TestDeriveScalarVariesWithIndex(t *testing.T) {
	public, chaining := testKey(t)

	tweak1, child1, err := DeriveScalar(public, chaining, 0)
	require.NoError(t, err)
	tweak2, child2, err := DeriveScalar(public, chaining, 1)
	require.NoError(t, err)

	assert.False(t, tweak1.Equal(tweak2))
	assert.NotEqual(t, child1, child2)
}

func TestDeriveScalarRejectsHardened(t *testing.T) {
	public, chaining := testKey(t)
	_, _, err := DeriveScalar(public, chaining, hardenedBit|5)
	assert.ErrorIs(t, err, ErrHardenedDerivation)
}

func TestPathFrom(t *testing.T) {
	path, err := PathFrom("m/44/0/1")
	require.NoError(t, err)
	assert.Equal(t, []uint32{44, 0, 1}, path.Indices())
	assert.False(t, path.HasHardened())
	assert.Equal(t, "m/44/0/1", path.String())
}

func TestPathFromHardened(t *testing.T) {
	path, err := PathFrom("m/44'/0/1")
	require.NoError(t, err)
	assert.True(t, path.HasHardened())
	assert.True(t, Hardened(path.Indices()[0]))
}

func TestPathFromInvalid(t *testing.T) {
	for _, spec := range []string{"m/abc", "m/-1", "m//1", "m/4294967296"} {
		_, err := PathFrom(spec)
		assert.Error(t, err, "spec %q", spec)
	}
}

func TestFingerprint(t *testing.T) {
	public, _ := testKey(t)
	fp := Fingerprint(public)
	assert.Len(t, fp, 4)
	assert.Equal(t, fp, Fingerprint(public))
}
