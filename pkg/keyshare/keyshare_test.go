package keyshare_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumkey/threshold-ecdsa/internal/test"
	"github.com/quorumkey/threshold-ecdsa/pkg/bip32"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var testGroup = curve.Secp256k1{}

func TestKeyShareValidate(t *testing.T) {
	partyIDs := test.PartyIDs(4)
	shares, secret, err := test.GenerateShares(testGroup, partyIDs, 2)
	require.NoError(t, err)

	public := secret.ActOnBase()
	for _, share := range shares {
		require.NoError(t, share.Validate())
		assert.True(t, share.PublicPoint().Equal(public))
		assert.Equal(t, shares[1].ChainCode, share.ChainCode)
	}
}

func TestKeyShareValidateMissingOT(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)

	share := shares[1]
	delete(share.OT, 2)
	assert.Error(t, share.Validate())
}

func TestKeyShareValidateZeroThreshold(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)

	share := shares[1]
	share.Threshold = 0
	assert.Error(t, share.Validate())
}

func TestKeyShareCanSign(t *testing.T) {
	partyIDs := test.PartyIDs(5)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 2)
	require.NoError(t, err)

	share := shares[2]
	assert.True(t, share.CanSign(party.NewIDSlice([]party.ID{1, 2, 3})))
	assert.True(t, share.CanSign(partyIDs))
	// too few signers
	assert.False(t, share.CanSign(party.NewIDSlice([]party.ID{1, 2})))
	// self not included
	assert.False(t, share.CanSign(party.NewIDSlice([]party.ID{1, 3, 4})))
	// unknown signer
	assert.False(t, share.CanSign(party.NewIDSlice([]party.ID{1, 2, 6})))
}

func TestKeyShareDeriveChild(t *testing.T) {
	partyIDs := test.PartyIDs(4)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)

	parentPublic := shares[1].PublicPoint()
	var childPublic curve.Point
	var childChainCode []byte
	for _, share := range shares {
		child, err := share.DeriveChild(42)
		require.NoError(t, err)
		require.NoError(t, child.Validate())
		if childPublic == nil {
			childPublic = child.PublicPoint()
			childChainCode = child.ChainCode
		}
		assert.True(t, child.PublicPoint().Equal(childPublic))
		assert.EqualValues(t, childChainCode, child.ChainCode)
		assert.NotEqual(t, share.ChainCode, child.ChainCode)
	}
	assert.False(t, childPublic.Equal(parentPublic))
}

func TestKeyShareDeriveChildCopiesOT(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)

	parent := shares[1]
	child, err := parent.DeriveChild(7)
	require.NoError(t, err)

	// removing a correlation from the child must not touch the parent
	delete(child.OT, 2)
	assert.Error(t, child.Validate())
	require.NoError(t, parent.Validate())
	assert.NotNil(t, parent.OT[2])
}

func TestKeyShareDeriveChildHardened(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)

	_, err = shares[1].DeriveChild(1 << 31)
	assert.ErrorIs(t, err, bip32.ErrHardenedDerivation)
}

func TestKeyShareDerivePath(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)

	path, err := bip32.PathFrom("m/44/0/1")
	require.NoError(t, err)

	byPath, err := shares[1].DerivePath(path)
	require.NoError(t, err)

	stepwise := shares[1]
	for _, index := range []uint32{44, 0, 1} {
		stepwise, err = stepwise.DeriveChild(index)
		require.NoError(t, err)
	}
	assert.True(t, byPath.PublicPoint().Equal(stepwise.PublicPoint()))
	assert.Equal(t, stepwise.ChainCode, byPath.ChainCode)
}

func TestReconstruct(t *testing.T) {
	partyIDs := test.PartyIDs(5)
	shares, secret, err := test.GenerateShares(testGroup, partyIDs, 2)
	require.NoError(t, err)

	reconstructed, err := keyshare.Reconstruct(map[party.ID]*keyshare.KeyShare{
		1: shares[1], 3: shares[3], 4: shares[4],
	})
	require.NoError(t, err)
	assert.True(t, reconstructed.Equal(secret))

	_, err = keyshare.Reconstruct(map[party.ID]*keyshare.KeyShare{
		1: shares[1], 3: shares[3],
	})
	assert.Error(t, err)
}

func TestReconstructMixedEpochs(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)

	shares[2].Epoch = 1
	_, err = keyshare.Reconstruct(map[party.ID]*keyshare.KeyShare{
		1: shares[1], 2: shares[2],
	})
	assert.ErrorIs(t, err, keyshare.ErrEpochMismatch)
}

func TestKeyShareMarshalRoundTrip(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)

	share := shares[2]
	data, err := share.MarshalBinary()
	require.NoError(t, err)

	decoded := keyshare.EmptyKeyShare(testGroup)
	require.NoError(t, decoded.UnmarshalBinary(data))
	require.NoError(t, decoded.Validate())

	assert.Equal(t, share.ID, decoded.ID)
	assert.Equal(t, share.Threshold, decoded.Threshold)
	assert.Equal(t, share.Epoch, decoded.Epoch)
	assert.Equal(t, share.ChainCode, decoded.ChainCode)
	assert.True(t, share.ECDSA.Equal(decoded.ECDSA))
	assert.True(t, share.PublicPoint().Equal(decoded.PublicPoint()))
	assert.Equal(t, len(share.OT), len(decoded.OT))
}
