package refresh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/internal/test"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/polynomial"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
	"github.com/quorumkey/threshold-ecdsa/pkg/pool"
)

var testGroup = curve.Secp256k1{}

func runRefresh(t *testing.T, shares map[party.ID]*keyshare.KeyShare, partyIDs party.IDSlice, rule test.Rule) (map[party.ID]*keyshare.KeyShare, error) {
	t.Helper()
	rounds := make([]round.Session, 0, len(partyIDs))
	for _, id := range partyIDs {
		r, err := Start(shares[id], nil)(nil)
		require.NoError(t, err)
		rounds = append(rounds, r)
	}

	for {
		err, done := test.Rounds(rounds, rule)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	refreshed := make(map[party.ID]*keyshare.KeyShare, len(partyIDs))
	for _, r := range rounds {
		resultRound, ok := r.(*round.Output)
		require.True(t, ok)
		share, ok := resultRound.Result.(*keyshare.KeyShare)
		require.True(t, ok)
		require.NoError(t, share.Validate())
		refreshed[share.ID] = share
	}
	return refreshed, nil
}

func TestRefresh(t *testing.T) {
	pl := pool.NewPool(0)
	defer pl.TearDown()

	n, threshold := 4, 1
	partyIDs := test.PartyIDs(n)
	shares, secret, err := test.GenerateShares(testGroup, partyIDs, threshold)
	require.NoError(t, err)
	public := secret.ActOnBase()

	refreshed, err := runRefresh(t, shares, partyIDs, nil)
	require.NoError(t, err)

	for id, share := range refreshed {
		assert.True(t, share.PublicPoint().Equal(public))
		assert.Equal(t, shares[id].ChainCode, share.ChainCode)
		assert.EqualValues(t, 1, share.Epoch)
		assert.False(t, share.ECDSA.Equal(shares[id].ECDSA))
	}

	// the refreshed shares still interpolate to the original secret
	signers := partyIDs[:threshold+1]
	l := polynomial.Lagrange(testGroup, signers)
	reconstructed := testGroup.NewScalar()
	for _, id := range signers {
		reconstructed.Add(l[id].Mul(testGroup.NewScalar().Set(refreshed[id].ECDSA)))
	}
	assert.True(t, reconstructed.Equal(secret))

	// a stale share cannot be combined with refreshed ones
	_, err = keyshare.Reconstruct(map[party.ID]*keyshare.KeyShare{
		partyIDs[0]: shares[partyIDs[0]],
		partyIDs[1]: refreshed[partyIDs[1]],
	})
	assert.ErrorIs(t, err, keyshare.ErrEpochMismatch)
}

// nonZeroConstantRule makes one party share a polynomial that would shift
// the key.
type nonZeroConstantRule struct {
	culprit party.ID
}

func (nonZeroConstantRule) ModifyAfter(round.Session) {}
func (nonZeroConstantRule) ModifyContent(round.Session, party.ID, round.Content) {
}
func (rule nonZeroConstantRule) ModifyBefore(r round.Session) {
	r1, ok := r.(*round1)
	if !ok || r1.SelfID() != rule.culprit {
		return
	}
	group := r1.Group()
	r1.share.ECDSA = group.NewScalar().Set(r1.share.ECDSA).Add(group.NewScalar().SetUInt32(1))
}

func TestRefreshEpochMismatch(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)
	// party 2 refreshed without the others
	shares[2].Epoch = 1

	_, err = runRefresh(t, shares, partyIDs, nil)
	assert.ErrorIs(t, err, keyshare.ErrEpochMismatch)
}

func TestRefreshTamperedSecret(t *testing.T) {
	n, threshold := 3, 1
	partyIDs := test.PartyIDs(n)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, threshold)
	require.NoError(t, err)

	_, err = runRefresh(t, shares, partyIDs, nonZeroConstantRule{culprit: partyIDs[0]})
	require.Error(t, err)
}

// badShareRule makes one party send inconsistent zero shares.
type badShareRule struct {
	culprit party.ID
}

func (badShareRule) ModifyBefore(round.Session) {}
func (badShareRule) ModifyAfter(round.Session)  {}
func (rule badShareRule) ModifyContent(rNext round.Session, to party.ID, content round.Content) {
	if rNext.SelfID() != rule.culprit {
		return
	}
	if body, ok := content.(*message3); ok {
		body.Share.Add(rNext.Group().NewScalar().SetUInt32(1))
	}
}

func TestRefreshInvalidShare(t *testing.T) {
	n, threshold := 3, 1
	partyIDs := test.PartyIDs(n)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, threshold)
	require.NoError(t, err)

	rule := badShareRule{culprit: partyIDs[2]}
	_, err = runRefresh(t, shares, partyIDs, rule)
	require.Error(t, err)
	var shareErr InvalidShareError
	require.True(t, errors.As(err, &shareErr))
	assert.Equal(t, rule.culprit, shareErr.Culprit)
}
