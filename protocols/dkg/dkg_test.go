package dkg

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

func startRounds(t *testing.T, partyIDs party.IDSlice, threshold int, pl *pool.Pool) []round.Session {
	t.Helper()
	rounds := make([]round.Session, 0, len(partyIDs))
	for _, id := range partyIDs {
		r, err := Start(testGroup, id, partyIDs, threshold, pl)(nil)
		require.NoError(t, err)
		rounds = append(rounds, r)
	}
	return rounds
}

func TestKeygen(t *testing.T) {
	pl := pool.NewPool(0)
	defer pl.TearDown()

	n, threshold := 5, 2
	partyIDs := test.PartyIDs(n)
	rounds := startRounds(t, partyIDs, threshold, pl)

	for {
		err, done := test.Rounds(rounds, nil)
		require.NoError(t, err)
		if done {
			break
		}
	}

	shares := make(map[party.ID]*keyshare.KeyShare, n)
	for _, r := range rounds {
		resultRound, ok := r.(*round.Output)
		require.True(t, ok)
		share, ok := resultRound.Result.(*keyshare.KeyShare)
		require.True(t, ok)
		require.NoError(t, share.Validate())
		shares[share.ID] = share
	}

	public := shares[partyIDs[0]].PublicPoint()
	for _, share := range shares {
		assert.True(t, share.PublicPoint().Equal(public))
		assert.Equal(t, shares[partyIDs[0]].ChainCode, share.ChainCode)
		assert.EqualValues(t, 0, share.Epoch)
		assert.Equal(t, threshold, share.Threshold)
	}

	// any threshold+1 shares interpolate to a secret key matching the
	// public point
	signers := partyIDs[:threshold+1]
	l := polynomial.Lagrange(testGroup, signers)
	secret := testGroup.NewScalar()
	for _, id := range signers {
		secret.Add(l[id].Mul(shares[id].ECDSA))
	}
	assert.True(t, secret.ActOnBase().Equal(public))
}

// badShareRule makes one party send inconsistent VSS shares.
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

func TestKeygenInvalidThreshold(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	for _, threshold := range []int{-1, 0, len(partyIDs)} {
		_, err := Start(testGroup, partyIDs[0], partyIDs, threshold, nil)(nil)
		assert.Error(t, err, "threshold %d", threshold)
	}
}

func TestKeygenInvalidShare(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	rounds := startRounds(t, partyIDs, 1, nil)

	rule := badShareRule{culprit: partyIDs[1]}
	var err error
	var done bool
	for !done {
		err, done = test.Rounds(rounds, rule)
		if err != nil {
			break
		}
	}
	require.Error(t, err)
	var shareErr InvalidShareError
	require.True(t, errors.As(err, &shareErr))
	assert.Equal(t, rule.culprit, shareErr.Culprit)
}
