package dsg

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/internal/test"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
	"github.com/quorumkey/threshold-ecdsa/pkg/pool"
)

var testGroup = curve.Secp256k1{}

func runSign(t *testing.T, shares map[party.ID]*keyshare.KeyShare, signers party.IDSlice, messageHash []byte, rule test.Rule, pl *pool.Pool) ([]round.Session, error) {
	t.Helper()
	rounds := make([]round.Session, 0, len(signers))
	for _, id := range signers {
		r, err := Start(shares[id], signers, messageHash, pl)(nil)
		require.NoError(t, err)
		rounds = append(rounds, r)
	}
	for {
		err, done := test.Rounds(rounds, rule)
		if err != nil {
			return nil, err
		}
		if done {
			return rounds, nil
		}
	}
}

func TestSign(t *testing.T) {
	pl := pool.NewPool(0)
	defer pl.TearDown()

	n, threshold := 5, 2
	partyIDs := test.PartyIDs(n)
	shares, secret, err := test.GenerateShares(testGroup, partyIDs, threshold)
	require.NoError(t, err)
	public := secret.ActOnBase()

	messageHash := sha256.Sum256([]byte("transaction"))
	for _, signers := range []party.IDSlice{
		{1, 2, 3},
		{2, 4, 5},
		{1, 2, 3, 4, 5},
	} {
		rounds, err := runSign(t, shares, signers, messageHash[:], nil, pl)
		require.NoError(t, err)
		for _, r := range rounds {
			resultRound, ok := r.(*round.Output)
			require.True(t, ok)
			signature, ok := resultRound.Result.(*Signature)
			require.True(t, ok)
			assert.True(t, signature.Signature.Verify(public, messageHash[:]))
			assert.False(t, signature.Signature.S.IsOverHalfOrder())
			assert.Less(t, signature.RecoveryID, byte(2))
		}
	}
}

func TestSignEpochMismatch(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)
	// party 2 refreshed without the others
	shares[2].Epoch = 1

	messageHash := sha256.Sum256([]byte("transaction"))
	_, err = runSign(t, shares, party.IDSlice{1, 2}, messageHash[:], nil, nil)
	assert.ErrorIs(t, err, keyshare.ErrEpochMismatch)
}

func TestSignStartRejectsBadInputs(t *testing.T) {
	partyIDs := test.PartyIDs(4)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 2)
	require.NoError(t, err)

	messageHash := sha256.Sum256([]byte("transaction"))

	// too few signers
	_, err = Start(shares[1], []party.ID{1, 2}, messageHash[:], nil)(nil)
	assert.ErrorIs(t, err, ErrInsufficientParticipants)

	// self not a signer
	_, err = Start(shares[1], []party.ID{2, 3, 4}, messageHash[:], nil)(nil)
	assert.ErrorIs(t, err, ErrInsufficientParticipants)

	// signer without a share
	_, err = Start(shares[1], []party.ID{1, 2, 9}, messageHash[:], nil)(nil)
	assert.ErrorIs(t, err, ErrInsufficientParticipants)

	// wrong digest length
	_, err = Start(shares[1], []party.ID{1, 2, 3}, []byte("short"), nil)(nil)
	assert.Error(t, err)
}

// badSigmaRule makes one signer broadcast a corrupted partial signature.
type badSigmaRule struct {
	culprit party.ID
}

func (badSigmaRule) ModifyBefore(round.Session) {}
func (badSigmaRule) ModifyAfter(round.Session)  {}
func (rule badSigmaRule) ModifyContent(rNext round.Session, to party.ID, content round.Content) {
	if rNext.SelfID() != rule.culprit {
		return
	}
	if body, ok := content.(*broadcast4); ok {
		body.Sigma.Add(rNext.Group().NewScalar().SetUInt32(1))
	}
}

func TestSignBadSigma(t *testing.T) {
	partyIDs := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, partyIDs, 1)
	require.NoError(t, err)

	messageHash := sha256.Sum256([]byte("transaction"))
	signers := party.IDSlice{1, 2}
	rounds, err := runSign(t, shares, signers, messageHash[:], badSigmaRule{culprit: 2}, nil)
	require.NoError(t, err)

	for _, r := range rounds {
		abortRound, ok := r.(*round.Abort)
		require.True(t, ok)
		assert.ErrorIs(t, abortRound.Err, ErrSignatureVerification)
	}
}
