package dsg

import (
	"crypto/rand"

	"github.com/quorumkey/threshold-ecdsa/internal/mta"
	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/internal/types"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var _ round.Round = (*round1)(nil)

type round1 struct {
	*round.Helper
	share *keyshare.KeyShare
	// secretShare = wᵢ = λᵢ·xᵢ
	secretShare curve.Scalar
	messageHash []byte
}

// VerifyMessage implements round.Round.
func (round1) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (round1) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// - sample the nonce share kᵢ and the blinding share γᵢ
// - commit to the pair (Rᵢ, Γᵢ) = (kᵢ•G, γᵢ•G)
// - open a multiplicative-to-additive conversion towards every other
//   signer, encoding kᵢ and γᵢ.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	// Bind the epoch into the transcript. Rounds 2 and onward compare the
	// epochs explicitly, so all signers write the same value here or abort.
	r.UpdateHashState(types.EpochWrapper(r.share.Epoch))

	k := sample.ScalarUnit(rand.Reader, group)
	gamma := sample.ScalarUnit(rand.Reader, group)
	bigR := k.ActOnBase()
	bigGamma := gamma.ActOnBase()

	commitment, decommitment, err := r.HashForID(r.SelfID()).Commit(bigR, bigGamma)
	if err != nil {
		return r, err
	}

	initiators := make(map[party.ID]*mta.Initiator, len(r.OtherPartyIDs()))
	for _, j := range r.OtherPartyIDs() {
		initiator, startMsg, err := mta.NewInitiator(
			r.HashForPair(r.SelfID(), j), r.share.OT[j].Receive, k, gamma)
		if err != nil {
			return r, err
		}
		initiators[j] = initiator
		if err = r.SendMessage(out, &message2{Start: startMsg}, j); err != nil {
			return r, err
		}
	}

	if err = r.BroadcastMessage(out, &broadcast2{
		Commitment: commitment,
		Epoch:      r.share.Epoch,
	}); err != nil {
		return r, err
	}

	return &round2{
		round1:       r,
		k:            k,
		gamma:        gamma,
		bigR:         bigR,
		bigGamma:     bigGamma,
		decommitment: decommitment,
		initiators:   initiators,
		commitments:  map[party.ID]hash.Commitment{},
		starts:       map[party.ID]*mta.StartMessage{},
	}, nil
}

// MessageContent implements round.Round.
func (round1) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (round1) Number() round.Number { return 1 }
