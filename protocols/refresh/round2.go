package refresh

import (
	"crypto/rand"
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/ot"
	"github.com/quorumkey/threshold-ecdsa/internal/params"
	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/polynomial"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var _ round.BroadcastRound = (*round2)(nil)

type round2 struct {
	*round1

	vssSecret     *polynomial.Polynomial
	vssPolynomial *polynomial.Exponent
	decommitment  hash.Decommitment

	baseOTSender *ot.BaseOTSender

	commitments  map[party.ID]hash.Commitment
	baseOTPoints map[party.ID]curve.Point
}

type broadcast2 struct {
	Commitment hash.Commitment
	OTSetup    *ot.BaseOTSetupMessage
	// Epoch of the sender's key share, checked against our own before any
	// share material is combined.
	Epoch uint64
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *round2) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.Epoch != r.share.Epoch {
		return fmt.Errorf("party %s is at epoch %d, we are at epoch %d: %w",
			msg.From, body.Epoch, r.share.Epoch, keyshare.ErrEpochMismatch)
	}
	if err := body.Commitment.Validate(); err != nil {
		return err
	}
	B, err := ot.BaseOTVerifySetup(r.HashForID(msg.From), r.Group(), body.OTSetup)
	if err != nil {
		return err
	}
	r.commitments[msg.From] = body.Commitment
	r.baseOTPoints[msg.From] = B
	return nil
}

// VerifyMessage implements round.Round.
func (round2) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (round2) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// - send the zero share fᵢ(j) to each party j, with the base OT response
// - reveal Fᵢ(X).
func (r *round2) Finalize(out chan<- *round.Message) (round.Session, error) {
	otSend := make(map[party.ID]*ot.CorreOTSendSetup, len(r.OtherPartyIDs()))
	for _, j := range r.OtherPartyIDs() {
		var delta [params.SecBytes]byte
		if _, err := rand.Read(delta[:]); err != nil {
			return r, err
		}
		otMsg, setup, err := ot.BaseOTReceive(r.HashForPair(j, r.SelfID()), r.baseOTPoints[j], delta)
		if err != nil {
			return r, err
		}
		otSend[j] = setup

		share := r.vssSecret.Evaluate(j.Scalar(r.Group()))
		if err := r.SendMessage(out, &message3{
			Share:    share,
			OTPoints: otMsg,
		}, j); err != nil {
			return r, err
		}
	}

	if err := r.BroadcastMessage(out, &broadcast3{
		Decommitment:  r.decommitment,
		VSSPolynomial: r.vssPolynomial,
	}); err != nil {
		return r, err
	}

	return &round3{
		round2:         r,
		otSend:         otSend,
		vssPolynomials: map[party.ID]*polynomial.Exponent{r.SelfID(): r.vssPolynomial},
		shares:         map[party.ID]curve.Scalar{},
		otMsgs:         map[party.ID]*ot.BaseOTReceiveMessage{},
	}, nil
}

// MessageContent implements round.Round.
func (round2) MessageContent() round.Content { return nil }

// BroadcastContent implements round.BroadcastRound.
func (round2) BroadcastContent() round.Content { return &broadcast2{} }

// RoundNumber implements round.Content.
func (broadcast2) RoundNumber() round.Number { return 2 }

// Number implements round.Round.
func (round2) Number() round.Number { return 2 }
