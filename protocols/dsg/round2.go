package dsg

import (
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/mta"
	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var _ round.BroadcastRound = (*round2)(nil)

type round2 struct {
	*round1

	// k = kᵢ, gamma = γᵢ
	k, gamma curve.Scalar
	// bigR = Rᵢ = kᵢ•G, bigGamma = Γᵢ = γᵢ•G
	bigR, bigGamma curve.Point
	decommitment   hash.Decommitment

	// initiators[j] = pending conversion opened towards party j
	initiators map[party.ID]*mta.Initiator

	// commitments[j] = commitment to Rⱼ
	commitments map[party.ID]hash.Commitment
	// starts[j] = conversion opened by party j towards us
	starts map[party.ID]*mta.StartMessage
}

type broadcast2 struct {
	Commitment hash.Commitment
	// Epoch of the sender's key share, checked against our own before any
	// share material is combined.
	Epoch uint64
}

type message2 struct {
	Start *mta.StartMessage
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
	r.commitments[msg.From] = body.Commitment
	return nil
}

// VerifyMessage implements round.Round.
func (round2) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.Start == nil || body.Start.KGamma == nil || body.Start.GammaW == nil {
		return round.ErrNilFields
	}
	return nil
}

// StoreMessage implements round.Round.
func (r *round2) StoreMessage(msg round.Message) error {
	body := msg.Content.(*message2)
	r.starts[msg.From] = body.Start
	return nil
}

// Finalize implements round.Round.
//
// - reveal Rᵢ and Γᵢ
// - respond to every conversion opened towards us, encoding γᵢ and wᵢ,
//   and keep the responder shares of kⱼ·γᵢ and γⱼ·wᵢ.
func (r *round2) Finalize(out chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	// deltaShare accumulates this party's share of k·γ, starting with the
	// diagonal term kᵢ·γᵢ. chiShare does the same for γ·x.
	deltaShare := group.NewScalar().Set(r.k).Mul(r.gamma)
	chiShare := group.NewScalar().Set(r.gamma).Mul(r.secretShare)

	for _, j := range r.OtherPartyIDs() {
		response, kGammaShare, gammaWShare, err := mta.Respond(
			r.HashForPair(j, r.SelfID()), r.share.OT[j].Send,
			r.gamma, r.secretShare, r.starts[j])
		if err != nil {
			return r.AbortRound(err, j), nil
		}
		deltaShare.Add(kGammaShare)
		chiShare.Add(gammaWShare)
		if err = r.SendMessage(out, &message3{Response: response}, j); err != nil {
			return r, err
		}
	}

	if err := r.BroadcastMessage(out, &broadcast3{
		BigR:         r.bigR,
		BigGamma:     r.bigGamma,
		Decommitment: r.decommitment,
	}); err != nil {
		return r, err
	}

	return &round3{
		round2:     r,
		deltaShare: deltaShare,
		chiShare:   chiShare,
		bigRs:      map[party.ID]curve.Point{r.SelfID(): r.bigR},
	}, nil
}

// MessageContent implements round.Round.
func (round2) MessageContent() round.Content { return &message2{} }

// BroadcastContent implements round.BroadcastRound.
func (round2) BroadcastContent() round.Content { return &broadcast2{} }

// RoundNumber implements round.Content.
func (broadcast2) RoundNumber() round.Number { return 2 }

// RoundNumber implements round.Content.
func (message2) RoundNumber() round.Number { return 2 }

// Number implements round.Round.
func (round2) Number() round.Number { return 2 }
