package dsg

import (
	"errors"

	"github.com/quorumkey/threshold-ecdsa/internal/mta"
	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/internal/types"
	"github.com/quorumkey/threshold-ecdsa/pkg/ecdsa"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var _ round.BroadcastRound = (*round3)(nil)

type round3 struct {
	*round2

	// deltaShare, chiShare accumulate this party's shares of k·γ and γ·x.
	deltaShare, chiShare curve.Scalar
	// bigRs[j] = Rⱼ
	bigRs map[party.ID]curve.Point
}

type broadcast3 struct {
	BigR         curve.Point
	BigGamma     curve.Point
	Decommitment hash.Decommitment
}

type message3 struct {
	Response *mta.ResponseMessage
}

// StoreBroadcastMessage implements round.BroadcastRound.
//
// - check the reveal of (Rⱼ, Γⱼ) against the round 1 commitment.
func (r *round3) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.BigR == nil || body.BigR.IsIdentity() || body.BigGamma == nil || body.BigGamma.IsIdentity() {
		return round.ErrNilFields
	}
	if !r.HashForID(msg.From).Decommit(r.commitments[msg.From], body.Decommitment, body.BigR, body.BigGamma) {
		return errors.New("failed to decommit nonce point")
	}
	r.bigRs[msg.From] = body.BigR
	return nil
}

// VerifyMessage implements round.Round.
func (round3) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.Response == nil || body.Response.KGamma == nil || body.Response.GammaW == nil {
		return round.ErrNilFields
	}
	return nil
}

// StoreMessage implements round.Round.
//
// - close the conversion opened in round 1, adding the initiator shares of
//   kᵢ·γⱼ and γᵢ·wⱼ. A failed consistency check here identifies the
//   responder as the culprit.
func (r *round3) StoreMessage(msg round.Message) error {
	body := msg.Content.(*message3)
	kGammaShare, gammaWShare, err := r.initiators[msg.From].Finish(body.Response)
	if err != nil {
		return err
	}
	r.deltaShare.Add(kGammaShare)
	r.chiShare.Add(gammaWShare)
	return nil
}

// Finalize implements round.Round.
//
// - assemble R = ∑ⱼRⱼ
// - build the presignature and broadcast this party's partial signature.
func (r *round3) Finalize(out chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	bigR := group.NewPoint()
	for _, j := range r.PartyIDs() {
		bigR = bigR.Add(r.bigRs[j])
	}
	if bigR.IsIdentity() {
		return r.AbortRound(errors.New("nonce point is identity")), nil
	}

	preSignature := &ecdsa.PreSignature{
		ID:         types.RID(r.Hash().Sum()),
		R:          bigR,
		GammaShare: r.gamma,
		DeltaShare: r.deltaShare,
		ChiShare:   r.chiShare,
	}
	if err := preSignature.Validate(); err != nil {
		return r, err
	}

	sigShare := preSignature.SignatureShare(r.messageHash)
	if err := r.BroadcastMessage(out, &broadcast4{
		DeltaShare: sigShare.DeltaShare,
		Sigma:      sigShare.Sigma,
	}); err != nil {
		return r, err
	}

	return &round4{
		round3:       r,
		preSignature: preSignature,
		sigShares:    map[party.ID]*ecdsa.SignatureShare{r.SelfID(): sigShare},
	}, nil
}

// MessageContent implements round.Round.
func (round3) MessageContent() round.Content { return &message3{} }

// BroadcastContent implements round.BroadcastRound.
func (r *round3) BroadcastContent() round.Content {
	group := r.Group()
	return &broadcast3{BigR: group.NewPoint(), BigGamma: group.NewPoint()}
}

// RoundNumber implements round.Content.
func (broadcast3) RoundNumber() round.Number { return 3 }

// RoundNumber implements round.Content.
func (message3) RoundNumber() round.Number { return 3 }

// Number implements round.Round.
func (round3) Number() round.Number { return 3 }
