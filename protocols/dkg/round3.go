package dkg

import (
	"errors"
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/ot"
	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/internal/types"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/polynomial"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var _ round.BroadcastRound = (*round3)(nil)

// InvalidShareError is returned when a received VSS share does not match the
// sender's committed polynomial, identifying the sender as the culprit.
type InvalidShareError struct {
	Culprit party.ID
}

func (e InvalidShareError) Error() string {
	return fmt.Sprintf("vss share from party %s does not match its commitment", e.Culprit)
}

type round3 struct {
	*round2

	// otSend[j] = correlated OT sender setup towards party j
	otSend map[party.ID]*ot.CorreOTSendSetup

	// chainKeys[j] = ridⱼ
	chainKeys map[party.ID]types.RID
	// vssPolynomials[j] = Fⱼ(X)
	vssPolynomials map[party.ID]*polynomial.Exponent
	// shares[j] = fⱼ(i), the share received from party j
	shares map[party.ID]curve.Scalar
	// otMsgs[j] = base OT points received from party j
	otMsgs map[party.ID]*ot.BaseOTReceiveMessage
}

type broadcast3 struct {
	ChainKey      types.RID
	Decommitment  hash.Decommitment
	VSSPolynomial *polynomial.Exponent
}

type message3 struct {
	Share    curve.Scalar
	OTPoints *ot.BaseOTReceiveMessage
}

// StoreBroadcastMessage implements round.BroadcastRound.
//
// - check the decommitment against the round 1 commitment
// - check the degree of the revealed polynomial.
func (r *round3) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.VSSPolynomial == nil {
		return round.ErrNilFields
	}
	if err := body.ChainKey.Validate(); err != nil {
		return err
	}
	if !r.HashForID(msg.From).Decommit(r.commitments[msg.From], body.Decommitment,
		body.VSSPolynomial, body.ChainKey) {
		return errors.New("failed to decommit")
	}
	if int(body.VSSPolynomial.Degree()) != r.Threshold() {
		return fmt.Errorf("vss polynomial has incorrect degree %d", body.VSSPolynomial.Degree())
	}
	r.chainKeys[msg.From] = body.ChainKey
	r.vssPolynomials[msg.From] = body.VSSPolynomial
	return nil
}

// VerifyMessage implements round.Round.
//
// - verify the share against the sender's revealed polynomial.
func (r *round3) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.Share == nil || body.OTPoints == nil {
		return round.ErrNilFields
	}
	expected := r.vssPolynomials[msg.From].Evaluate(r.SelfID().Scalar(r.Group()))
	if !body.Share.ActOnBase().Equal(expected) {
		return InvalidShareError{Culprit: msg.From}
	}
	return nil
}

// StoreMessage implements round.Round.
func (r *round3) StoreMessage(msg round.Message) error {
	body := msg.Content.(*message3)
	r.shares[msg.From] = body.Share
	r.otMsgs[msg.From] = body.OTPoints
	return nil
}

// Finalize implements round.Round.
//
// - compute the secret share xᵢ = ∑ⱼ fⱼ(i)
// - compute every party's public share from the summed polynomial
// - combine the chain key contributions
// - complete the pairwise base OTs.
func (r *round3) Finalize(chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	secretShare := r.vssSecret.Evaluate(r.SelfID().Scalar(group))
	for _, j := range r.OtherPartyIDs() {
		secretShare.Add(r.shares[j])
	}
	r.vssSecret.Reset()

	polynomials := make([]*polynomial.Exponent, 0, r.N())
	for _, j := range r.PartyIDs() {
		polynomials = append(polynomials, r.vssPolynomials[j])
	}
	summed, err := polynomial.Sum(polynomials)
	if err != nil {
		return r, err
	}

	public := make(map[party.ID]*keyshare.Public, r.N())
	for _, j := range r.PartyIDs() {
		public[j] = &keyshare.Public{ECDSA: summed.Evaluate(j.Scalar(group))}
	}

	chainCode := types.EmptyRID()
	for _, j := range r.PartyIDs() {
		chainCode.XOR(r.chainKeys[j])
	}

	otSetups := make(map[party.ID]*keyshare.PairwiseOT, len(r.OtherPartyIDs()))
	for _, j := range r.OtherPartyIDs() {
		receiveSetup, err := r.baseOTSender.BaseOTSend(r.HashForPair(r.SelfID(), j), r.otMsgs[j])
		if err != nil {
			return r.AbortRound(err, j), nil
		}
		otSetups[j] = &keyshare.PairwiseOT{
			Send:    r.otSend[j],
			Receive: receiveSetup,
		}
	}

	share := &keyshare.KeyShare{
		ID:        r.SelfID(),
		Threshold: r.Threshold(),
		Epoch:     0,
		ECDSA:     secretShare,
		ChainCode: chainCode,
		Public:    public,
		OT:        otSetups,
	}
	if err := share.Validate(); err != nil {
		return r, err
	}

	r.UpdateHashState(chainCode)
	return r.ResultRound(share), nil
}

// MessageContent implements round.Round.
func (r *round3) MessageContent() round.Content {
	return &message3{Share: r.Group().NewScalar()}
}

// BroadcastContent implements round.BroadcastRound.
func (r *round3) BroadcastContent() round.Content {
	return &broadcast3{VSSPolynomial: polynomial.EmptyExponent(r.Group())}
}

// RoundNumber implements round.Content.
func (broadcast3) RoundNumber() round.Number { return 3 }

// RoundNumber implements round.Content.
func (message3) RoundNumber() round.Number { return 3 }

// Number implements round.Round.
func (round3) Number() round.Number { return 3 }
