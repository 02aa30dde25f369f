package refresh

import (
	"errors"
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/ot"
	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/polynomial"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var _ round.BroadcastRound = (*round3)(nil)

// InvalidShareError is returned when a received zero share does not match
// the sender's committed polynomial, identifying the sender as the culprit.
type InvalidShareError struct {
	Culprit party.ID
}

func (e InvalidShareError) Error() string {
	return fmt.Sprintf("zero share from party %s does not match its commitment", e.Culprit)
}

type round3 struct {
	*round2

	otSend map[party.ID]*ot.CorreOTSendSetup

	vssPolynomials map[party.ID]*polynomial.Exponent
	shares         map[party.ID]curve.Scalar
	otMsgs         map[party.ID]*ot.BaseOTReceiveMessage
}

type broadcast3 struct {
	Decommitment  hash.Decommitment
	VSSPolynomial *polynomial.Exponent
}

type message3 struct {
	Share    curve.Scalar
	OTPoints *ot.BaseOTReceiveMessage
}

// StoreBroadcastMessage implements round.BroadcastRound.
//
// - check the decommitment
// - check the degree of the revealed polynomial
// - check that the constant term is the identity, so the sharing cannot
//   move the secret key.
func (r *round3) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.VSSPolynomial == nil {
		return round.ErrNilFields
	}
	if !r.HashForID(msg.From).Decommit(r.commitments[msg.From], body.Decommitment,
		body.VSSPolynomial) {
		return errors.New("failed to decommit")
	}
	if int(body.VSSPolynomial.Degree()) != r.Threshold() {
		return fmt.Errorf("vss polynomial has incorrect degree %d", body.VSSPolynomial.Degree())
	}
	if !body.VSSPolynomial.Constant().IsIdentity() {
		return errors.New("constant term of vss polynomial is not zero")
	}
	r.vssPolynomials[msg.From] = body.VSSPolynomial
	return nil
}

// VerifyMessage implements round.Round.
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
// - shift the secret share by ∑ⱼ fⱼ(i)
// - shift every public share by the summed polynomial
// - complete the fresh pairwise base OTs
// - bump the epoch, leaving public key and chain code untouched.
func (r *round3) Finalize(chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	secretShare := group.NewScalar().Set(r.share.ECDSA)
	secretShare.Add(r.vssSecret.Evaluate(r.SelfID().Scalar(group)))
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
		shifted := summed.Evaluate(j.Scalar(group)).Add(r.share.Public[j].ECDSA)
		public[j] = &keyshare.Public{ECDSA: shifted}
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

	refreshed := &keyshare.KeyShare{
		ID:        r.share.ID,
		Threshold: r.share.Threshold,
		Epoch:     r.share.Epoch + 1,
		ECDSA:     secretShare,
		ChainCode: r.share.ChainCode.Copy(),
		Public:    public,
		OT:        otSetups,
	}
	if err := refreshed.Validate(); err != nil {
		return r, err
	}
	if !refreshed.PublicPoint().Equal(r.share.PublicPoint()) {
		return r, errors.New("refresh moved the public key")
	}

	return r.ResultRound(refreshed), nil
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
