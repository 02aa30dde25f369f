package refresh

import (
	"github.com/quorumkey/threshold-ecdsa/internal/ot"
	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/internal/types"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/polynomial"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var _ round.Round = (*round1)(nil)

type round1 struct {
	*round.Helper
	share *keyshare.KeyShare
}

// VerifyMessage implements round.Round.
func (round1) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (round1) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// - sample the zero sharing polynomial fᵢ, with fᵢ(0) = 0
// - commit to Fᵢ(X) = fᵢ(X)•G
// - announce a fresh base OT point with a proof of knowledge.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	// Bind the epoch into the transcript. Round 2 compares the epochs
	// explicitly, so all parties write the same value here or abort.
	r.UpdateHashState(types.EpochWrapper(r.share.Epoch))

	vssSecret := polynomial.NewPolynomial(group, r.Threshold(), nil)
	vssPolynomial := polynomial.NewPolynomialExponent(vssSecret)

	commitment, decommitment, err := r.HashForID(r.SelfID()).Commit(vssPolynomial)
	if err != nil {
		return r, err
	}

	baseOTSender, otSetup, err := ot.NewBaseOTSender(r.HashForID(r.SelfID()), group)
	if err != nil {
		return r, err
	}

	if err = r.BroadcastMessage(out, &broadcast2{
		Commitment: commitment,
		OTSetup:    otSetup,
		Epoch:      r.share.Epoch,
	}); err != nil {
		return r, err
	}

	return &round2{
		round1:        r,
		vssSecret:     vssSecret,
		vssPolynomial: vssPolynomial,
		decommitment:  decommitment,
		baseOTSender:  baseOTSender,
		commitments:   map[party.ID]hash.Commitment{},
		baseOTPoints:  map[party.ID]curve.Point{},
	}, nil
}

// MessageContent implements round.Round.
func (round1) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (round1) Number() round.Number { return 1 }
