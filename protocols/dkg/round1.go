package dkg

import (
	"crypto/rand"

	"github.com/quorumkey/threshold-ecdsa/internal/ot"
	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/internal/types"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/polynomial"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var _ round.Round = (*round1)(nil)

type round1 struct {
	*round.Helper
}

// VerifyMessage implements round.Round.
func (round1) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (round1) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// - sample the VSS polynomial fᵢ of degree t
// - sample a chain key contribution ridᵢ
// - commit to Fᵢ(X) = fᵢ(X)•G and ridᵢ
// - announce the base OT point Bᵢ with a proof of knowledge.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	vssConstant := sample.Scalar(rand.Reader, group)
	vssSecret := polynomial.NewPolynomial(group, r.Threshold(), vssConstant)
	vssPolynomial := polynomial.NewPolynomialExponent(vssSecret)

	chainKey, err := types.NewRID(rand.Reader)
	if err != nil {
		return r, err
	}

	commitment, decommitment, err := r.HashForID(r.SelfID()).Commit(vssPolynomial, chainKey)
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
	}); err != nil {
		return r, err
	}

	return &round2{
		round1:        r,
		vssSecret:     vssSecret,
		vssPolynomial: vssPolynomial,
		chainKey:      chainKey,
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
