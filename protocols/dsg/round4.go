package dsg

import (
	"errors"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/ecdsa"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

var _ round.BroadcastRound = (*round4)(nil)

type round4 struct {
	*round3

	preSignature *ecdsa.PreSignature
	// sigShares[j] = (δⱼ, σⱼ)
	sigShares map[party.ID]*ecdsa.SignatureShare
}

type broadcast4 struct {
	DeltaShare curve.Scalar
	Sigma      curve.Scalar
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *round4) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast4)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.DeltaShare == nil || body.Sigma == nil {
		return round.ErrNilFields
	}
	if body.DeltaShare.IsZero() || body.Sigma.IsZero() {
		return errors.New("zero partial signature")
	}
	r.sigShares[msg.From] = &ecdsa.SignatureShare{
		DeltaShare: body.DeltaShare,
		Sigma:      body.Sigma,
	}
	return nil
}

// VerifyMessage implements round.Round.
func (round4) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (round4) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// - combine the partial signatures into s = (∑ⱼσⱼ)/(∑ⱼδⱼ)
// - verify the result under the public key, normalize to low s, and
//   record the recovery ID.
func (r *round4) Finalize(chan<- *round.Message) (round.Session, error) {
	signature, err := r.preSignature.Signature(r.sigShares)
	if err != nil {
		return r.AbortRound(err), nil
	}

	if !signature.Verify(r.share.PublicPoint(), r.messageHash) {
		return r.AbortRound(ErrSignatureVerification), nil
	}

	recoveryID := signature.RecoveryID()
	if signature.Normalize() {
		recoveryID ^= 1
	}

	return r.ResultRound(&Signature{
		Signature:  signature,
		RecoveryID: recoveryID,
	}), nil
}

// MessageContent implements round.Round.
func (round4) MessageContent() round.Content { return nil }

// BroadcastContent implements round.BroadcastRound.
func (r *round4) BroadcastContent() round.Content {
	group := r.Group()
	return &broadcast4{
		DeltaShare: group.NewScalar(),
		Sigma:      group.NewScalar(),
	}
}

// RoundNumber implements round.Content.
func (broadcast4) RoundNumber() round.Number { return 4 }

// Number implements round.Round.
func (round4) Number() round.Number { return 4 }

// Signature is the output of a signing session: a verified ECDSA signature
// in low-s form, together with its public key recovery identifier.
type Signature struct {
	Signature  ecdsa.Signature
	RecoveryID byte
}
