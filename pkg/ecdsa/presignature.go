package ecdsa

import (
	"errors"
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/types"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

// PreSignature is the message-independent output of the signing rounds.
//
// Writing k = ∑ⱼkⱼ, γ = ∑ⱼγⱼ and x for the full secret key, each party's
// shares satisfy
//
//	∑ⱼ DeltaShareⱼ = k⋅γ
//	∑ⱼ ChiShareⱼ   = γ⋅x
//
// so that once a message digest m is known, the partial signatures
// σⱼ = m⋅γⱼ + r⋅ChiShareⱼ combine into s = (∑ⱼσⱼ)/(∑ⱼDeltaShareⱼ).
type PreSignature struct {
	// ID is a random identifier for this specific presignature.
	ID types.RID
	// R = (∑ⱼkⱼ)⋅G is the full nonce point.
	R curve.Point
	// GammaShare = γᵢ
	GammaShare curve.Scalar
	// DeltaShare = kᵢγᵢ plus this party's cross terms of k⋅γ.
	DeltaShare curve.Scalar
	// ChiShare = γᵢwᵢ plus this party's cross terms of γ⋅x.
	ChiShare curve.Scalar
}

// EmptyPreSignature returns a PreSignature with a given group, ready for
// unmarshalling.
func EmptyPreSignature(group curve.Curve) *PreSignature {
	return &PreSignature{
		ID:         types.EmptyRID(),
		R:          group.NewPoint(),
		GammaShare: group.NewScalar(),
		DeltaShare: group.NewScalar(),
		ChiShare:   group.NewScalar(),
	}
}

// Group returns the elliptic curve group associated with this PreSignature.
func (sig *PreSignature) Group() curve.Curve {
	return sig.R.Curve()
}

// SignatureShare is one party's additive contribution to a signature.
type SignatureShare struct {
	// DeltaShare is the party's share of k⋅γ.
	DeltaShare curve.Scalar
	// Sigma = m⋅γᵢ + r⋅ChiShareᵢ.
	Sigma curve.Scalar
}

// EmptySignatureShare returns a SignatureShare with a given group, ready for
// unmarshalling.
func EmptySignatureShare(group curve.Curve) *SignatureShare {
	return &SignatureShare{
		DeltaShare: group.NewScalar(),
		Sigma:      group.NewScalar(),
	}
}

// SignatureShare returns this party's partial signature for the message
// digest hash.
func (sig *PreSignature) SignatureShare(hash []byte) *SignatureShare {
	group := sig.Group()
	m := curve.FromHash(group, hash)
	r := sig.R.XScalar()
	sigma := m.Mul(sig.GammaShare).Add(r.Mul(sig.ChiShare))
	return &SignatureShare{
		DeltaShare: group.NewScalar().Set(sig.DeltaShare),
		Sigma:      sigma,
	}
}

// Signature combines the given shares into a full signature.
func (sig *PreSignature) Signature(shares map[party.ID]*SignatureShare) (Signature, error) {
	group := sig.Group()
	s := group.NewScalar()
	delta := group.NewScalar()
	for _, share := range shares {
		if share == nil || share.Sigma == nil || share.DeltaShare == nil {
			return Signature{}, errors.New("presignature: missing signature share")
		}
		s.Add(share.Sigma)
		delta.Add(share.DeltaShare)
	}
	if delta.IsZero() {
		return Signature{}, errors.New("presignature: shares of k⋅γ sum to zero")
	}
	s.Mul(delta.Invert())
	return Signature{
		R: sig.R,
		S: s,
	}, nil
}

// Validate checks the consistency of the presignature fields.
func (sig *PreSignature) Validate() error {
	if sig.R == nil || sig.R.IsIdentity() {
		return errors.New("presignature: R is identity")
	}
	if err := sig.ID.Validate(); err != nil {
		return fmt.Errorf("presignature: %w", err)
	}
	if sig.GammaShare.IsZero() || sig.ChiShare.IsZero() || sig.DeltaShare.IsZero() {
		return errors.New("presignature: zero share")
	}
	return nil
}
