// Package zksch implements a Schnorr proof of knowledge of discrete logarithm.
//
// Given X = x•G, the prover convinces the verifier that it knows x without
// revealing it. The proof is made non-interactive with the Fiat-Shamir
// transform, bound to the session through the provided hash state.
package zksch

import (
	"crypto/rand"
	"errors"

	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
)

// Proof is a non-interactive proof of knowledge of the discrete logarithm of X.
type Proof struct {
	group curve.Curve
	// C = a•G for the random nonce a.
	C curve.Point
	// Z = a + e⋅x, where e is the Fiat-Shamir challenge.
	Z curve.Scalar
}

// EmptyProof returns a zero-valued Proof for the given group,
// suitable as an unmarshalling target.
func EmptyProof(group curve.Curve) *Proof {
	return &Proof{
		group: group,
		C:     group.NewPoint(),
		Z:     group.NewScalar(),
	}
}

func challenge(h *hash.Hash, group curve.Curve, commitment, public curve.Point) curve.Scalar {
	_ = h.WriteAny(commitment, public)
	return sample.Scalar(h.Digest(), group)
}

// NewProof proves knowledge of x such that X = x•G.
func NewProof(h *hash.Hash, X curve.Point, x curve.Scalar) *Proof {
	group := x.Curve()
	a := sample.ScalarUnit(rand.Reader, group)
	C := a.ActOnBase()

	e := challenge(h, group, C, X)
	// z = a + e⋅x
	z := e.Mul(x).Add(a)
	return &Proof{
		group: group,
		C:     C,
		Z:     z,
	}
}

// Verify checks that the proof is valid for the public point X.
func (p *Proof) Verify(h *hash.Hash, X curve.Point) bool {
	if !p.IsValid() || X.IsIdentity() {
		return false
	}

	e := challenge(h, p.group, p.C, X)

	// z•G == C + e•X
	lhs := p.Z.ActOnBase()
	rhs := e.Act(X).Add(p.C)
	return lhs.Equal(rhs)
}

// IsValid reports whether the proof fields are present and non-degenerate.
func (p *Proof) IsValid() bool {
	if p == nil || p.C == nil || p.Z == nil {
		return false
	}
	if p.C.IsIdentity() || p.Z.IsZero() {
		return false
	}
	return true
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Proof) MarshalBinary() ([]byte, error) {
	cBytes, err := p.C.MarshalBinary()
	if err != nil {
		return nil, err
	}
	zBytes, err := p.Z.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(cBytes, zBytes...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// The receiver must be obtained from EmptyProof.
func (p *Proof) UnmarshalBinary(data []byte) error {
	pointLen := len(data) - 32
	if pointLen <= 0 {
		return errors.New("zksch: invalid proof encoding")
	}
	if err := p.C.UnmarshalBinary(data[:pointLen]); err != nil {
		return err
	}
	return p.Z.UnmarshalBinary(data[pointLen:])
}
