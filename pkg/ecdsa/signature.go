package ecdsa

import (
	"errors"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
)

// Signature represents an ECDSA signature (R, S), where R is the full nonce
// point rather than only its reduced abscissa. Keeping the point around lets
// us derive the recovery identifier without guessing.
type Signature struct {
	R curve.Point
	S curve.Scalar
}

// EmptySignature returns a new signature with a given curve, ready to be
// unmarshalled.
func EmptySignature(group curve.Curve) Signature {
	return Signature{
		R: group.NewPoint(),
		S: group.NewScalar(),
	}
}

// Verify checks that the signature is valid for the public key X and the
// message digest hash.
func (sig Signature) Verify(X curve.Point, hash []byte) bool {
	group := X.Curve()

	r := sig.R.XScalar()
	if r.IsZero() || sig.S.IsZero() {
		return false
	}

	sInv := group.NewScalar().Set(sig.S).Invert()
	m := curve.FromHash(group, hash)
	mG := m.ActOnBase()
	rX := r.Act(X)
	R2 := sInv.Act(mG.Add(rX))
	return R2.Equal(sig.R)
}

// Normalize replaces S with its negation when it lies over half the curve
// order, as required by consumers rejecting signature malleability. It
// reports whether a negation took place, in which case the parity of the
// recovery ID flips.
func (sig *Signature) Normalize() bool {
	if sig.S.IsOverHalfOrder() {
		sig.S.Negate()
		return true
	}
	return false
}

// RecoveryID returns the public key recovery identifier of the signature, as
// used by Ethereum and Bitcoin. It must be read before a later Normalize
// flips the parity.
func (sig Signature) RecoveryID() byte {
	group := sig.R.Curve()
	v := byte(0)
	if !sig.R.HasEvenY() {
		v = 1
	}
	x := new(saferith.Nat).SetBytes(sig.R.XBytes())
	_, _, lt := x.Cmp(group.Order().Nat())
	if lt != 1 {
		v |= 2
	}
	return v
}

// SerializeCompact returns the 64 byte encoding r || s.
func (sig Signature) SerializeCompact() ([]byte, error) {
	r, err := sig.R.XScalar().MarshalBinary()
	if err != nil {
		return nil, err
	}
	s, err := sig.S.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(r, s...), nil
}

// SerializeDER returns the ASN.1 DER encoding of the signature, as expected
// by Bitcoin Core and OpenSSL. The S component is normalized to the lower
// half of the order.
func (sig Signature) SerializeDER() ([]byte, error) {
	rBytes, err := sig.R.XScalar().MarshalBinary()
	if err != nil {
		return nil, err
	}
	sBytes, err := sig.S.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var r, s secp256k1.ModNScalar
	if r.SetByteSlice(rBytes) || s.SetByteSlice(sBytes) {
		return nil, errors.New("ecdsa: signature component overflows the scalar field")
	}
	return decredecdsa.NewSignature(&r, &s).Serialize(), nil
}
