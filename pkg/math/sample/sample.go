package sample

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
)

const maxIterations = 255

var errMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(errMaxIterations)
}

// Scalar returns a new Scalar, sampled from the given source of randomness.
func Scalar(rand io.Reader, group curve.Curve) curve.Scalar {
	buffer := make([]byte, group.SafeScalarBytes())
	mustReadBits(rand, buffer)
	n := new(saferith.Nat).SetBytes(buffer)
	return group.NewScalar().SetNat(n)
}

// ScalarUnit returns a new Scalar, with the additional guarantee that it's
// not zero, and thus invertible.
func ScalarUnit(rand io.Reader, group curve.Curve) curve.Scalar {
	for i := 0; i < maxIterations; i++ {
		s := Scalar(rand, group)
		if !s.IsZero() {
			return s
		}
	}
	panic(errMaxIterations)
}

// ScalarPointPair returns a new Scalar, along with the result of acting on
// the base point with it.
func ScalarPointPair(rand io.Reader, group curve.Curve) (curve.Scalar, curve.Point) {
	s := Scalar(rand, group)
	return s, s.ActOnBase()
}
