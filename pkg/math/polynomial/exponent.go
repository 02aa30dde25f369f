package polynomial

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
)

// Exponent represents a polynomial F(X) whose coefficients belong to a group 𝔾,
// i.e. F(X) = A₀ + A₁⋅X + … + Aₜ⋅Xᵗ with Aᵢ ∈ 𝔾.
//
// It is the value committed to during verifiable secret sharing: the dealer of
// f(X) publishes F(X) = f(X)•G, and a share f(j) is checked against F(j).
type Exponent struct {
	group        curve.Curve
	coefficients []curve.Point
}

// NewPolynomialExponent generates F(X) = f(X)•G from the coefficients of f.
func NewPolynomialExponent(polynomial *Polynomial) *Exponent {
	p := &Exponent{
		group:        polynomial.group,
		coefficients: make([]curve.Point, len(polynomial.coefficients)),
	}
	for i, c := range polynomial.coefficients {
		p.coefficients[i] = c.ActOnBase()
	}
	return p
}

// EmptyExponent returns a zero-valued Exponent for the given group,
// suitable as an unmarshalling target.
func EmptyExponent(group curve.Curve) *Exponent {
	return &Exponent{group: group}
}

// Evaluate returns F(index), using Horner's method.
func (p *Exponent) Evaluate(index curve.Scalar) curve.Point {
	result := p.group.NewPoint()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		// Bₙ₋₁ = [x]Bₙ + Aₙ₋₁
		result = index.Act(result).Add(p.coefficients[i])
	}
	return result
}

// Degree is the highest power of the polynomial.
func (p *Exponent) Degree() uint32 {
	return uint32(len(p.coefficients)) - 1
}

func (p *Exponent) add(q *Exponent) error {
	if len(p.coefficients) != len(q.coefficients) {
		return errors.New("polynomial: cannot add polynomials of different lengths")
	}
	for i := range p.coefficients {
		p.coefficients[i] = p.coefficients[i].Add(q.coefficients[i])
	}
	return nil
}

// Sum creates a new Exponent by summing a slice of existing ones.
func Sum(polynomials []*Exponent) (*Exponent, error) {
	summed := polynomials[0].copy()
	for _, q := range polynomials[1:] {
		if err := summed.add(q); err != nil {
			return nil, err
		}
	}
	return summed, nil
}

func (p *Exponent) copy() *Exponent {
	q := &Exponent{
		group:        p.group,
		coefficients: make([]curve.Point, len(p.coefficients)),
	}
	copy(q.coefficients, p.coefficients)
	return q
}

// Equal reports whether both polynomials have identical coefficients.
func (p *Exponent) Equal(other *Exponent) bool {
	if len(p.coefficients) != len(other.coefficients) {
		return false
	}
	for i := range p.coefficients {
		if !p.coefficients[i].Equal(other.coefficients[i]) {
			return false
		}
	}
	return true
}

// Constant returns the constant coefficient A₀ = f(0)•G.
func (p *Exponent) Constant() curve.Point {
	return p.coefficients[0]
}

// WriteTo implements io.WriterTo.
func (p *Exponent) WriteTo(w io.Writer) (int64, error) {
	if p == nil {
		return 0, io.ErrUnexpectedEOF
	}
	total := int64(0)
	if err := binary.Write(w, binary.BigEndian, uint32(len(p.coefficients))); err != nil {
		return total, err
	}
	total += 4
	for _, c := range p.coefficients {
		data, err := c.MarshalBinary()
		if err != nil {
			return total, err
		}
		n, err := w.Write(data)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Domain implements hash.WriterToWithDomain.
func (Exponent) Domain() string {
	return "Exponent"
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Exponent) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 4+33*len(p.coefficients))
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(p.coefficients)))
	out = append(out, length[:]...)
	for _, c := range p.coefficients {
		data, err := c.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// The receiver must carry a group, obtained from EmptyExponent.
func (p *Exponent) UnmarshalBinary(data []byte) error {
	if p.group == nil {
		return errors.New("polynomial: unmarshalling into Exponent without group")
	}
	if len(data) < 4 {
		return errors.New("polynomial: invalid Exponent encoding")
	}
	length := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if length == 0 || length > 1024 {
		return errors.New("polynomial: invalid Exponent length")
	}
	coefficients := make([]curve.Point, length)
	pointSize := len(data) / int(length)
	if pointSize == 0 || len(data) != pointSize*int(length) {
		return errors.New("polynomial: invalid Exponent encoding")
	}
	for i := range coefficients {
		coefficients[i] = p.group.NewPoint()
		if err := coefficients[i].UnmarshalBinary(data[:pointSize]); err != nil {
			return err
		}
		data = data[pointSize:]
	}
	p.coefficients = coefficients
	return nil
}
