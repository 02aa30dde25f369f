package party

import (
	"encoding/binary"
	"io"
	"strconv"

	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
)

// ID identifies a party within a session.
//
// IDs are small integers, 0-indexed, and stable for the lifetime of a key:
// the same party keeps the same ID across key generation, refreshes and
// signing sessions.
type ID uint16

// Scalar returns the party's share index as a scalar.
//
// Share indices are the evaluation points of the secret sharing polynomials.
// They must be non-zero, so the index is ID + 1.
func (id ID) Scalar(group curve.Curve) curve.Scalar {
	return group.NewScalar().SetUInt32(uint32(id) + 1)
}

// String returns a base 10 representation of the ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// WriteTo implements io.WriterTo interface.
func (id ID) WriteTo(w io.Writer) (int64, error) {
	bytes := make([]byte, 2)
	binary.BigEndian.PutUint16(bytes, uint16(id))
	n, err := w.Write(bytes)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (ID) Domain() string {
	return "Party ID"
}

// FromString parses a base 10 string as an ID.
func FromString(str string) (ID, error) {
	p, err := strconv.ParseUint(str, 10, 16)
	if err != nil {
		return 0, err
	}
	return ID(p), nil
}
