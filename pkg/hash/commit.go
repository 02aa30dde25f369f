package hash

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/quorumkey/threshold-ecdsa/internal/params"
)

// DigestLengthBytes is the length of a commitment, and of the hash output
// used throughout the protocols.
const DigestLengthBytes = params.SecBytes

type (
	// Commitment of a commit-reveal pair, produced by Hash.Commit.
	Commitment []byte
	// Decommitment of a commit-reveal pair, kept secret until the reveal round.
	Decommitment []byte
)

// WriteTo implements the io.WriterTo interface for Commitment.
func (c Commitment) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c)
	return int64(n), err
}

// Domain implements WriterToWithDomain, and separates this type within hash.Hash.
func (Commitment) Domain() string {
	return "Commitment"
}

// Validate checks that the commitment has the correct length.
func (c Commitment) Validate() error {
	if l := len(c); l != DigestLengthBytes {
		return fmt.Errorf("commitment: incorrect length (got %d, expected %d)", l, DigestLengthBytes)
	}
	return nil
}

// WriteTo implements the io.WriterTo interface for Decommitment.
func (d Decommitment) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d)
	return int64(n), err
}

// Domain implements WriterToWithDomain, and separates this type within hash.Hash.
func (Decommitment) Domain() string {
	return "Decommitment"
}

// Validate checks that the decommitment has the correct length.
func (d Decommitment) Validate() error {
	if l := len(d); l != params.SecBytes {
		return fmt.Errorf("decommitment: incorrect length (got %d, expected %d)", l, params.SecBytes)
	}
	return nil
}

// Commit creates a commitment to data, and returns a commitment hash, and a
// decommitment string such that commitment = h(data, decommitment).
func (hash *Hash) Commit(data ...interface{}) (Commitment, Decommitment, error) {
	decommitment := Decommitment(make([]byte, params.SecBytes))
	if _, err := rand.Read(decommitment); err != nil {
		return nil, nil, fmt.Errorf("hash.Commit: failed to generate decommitment: %w", err)
	}

	h := hash.Clone()
	for _, item := range data {
		if err := h.WriteAny(item); err != nil {
			return nil, nil, fmt.Errorf("hash.Commit: failed to write data: %w", err)
		}
	}
	_ = h.WriteAny(decommitment)

	return h.Sum(), decommitment, nil
}

// Decommit verifies that the commitment corresponds to the data and
// decommitment such that commitment = h(data, decommitment).
func (hash *Hash) Decommit(c Commitment, d Decommitment, data ...interface{}) bool {
	if err := c.Validate(); err != nil {
		return false
	}
	if err := d.Validate(); err != nil {
		return false
	}

	h := hash.Clone()
	for _, item := range data {
		if err := h.WriteAny(item); err != nil {
			return false
		}
	}
	_ = h.WriteAny(d)

	return bytes.Equal(h.Sum(), c)
}
