// Package bip32 implements non-hardened BIP32 key derivation over a shared
// public key.
//
// Only the tweak scalar is derived here: since the full secret key never
// exists in one place, the caller adds the scalar to its own share, and the
// public key moves by the corresponding point. Hardened derivation requires
// hashing the secret key, which a threshold scheme cannot do, so hardened
// indices are rejected.
//
// See: https://github.com/bitcoin/bips/blob/master/bip-0032.mediawiki
package bip32

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"golang.org/x/crypto/ripemd160"

	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
)

// ErrHardenedDerivation is returned when a hardened index is requested.
var ErrHardenedDerivation = errors.New("bip32: hardened derivation is not supported for shared keys")

func compressPoint(p curve.Point) []byte {
	out := make([]byte, 33)
	out[0] = 3
	if p.HasEvenY() {
		out[0] = 2
	}
	copy(out[1:], p.XBytes())
	return out
}

// DeriveScalar uses a public point, chaining value, and index, to derive a
// tweak scalar and a child chaining value.
//
// The scalar should be added to the secret key share, and the point
// scalar•G to the public key.
//
// If an error is returned for a valid index, that index is unusable and the
// next one should be used instead.
func DeriveScalar(public curve.Point, chaining []byte, i uint32) (curve.Scalar, []byte, error) {
	if i>>31 != 0 {
		return nil, nil, ErrHardenedDerivation
	}
	group := public.Curve()

	h := hmac.New(sha512.New, chaining)
	_, _ = h.Write(compressPoint(public))
	iBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(iBytes, i)
	_, _ = h.Write(iBytes)
	out := h.Sum(nil)

	// Reject the negligible chance of a tweak at or above the curve order.
	tweak := new(saferith.Nat).SetBytes(out[:32])
	_, _, lt := tweak.Cmp(group.Order().Nat())
	if lt != 1 {
		return nil, nil, fmt.Errorf("bip32: bad index: %d", i)
	}

	return group.NewScalar().SetNat(tweak), out[32:], nil
}

// Fingerprint returns the 4 byte key fingerprint, the start of the HASH160 of
// the compressed public key.
func Fingerprint(public curve.Point) []byte {
	sha := sha256.Sum256(compressPoint(public))
	ripemd := ripemd160.New()
	_, _ = ripemd.Write(sha[:])
	return ripemd.Sum(nil)[:4]
}
