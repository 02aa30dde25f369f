// Package keyshare defines the key material a party holds between protocol
// executions: its secret share, the public shares of every party, the BIP32
// chain code, and the pairwise oblivious transfer setups used for signing.
package keyshare

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/quorumkey/threshold-ecdsa/internal/ot"
	"github.com/quorumkey/threshold-ecdsa/internal/types"
	"github.com/quorumkey/threshold-ecdsa/pkg/bip32"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/polynomial"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

// ErrEpochMismatch is returned when key material from different refresh
// epochs would be mixed.
var ErrEpochMismatch = errors.New("keyshare: epoch mismatch")

// Public holds the public key material of a single party.
type Public struct {
	// ECDSA is the party's public share xⱼ•G.
	ECDSA curve.Point
}

// PairwiseOT holds both halves of the correlated OT setup established with
// one counterparty. It contains secret material.
type PairwiseOT struct {
	Send    *ot.CorreOTSendSetup
	Receive *ot.CorreOTReceiveSetup
}

// KeyShare is a party's share of a threshold ECDSA key.
type KeyShare struct {
	// ID is this party's identifier.
	ID party.ID
	// Threshold is the maximum number of parties that can be corrupted
	// without compromising the key. Threshold+1 parties are needed to sign.
	Threshold int
	// Epoch counts the number of refreshes this share went through.
	Epoch uint64
	// ECDSA is this party's secret share xᵢ, the evaluation f(i+1) of the
	// joint sharing polynomial.
	ECDSA curve.Scalar
	// ChainCode is the shared BIP32 chain code.
	ChainCode types.RID
	// Public maps each party to its public key material.
	Public map[party.ID]*Public
	// OT maps each counterparty to the correlated OT setup shared with it.
	OT map[party.ID]*PairwiseOT
}

// EmptyKeyShare returns a KeyShare for the given group, ready to be
// unmarshalled.
func EmptyKeyShare(group curve.Curve) *KeyShare {
	return &KeyShare{
		ECDSA:     group.NewScalar(),
		ChainCode: types.EmptyRID(),
		Public:    map[party.ID]*Public{},
		OT:        map[party.ID]*PairwiseOT{},
	}
}

// Group returns the elliptic curve group of the key.
func (k *KeyShare) Group() curve.Curve {
	return k.ECDSA.Curve()
}

// PartyIDs returns a sorted slice of the parties sharing the key.
func (k *KeyShare) PartyIDs() party.IDSlice {
	ids := make([]party.ID, 0, len(k.Public))
	for j := range k.Public {
		ids = append(ids, j)
	}
	return party.NewIDSlice(ids)
}

// PublicPoint returns the full public key of the shared ECDSA key.
func (k *KeyShare) PublicPoint() curve.Point {
	group := k.Group()
	sum := group.NewPoint()
	partyIDs := k.PartyIDs()
	l := polynomial.Lagrange(group, partyIDs)
	for j, publicJ := range k.Public {
		sum = sum.Add(l[j].Act(publicJ.ECDSA))
	}
	return sum
}

// CanSign reports whether the given subset of parties is large enough to
// produce a signature with this share.
func (k *KeyShare) CanSign(signers party.IDSlice) bool {
	if len(signers) < k.Threshold+1 {
		return false
	}
	if !signers.Contains(k.ID) {
		return false
	}
	ids := k.PartyIDs()
	for _, j := range signers {
		if !ids.Contains(j) {
			return false
		}
	}
	return true
}

// Validate ensures the key share is consistent.
func (k *KeyShare) Validate() error {
	n := len(k.Public)
	if n == 0 || k.Threshold < 1 || k.Threshold > n-1 {
		return fmt.Errorf("keyshare: threshold %d is invalid", k.Threshold)
	}
	if k.ECDSA == nil || k.ECDSA.IsZero() {
		return errors.New("keyshare: secret share is missing or zero")
	}
	if err := k.ChainCode.Validate(); err != nil {
		return fmt.Errorf("keyshare: %w", err)
	}

	public, ok := k.Public[k.ID]
	if !ok {
		return errors.New("keyshare: no public data for own share")
	}
	for j, publicJ := range k.Public {
		if publicJ == nil || publicJ.ECDSA == nil || publicJ.ECDSA.IsIdentity() {
			return fmt.Errorf("keyshare: party %s: invalid public share", j)
		}
		if j == k.ID {
			continue
		}
		pairwise, ok := k.OT[j]
		if !ok || pairwise == nil || pairwise.Send == nil || pairwise.Receive == nil {
			return fmt.Errorf("keyshare: party %s: missing OT setup", j)
		}
	}

	if !k.ECDSA.ActOnBase().Equal(public.ECDSA) {
		return errors.New("keyshare: secret share does not correspond to public share")
	}
	return nil
}

// DeriveChild derives a non-hardened child share at the given index.
//
// Every party derives the same tweak δ, adding it to its own secret share.
// Because the Lagrange coefficients of the full party set sum to one, the
// interpolated secret moves by exactly δ, and the public key by δ•G.
//
// The OT setups carry over unchanged; only key material is tweaked.
func (k *KeyShare) DeriveChild(index uint32) (*KeyShare, error) {
	if bip32.Hardened(index) {
		return nil, bip32.ErrHardenedDerivation
	}
	group := k.Group()
	tweak, newChainCode, err := bip32.DeriveScalar(k.PublicPoint(), k.ChainCode, index)
	if err != nil {
		return nil, err
	}
	tweakPoint := tweak.ActOnBase()

	child := &KeyShare{
		ID:        k.ID,
		Threshold: k.Threshold,
		Epoch:     k.Epoch,
		ECDSA:     group.NewScalar().Set(k.ECDSA).Add(tweak),
		ChainCode: types.RID(newChainCode).Copy(),
		Public:    make(map[party.ID]*Public, len(k.Public)),
		OT:        make(map[party.ID]*PairwiseOT, len(k.OT)),
	}
	for j, publicJ := range k.Public {
		child.Public[j] = &Public{ECDSA: publicJ.ECDSA.Add(tweakPoint)}
	}
	for j, pairwise := range k.OT {
		child.OT[j] = pairwise
	}
	return child, nil
}

// DerivePath derives a child share along a full non-hardened BIP32 path.
func (k *KeyShare) DerivePath(path bip32.Path) (*KeyShare, error) {
	share := k
	var err error
	for _, index := range path.Indices() {
		if share, err = share.DeriveChild(index); err != nil {
			return nil, err
		}
	}
	return share, nil
}

// Fingerprint returns the BIP32 fingerprint of the shared public key.
func (k *KeyShare) Fingerprint() []byte {
	return bip32.Fingerprint(k.PublicPoint())
}

// Reconstruct interpolates the full secret key from at least threshold+1
// shares. All shares must come from the same epoch; mixing shares across a
// refresh returns ErrEpochMismatch before any interpolation happens.
//
// This defeats the purpose of threshold signing and exists for recovery and
// testing only.
func Reconstruct(shares map[party.ID]*KeyShare) (curve.Scalar, error) {
	if len(shares) == 0 {
		return nil, errors.New("keyshare: no shares to reconstruct from")
	}
	var first *KeyShare
	ids := make([]party.ID, 0, len(shares))
	for j, share := range shares {
		if first == nil {
			first = share
		}
		if share.Epoch != first.Epoch {
			return nil, fmt.Errorf("keyshare: party %s is at epoch %d, not %d: %w",
				j, share.Epoch, first.Epoch, ErrEpochMismatch)
		}
		ids = append(ids, j)
	}
	if len(shares) < first.Threshold+1 {
		return nil, fmt.Errorf("keyshare: %d shares cannot reconstruct with threshold %d",
			len(shares), first.Threshold)
	}

	group := first.Group()
	l := polynomial.Lagrange(group, party.NewIDSlice(ids))
	secret := group.NewScalar()
	for j, share := range shares {
		secret.Add(l[j].Mul(share.ECDSA))
	}
	if !secret.ActOnBase().Equal(first.PublicPoint()) {
		return nil, errors.New("keyshare: reconstructed secret does not match the public key")
	}
	return secret, nil
}

// keyShareRaw is the serialized form of a KeyShare, with curve values as raw
// encodings so that decoding does not depend on preallocated curve types.
type keyShareRaw struct {
	ID        party.ID
	Threshold int
	Epoch     uint64
	ECDSA     []byte
	ChainCode []byte
	Public    map[party.ID][]byte
	OT        map[party.ID]*PairwiseOT
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (k *KeyShare) MarshalBinary() ([]byte, error) {
	secret, err := k.ECDSA.MarshalBinary()
	if err != nil {
		return nil, err
	}
	raw := &keyShareRaw{
		ID:        k.ID,
		Threshold: k.Threshold,
		Epoch:     k.Epoch,
		ECDSA:     secret,
		ChainCode: k.ChainCode,
		Public:    make(map[party.ID][]byte, len(k.Public)),
		OT:        k.OT,
	}
	for j, publicJ := range k.Public {
		if raw.Public[j], err = publicJ.ECDSA.MarshalBinary(); err != nil {
			return nil, err
		}
	}
	return cbor.Marshal(raw)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// The receiver must be obtained from EmptyKeyShare.
func (k *KeyShare) UnmarshalBinary(data []byte) error {
	group := k.Group()
	raw := new(keyShareRaw)
	if err := cbor.Unmarshal(data, raw); err != nil {
		return err
	}
	secret := group.NewScalar()
	if err := secret.UnmarshalBinary(raw.ECDSA); err != nil {
		return err
	}
	public := make(map[party.ID]*Public, len(raw.Public))
	for j, rawJ := range raw.Public {
		point := group.NewPoint()
		if err := point.UnmarshalBinary(rawJ); err != nil {
			return err
		}
		public[j] = &Public{ECDSA: point}
	}
	*k = KeyShare{
		ID:        raw.ID,
		Threshold: raw.Threshold,
		Epoch:     raw.Epoch,
		ECDSA:     secret,
		ChainCode: types.RID(raw.ChainCode),
		Public:    public,
		OT:        raw.OT,
	}
	return nil
}
