// Package dsg implements distributed signature generation for threshold
// ECDSA.
//
// Any subset of t+1 share holders produces a standard ECDSA signature in
// three message rounds. The multiplications between the nonce and key shares
// run over the pairwise oblivious transfer setups established during key
// generation, so no homomorphic encryption is involved. The nonce point is
// fixed through a commit-reveal before any multiplication output is seen.
package dsg

import (
	"errors"
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/polynomial"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
	"github.com/quorumkey/threshold-ecdsa/pkg/pool"
	"github.com/quorumkey/threshold-ecdsa/pkg/protocol"
)

// ErrInsufficientParticipants is returned when fewer than t+1 signers are
// proposed, or when a proposed signer holds no share of the key.
var ErrInsufficientParticipants = errors.New("dsg: signer set cannot produce a signature")

// ErrSignatureVerification is returned when the combined signature fails to
// verify under the public key, meaning some signer contributed a bad share.
var ErrSignatureVerification = errors.New("dsg: combined signature failed to verify")

// Start returns a StartFunc signing messageHash with the given signers.
//
// messageHash is the 32 byte digest of the message being signed. All signers
// must hold shares of the same key and epoch.
func Start(share *keyshare.KeyShare, signers []party.ID, messageHash []byte, pl *pool.Pool) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if len(messageHash) != 32 {
			return nil, fmt.Errorf("dsg.Start: message hash must be 32 bytes, got %d", len(messageHash))
		}
		if err := share.Validate(); err != nil {
			return nil, fmt.Errorf("dsg.Start: %w", err)
		}
		signerIDs := party.NewIDSlice(signers)
		if !share.CanSign(signerIDs) {
			return nil, ErrInsufficientParticipants
		}
		publicKey, err := share.PublicPoint().MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("dsg.Start: %w", err)
		}

		info := round.Info{
			ProtocolID:       "tecdsa/dsg",
			FinalRoundNumber: 4,
			SelfID:           share.ID,
			PartyIDs:         signerIDs,
			Threshold:        share.Threshold,
			Group:            share.Group(),
		}
		// The epoch is deliberately not part of the session hash: it travels
		// in the first broadcast instead, so that a party holding a stale
		// share is reported as such rather than having its messages dropped.
		helper, err := round.NewSession(info, sessionID, pl,
			&hash.BytesWithDomain{TheDomain: "Public Key", Bytes: publicKey},
			&hash.BytesWithDomain{TheDomain: "Message Hash", Bytes: messageHash},
		)
		if err != nil {
			return nil, fmt.Errorf("dsg.Start: %w", err)
		}

		// wᵢ = λᵢ·xᵢ, so that the wⱼ of the signers sum to the secret key.
		lagrange := polynomial.Lagrange(share.Group(), signerIDs)
		secretShare := lagrange[share.ID].Mul(share.ECDSA)

		return &round1{
			Helper:      helper,
			share:       share,
			secretShare: secretShare,
			messageHash: messageHash,
		}, nil
	}
}
