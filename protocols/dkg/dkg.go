// Package dkg implements distributed key generation for threshold ECDSA.
//
// Every party contributes a random polynomial of degree t through a
// commit-reveal of its Feldman commitment, and the shares of the summed
// polynomial form a t-of-n sharing of a key no party ever knows. The rounds
// additionally seed the pairwise oblivious transfer setups consumed during
// signing, and agree on a shared chain code for key derivation.
package dkg

import (
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
	"github.com/quorumkey/threshold-ecdsa/pkg/pool"
	"github.com/quorumkey/threshold-ecdsa/pkg/protocol"
)

// Start returns a StartFunc for a fresh key generation among partyIDs.
//
// threshold is the maximum number of corrupted parties tolerated: any
// threshold+1 parties can later produce a signature, and the resulting share
// has epoch 0.
func Start(group curve.Curve, selfID party.ID, partyIDs []party.ID, threshold int, pl *pool.Pool) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		info := round.Info{
			ProtocolID:       "tecdsa/dkg",
			FinalRoundNumber: 3,
			SelfID:           selfID,
			PartyIDs:         partyIDs,
			Threshold:        threshold,
			Group:            group,
		}
		helper, err := round.NewSession(info, sessionID, pl)
		if err != nil {
			return nil, fmt.Errorf("dkg.Start: %w", err)
		}
		return &round1{Helper: helper}, nil
	}
}
