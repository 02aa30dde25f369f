// Package refresh implements proactive share refresh for threshold ECDSA.
//
// Every party deals a polynomial with constant term zero, so that the
// summed sharing moves to a new polynomial while the joint secret key, and
// therefore the public key, stays fixed. Shares from before a refresh
// belong to an older epoch and cannot be combined with refreshed ones. The
// pairwise oblivious transfer setups are reseeded along the way.
package refresh

import (
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/round"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/pool"
	"github.com/quorumkey/threshold-ecdsa/pkg/protocol"
)

// Start returns a StartFunc refreshing the given share with all share
// holders. The resulting share carries the next epoch and fresh OT setups,
// while the public key and chain code are unchanged.
func Start(share *keyshare.KeyShare, pl *pool.Pool) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if err := share.Validate(); err != nil {
			return nil, fmt.Errorf("refresh.Start: %w", err)
		}
		publicKey, err := share.PublicPoint().MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("refresh.Start: %w", err)
		}
		info := round.Info{
			ProtocolID:       "tecdsa/refresh",
			FinalRoundNumber: 3,
			SelfID:           share.ID,
			PartyIDs:         share.PartyIDs(),
			Threshold:        share.Threshold,
			Group:            share.Group(),
		}
		// The epoch travels in the first broadcast rather than the session
		// hash, so that a stale party is reported instead of ignored.
		helper, err := round.NewSession(info, sessionID, pl,
			&hash.BytesWithDomain{TheDomain: "Public Key", Bytes: publicKey},
		)
		if err != nil {
			return nil, fmt.Errorf("refresh.Start: %w", err)
		}
		return &round1{Helper: helper, share: share}, nil
	}
}
