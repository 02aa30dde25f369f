// Package protocols exposes the top level entry points for threshold ECDSA:
// key generation, proactive refresh, and signing.
//
// Each function returns a protocol.StartFunc to be driven by a
// protocol.MultiHandler. The sessionID passed to the handler must be unique
// for every execution; see round.NewSession.
package protocols

import (
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
	"github.com/quorumkey/threshold-ecdsa/pkg/pool"
	"github.com/quorumkey/threshold-ecdsa/pkg/protocol"
	"github.com/quorumkey/threshold-ecdsa/protocols/dkg"
	"github.com/quorumkey/threshold-ecdsa/protocols/dsg"
	"github.com/quorumkey/threshold-ecdsa/protocols/refresh"
)

// DKG generates a fresh threshold key among partyIDs, tolerating up to
// threshold corrupted parties. The result is a *keyshare.KeyShare at epoch 0.
func DKG(group curve.Curve, selfID party.ID, partyIDs []party.ID, threshold int, pl *pool.Pool) protocol.StartFunc {
	return dkg.Start(group, selfID, partyIDs, threshold, pl)
}

// Refresh rerandomizes the shares of an existing key among all of its
// holders. The result is a *keyshare.KeyShare at the next epoch, for the
// same public key and chain code.
func Refresh(share *keyshare.KeyShare, pl *pool.Pool) protocol.StartFunc {
	return refresh.Start(share, pl)
}

// Sign produces an ECDSA signature over messageHash with the given signers,
// which must number at least threshold+1. The result is a *dsg.Signature.
func Sign(share *keyshare.KeyShare, signers []party.ID, messageHash []byte, pl *pool.Pool) protocol.StartFunc {
	return dsg.Start(share, signers, messageHash, pl)
}
