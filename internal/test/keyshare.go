package test

import (
	"crypto/rand"

	"github.com/quorumkey/threshold-ecdsa/internal/ot"
	"github.com/quorumkey/threshold-ecdsa/internal/params"
	"github.com/quorumkey/threshold-ecdsa/internal/types"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/polynomial"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
)

// PartyIDs returns the IDs 1..n.
func PartyIDs(n int) party.IDSlice {
	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}
	return party.NewIDSlice(ids)
}

// GenerateShares deals a t-of-n sharing with real pairwise OT setups,
// bypassing the key generation protocol. It returns the shares and the full
// secret key, which only exists because a trusted dealer made it so.
func GenerateShares(group curve.Curve, partyIDs party.IDSlice, threshold int) (map[party.ID]*keyshare.KeyShare, curve.Scalar, error) {
	secret := sample.Scalar(rand.Reader, group)
	poly := polynomial.NewPolynomial(group, threshold, group.NewScalar().Set(secret))

	chainCode, err := types.NewRID(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	public := make(map[party.ID]*keyshare.Public, len(partyIDs))
	for _, j := range partyIDs {
		public[j] = &keyshare.Public{ECDSA: poly.Evaluate(j.Scalar(group)).ActOnBase()}
	}

	shares := make(map[party.ID]*keyshare.KeyShare, len(partyIDs))
	for _, j := range partyIDs {
		publicJ := make(map[party.ID]*keyshare.Public, len(partyIDs))
		for id, p := range public {
			publicJ[id] = &keyshare.Public{ECDSA: p.ECDSA}
		}
		shares[j] = &keyshare.KeyShare{
			ID:        j,
			Threshold: threshold,
			Epoch:     0,
			ECDSA:     poly.Evaluate(j.Scalar(group)),
			ChainCode: chainCode.Copy(),
			Public:    publicJ,
			OT:        make(map[party.ID]*keyshare.PairwiseOT, len(partyIDs)-1),
		}
	}

	for a := 0; a < len(partyIDs); a++ {
		for b := a + 1; b < len(partyIDs); b++ {
			i, j := partyIDs[a], partyIDs[b]
			iSend, jReceive, err := pairwiseOT(group, i, j)
			if err != nil {
				return nil, nil, err
			}
			jSend, iReceive, err := pairwiseOT(group, j, i)
			if err != nil {
				return nil, nil, err
			}
			shares[i].OT[j] = &keyshare.PairwiseOT{Send: iSend, Receive: iReceive}
			shares[j].OT[i] = &keyshare.PairwiseOT{Send: jSend, Receive: jReceive}
		}
	}

	return shares, secret, nil
}

// pairwiseOT runs a base OT locally, with correSender ending up holding the
// correlation towards correReceiver.
func pairwiseOT(group curve.Curve, correSender, correReceiver party.ID) (*ot.CorreOTSendSetup, *ot.CorreOTReceiveSetup, error) {
	h := hash.New(&hash.BytesWithDomain{TheDomain: "Test Pairwise OT", Bytes: nil})
	_ = h.WriteAny(correSender, correReceiver)

	sender, setupMsg, err := ot.NewBaseOTSender(h.Clone(), group)
	if err != nil {
		return nil, nil, err
	}
	B, err := ot.BaseOTVerifySetup(h.Clone(), group, setupMsg)
	if err != nil {
		return nil, nil, err
	}
	var delta [params.SecBytes]byte
	if _, err := rand.Read(delta[:]); err != nil {
		return nil, nil, err
	}
	msg, sendSetup, err := ot.BaseOTReceive(h.Clone(), B, delta)
	if err != nil {
		return nil, nil, err
	}
	receiveSetup, err := sender.BaseOTSend(h.Clone(), msg)
	if err != nil {
		return nil, nil, err
	}
	return sendSetup, receiveSetup, nil
}
