// Package mta implements the multiplicative-to-additive conversion used
// during signing.
//
// For an ordered pair of signers, the initiator inputs two multiplicands and
// the responder two multipliers, and the parties end up with additive shares
// of both products:
//
//	kGammaShareᵢ + kGammaShareⱼ = kᵢ·γⱼ
//	gammaWShareᵢ + gammaWShareⱼ = γᵢ·wⱼ
//
// Both products run over the correlated OT setup established between the two
// parties during key generation, under separate hash forks. The whole
// conversion takes a single message in each direction.
package mta

import (
	"github.com/quorumkey/threshold-ecdsa/internal/ot"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
)

const (
	domainKGamma = "MtA KGamma"
	domainGammaW = "MtA GammaW"
)

// StartMessage opens the conversion, sent by the initiator.
type StartMessage struct {
	KGamma *ot.MultiplyReceiveRound1Message
	GammaW *ot.MultiplyReceiveRound1Message
}

// ResponseMessage closes the conversion, sent by the responder.
type ResponseMessage struct {
	KGamma *ot.MultiplySendRound1Message
	GammaW *ot.MultiplySendRound1Message
}

// Initiator is the receiving side of the conversion, holding the
// multiplicands k and γ.
type Initiator struct {
	kGamma *ot.MultiplyReceiver
	gammaW *ot.MultiplyReceiver
}

// NewInitiator starts a conversion with multiplicands k and gamma.
//
// The ctxHash must be bound to the session and the ordered pair of parties.
func NewInitiator(ctxHash *hash.Hash, setup *ot.CorreOTReceiveSetup, k, gamma curve.Scalar) (*Initiator, *StartMessage, error) {
	kGamma, err := ot.NewMultiplyReceiver(ctxHash.Fork(&hash.BytesWithDomain{TheDomain: domainKGamma}), setup, k)
	if err != nil {
		return nil, nil, err
	}
	gammaW, err := ot.NewMultiplyReceiver(ctxHash.Fork(&hash.BytesWithDomain{TheDomain: domainGammaW}), setup, gamma)
	if err != nil {
		return nil, nil, err
	}
	msg := &StartMessage{
		KGamma: kGamma.Round1(),
		GammaW: gammaW.Round1(),
	}
	return &Initiator{kGamma: kGamma, gammaW: gammaW}, msg, nil
}

// Respond runs the responding side in one shot, with multipliers gamma and w,
// returning the responder's shares of both products.
func Respond(ctxHash *hash.Hash, setup *ot.CorreOTSendSetup, gamma, w curve.Scalar, msg *StartMessage) (*ResponseMessage, curve.Scalar, curve.Scalar, error) {
	if msg == nil {
		return nil, nil, nil, ot.ErrProtocol
	}
	kGammaSender := ot.NewMultiplySender(ctxHash.Fork(&hash.BytesWithDomain{TheDomain: domainKGamma}), setup, gamma)
	kGammaMsg, kGammaShare, err := kGammaSender.Round1(msg.KGamma)
	if err != nil {
		return nil, nil, nil, err
	}
	gammaWSender := ot.NewMultiplySender(ctxHash.Fork(&hash.BytesWithDomain{TheDomain: domainGammaW}), setup, w)
	gammaWMsg, gammaWShare, err := gammaWSender.Round1(msg.GammaW)
	if err != nil {
		return nil, nil, nil, err
	}
	out := &ResponseMessage{
		KGamma: kGammaMsg,
		GammaW: gammaWMsg,
	}
	return out, kGammaShare, gammaWShare, nil
}

// Finish consumes the responder's message and returns the initiator's shares
// of both products.
func (r *Initiator) Finish(msg *ResponseMessage) (curve.Scalar, curve.Scalar, error) {
	if msg == nil {
		return nil, nil, ot.ErrProtocol
	}
	kGammaShare, err := r.kGamma.Round2(msg.KGamma)
	if err != nil {
		return nil, nil, err
	}
	gammaWShare, err := r.gammaW.Round2(msg.GammaW)
	if err != nil {
		return nil, nil, err
	}
	return kGammaShare, gammaWShare, nil
}
