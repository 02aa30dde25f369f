package ot

import (
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
	"github.com/zeebo/blake3"
)

// The additive OT turns a batch of extended OT pads into additive shares:
// for every instance i with choice bit cᵢ, the sender ends up with a pair of
// scalars sᵢ and the receiver with rᵢ such that sᵢ + rᵢ = cᵢ·α, for a pair of
// sender inputs α. Working over pairs lets the multiplication on top run its
// integrity check against a second, random input.

// AdditiveOTSendRound1Message carries the masked inputs for every instance.
type AdditiveOTSendRound1Message struct {
	CombinedPads [][2][]byte
}

// AdditiveOTSendResult holds the sender's scalar share pair per instance.
type AdditiveOTSendResult [][2]curve.Scalar

type AdditiveOTSender struct {
	ctxHash   *hash.Hash
	setup     *CorreOTSendSetup
	batchSize int
	group     curve.Curve
	alpha     [2]curve.Scalar
}

func NewAdditiveOTSender(ctxHash *hash.Hash, setup *CorreOTSendSetup, batchSize int, alpha [2]curve.Scalar) *AdditiveOTSender {
	return &AdditiveOTSender{
		ctxHash:   ctxHash,
		setup:     setup,
		batchSize: batchSize,
		group:     alpha[0].Curve(),
		alpha:     alpha,
	}
}

func (r *AdditiveOTSender) Round1(msg *AdditiveOTReceiveRound1Message) (*AdditiveOTSendRound1Message, AdditiveOTSendResult, error) {
	if msg == nil {
		return nil, nil, fmt.Errorf("ot: %w: missing additive OT message", ErrProtocol)
	}
	extendedResult, err := ExtendedOTSend(r.ctxHash, r.setup, r.batchSize, msg.Msg)
	if err != nil {
		return nil, nil, err
	}
	prg := blake3.New()
	outMsg := &AdditiveOTSendRound1Message{
		CombinedPads: make([][2][]byte, r.batchSize),
	}
	result := make(AdditiveOTSendResult, r.batchSize)
	var combinedPads [2]curve.Scalar
	for i := 0; i < r.batchSize; i++ {
		prg.Reset()
		_, _ = prg.Write(extendedResult._V0[i][:])
		digest := prg.Digest()
		result[i][0] = sample.Scalar(digest, r.group)
		result[i][1] = sample.Scalar(digest, r.group)

		prg.Reset()
		_, _ = prg.Write(extendedResult._V1[i][:])
		digest = prg.Digest()
		combinedPads[0] = sample.Scalar(digest, r.group)
		combinedPads[1] = sample.Scalar(digest, r.group)

		// combinedPad = V1 - V0 + α, so only a choice bit of 1 reveals α.
		combinedPads[0].Sub(result[i][0]).Add(r.alpha[0])
		combinedPads[1].Sub(result[i][1]).Add(r.alpha[1])

		if outMsg.CombinedPads[i][0], err = combinedPads[0].MarshalBinary(); err != nil {
			return nil, nil, err
		}
		if outMsg.CombinedPads[i][1], err = combinedPads[1].MarshalBinary(); err != nil {
			return nil, nil, err
		}
	}
	return outMsg, result, nil
}

type AdditiveOTReceiver struct {
	// After setup
	ctxHash *hash.Hash
	setup   *CorreOTReceiveSetup
	choices []byte
	group   curve.Curve
	// After round 1
	result *ExtendedOTReceiveResult
}

func NewAdditiveOTReceiver(ctxHash *hash.Hash, setup *CorreOTReceiveSetup, group curve.Curve, choices []byte) *AdditiveOTReceiver {
	return &AdditiveOTReceiver{ctxHash: ctxHash, setup: setup, group: group, choices: choices}
}

type AdditiveOTReceiveRound1Message struct {
	Msg *ExtendedOTReceiveMessage
}

func (r *AdditiveOTReceiver) Round1() *AdditiveOTReceiveRound1Message {
	msg, result := ExtendedOTReceive(r.ctxHash, r.setup, r.choices)
	r.result = result
	return &AdditiveOTReceiveRound1Message{Msg: msg}
}

// AdditiveOTReceiveResult holds the receiver's scalar share pair per instance.
type AdditiveOTReceiveResult [][2]curve.Scalar

func (r *AdditiveOTReceiver) Round2(msg *AdditiveOTSendRound1Message) (AdditiveOTReceiveResult, error) {
	batchSize := 8 * len(r.choices)
	if msg == nil || len(msg.CombinedPads) != batchSize {
		return nil, fmt.Errorf("ot: %w: wrong number of additive OT pads", ErrProtocol)
	}
	result := make(AdditiveOTReceiveResult, batchSize)
	prg := blake3.New()
	for i := 0; i < batchSize; i++ {
		mask := -bitAt(r.choices, i)
		prg.Reset()
		_, _ = prg.Write(r.result._VChoices[i][:])
		digest := prg.Digest()
		result[i][0] = sample.Scalar(digest, r.group).Negate()
		result[i][1] = sample.Scalar(digest, r.group).Negate()

		// Zero out the masked inputs unless our choice bit is set.
		pad0 := make([]byte, len(msg.CombinedPads[i][0]))
		pad1 := make([]byte, len(msg.CombinedPads[i][1]))
		for j := range pad0 {
			pad0[j] = mask & msg.CombinedPads[i][0][j]
		}
		for j := range pad1 {
			pad1[j] = mask & msg.CombinedPads[i][1][j]
		}

		combinedPad0 := r.group.NewScalar()
		if err := combinedPad0.UnmarshalBinary(pad0); err != nil {
			return nil, fmt.Errorf("ot: %w: %s", ErrProtocol, err)
		}
		combinedPad1 := r.group.NewScalar()
		if err := combinedPad1.UnmarshalBinary(pad1); err != nil {
			return nil, fmt.Errorf("ot: %w: %s", ErrProtocol, err)
		}
		result[i][0].Add(combinedPad0)
		result[i][1].Add(combinedPad1)
	}
	return result, nil
}
