package ot

import (
	"crypto/rand"
	"fmt"

	"github.com/cronokirby/saferith"

	"github.com/quorumkey/threshold-ecdsa/internal/params"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
)

// The multiplication turns one extended OT batch into additive shares of a
// product: the receiver inputs β, the sender α, and they end up with shares
// summing to α·β. The receiver's choice bits encode β against a public
// gadget vector, padded with noise so that the bits themselves stay hidden.

func scalarBitLen(group curve.Curve) int {
	return (group.ScalarBits() + 7) &^ 0b111
}

func noiseBitLen(group curve.Curve) int {
	return 8 * ((group.ScalarBits() + 2*params.StatParam + 7) / 8)
}

// encode converts β into choice bits for the gadget vector.
//
// Random noise bits γ are sampled, their gadget contribution is subtracted
// from β, and the remainder is written out bit by bit. The scalar bits use
// little-endian order, matching how choice vectors are indexed throughout.
func encode(beta curve.Scalar, noise []curve.Scalar) ([]byte, error) {
	group := beta.Curve()

	gamma := make([]byte, len(noise)/8)
	_, _ = rand.Read(gamma)

	acc := group.NewScalar().Set(beta)
	mulNat := new(saferith.Nat)
	mul := group.NewScalar()
	for i := 0; i < len(noise); i++ {
		mulNat.SetUint64(uint64(bitAt(gamma, i)))
		acc.Sub(mul.SetNat(mulNat).Mul(noise[i]))
	}

	data, err := acc.MarshalBinary()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}

	return append(data, gamma...), nil
}

// makeGadget returns the public gadget vector: the powers of two, in the
// little-endian bit order used by encode, followed by random noise scalars
// derived from the session hash.
func makeGadget(ctxHash *hash.Hash, group curve.Curve) []curve.Scalar {
	scalarEnd := scalarBitLen(group)
	out := make([]curve.Scalar, scalarEnd+noiseBitLen(group))

	acc := group.NewScalar().SetNat(new(saferith.Nat).SetUint64(1))
	for i := 0; i < scalarEnd; i++ {
		out[i] = group.NewScalar().Set(acc)
		acc.Add(acc)
	}

	digest := ctxHash.Fork(&hash.BytesWithDomain{TheDomain: "Multiply Gadget Sampling"}).Digest()
	for i := scalarEnd; i < len(out); i++ {
		out[i] = sample.Scalar(digest, group)
	}
	return out
}

type MultiplySender struct {
	ctxHash     *hash.Hash
	group       curve.Curve
	setup       *CorreOTSendSetup
	doubleAlpha [2]curve.Scalar
	gadget      []curve.Scalar
	sender      *AdditiveOTSender
}

// NewMultiplySender prepares one multiplication with sender input alpha.
//
// The second additive OT input is random, and exists only to feed the
// integrity check.
func NewMultiplySender(ctxHash *hash.Hash, setup *CorreOTSendSetup, alpha curve.Scalar) *MultiplySender {
	group := alpha.Curve()
	gadget := makeGadget(ctxHash, group)
	doubleAlpha := [2]curve.Scalar{alpha, sample.Scalar(rand.Reader, group)}
	return &MultiplySender{
		ctxHash:     ctxHash,
		group:       group,
		setup:       setup,
		gadget:      gadget,
		doubleAlpha: doubleAlpha,
		sender:      NewAdditiveOTSender(ctxHash, setup, len(gadget), doubleAlpha),
	}
}

// MultiplySendRound1Message carries the masked pads along with the integrity
// check values, as raw scalar encodings.
type MultiplySendRound1Message struct {
	Msg    *AdditiveOTSendRound1Message
	RCheck [][]byte
	UCheck []byte
}

// Round1 processes the receiver's message and returns the sender's share of
// the product α·β.
func (r *MultiplySender) Round1(msg *MultiplyReceiveRound1Message) (*MultiplySendRound1Message, curve.Scalar, error) {
	if msg == nil {
		return nil, nil, fmt.Errorf("ot: %w: missing multiply message", ErrProtocol)
	}
	additiveMsg, result, err := r.sender.Round1(msg.Msg)
	if err != nil {
		return nil, nil, err
	}

	digest := r.ctxHash.Fork(&hash.BytesWithDomain{TheDomain: "Multiply Chi Sampling"}).Digest()
	chi0 := sample.Scalar(digest, r.group)
	chi1 := sample.Scalar(digest, r.group)

	mul := r.group.NewScalar()

	uCheck := r.group.NewScalar()
	uCheck.Add(mul.Set(r.doubleAlpha[0]).Mul(chi0))
	uCheck.Add(mul.Set(r.doubleAlpha[1]).Mul(chi1))
	uCheckBytes, err := uCheck.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}

	rCheck := make([][]byte, len(result))
	rCheckScalar := r.group.NewScalar()
	for i := 0; i < len(rCheck); i++ {
		rCheckScalar.Set(result[i][0]).Mul(chi0)
		rCheckScalar.Add(mul.Set(result[i][1]).Mul(chi1))
		if rCheck[i], err = rCheckScalar.MarshalBinary(); err != nil {
			return nil, nil, err
		}
	}

	share := r.group.NewScalar()
	for i := 0; i < len(result); i++ {
		share.Add(mul.Set(result[i][0]).Mul(r.gadget[i]))
	}

	return &MultiplySendRound1Message{
		Msg:    additiveMsg,
		RCheck: rCheck,
		UCheck: uCheckBytes,
	}, share, nil
}

type MultiplyReceiver struct {
	ctxHash  *hash.Hash
	group    curve.Curve
	setup    *CorreOTReceiveSetup
	beta     curve.Scalar
	gadget   []curve.Scalar
	choices  []byte
	receiver *AdditiveOTReceiver
}

// NewMultiplyReceiver prepares one multiplication with receiver input beta.
func NewMultiplyReceiver(ctxHash *hash.Hash, setup *CorreOTReceiveSetup, beta curve.Scalar) (*MultiplyReceiver, error) {
	group := beta.Curve()
	gadget := makeGadget(ctxHash, group)
	choices, err := encode(beta, gadget[scalarBitLen(group):])
	if err != nil {
		return nil, err
	}
	return &MultiplyReceiver{
		ctxHash:  ctxHash,
		group:    group,
		setup:    setup,
		beta:     beta,
		gadget:   gadget,
		choices:  choices,
		receiver: NewAdditiveOTReceiver(ctxHash, setup, group, choices),
	}, nil
}

type MultiplyReceiveRound1Message struct {
	Msg *AdditiveOTReceiveRound1Message
}

func (r *MultiplyReceiver) Round1() *MultiplyReceiveRound1Message {
	return &MultiplyReceiveRound1Message{Msg: r.receiver.Round1()}
}

// Round2 processes the sender's message and returns the receiver's share of
// the product α·β.
func (r *MultiplyReceiver) Round2(msg *MultiplySendRound1Message) (curve.Scalar, error) {
	if msg == nil || len(msg.RCheck) != len(r.gadget) {
		return nil, fmt.Errorf("ot: %w: malformed multiply message", ErrProtocol)
	}
	result, err := r.receiver.Round2(msg.Msg)
	if err != nil {
		return nil, err
	}

	uCheck := r.group.NewScalar()
	if err := uCheck.UnmarshalBinary(msg.UCheck); err != nil {
		return nil, fmt.Errorf("ot: %w: %s", ErrProtocol, err)
	}

	digest := r.ctxHash.Fork(&hash.BytesWithDomain{TheDomain: "Multiply Chi Sampling"}).Digest()
	chi0 := sample.Scalar(digest, r.group)
	chi1 := sample.Scalar(digest, r.group)

	mul := r.group.NewScalar()
	checkLeft := r.group.NewScalar()
	checkRight := r.group.NewScalar()
	rCheck := r.group.NewScalar()
	choiceNat := new(saferith.Nat)

	for i := 0; i < len(result); i++ {
		checkLeft.Set(result[i][0]).Mul(chi0)
		checkLeft.Add(mul.Set(result[i][1]).Mul(chi1))

		if err := rCheck.UnmarshalBinary(msg.RCheck[i]); err != nil {
			return nil, fmt.Errorf("ot: %w: %s", ErrProtocol, err)
		}
		checkRight.SetNat(choiceNat.SetUint64(uint64(bitAt(r.choices, i))))
		checkRight.Mul(uCheck)
		checkRight.Sub(rCheck)

		if !checkLeft.Equal(checkRight) {
			return nil, fmt.Errorf("ot: %w: multiply integrity check failed", ErrConsistency)
		}
	}

	share := r.group.NewScalar()
	for i := 0; i < len(result); i++ {
		share.Add(mul.Set(result[i][0]).Mul(r.gadget[i]))
	}
	return share, nil
}
