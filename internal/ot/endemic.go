package ot

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/params"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/sample"
	zksch "github.com/quorumkey/threshold-ecdsa/pkg/zk/sch"
)

// This file implements the two message base OT seeding the correlated OT
// extension. A batch of params.OTParam instances shares a single base point:
//
//	sender:   B = b•G, published once with a proof of knowledge of b
//	receiver: Aₖ = aₖ•G + δₖ•B, one point per instance, δₖ the choice bit
//
// after which both sides derive pads locally,
//
//	sender:   pad₀ₖ = H(k, b•Aₖ), pad₁ₖ = H(k, b•(Aₖ - B))
//	receiver: padₖ  = H(k, aₖ•B) = pad_{δₖ}
//
// The receiver's choice bits are the correlation Δ of the extension, so the
// base OT receiver ends up as the correlated OT sender and vice versa.

// BaseOTSetupMessage announces the base point for a batch of base OTs.
type BaseOTSetupMessage struct {
	B     []byte
	Proof []byte
}

// BaseOTSender holds the secret exponent of the announced base point.
type BaseOTSender struct {
	group curve.Curve
	b     curve.Scalar
	_B    curve.Point
}

// NewBaseOTSender samples a base point and proves knowledge of its exponent.
//
// The hash must be bound to the session and the identities of both parties.
func NewBaseOTSender(h *hash.Hash, group curve.Curve) (*BaseOTSender, *BaseOTSetupMessage, error) {
	b := sample.ScalarUnit(rand.Reader, group)
	B := b.ActOnBase()

	proof := zksch.NewProof(h.Clone(), B, b)
	proofBytes, err := proof.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	BBytes, err := B.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}

	sender := &BaseOTSender{group: group, b: b, _B: B}
	return sender, &BaseOTSetupMessage{B: BBytes, Proof: proofBytes}, nil
}

// BaseOTVerifySetup checks the setup message and returns the base point.
func BaseOTVerifySetup(h *hash.Hash, group curve.Curve, msg *BaseOTSetupMessage) (curve.Point, error) {
	if msg == nil {
		return nil, fmt.Errorf("ot: %w: missing base OT setup", ErrProtocol)
	}
	B := group.NewPoint()
	if err := B.UnmarshalBinary(msg.B); err != nil {
		return nil, fmt.Errorf("ot: %w: %s", ErrProtocol, err)
	}
	proof := zksch.EmptyProof(group)
	if err := proof.UnmarshalBinary(msg.Proof); err != nil {
		return nil, fmt.Errorf("ot: %w: %s", ErrProtocol, err)
	}
	if !proof.Verify(h.Clone(), B) {
		return nil, fmt.Errorf("ot: %w: base OT setup proof failed to verify", ErrProtocol)
	}
	return B, nil
}

// BaseOTReceiveMessage carries the receiver's points, one per instance.
type BaseOTReceiveMessage struct {
	A [][]byte
}

// BaseOTReceive plays the receiver for the whole batch, with choice bits delta.
//
// It returns the message for the sender along with the completed correlated
// OT sender setup.
func BaseOTReceive(h *hash.Hash, B curve.Point, delta [params.SecBytes]byte) (*BaseOTReceiveMessage, *CorreOTSendSetup, error) {
	group := B.Curve()
	setup := &CorreOTSendSetup{Delta: delta}
	msg := &BaseOTReceiveMessage{A: make([][]byte, params.OTParam)}
	for k := 0; k < params.OTParam; k++ {
		a := sample.ScalarUnit(rand.Reader, group)
		A := a.ActOnBase()
		if bitAt(delta[:], k) == 1 {
			A = A.Add(B)
		}
		var err error
		msg.A[k], err = A.MarshalBinary()
		if err != nil {
			return nil, nil, err
		}
		derivePad(h, k, a.Act(B), setup.KDelta[k][:])
	}
	return msg, setup, nil
}

// BaseOTSend completes the batch on the sender's side, deriving both pads for
// every instance.
func (s *BaseOTSender) BaseOTSend(h *hash.Hash, msg *BaseOTReceiveMessage) (*CorreOTReceiveSetup, error) {
	if msg == nil || len(msg.A) != params.OTParam {
		return nil, fmt.Errorf("ot: %w: wrong number of base OT points", ErrProtocol)
	}
	setup := new(CorreOTReceiveSetup)
	for k := range msg.A {
		A := s.group.NewPoint()
		if err := A.UnmarshalBinary(msg.A[k]); err != nil {
			return nil, fmt.Errorf("ot: %w: %s", ErrProtocol, err)
		}
		if A.IsIdentity() {
			return nil, fmt.Errorf("ot: %w: identity base OT point", ErrProtocol)
		}
		derivePad(h, k, s.b.Act(A), setup.K0[k][:])
		derivePad(h, k, s.b.Act(A.Sub(s._B)), setup.K1[k][:])
	}
	return setup, nil
}

func derivePad(h *hash.Hash, k int, p curve.Point, out []byte) {
	var ctr [4]byte
	binary.BigEndian.PutUint32(ctr[:], uint32(k))
	forked := h.Fork(&hash.BytesWithDomain{
		TheDomain: "BaseOT Pad",
		Bytes:     ctr[:],
	})
	_ = forked.WriteAny(p)
	_, _ = forked.Digest().Read(out)
}

func bitAt(b []byte, i int) byte {
	return (b[i>>3] >> (i & 0b111)) & 1
}
