package ot

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/params"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/zeebo/blake3"
)

const fieldElementLen = 2 * params.SecBytes / 8

// fieldElement is an element of GF(2^κ), as κ/64 little-endian words.
type fieldElement [fieldElementLen]uint64

func (f *fieldElement) eq(a *fieldElement) bool {
	acc := uint64(0)
	for i := 0; i < fieldElementLen; i++ {
		acc |= f[i] ^ a[i]
	}
	return ((acc | -acc) >> 63) != 1
}

func (f *fieldElement) shl1() {
	for i := fieldElementLen - 1; i > 0; i-- {
		f[i] = (f[i] << 1) | (f[i-1] >> 63)
	}
	f[0] <<= 1
}

// accumulate adds the carry-less product a⊗b into f.
func (f *fieldElement) accumulate(a *[params.SecBytes]byte, b *[params.SecBytes]byte) {
	var b64 [params.SecBytes / 8]uint64
	for i := 0; i < len(b64); i++ {
		b64[i] = binary.LittleEndian.Uint64(b[8*i : 8*(i+1)])
	}
	var a64 [params.SecBytes / 8]uint64
	for i := 0; i < len(a64); i++ {
		a64[i] = binary.LittleEndian.Uint64(a[8*i : 8*(i+1)])
	}
	var scratch fieldElement

	for i := 63; i >= 0; i-- {
		for j := 0; j < len(a64); j++ {
			mask := -((a64[j] >> i) & 1)
			for k := 0; k < len(b64); k++ {
				scratch[j+k] ^= mask & b64[k]
			}
		}
		if i != 0 {
			scratch.shl1()
		}
	}

	for i := 0; i < fieldElementLen; i++ {
		f[i] ^= scratch[i]
	}
}

// ExtendedOTReceiveMessage is the receiver's single message of one extended
// OT, carrying the correlation rows and the consistency check values.
type ExtendedOTReceiveMessage struct {
	CorreMsg *CorreOTReceiveMessage
	X        [params.SecBytes]byte
	T        fieldElement
}

// ExtendedOTSendResult holds both pads for every extended instance.
type ExtendedOTSendResult struct {
	_V0 [][params.SecBytes]byte
	_V1 [][params.SecBytes]byte
}

// ExtendedOTSend runs the sender's side of an extended OT batch.
//
// The batch is inflated with extra instances consumed by the consistency
// check, which detects a receiver using different choice bits across the
// correlation rows.
func ExtendedOTSend(ctxHash *hash.Hash, setup *CorreOTSendSetup, batchSize int, msg *ExtendedOTReceiveMessage) (*ExtendedOTSendResult, error) {
	if msg == nil || msg.CorreMsg == nil {
		return nil, fmt.Errorf("ot: %w: missing extension message", ErrProtocol)
	}
	inflatedBatchSize := batchSize + params.OTParam + params.StatParam

	correResult, err := CorreOTSend(ctxHash, setup, inflatedBatchSize, msg.CorreMsg)
	if err != nil {
		return nil, err
	}

	for i := 0; i < params.OTParam; i++ {
		_ = ctxHash.WriteAny(correResult.U[i])
	}

	chi := make([][params.SecBytes]byte, inflatedBatchSize)
	digest := ctxHash.Digest()
	for i := 0; i < len(chi); i++ {
		_, _ = digest.Read(chi[i][:])
	}

	var q fieldElement
	for i := 0; i < len(chi); i++ {
		q.accumulate(&correResult.Q[i], &chi[i])
	}
	q.accumulate(&msg.X, &setup.Delta)

	if !q.eq(&msg.T) {
		return nil, fmt.Errorf("ot: %w: monochrome check failed", ErrConsistency)
	}

	V0 := make([][params.SecBytes]byte, batchSize)
	V1 := make([][params.SecBytes]byte, batchSize)
	hasher := blake3.New()
	ctr := make([]byte, 4)
	for i := 0; i < batchSize; i++ {
		binary.BigEndian.PutUint32(ctr, uint32(i))

		hasher.Reset()
		_, _ = hasher.Write(ctr)
		_, _ = hasher.Write(correResult.Q[i][:])
		_, _ = hasher.Digest().Read(V0[i][:])

		for j := 0; j < params.SecBytes; j++ {
			correResult.Q[i][j] ^= setup.Delta[j]
		}
		hasher.Reset()
		_, _ = hasher.Write(ctr)
		_, _ = hasher.Write(correResult.Q[i][:])
		_, _ = hasher.Digest().Read(V1[i][:])
	}

	return &ExtendedOTSendResult{_V0: V0, _V1: V1}, nil
}

// ExtendedOTReceiveResult holds the pad matching each choice bit.
type ExtendedOTReceiveResult struct {
	_VChoices [][params.SecBytes]byte
}

// ExtendedOTReceive runs the receiver's side of an extended OT batch, with
// one choice bit per instance in choices.
func ExtendedOTReceive(ctxHash *hash.Hash, setup *CorreOTReceiveSetup, choices []byte) (*ExtendedOTReceiveMessage, *ExtendedOTReceiveResult) {
	inflatedBatchSize := 8*len(choices) + params.OTParam + params.StatParam
	extraChoices := make([]byte, inflatedBatchSize/8)
	copy(extraChoices, choices)
	_, _ = rand.Read(extraChoices[len(choices):])

	correMsg, correResult := CorreOTReceive(ctxHash, setup, extraChoices)

	for i := 0; i < params.OTParam; i++ {
		_ = ctxHash.WriteAny(correMsg.U[i])
	}
	outMsg := &ExtendedOTReceiveMessage{CorreMsg: correMsg}

	chi := make([][params.SecBytes]byte, inflatedBatchSize)
	digest := ctxHash.Digest()
	for i := 0; i < len(chi); i++ {
		_, _ = digest.Read(chi[i][:])
	}

	for i := 0; i < len(chi); i++ {
		mask := -bitAt(extraChoices, i)
		for j := 0; j < params.SecBytes; j++ {
			outMsg.X[j] ^= mask & chi[i][j]
		}
	}

	for i := 0; i < len(chi); i++ {
		outMsg.T.accumulate(&correResult.T[i], &chi[i])
	}

	VChoices := make([][params.SecBytes]byte, 8*len(choices))
	hasher := blake3.New()
	ctr := make([]byte, 4)
	for i := 0; i < len(VChoices); i++ {
		binary.BigEndian.PutUint32(ctr, uint32(i))
		hasher.Reset()
		_, _ = hasher.Write(ctr)
		_, _ = hasher.Write(correResult.T[i][:])
		_, _ = hasher.Digest().Read(VChoices[i][:])
	}

	return outMsg, &ExtendedOTReceiveResult{_VChoices: VChoices}
}
