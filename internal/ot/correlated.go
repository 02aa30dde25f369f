package ot

import (
	"fmt"

	"github.com/quorumkey/threshold-ecdsa/internal/params"
	"github.com/quorumkey/threshold-ecdsa/pkg/hash"
	"github.com/zeebo/blake3"
)

// CorreOTSendSetup is the sender's half of a correlated OT setup.
//
// The sender holds the correlation Δ along with one PRG seed per base OT
// instance, the one matching the corresponding bit of Δ. The setup is
// established once per ordered pair of parties during key generation and is
// reused for every extension afterwards, so it is part of the stored key
// material.
type CorreOTSendSetup struct {
	Delta  [params.SecBytes]byte
	KDelta [params.OTParam][params.SecBytes]byte
}

// CorreOTReceiveSetup is the receiver's half of a correlated OT setup,
// holding both PRG seeds for every base OT instance.
type CorreOTReceiveSetup struct {
	K0 [params.OTParam][params.SecBytes]byte
	K1 [params.OTParam][params.SecBytes]byte
}

// CorreOTReceiveMessage is the receiver's single message of one extension.
//
// Row i is tᵢ⁰ ⊕ tᵢ¹ ⊕ x, masking the choice vector x with both PRG
// expansions of instance i.
type CorreOTReceiveMessage struct {
	U [][]byte
}

// CorreOTSendResult holds the sender's correlated rows.
//
// After transposing, row j satisfies Q[j] = T[j] ⊕ xⱼ·Δ, with T[j] the
// receiver's row and xⱼ its j-th choice bit.
type CorreOTSendResult struct {
	U [][]byte
	Q [][params.SecBytes]byte
}

// CorreOTReceiveResult holds the receiver's rows after transposing.
type CorreOTReceiveResult struct {
	T [][params.SecBytes]byte
}

// CorreOTSend runs the sender's side of one correlated OT extension.
//
// The ctxHash must be unique to this extension: the PRG salt is derived from
// it, and reusing it with the same setup leaks the receiver's choice bits.
func CorreOTSend(ctxHash *hash.Hash, setup *CorreOTSendSetup, batchSize int, msg *CorreOTReceiveMessage) (*CorreOTSendResult, error) {
	if batchSize%8 != 0 {
		return nil, fmt.Errorf("ot: batch size %d is not a multiple of 8", batchSize)
	}
	rowLen := batchSize / 8
	if msg == nil || len(msg.U) != params.OTParam {
		return nil, fmt.Errorf("ot: %w: wrong number of correlation rows", ErrProtocol)
	}
	for i := range msg.U {
		if len(msg.U[i]) != rowLen {
			return nil, fmt.Errorf("ot: %w: wrong correlation row length", ErrProtocol)
		}
	}

	salt := prgSalt(ctxHash)
	rows := make([][]byte, params.OTParam)
	for i := range rows {
		rows[i] = prgExpand(setup.KDelta[i][:], salt, rowLen)
		if bitAt(setup.Delta[:], i) == 1 {
			for j := range rows[i] {
				rows[i][j] ^= msg.U[i][j]
			}
		}
	}
	return &CorreOTSendResult{U: msg.U, Q: transposeBits(batchSize, rows)}, nil
}

// CorreOTReceive runs the receiver's side of one correlated OT extension,
// with one choice bit per extended instance.
func CorreOTReceive(ctxHash *hash.Hash, setup *CorreOTReceiveSetup, choices []byte) (*CorreOTReceiveMessage, *CorreOTReceiveResult) {
	batchSize := 8 * len(choices)
	salt := prgSalt(ctxHash)

	msg := &CorreOTReceiveMessage{U: make([][]byte, params.OTParam)}
	rows := make([][]byte, params.OTParam)
	for i := 0; i < params.OTParam; i++ {
		rows[i] = prgExpand(setup.K0[i][:], salt, len(choices))
		t1 := prgExpand(setup.K1[i][:], salt, len(choices))
		msg.U[i] = make([]byte, len(choices))
		for j := range msg.U[i] {
			msg.U[i][j] = rows[i][j] ^ t1[j] ^ choices[j]
		}
	}
	return msg, &CorreOTReceiveResult{T: transposeBits(batchSize, rows)}
}

// prgSalt derives an extension-unique salt from the session hash, so that
// repeated extensions over the same setup expand to unrelated rows.
func prgSalt(ctxHash *hash.Hash) []byte {
	salt := make([]byte, params.SecBytes)
	forked := ctxHash.Fork(&hash.BytesWithDomain{TheDomain: "CorreOT PRG Salt"})
	_, _ = forked.Digest().Read(salt)
	return salt
}

func prgExpand(seed, salt []byte, size int) []byte {
	prg := blake3.New()
	_, _ = prg.Write(salt)
	_, _ = prg.Write(seed)
	out := make([]byte, size)
	_, _ = prg.Digest().Read(out)
	return out
}

// transposeBits transposes a params.OTParam × batchSize bit matrix into
// batchSize rows of params.OTParam bits.
func transposeBits(batchSize int, rows [][]byte) [][params.SecBytes]byte {
	out := make([][params.SecBytes]byte, batchSize)
	for i := 0; i < params.OTParam; i++ {
		row := rows[i]
		for j := 0; j < batchSize; j++ {
			bit := (row[j>>3] >> (j & 0b111)) & 1
			out[j][i>>3] |= bit << (i & 0b111)
		}
	}
	return out
}
