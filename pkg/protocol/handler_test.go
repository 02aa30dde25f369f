package protocol_test

import (
	"crypto/rand"
	"crypto/sha256"
	mrand "math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumkey/threshold-ecdsa/internal/test"
	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
	"github.com/quorumkey/threshold-ecdsa/pkg/party"
	"github.com/quorumkey/threshold-ecdsa/pkg/pool"
	"github.com/quorumkey/threshold-ecdsa/pkg/protocol"
	"github.com/quorumkey/threshold-ecdsa/protocols"
	"github.com/quorumkey/threshold-ecdsa/protocols/dsg"
)

var testGroup = curve.Secp256k1{}

// runHandlers executes one protocol over a fresh simulated network,
// returning each party's result.
func runHandlers(t *testing.T, ids party.IDSlice, start func(id party.ID) protocol.StartFunc) map[party.ID]interface{} {
	t.Helper()
	sessionID := make([]byte, 32)
	_, err := rand.Read(sessionID)
	require.NoError(t, err)

	network := test.NewNetwork(ids)
	var mtx sync.Mutex
	var wg sync.WaitGroup
	results := make(map[party.ID]interface{}, len(ids))
	errs := make(map[party.ID]error, len(ids))
	wg.Add(len(ids))
	for _, id := range ids {
		go func(id party.ID) {
			defer wg.Done()
			h, err := protocol.NewMultiHandler(start(id), sessionID)
			if err != nil {
				mtx.Lock()
				errs[id] = err
				mtx.Unlock()
				return
			}
			test.HandlerLoop(id, h, network)
			result, err := h.Result()
			mtx.Lock()
			results[id], errs[id] = result, err
			mtx.Unlock()
		}(id)
	}
	wg.Wait()
	for id, err := range errs {
		require.NoError(t, err, "party %s", id)
	}
	return results
}

func TestHandlerKeygenRefreshSign(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end to end protocol test")
	}
	n, threshold := 3, 1
	ids := test.PartyIDs(n)
	pl := pool.NewPool(0)
	defer pl.TearDown()

	results := runHandlers(t, ids, func(id party.ID) protocol.StartFunc {
		return protocols.DKG(testGroup, id, ids, threshold, pl)
	})

	shares := make(map[party.ID]*keyshare.KeyShare, n)
	for id, result := range results {
		share := result.(*keyshare.KeyShare)
		require.NoError(t, share.Validate())
		shares[id] = share
	}
	public := shares[ids[0]].PublicPoint()
	for _, share := range shares {
		assert.True(t, share.PublicPoint().Equal(public))
		assert.Equal(t, shares[ids[0]].ChainCode, share.ChainCode)
		assert.EqualValues(t, 0, share.Epoch)
	}

	messageHash := sha256.Sum256([]byte("hello"))
	signers := ids[:threshold+1]
	signResults := runHandlers(t, signers, func(id party.ID) protocol.StartFunc {
		return protocols.Sign(shares[id], signers, messageHash[:], pl)
	})
	for _, result := range signResults {
		signature := result.(*dsg.Signature)
		assert.True(t, signature.Signature.Verify(public, messageHash[:]))
	}

	refreshResults := runHandlers(t, ids, func(id party.ID) protocol.StartFunc {
		return protocols.Refresh(shares[id], pl)
	})
	refreshed := make(map[party.ID]*keyshare.KeyShare, n)
	for id, result := range refreshResults {
		share := result.(*keyshare.KeyShare)
		require.NoError(t, share.Validate())
		assert.True(t, share.PublicPoint().Equal(public))
		assert.EqualValues(t, 1, share.Epoch)
		assert.Equal(t, shares[id].ChainCode, share.ChainCode)
		assert.False(t, share.ECDSA.Equal(shares[id].ECDSA))
		refreshed[id] = share
	}

	messageHash = sha256.Sum256([]byte("hello again"))
	signers = ids[1:]
	signResults = runHandlers(t, signers, func(id party.ID) protocol.StartFunc {
		return protocols.Sign(refreshed[id], signers, messageHash[:], pl)
	})
	for _, result := range signResults {
		signature := result.(*dsg.Signature)
		assert.True(t, signature.Signature.Verify(public, messageHash[:]))
	}
}

func TestHandlerSignEpochMismatch(t *testing.T) {
	ids := test.PartyIDs(3)
	shares, _, err := test.GenerateShares(testGroup, ids, 1)
	require.NoError(t, err)

	signers := ids[:2]
	// the second signer missed a refresh
	shares[signers[1]].Epoch = 1

	messageHash := sha256.Sum256([]byte("stale share"))
	sessionID := make([]byte, 32)
	_, err = rand.Read(sessionID)
	require.NoError(t, err)

	network := test.NewNetwork(signers)
	var mtx sync.Mutex
	var wg sync.WaitGroup
	errs := make(map[party.ID]error, len(signers))
	wg.Add(len(signers))
	for _, id := range signers {
		go func(id party.ID) {
			defer wg.Done()
			h, err := protocol.NewMultiHandler(dsg.Start(shares[id], signers, messageHash[:], nil), sessionID)
			if err != nil {
				mtx.Lock()
				errs[id] = err
				mtx.Unlock()
				return
			}
			test.HandlerLoop(id, h, network)
			_, err = h.Result()
			mtx.Lock()
			errs[id] = err
			mtx.Unlock()
		}(id)
	}
	wg.Wait()

	// both signers must learn which party is out of date, not stall
	for id, err := range errs {
		assert.ErrorIs(t, err, keyshare.ErrEpochMismatch, "party %s", id)
	}
}

func TestHandlerRejectsDuplicateMessages(t *testing.T) {
	n, threshold := 3, 1
	ids := test.PartyIDs(n)

	sessionID := make([]byte, 32)
	_, err := rand.Read(sessionID)
	require.NoError(t, err)

	handlers := make(map[party.ID]*protocol.MultiHandler, n)
	for _, id := range ids {
		handlers[id], err = protocol.NewMultiHandler(protocols.DKG(testGroup, id, ids, threshold, nil), sessionID)
		require.NoError(t, err)
	}

	// deliver every outgoing first round message twice, in a random order
	var queue []*protocol.Message
	for _, h := range handlers {
		msg := <-h.Listen()
		queue = append(queue, msg, msg)
	}
	mrand.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
	for _, msg := range queue {
		for id, h := range handlers {
			if msg.IsFor(id) && h.CanAccept(msg) {
				h.Accept(msg)
			}
		}
	}
	for _, h := range handlers {
		select {
		case <-h.Listen():
			// the protocol advanced past round 2, duplicates were dropped
		default:
			t.Fatal("handler stalled after duplicate delivery")
		}
	}
}
