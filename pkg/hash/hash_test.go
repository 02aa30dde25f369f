package hash

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	h1 := New(&BytesWithDomain{TheDomain: "Test", Bytes: []byte("seed")})
	h2 := New(&BytesWithDomain{TheDomain: "Test", Bytes: []byte("seed")})
	assert.Equal(t, h1.Sum(), h2.Sum())

	h3 := New(&BytesWithDomain{TheDomain: "Test", Bytes: []byte("other")})
	assert.NotEqual(t, h1.Sum(), h3.Sum())
}

func TestHashCloneDiverges(t *testing.T) {
	h := New(&BytesWithDomain{TheDomain: "Test", Bytes: []byte("seed")})
	clone := h.Clone()
	require.NoError(t, clone.WriteAny(&BytesWithDomain{TheDomain: "Extra", Bytes: []byte("data")}))
	assert.NotEqual(t, h.Sum(), clone.Sum())
}

func TestHashForkIndependent(t *testing.T) {
	h := New(&BytesWithDomain{TheDomain: "Test", Bytes: []byte("seed")})
	f1 := h.Fork(&BytesWithDomain{TheDomain: "Fork", Bytes: []byte{1}})
	f2 := h.Fork(&BytesWithDomain{TheDomain: "Fork", Bytes: []byte{2}})
	assert.NotEqual(t, f1.Sum(), f2.Sum())

	// forking must not modify the parent state
	assert.Equal(t, h.Sum(), New(&BytesWithDomain{TheDomain: "Test", Bytes: []byte("seed")}).Sum())
}

func TestCommitDecommit(t *testing.T) {
	h := New(&BytesWithDomain{TheDomain: "Test", Bytes: []byte("commit")})
	data := make([]byte, 32)
	_, err := rand.Read(data)
	require.NoError(t, err)

	commitment, decommitment, err := h.Commit(&BytesWithDomain{TheDomain: "Data", Bytes: data})
	require.NoError(t, err)
	require.NoError(t, commitment.Validate())
	require.NoError(t, decommitment.Validate())

	assert.True(t, h.Decommit(commitment, decommitment, &BytesWithDomain{TheDomain: "Data", Bytes: data}))

	wrong := make([]byte, 32)
	copy(wrong, data)
	wrong[0] ^= 1
	assert.False(t, h.Decommit(commitment, decommitment, &BytesWithDomain{TheDomain: "Data", Bytes: wrong}))
	assert.False(t, h.Decommit(commitment, nil, &BytesWithDomain{TheDomain: "Data", Bytes: data}))
}

func TestCommitUnique(t *testing.T) {
	h := New(&BytesWithDomain{TheDomain: "Test", Bytes: []byte("commit unique")})
	data := &BytesWithDomain{TheDomain: "Data", Bytes: []byte("same")}

	c1, _, err := h.Commit(data)
	require.NoError(t, err)
	c2, _, err := h.Commit(data)
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}
