// Package keystore persists key shares between protocol executions.
//
// A Store refuses to overwrite a share with one from an older or equal
// epoch, so a stale share produced before a refresh can never displace
// the refreshed one.
package keystore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
)

// ErrNotFound is returned when no share is stored under the requested key ID.
var ErrNotFound = errors.New("keystore: share not found")

// Store saves and loads key shares, keyed by an application chosen key ID.
type Store interface {
	// StoreShare saves share under keyID. It returns
	// keyshare.ErrEpochMismatch if a share with an epoch greater than or
	// equal to the new share's epoch is already stored under keyID.
	StoreShare(keyID string, share *keyshare.KeyShare) error
	// LoadShare returns the share stored under keyID, or ErrNotFound.
	LoadShare(keyID string) (*keyshare.KeyShare, error)
}

// MemStore is an in-memory Store, safe for concurrent use.
type MemStore struct {
	mtx    sync.Mutex
	group  curve.Curve
	shares map[string][]byte
}

// NewMemStore returns an empty MemStore holding shares for the given group.
func NewMemStore(group curve.Curve) *MemStore {
	return &MemStore{
		group:  group,
		shares: map[string][]byte{},
	}
}

func (s *MemStore) StoreShare(keyID string, share *keyshare.KeyShare) error {
	if err := share.Validate(); err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if existing, ok := s.shares[keyID]; ok {
		previous := keyshare.EmptyKeyShare(s.group)
		if err := previous.UnmarshalBinary(existing); err != nil {
			return fmt.Errorf("keystore: corrupt stored share: %w", err)
		}
		if previous.Epoch >= share.Epoch {
			return fmt.Errorf("keystore: stored epoch %d, new epoch %d: %w",
				previous.Epoch, share.Epoch, keyshare.ErrEpochMismatch)
		}
	}
	data, err := share.MarshalBinary()
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	s.shares[keyID] = data
	return nil
}

func (s *MemStore) LoadShare(keyID string) (*keyshare.KeyShare, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	data, ok := s.shares[keyID]
	if !ok {
		return nil, ErrNotFound
	}
	share := keyshare.EmptyKeyShare(s.group)
	if err := share.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	return share, nil
}
