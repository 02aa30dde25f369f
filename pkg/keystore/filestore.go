package keystore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quorumkey/threshold-ecdsa/pkg/keyshare"
	"github.com/quorumkey/threshold-ecdsa/pkg/math/curve"
)

// FileStore persists shares as files under a directory, one file per key ID.
// Writes go through a temporary file followed by a rename, so a crash leaves
// either the old share or the new one, never a partial write.
type FileStore struct {
	mtx   sync.Mutex
	group curve.Curve
	dir   string
	log   zerolog.Logger
}

// NewFileStore returns a FileStore rooted at dir, creating it if necessary.
func NewFileStore(group curve.Curve, dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	return &FileStore{
		group: group,
		dir:   dir,
		log:   zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.InfoLevel).With().Str("store", dir).Logger(),
	}, nil
}

func (s *FileStore) path(keyID string) string {
	return filepath.Join(s.dir, keyID+".share")
}

func (s *FileStore) StoreShare(keyID string, share *keyshare.KeyShare) error {
	if err := share.Validate(); err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if previous, err := s.load(keyID); err == nil {
		if previous.Epoch >= share.Epoch {
			return fmt.Errorf("keystore: stored epoch %d, new epoch %d: %w",
				previous.Epoch, share.Epoch, keyshare.ErrEpochMismatch)
		}
	} else if err != ErrNotFound {
		return err
	}
	data, err := share.MarshalBinary()
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, keyID+".tmp-*")
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("keystore: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("keystore: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path(keyID)); err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	s.log.Info().Str("key", keyID).Uint64("epoch", share.Epoch).Msg("stored share")
	return nil
}

func (s *FileStore) LoadShare(keyID string) (*keyshare.KeyShare, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.load(keyID)
}

func (s *FileStore) load(keyID string) (*keyshare.KeyShare, error) {
	data, err := os.ReadFile(s.path(keyID))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	share := keyshare.EmptyKeyShare(s.group)
	if err := share.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	return share, nil
}
