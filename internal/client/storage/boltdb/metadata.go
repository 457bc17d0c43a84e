package boltdb

import (
	"bytes"
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/pongdash/internal/client/storage"
)

const (
	keyKeyringSalt = "keyring_salt"
)

// SaveSalt saves the keyring salt used to derive the token sealing key
func (s *Storage) SaveSalt(ctx context.Context, salt []byte) error {
	return s.update(bucketMetadata, func(b *bbolt.Bucket) error {
		if err := b.Put([]byte(keyKeyringSalt), salt); err != nil {
			return fmt.Errorf("failed to save keyring salt: %w", err)
		}
		return nil
	})
}

// GetSalt retrieves the keyring salt
// Returns ErrSaltNotFound if it was never generated
func (s *Storage) GetSalt(ctx context.Context) ([]byte, error) {
	var salt []byte

	err := s.view(bucketMetadata, func(b *bbolt.Bucket) error {
		v := b.Get([]byte(keyKeyringSalt))
		if v == nil {
			return storage.ErrSaltNotFound
		}
		salt = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return salt, nil
}
