package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/pongdash/internal/client/storage"
)

// Фиксированные ключи в auth bucket
var (
	keyAccessToken  = []byte("access_token")
	keyRefreshToken = []byte("refresh_token")
	keyAuthRedirect = []byte("auth_redirect")
)

// SaveCredentials stores both tokens in one transaction
func (s *Storage) SaveCredentials(ctx context.Context, creds *storage.Credentials) error {
	if creds == nil {
		return fmt.Errorf("credentials are nil")
	}

	return s.update(bucketAuth, func(b *bbolt.Bucket) error {
		if err := b.Put(keyAccessToken, []byte(creds.AccessToken)); err != nil {
			return fmt.Errorf("failed to save access token: %w", err)
		}

		// refresh token может отсутствовать (например, mock-сессия без refresh)
		if creds.RefreshToken == "" {
			if err := b.Delete(keyRefreshToken); err != nil {
				return fmt.Errorf("failed to clear refresh token: %w", err)
			}
			return nil
		}
		if err := b.Put(keyRefreshToken, []byte(creds.RefreshToken)); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
		return nil
	})
}

// GetCredentials retrieves stored credentials
func (s *Storage) GetCredentials(ctx context.Context) (*storage.Credentials, error) {
	var creds *storage.Credentials

	err := s.view(bucketAuth, func(b *bbolt.Bucket) error {
		access := b.Get(keyAccessToken)
		if access == nil {
			return storage.ErrAuthNotFound
		}

		// Копируем: значения bbolt валидны только внутри транзакции
		creds = &storage.Credentials{
			AccessToken:  string(access),
			RefreshToken: string(b.Get(keyRefreshToken)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return creds, nil
}

// SaveAccessToken overwrites only the access token
func (s *Storage) SaveAccessToken(ctx context.Context, token string) error {
	return s.update(bucketAuth, func(b *bbolt.Bucket) error {
		if err := b.Put(keyAccessToken, []byte(token)); err != nil {
			return fmt.Errorf("failed to save access token: %w", err)
		}
		return nil
	})
}

// DeleteCredentials removes both tokens (logout)
func (s *Storage) DeleteCredentials(ctx context.Context) error {
	return s.update(bucketAuth, func(b *bbolt.Bucket) error {
		if err := b.Delete(keyAccessToken); err != nil {
			return fmt.Errorf("failed to delete access token: %w", err)
		}
		if err := b.Delete(keyRefreshToken); err != nil {
			return fmt.Errorf("failed to delete refresh token: %w", err)
		}
		return nil
	})
}

// SaveRedirect remembers the post-login redirect path
func (s *Storage) SaveRedirect(ctx context.Context, path string) error {
	return s.update(bucketAuth, func(b *bbolt.Bucket) error {
		return b.Put(keyAuthRedirect, []byte(path))
	})
}

// GetRedirect returns the remembered redirect path
func (s *Storage) GetRedirect(ctx context.Context) (string, error) {
	var path string

	err := s.view(bucketAuth, func(b *bbolt.Bucket) error {
		v := b.Get(keyAuthRedirect)
		if v == nil {
			return storage.ErrRedirectNotFound
		}
		path = string(v)
		return nil
	})
	if err != nil {
		return "", err
	}

	return path, nil
}

// DeleteRedirect forgets the remembered redirect path
func (s *Storage) DeleteRedirect(ctx context.Context) error {
	return s.update(bucketAuth, func(b *bbolt.Bucket) error {
		return b.Delete(keyAuthRedirect)
	})
}
