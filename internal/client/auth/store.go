package auth

import (
	"context"
	"errors"
	"fmt"

	clientapi "github.com/iudanet/pongdash/internal/client/api"
	"github.com/iudanet/pongdash/internal/client/storage"
	"github.com/iudanet/pongdash/internal/crypto"
)

// SealedStore is the layer between the Service and raw credential storage.
// When a keyring passphrase is configured, tokens are sealed with
// AES-256-GCM before they reach the disk and opened on the way back.
// Without a passphrase tokens are stored as-is.
type SealedStore struct {
	storage storage.CredentialStorage
	sealer  *crypto.Sealer
}

// Compile-time checks
var (
	_ CredentialStore      = (*SealedStore)(nil)
	_ clientapi.TokenStore = (*SealedStore)(nil)
)

// NewSealedStore creates the store. With a non-empty passphrase the sealing
// key is derived from it and the per-database salt (generated on first use).
func NewSealedStore(ctx context.Context, st storage.CredentialStorage, passphrase string) (*SealedStore, error) {
	s := &SealedStore{storage: st}
	if passphrase == "" {
		return s, nil
	}

	// 1. Получаем или создаем соль хранилища
	salt, err := st.GetSalt(ctx)
	if errors.Is(err, storage.ErrSaltNotFound) {
		salt, err = crypto.GenerateSalt()
		if err != nil {
			return nil, err
		}
		if err := st.SaveSalt(ctx, salt); err != nil {
			return nil, fmt.Errorf("failed to save keyring salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load keyring salt: %w", err)
	}

	// 2. Деривируем ключ
	key, err := crypto.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	// 3. Создаем AEAD
	s.sealer, err = crypto.NewSealer(key)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Sealed сообщает, шифруются ли токены
func (s *SealedStore) Sealed() bool {
	return s.sealer != nil
}

// SaveCredentials шифрует и сохраняет пару токенов
func (s *SealedStore) SaveCredentials(ctx context.Context, creds *storage.Credentials) error {
	if creds == nil {
		return fmt.Errorf("credentials are nil")
	}

	access, err := s.seal(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}
	refresh, err := s.seal(creds.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to seal refresh token: %w", err)
	}

	return s.storage.SaveCredentials(ctx, &storage.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

// GetCredentials загружает и расшифровывает пару токенов
func (s *SealedStore) GetCredentials(ctx context.Context) (*storage.Credentials, error) {
	stored, err := s.storage.GetCredentials(ctx)
	if err != nil {
		return nil, err
	}

	access, err := s.open(stored.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to open access token: %w", err)
	}
	refresh, err := s.open(stored.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to open refresh token: %w", err)
	}

	return &storage.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

// DeleteCredentials удаляет оба токена
func (s *SealedStore) DeleteCredentials(ctx context.Context) error {
	return s.storage.DeleteCredentials(ctx)
}

// RefreshToken возвращает расшифрованный refresh token
func (s *SealedStore) RefreshToken(ctx context.Context) (string, error) {
	creds, err := s.GetCredentials(ctx)
	if err != nil {
		return "", err
	}
	return creds.RefreshToken, nil
}

// SaveAccessToken шифрует и сохраняет только access token
func (s *SealedStore) SaveAccessToken(ctx context.Context, token string) error {
	sealed, err := s.seal(token)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}
	return s.storage.SaveAccessToken(ctx, sealed)
}

// SaveRedirect сохраняет путь редиректа (не секрет, без шифрования)
func (s *SealedStore) SaveRedirect(ctx context.Context, path string) error {
	return s.storage.SaveRedirect(ctx, path)
}

// GetRedirect возвращает путь редиректа
func (s *SealedStore) GetRedirect(ctx context.Context) (string, error) {
	return s.storage.GetRedirect(ctx)
}

// DeleteRedirect удаляет путь редиректа
func (s *SealedStore) DeleteRedirect(ctx context.Context) error {
	return s.storage.DeleteRedirect(ctx)
}

func (s *SealedStore) seal(v string) (string, error) {
	if s.sealer == nil {
		return v, nil
	}
	return s.sealer.Seal(v)
}

func (s *SealedStore) open(v string) (string, error) {
	if s.sealer == nil {
		return v, nil
	}
	return s.sealer.Open(v)
}
