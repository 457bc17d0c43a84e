package storage

import (
	"context"
)

//go:generate moq -out credentials_mock.go . CredentialStorage

// CredentialStorage defines interface for persisting the credential pair on client.
// This is the lowest storage layer - it stores values as-is and
// doesn't perform any encryption/decryption itself.
type CredentialStorage interface {
	// SaveCredentials stores both tokens, replacing any previous pair
	SaveCredentials(ctx context.Context, creds *Credentials) error

	// GetCredentials retrieves the stored pair
	// Returns ErrAuthNotFound if no access token is stored
	GetCredentials(ctx context.Context) (*Credentials, error)

	// SaveAccessToken replaces only the access token (refresh window)
	SaveAccessToken(ctx context.Context, token string) error

	// DeleteCredentials removes both tokens (logout).
	// Deleting a missing pair is not an error.
	DeleteCredentials(ctx context.Context) error

	// SaveRedirect remembers the post-login redirect path
	SaveRedirect(ctx context.Context, path string) error

	// GetRedirect returns the remembered path or ErrRedirectNotFound
	GetRedirect(ctx context.Context) (string, error)

	// DeleteRedirect forgets the remembered path
	DeleteRedirect(ctx context.Context) error

	// GetSalt returns the per-database keyring salt or ErrSaltNotFound
	GetSalt(ctx context.Context) ([]byte, error)

	// SaveSalt stores the per-database keyring salt
	SaveSalt(ctx context.Context, salt []byte) error
}

// Credentials represents the credential pair in storage.
// IMPORTANT: the same struct is used with plaintext tokens (in memory) and
// sealed tokens (on disk); sealing happens in auth.SealedStore.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
