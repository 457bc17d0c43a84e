package auth

import (
	"context"

	"github.com/iudanet/pongdash/internal/client/storage"
	"github.com/iudanet/pongdash/internal/models"
	"github.com/iudanet/pongdash/pkg/api"
)

//go:generate moq -out apiclient_mock.go . APIClient

// APIClient is the part of the transport the Service depends on.
// *api.Client from internal/client/api implements it.
type APIClient interface {
	SetAuthToken(token string)
	AuthToken() string

	LoginExternal(ctx context.Context, code string) (*api.TokenResponse, error)
	LoginEmail(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
	RegisterEmail(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error)
	Logout(ctx context.Context) error
	Verify2FA(ctx context.Context, code string) (*api.VerifyResponse, error)

	GetProfile(ctx context.Context) (*api.UserProfile, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.UserProfile, error)
	UploadAvatar(ctx context.Context, filename string, data []byte) (*api.AvatarResponse, error)
	CheckDisplayName(ctx context.Context, name string) (*api.NameAvailability, error)

	MatchHistory(ctx context.Context) ([]api.Match, error)
	Stats(ctx context.Context) (*api.Stats, error)
	Friends(ctx context.Context) ([]api.Friend, error)
	FriendsStatus(ctx context.Context) ([]api.FriendStatus, error)
	AddFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error)
	RemoveFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error)
	AcceptFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error)
	RejectFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error)
}

// CredentialStore persists the credential pair and the post-login redirect.
// SealedStore implements it on top of storage.CredentialStorage.
type CredentialStore interface {
	SaveCredentials(ctx context.Context, creds *storage.Credentials) error
	GetCredentials(ctx context.Context) (*storage.Credentials, error)
	DeleteCredentials(ctx context.Context) error

	SaveRedirect(ctx context.Context, path string) error
	GetRedirect(ctx context.Context) (string, error)
	DeleteRedirect(ctx context.Context) error
}

// Navigator performs replace-navigation after a successful login.
// The router implements it.
type Navigator interface {
	Replace(ctx context.Context, path string) error
	// Current returns the path of the last rendered view
	Current() string
}

// Listener получает (isAuthenticated, копия Session или nil) на каждое изменение
type Listener func(authenticated bool, session *models.Session)
