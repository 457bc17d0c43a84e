// Package storage описывает хранилище dev server: пользователи,
// refresh токены, коды внешнего входа, друзья и матчи.
package storage

import (
	"context"
	"time"
)

// Статусы дружбы с точки зрения владельца списка
const (
	FriendAccepted  = "accepted"
	FriendPending   = "pending"   // исходящий запрос ждет ответа
	FriendRequested = "requested" // входящий запрос ждет нашего ответа
)

// User учетная запись dev server
type User struct {
	CreatedAt    time.Time
	LastSeen     time.Time
	ID           string
	Email        string
	DisplayName  string
	Avatar       string
	PasswordHash []byte
	External     bool // создан через внешний провайдер
	TwoFactor    bool // второй фактор подтвержден
}

// RefreshToken сохраненный refresh token
type RefreshToken struct {
	ExpiresAt time.Time
	CreatedAt time.Time
	Token     string
	UserID    string
}

// AuthCode одноразовый код внешнего провайдера
type AuthCode struct {
	ExpiresAt time.Time
	Code      string
	UserID    string
}

// Friendship запись списка друзей владельца
type Friendship struct {
	UserID string
	Status string
}

// Match сыгранный матч
type Match struct {
	PlayedAt     time.Time
	ID           string
	UserID       string
	Opponent     string
	ScoreFor     int
	ScoreAgainst int
}

// Won сообщает, выиграл ли владелец матч
func (m *Match) Won() bool {
	return m.ScoreFor > m.ScoreAgainst
}

// Avatar загруженное изображение
type Avatar struct {
	ContentType string
	Data        []byte
}

//go:generate moq -out user_mock.go . UserStorage

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrEmailTaken or ErrNameTaken on conflict
	CreateUser(ctx context.Context, user *User) error

	// GetUserByEmail retrieves user by email (case-insensitive)
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*User, error)

	// UpdateUser updates user information
	// Returns ErrUserNotFound, ErrEmailTaken or ErrNameTaken
	UpdateUser(ctx context.Context, user *User) error

	// NameTaken reports whether display name belongs to a user other than exceptID
	NameTaken(ctx context.Context, name, exceptID string) (bool, error)

	// Touch updates the last seen timestamp
	Touch(ctx context.Context, userID string, seen time.Time) error
}

// TokenStorage defines interface for refresh token persistence
type TokenStorage interface {
	// SaveRefreshToken stores a new refresh token
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error

	// GetRefreshToken retrieves refresh token by token value
	// Returns ErrTokenNotFound if token doesn't exist
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)

	// DeleteUserTokens deletes all refresh tokens for a user
	// Returns number of deleted tokens
	DeleteUserTokens(ctx context.Context, userID string) (int, error)

	// SaveAuthCode stores an authorization code of the external provider
	SaveAuthCode(ctx context.Context, code *AuthCode) error

	// ConsumeAuthCode returns and deletes the code
	// Returns ErrCodeNotFound if code doesn't exist or expired
	ConsumeAuthCode(ctx context.Context, code string, now time.Time) (*AuthCode, error)
}

// SocialStorage defines interface for friends and match history
type SocialStorage interface {
	// Friends returns the friend list of the user
	Friends(ctx context.Context, userID string) ([]Friendship, error)

	// RequestFriend creates an outgoing request from userID to friendID
	RequestFriend(ctx context.Context, userID, friendID string) error

	// AcceptFriend accepts an incoming request from friendID
	AcceptFriend(ctx context.Context, userID, friendID string) error

	// RejectFriend rejects an incoming request from friendID
	RejectFriend(ctx context.Context, userID, friendID string) error

	// RemoveFriend deletes the friendship or request in both directions
	RemoveFriend(ctx context.Context, userID, friendID string) error

	// AddMatch records a match for match.UserID
	AddMatch(ctx context.Context, match *Match) error

	// Matches returns matches of the user, newest first
	Matches(ctx context.Context, userID string) ([]*Match, error)
}

// AvatarStorage хранит загруженные аватары
type AvatarStorage interface {
	SaveAvatar(ctx context.Context, name string, avatar *Avatar) error
	GetAvatar(ctx context.Context, name string) (*Avatar, error)
}

// Storage объединяет все хранилища dev server
type Storage interface {
	UserStorage
	TokenStorage
	SocialStorage
	AvatarStorage
}
