package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iudanet/pongdash/internal/client/storage"
)

const (
	mockIssuer          = "pongdash-mock"
	mockAccessTokenTTL  = time.Hour
	mockRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenInfo описывает сохраненный access token
type TokenInfo struct {
	ExpiresAt  time.Time
	IssuedAt   time.Time
	Subject    string
	Issuer     string
	Opaque     bool // токен не является JWT, срок жизни неизвестен
	HasRefresh bool
}

// Expired сообщает, истек ли токен к моменту now
func (ti *TokenInfo) Expired(now time.Time) bool {
	return !ti.Opaque && !ti.ExpiresAt.IsZero() && !now.Before(ti.ExpiresAt)
}

// TokenInfo декодирует сохраненный access token без проверки подписи.
// Подпись проверяет сервер; клиенту нужен только срок жизни для отображения.
func (s *Service) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	creds, err := s.store.GetCredentials(ctx)
	if err != nil {
		return nil, err
	}

	return parseTokenInfo(creds), nil
}

func parseTokenInfo(creds *storage.Credentials) *TokenInfo {
	info := &TokenInfo{HasRefresh: creds.RefreshToken != ""}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(creds.AccessToken, claims); err != nil {
		info.Opaque = true
		return info
	}

	info.Subject = claims.Subject
	info.Issuer = claims.Issuer
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}

	return info
}

// newMockKey генерирует ключ подписи mock-токенов на время процесса
func newMockKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate mock signing key: %w", err)
	}
	return key, nil
}

// mintMockTokens выпускает пару HS256 токенов для mock-сессии
func mintMockTokens(userID string, key []byte, now time.Time) (*storage.Credentials, error) {
	sign := func(ttl time.Duration) (string, error) {
		claims := jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    mockIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	}

	access, err := sign(mockAccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := sign(mockRefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &storage.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}
