package models

import (
	"time"

	"github.com/iudanet/pongdash/pkg/api"
)

// DefaultAvatar используется, когда у пользователя нет загруженного аватара
const DefaultAvatar = "/assets/images/default-avatar.png"

// Session представляет текущего аутентифицированного пользователя.
// Существует только пока у клиента есть валидный access token.
type Session struct {
	CreatedAt   time.Time `json:"createdAt"`   // время создания аккаунта
	ID          string    `json:"id"`          // ID пользователя
	Email       string    `json:"email"`       // email
	DisplayName string    `json:"displayName"` // отображаемое имя
	Avatar      string    `json:"avatar"`      // ссылка на аватар
	Stats       api.Stats `json:"stats"`       // агрегированная статистика
	IsOnline    bool      `json:"isOnline"`    // онлайн-флаг
}

// SessionFromProfile строит Session из профиля, полученного с сервера
func SessionFromProfile(p *api.UserProfile) *Session {
	if p == nil {
		return nil
	}
	return &Session{
		CreatedAt:   p.CreatedAt,
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		Stats:       p.Stats,
		IsOnline:    p.IsOnline,
	}
}

// Clone returns a copy safe to hand to listeners.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// AvatarOrDefault возвращает аватар или аватар по умолчанию
func (s *Session) AvatarOrDefault() string {
	if s == nil || s.Avatar == "" {
		return DefaultAvatar
	}
	return s.Avatar
}

// NameOrDefault возвращает display name или "User"
func (s *Session) NameOrDefault() string {
	if s == nil || s.DisplayName == "" {
		return "User"
	}
	return s.DisplayName
}
