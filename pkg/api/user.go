package api

import "time"

// Stats агрегированная статистика игрока
type Stats struct {
	Rank   string `json:"rank"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// UserProfile представляет профиль текущего пользователя
type UserProfile struct {
	CreatedAt   time.Time `json:"createdAt"`
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Avatar      string    `json:"avatar"`
	Stats       Stats     `json:"stats"`
	IsOnline    bool      `json:"isOnline"`
}

// ProfileUpdate частичное обновление профиля, nil поля не меняются
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`
}

// AvatarResponse ответ на загрузку аватара
type AvatarResponse struct {
	AvatarURL string `json:"avatarUrl"`
}

// NameAvailability ответ на проверку уникальности display name
type NameAvailability struct {
	Available bool `json:"available"`
}

// Match одна запись истории матчей
type Match struct {
	PlayedAt     time.Time `json:"playedAt"`
	ID           string    `json:"id"`
	Opponent     string    `json:"opponent"`
	Result       string    `json:"result"` // "win" | "loss"
	ScoreFor     int       `json:"scoreFor"`
	ScoreAgainst int       `json:"scoreAgainst"`
}
