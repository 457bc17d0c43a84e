package api

// LoginRequest представляет запрос на вход по email/паролю
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest представляет запрос на регистрацию по email/паролю
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// ExternalLoginRequest передает код внешнего провайдера для обмена на токены
type ExternalLoginRequest struct {
	Code string `json:"code"`
}

// RefreshRequest представляет запрос на обновление access token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse представляет ответ с парой токенов.
// На refresh сервер может вернуть только accessToken.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// VerifyRequest содержит код второго фактора
type VerifyRequest struct {
	Code string `json:"code"`
}

// VerifyResponse результат проверки второго фактора
type VerifyResponse struct {
	Verified bool `json:"verified"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Message string `json:"message,omitempty"` // человекочитаемое описание
	Code    string `json:"code,omitempty"`    // машиночитаемый код
}
