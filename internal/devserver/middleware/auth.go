package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/pongdash/internal/devserver/handlers"
	"github.com/iudanet/pongdash/internal/devserver/storage"
	"github.com/iudanet/pongdash/pkg/api"
)

// AuthMiddleware создает middleware для проверки JWT токена.
// Отказ: 401 {message, code: AUTH_TOKEN_INVALID}.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "missing Authorization header")
				unauthorized(w, "missing token")
				return
			}

			// Ожидаем формат: "Bearer <token>"
			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				logger.WarnContext(r.Context(), "invalid Authorization header format")
				unauthorized(w, "invalid token format")
				return
			}

			// Валидируем токен
			claims, err := handlers.ValidateAccessToken(jwtConfig, tokenString)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid access token", slog.Any("error", err))
				unauthorized(w, "invalid or expired token")
				return
			}

			logger.DebugContext(r.Context(), "user authenticated", slog.String("user_id", claims.UserID))

			// Передаем запрос дальше с обновленным контекстом
			next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), claims.UserID, claims.Email)))
		})
	}
}

// Presence отмечает время последней активности аутентифицированного пользователя.
// Ставится после AuthMiddleware.
func Presence(logger *slog.Logger, users storage.UserStorage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := handlers.GetUserID(r.Context()); ok {
				if err := users.Touch(r.Context(), userID, time.Now()); err != nil {
					logger.DebugContext(r.Context(), "failed to update last seen", slog.Any("error", err))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	_ = handlers.WriteError(w, "Unauthorized: "+message, api.CodeTokenInvalid, http.StatusUnauthorized)
}
