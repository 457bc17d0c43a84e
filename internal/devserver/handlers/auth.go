package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/pongdash/internal/devserver/storage"
	"github.com/iudanet/pongdash/internal/validation"
	"github.com/iudanet/pongdash/pkg/api"
)

const (
	// DefaultExternalLogin логин пользователя внешнего провайдера по умолчанию
	DefaultExternalLogin = "student42"
	// externalEmailDomain домен email пользователей внешнего провайдера
	externalEmailDomain = "student.42.fr"
)

// AuthConfig параметры AuthHandler
type AuthConfig struct {
	TwoFactorCode string
	JWT           JWTConfig
	CodeTTL       time.Duration
	BcryptCost    int
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	responder
	userStorage  storage.UserStorage
	tokenStorage storage.TokenStorage
	cfg          AuthConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, userStorage storage.UserStorage, tokenStorage storage.TokenStorage, cfg AuthConfig) *AuthHandler {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = 5 * time.Minute
	}

	return &AuthHandler{
		responder:    responder{logger: logger},
		userStorage:  userStorage,
		tokenStorage: tokenStorage,
		cfg:          cfg,
	}
}

// Register обрабатывает POST /api/auth/register
// Регистрация нового пользователя по email и паролю
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Парсим request body
	var req api.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Display name по умолчанию из локальной части email
	if req.DisplayName == "" {
		req.DisplayName, _, _ = strings.Cut(req.Email, "@")
	}

	// Валидация полей
	if err := errors.Join(
		validation.ValidateEmail(req.Email),
		validation.ValidatePassword(req.Password),
		validation.ValidateDisplayName(req.DisplayName),
	); err != nil {
		h.logger.WarnContext(ctx, "invalid register request", slog.String("email", req.Email), slog.Any("error", err))
		h.sendError(w, firstValidationMessage(err), api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cfg.BcryptCost)
	if err != nil {
		h.internalError(w, r, "failed to hash password", err)
		return
	}

	user := &storage.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	// Сохраняем пользователя
	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		if sendConflict(h.responder, w, err) {
			h.logger.WarnContext(ctx, "registration conflict", slog.String("email", req.Email), slog.Any("error", err))
			return
		}
		h.internalError(w, r, "failed to create user", err)
		return
	}

	resp, err := h.issueTokens(ctx, user)
	if err != nil {
		h.internalError(w, r, "failed to issue tokens", err)
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("email", user.Email),
		slog.String("user_id", user.ID))

	h.sendJSON(w, resp, http.StatusCreated)
}

// Login обрабатывает POST /api/auth/login
// Аутентификация пользователя по email и паролю
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := validation.ValidateLogin(req.Email, req.Password); err != nil {
		h.sendError(w, firstValidationMessage(err), api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	// Получаем пользователя из хранилища
	user, err := h.userStorage.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("email", req.Email))
			h.sendError(w, "Invalid email or password", api.CodeBadCredentials, http.StatusUnauthorized)
			return
		}
		h.internalError(w, r, "failed to get user", err)
		return
	}

	// Пользователи внешнего провайдера не имеют пароля
	if len(user.PasswordHash) == 0 || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
		h.logger.WarnContext(ctx, "login failed: invalid password", slog.String("email", req.Email))
		h.sendError(w, "Invalid email or password", api.CodeBadCredentials, http.StatusUnauthorized)
		return
	}

	resp, err := h.issueTokens(ctx, user)
	if err != nil {
		h.internalError(w, r, "failed to issue tokens", err)
		return
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("email", user.Email),
		slog.String("user_id", user.ID))

	h.sendJSON(w, resp, http.StatusOK)
}

// Authorize обрабатывает GET /api/auth/42/login
// Страница входа внешнего провайдера: сразу выдает код и редиректит на redirect_uri
func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	// 1. Проверяем redirect_uri
	redirect, err := url.Parse(query.Get("redirect_uri"))
	if err != nil || !redirect.IsAbs() {
		h.sendError(w, "redirect_uri must be an absolute URL", api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	login := query.Get("login")
	if login == "" {
		login = DefaultExternalLogin
	}
	if err := validation.ValidateDisplayName(login); err != nil {
		h.sendError(w, firstValidationMessage(err), api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	// 2. Находим или создаем пользователя провайдера
	user, err := h.externalUser(ctx, login)
	if err != nil {
		h.internalError(w, r, "failed to resolve external user", err)
		return
	}

	// 3. Выдаем одноразовый код
	code := &storage.AuthCode{
		Code:      uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(h.cfg.CodeTTL),
	}
	if err := h.tokenStorage.SaveAuthCode(ctx, code); err != nil {
		h.internalError(w, r, "failed to save auth code", err)
		return
	}

	values := redirect.Query()
	values.Set("code", code.Code)
	if state := query.Get("state"); state != "" {
		values.Set("state", state)
	}
	redirect.RawQuery = values.Encode()

	h.logger.InfoContext(ctx, "external authorization granted",
		slog.String("user_id", user.ID),
		slog.String("client_id", query.Get("client_id")))

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

// ExternalLogin обрабатывает POST /api/auth/42/callback
// Обмен кода внешнего провайдера на пару токенов
func (h *AuthHandler) ExternalLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ExternalLoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		h.sendError(w, "code is required", api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	code, err := h.tokenStorage.ConsumeAuthCode(ctx, req.Code, time.Now())
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			h.logger.WarnContext(ctx, "external login failed: unknown code")
			h.sendError(w, "Invalid or expired authorization code", api.CodeBadCredentials, http.StatusUnauthorized)
			return
		}
		h.internalError(w, r, "failed to consume auth code", err)
		return
	}

	user, err := h.userStorage.GetUserByID(ctx, code.UserID)
	if err != nil {
		h.internalError(w, r, "failed to get user", err)
		return
	}

	resp, err := h.issueTokens(ctx, user)
	if err != nil {
		h.internalError(w, r, "failed to issue tokens", err)
		return
	}

	h.logger.InfoContext(ctx, "external login succeeded", slog.String("user_id", user.ID))

	h.sendJSON(w, resp, http.StatusOK)
}

// Refresh обрабатывает POST /api/auth/refresh
// Выдает новый access token; refresh token остается прежним
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		h.sendError(w, "refresh token is required", api.CodeTokenInvalid, http.StatusUnauthorized)
		return
	}

	// Проверяем refresh token в хранилище
	storedToken, err := h.tokenStorage.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.WarnContext(ctx, "refresh token not found")
			h.sendError(w, "invalid refresh token", api.CodeTokenInvalid, http.StatusUnauthorized)
			return
		}
		h.internalError(w, r, "failed to get refresh token", err)
		return
	}

	// Проверяем срок действия
	if time.Now().After(storedToken.ExpiresAt) {
		h.logger.WarnContext(ctx, "refresh token expired", slog.String("user_id", storedToken.UserID))
		h.sendError(w, "refresh token expired", api.CodeTokenInvalid, http.StatusUnauthorized)
		return
	}

	user, err := h.userStorage.GetUserByID(ctx, storedToken.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.sendError(w, "invalid refresh token", api.CodeTokenInvalid, http.StatusUnauthorized)
			return
		}
		h.internalError(w, r, "failed to get user", err)
		return
	}

	accessToken, err := GenerateAccessToken(h.cfg.JWT, user.ID, user.Email)
	if err != nil {
		h.internalError(w, r, "failed to generate access token", err)
		return
	}

	h.logger.InfoContext(ctx, "access token refreshed", slog.String("user_id", user.ID))

	h.sendJSON(w, api.TokenResponse{AccessToken: accessToken}, http.StatusOK)
}

// Logout обрабатывает POST /api/auth/logout
// Выход пользователя (удаление всех refresh tokens)
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := GetUserID(ctx)

	deletedCount, err := h.tokenStorage.DeleteUserTokens(ctx, userID)
	if err != nil {
		h.internalError(w, r, "failed to delete user tokens", err)
		return
	}

	h.logger.InfoContext(ctx, "user logged out successfully",
		slog.String("user_id", userID),
		slog.Int("tokens_deleted", deletedCount))

	w.WriteHeader(http.StatusNoContent)
}

// Verify2FA обрабатывает POST /api/auth/2fa/verify
// Неверный код не является ошибкой: ответ {verified: false}
func (h *AuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := GetUserID(ctx)

	var req api.VerifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		h.sendError(w, "code is required", api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	verified := h.cfg.TwoFactorCode != "" &&
		subtle.ConstantTimeCompare([]byte(req.Code), []byte(h.cfg.TwoFactorCode)) == 1

	if verified {
		user, err := h.userStorage.GetUserByID(ctx, userID)
		if err != nil {
			h.internalError(w, r, "failed to get user", err)
			return
		}
		user.TwoFactor = true
		if err := h.userStorage.UpdateUser(ctx, user); err != nil {
			h.internalError(w, r, "failed to update user", err)
			return
		}
	}

	h.logger.InfoContext(ctx, "2fa verification", slog.String("user_id", userID), slog.Bool("verified", verified))

	h.sendJSON(w, api.VerifyResponse{Verified: verified}, http.StatusOK)
}

// issueTokens выпускает пару токенов и сохраняет refresh token
func (h *AuthHandler) issueTokens(ctx context.Context, user *storage.User) (*api.TokenResponse, error) {
	accessToken, err := GenerateAccessToken(h.cfg.JWT, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, expiresAt, err := GenerateRefreshToken(h.cfg.JWT)
	if err != nil {
		return nil, err
	}

	err = h.tokenStorage.SaveRefreshToken(ctx, &storage.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &api.TokenResponse{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// externalUser находит пользователя провайдера по логину или создает его
func (h *AuthHandler) externalUser(ctx context.Context, login string) (*storage.User, error) {
	email := login + "@" + externalEmailDomain

	user, err := h.userStorage.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, err
	}

	user = &storage.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: login,
		External:    true,
		CreatedAt:   time.Now(),
	}

	// Имя может быть занято пользователем с паролем
	taken, err := h.userStorage.NameTaken(ctx, login, "")
	if err != nil {
		return nil, err
	}
	if taken {
		user.DisplayName = login + "-" + user.ID[:4]
	}

	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create external user: %w", err)
	}
	return user, nil
}

// sendConflict отвечает 409 на конфликт уникальности; false если err не конфликт
func sendConflict(h responder, w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, storage.ErrEmailTaken):
		h.sendError(w, "Email is already registered", api.CodeEmailTaken, http.StatusConflict)
	case errors.Is(err, storage.ErrNameTaken):
		h.sendError(w, "Display name is already taken", api.CodeNameTaken, http.StatusConflict)
	default:
		return false
	}
	return true
}

// firstValidationMessage возвращает сообщение первой ошибки валидации
func firstValidationMessage(err error) string {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	return err.Error()
}
