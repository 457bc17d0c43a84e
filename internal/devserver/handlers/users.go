package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/pongdash/internal/devserver/storage"
	"github.com/iudanet/pongdash/internal/validation"
	"github.com/iudanet/pongdash/pkg/api"
)

const (
	// AvatarURLPrefix путь, по которому отдаются загруженные аватары
	AvatarURLPrefix = "/uploads/avatars/"
	// MaxAvatarSize максимальный размер загружаемого аватара
	MaxAvatarSize = 2 << 20
	// DefaultOnlineWindow пользователь онлайн, если был активен за это время
	DefaultOnlineWindow = 5 * time.Minute
)

// Пороги рангов по числу побед
var rankThresholds = []struct {
	name string
	wins int
}{
	{name: "Gold", wins: 15},
	{name: "Silver", wins: 5},
	{name: "Bronze", wins: 0},
}

// UserHandler обрабатывает запросы профиля, статистики и истории матчей
type UserHandler struct {
	responder
	users        storage.UserStorage
	social       storage.SocialStorage
	avatars      storage.AvatarStorage
	onlineWindow time.Duration
}

// NewUserHandler создает handler профиля
func NewUserHandler(logger *slog.Logger, users storage.UserStorage, social storage.SocialStorage, avatars storage.AvatarStorage, onlineWindow time.Duration) *UserHandler {
	if onlineWindow <= 0 {
		onlineWindow = DefaultOnlineWindow
	}
	return &UserHandler{
		responder:    responder{logger: logger},
		users:        users,
		social:       social,
		avatars:      avatars,
		onlineWindow: onlineWindow,
	}
}

// Profile обрабатывает GET /api/users/profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.profile(r, user)
	if err != nil {
		h.internalError(w, r, "failed to build profile", err)
		return
	}

	h.sendJSON(w, profile, http.StatusOK)
}

// UpdateProfile обрабатывает PUT /api/users/profile/update
// nil поля запроса не меняются
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req api.ProfileUpdate
	if !h.decode(w, r, &req) {
		return
	}

	// 1. Валидация измененных полей
	if req.DisplayName != nil {
		if err := validation.ValidateDisplayName(*req.DisplayName); err != nil {
			h.sendError(w, firstValidationMessage(err), api.CodeBadRequest, http.StatusBadRequest)
			return
		}
		user.DisplayName = *req.DisplayName
	}
	if req.Email != nil {
		if err := validation.ValidateEmail(*req.Email); err != nil {
			h.sendError(w, firstValidationMessage(err), api.CodeBadRequest, http.StatusBadRequest)
			return
		}
		user.Email = *req.Email
	}

	// 2. Сохранение
	if err := h.users.UpdateUser(ctx, user); err != nil {
		if sendConflict(h.responder, w, err) {
			return
		}
		h.internalError(w, r, "failed to update user", err)
		return
	}

	h.logger.InfoContext(ctx, "profile updated", slog.String("user_id", user.ID))

	profile, err := h.profile(r, user)
	if err != nil {
		h.internalError(w, r, "failed to build profile", err)
		return
	}
	h.sendJSON(w, profile, http.StatusOK)
}

// UploadAvatar обрабатывает POST /api/users/profile/avatar
// Multipart форма с полем "avatar", только изображения
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	// 1. Читаем файл из формы с ограничением размера
	r.Body = http.MaxBytesReader(w, r.Body, MaxAvatarSize+4096)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		h.logger.WarnContext(ctx, "invalid avatar upload", slog.Any("error", err))
		h.sendError(w, "avatar file is required", api.CodeBadRequest, http.StatusBadRequest)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(file, MaxAvatarSize+1))
	if err != nil {
		h.sendError(w, "failed to read avatar", api.CodeBadRequest, http.StatusBadRequest)
		return
	}
	if len(data) > MaxAvatarSize {
		h.sendError(w, "avatar must not exceed 2 MB", api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	// 2. Проверяем, что это изображение
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		h.sendError(w, "avatar must be an image", api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	// 3. Сохраняем и обновляем профиль
	name := user.ID + "-" + uuid.NewString()[:8] + strings.ToLower(filepath.Ext(header.Filename))
	if err := h.avatars.SaveAvatar(ctx, name, &storage.Avatar{ContentType: contentType, Data: data}); err != nil {
		h.internalError(w, r, "failed to save avatar", err)
		return
	}

	user.Avatar = AvatarURLPrefix + name
	if err := h.users.UpdateUser(ctx, user); err != nil {
		h.internalError(w, r, "failed to update user", err)
		return
	}

	h.logger.InfoContext(ctx, "avatar uploaded",
		slog.String("user_id", user.ID),
		slog.Int("size", len(data)),
		slog.String("content_type", contentType))

	h.sendJSON(w, api.AvatarResponse{AvatarURL: user.Avatar}, http.StatusOK)
}

// Avatar обрабатывает GET /uploads/avatars/{name}
func (h *UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	avatar, err := h.avatars.GetAvatar(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, storage.ErrAvatarNotFound) {
			h.sendError(w, "avatar not found", api.CodeNotFound, http.StatusNotFound)
			return
		}
		h.internalError(w, r, "failed to get avatar", err)
		return
	}

	w.Header().Set("Content-Type", avatar.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(avatar.Data)
}

// CheckDisplayName обрабатывает GET /api/users/check-display-name?name=
// Собственное имя пользователя считается свободным
func (h *UserHandler) CheckDisplayName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := GetUserID(ctx)

	name := r.URL.Query().Get("name")
	if err := validation.ValidateDisplayName(name); err != nil {
		h.sendError(w, firstValidationMessage(err), api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	taken, err := h.users.NameTaken(ctx, name, userID)
	if err != nil {
		h.internalError(w, r, "failed to check display name", err)
		return
	}

	h.sendJSON(w, api.NameAvailability{Available: !taken}, http.StatusOK)
}

// Matches обрабатывает GET /api/users/matches
func (h *UserHandler) Matches(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r.Context())

	matches, err := h.social.Matches(r.Context(), userID)
	if err != nil {
		h.internalError(w, r, "failed to list matches", err)
		return
	}

	resp := make([]api.Match, 0, len(matches))
	for _, m := range matches {
		result := "loss"
		if m.Won() {
			result = "win"
		}
		resp = append(resp, api.Match{
			ID:           m.ID,
			Opponent:     m.Opponent,
			Result:       result,
			ScoreFor:     m.ScoreFor,
			ScoreAgainst: m.ScoreAgainst,
			PlayedAt:     m.PlayedAt,
		})
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Stats обрабатывает GET /api/users/stats
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r.Context())

	stats, err := h.stats(r, userID)
	if err != nil {
		h.internalError(w, r, "failed to compute stats", err)
		return
	}

	h.sendJSON(w, stats, http.StatusOK)
}

// currentUser загружает пользователя из контекста запроса.
// Пользователь мог быть удален после выпуска токена: тогда 401.
func (h *UserHandler) currentUser(w http.ResponseWriter, r *http.Request) (*storage.User, bool) {
	userID, _ := GetUserID(r.Context())

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.sendError(w, "user no longer exists", api.CodeTokenInvalid, http.StatusUnauthorized)
			return nil, false
		}
		h.internalError(w, r, "failed to get user", err)
		return nil, false
	}

	return user, true
}

func (h *UserHandler) profile(r *http.Request, user *storage.User) (*api.UserProfile, error) {
	stats, err := h.stats(r, user.ID)
	if err != nil {
		return nil, err
	}

	return &api.UserProfile{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
		CreatedAt:   user.CreatedAt,
		Stats:       *stats,
		IsOnline:    isOnline(user, time.Now(), h.onlineWindow),
	}, nil
}

func (h *UserHandler) stats(r *http.Request, userID string) (*api.Stats, error) {
	matches, err := h.social.Matches(r.Context(), userID)
	if err != nil {
		return nil, err
	}

	var stats api.Stats
	for _, m := range matches {
		if m.Won() {
			stats.Wins++
		} else {
			stats.Losses++
		}
	}
	stats.Rank = rankFor(len(matches), stats.Wins)

	return &stats, nil
}

// rankFor возвращает ранг по числу побед; без матчей ранга нет
func rankFor(played, wins int) string {
	if played == 0 {
		return ""
	}
	for _, t := range rankThresholds {
		if wins >= t.wins {
			return t.name
		}
	}
	return ""
}

// isOnline сообщает, был ли пользователь активен в пределах window
func isOnline(user *storage.User, now time.Time, window time.Duration) bool {
	return !user.LastSeen.IsZero() && now.Sub(user.LastSeen) <= window
}
