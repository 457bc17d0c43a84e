package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/pongdash/internal/devserver/storage"
	"github.com/iudanet/pongdash/pkg/api"
)

// FriendHandler обрабатывает запросы списка друзей
type FriendHandler struct {
	responder
	users        storage.UserStorage
	social       storage.SocialStorage
	onlineWindow time.Duration
}

// NewFriendHandler создает handler друзей
func NewFriendHandler(logger *slog.Logger, users storage.UserStorage, social storage.SocialStorage, onlineWindow time.Duration) *FriendHandler {
	if onlineWindow <= 0 {
		onlineWindow = DefaultOnlineWindow
	}
	return &FriendHandler{
		responder:    responder{logger: logger},
		users:        users,
		social:       social,
		onlineWindow: onlineWindow,
	}
}

// List обрабатывает GET /api/friends
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := GetUserID(ctx)

	friendships, err := h.social.Friends(ctx, userID)
	if err != nil {
		h.internalError(w, r, "failed to list friends", err)
		return
	}

	now := time.Now()
	resp := make([]api.Friend, 0, len(friendships))
	for _, f := range friendships {
		friend, err := h.users.GetUserByID(ctx, f.UserID)
		if err != nil {
			h.logger.WarnContext(ctx, "friend not found", slog.String("friend_id", f.UserID), slog.Any("error", err))
			continue
		}
		resp = append(resp, api.Friend{
			ID:          friend.ID,
			DisplayName: friend.DisplayName,
			Avatar:      friend.Avatar,
			Status:      f.Status,
			IsOnline:    f.Status == storage.FriendAccepted && isOnline(friend, now, h.onlineWindow),
		})
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Status обрабатывает GET /api/friends/status
// Онлайн-статусы только для подтвержденных друзей
func (h *FriendHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := GetUserID(ctx)

	friendships, err := h.social.Friends(ctx, userID)
	if err != nil {
		h.internalError(w, r, "failed to list friends", err)
		return
	}

	now := time.Now()
	resp := make([]api.FriendStatus, 0, len(friendships))
	for _, f := range friendships {
		if f.Status != storage.FriendAccepted {
			continue
		}
		friend, err := h.users.GetUserByID(ctx, f.UserID)
		if err != nil {
			continue
		}
		resp = append(resp, api.FriendStatus{UserID: friend.ID, IsOnline: isOnline(friend, now, h.onlineWindow)})
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Add обрабатывает POST /api/friends/add
func (h *FriendHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "Friend request sent", h.social.RequestFriend)
}

// Remove обрабатывает POST /api/friends/remove
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "Friend removed", h.social.RemoveFriend)
}

// Accept обрабатывает POST /api/friends/accept
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "Friend request accepted", h.social.AcceptFriend)
}

// Reject обрабатывает POST /api/friends/reject
func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "Friend request rejected", h.social.RejectFriend)
}

// action выполняет операцию над другом из тела {userId}
func (h *FriendHandler) action(w http.ResponseWriter, r *http.Request, success string,
	apply func(ctx context.Context, userID, friendID string) error) {
	ctx := r.Context()
	userID, _ := GetUserID(ctx)

	var req api.FriendRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		h.sendError(w, "userId is required", api.CodeBadRequest, http.StatusBadRequest)
		return
	}

	if err := apply(ctx, userID, req.UserID); err != nil {
		switch {
		case errors.Is(err, storage.ErrSelfFriend):
			h.sendError(w, "You cannot add yourself as a friend", api.CodeBadRequest, http.StatusBadRequest)
		case errors.Is(err, storage.ErrUserNotFound):
			h.sendError(w, "User not found", api.CodeNotFound, http.StatusNotFound)
		case errors.Is(err, storage.ErrFriendExists):
			h.sendError(w, "Friend request already exists", api.CodeConflict, http.StatusConflict)
		case errors.Is(err, storage.ErrNoPendingRequest):
			h.sendError(w, "No pending friend request from this user", api.CodeNotFound, http.StatusNotFound)
		case errors.Is(err, storage.ErrFriendNotFound):
			h.sendError(w, "User is not in your friend list", api.CodeNotFound, http.StatusNotFound)
		default:
			h.internalError(w, r, "friend action failed", err)
		}
		return
	}

	h.logger.InfoContext(ctx, "friend action",
		slog.String("user_id", userID),
		slog.String("friend_id", req.UserID),
		slog.String("result", success))

	h.sendJSON(w, api.FriendActionResponse{Success: true, Message: success}, http.StatusOK)
}
