package auth

import (
	"context"
	"log/slog"

	clientapi "github.com/iudanet/pongdash/internal/client/api"
	"github.com/iudanet/pongdash/pkg/api"
)

// MatchHistory возвращает историю матчей. Успешный ответ кэшируется;
// при транспортной ошибке отдается кэшированная копия, если она есть.
func (s *Service) MatchHistory(ctx context.Context) ([]api.Match, error) {
	matches, err := s.client.MatchHistory(ctx)
	user := s.CurrentUser()

	if err == nil {
		if s.cache != nil && user != nil {
			if cerr := s.cache.SaveMatches(ctx, user.ID, matches); cerr != nil {
				s.logger.Warn("failed to cache match history", slog.Any("error", cerr))
			}
		}
		return matches, nil
	}

	s.logger.Warn("failed to fetch match history", slog.Any("error", err))
	s.expireIfUnauthorized(ctx, err)

	if !clientapi.IsTransport(err) || s.cache == nil || user == nil {
		return nil, err
	}

	cached, cerr := s.cache.ListMatches(ctx, user.ID)
	if cerr != nil || len(cached) == 0 {
		return nil, err
	}

	s.logger.Info("serving cached match history", slog.Int("matches", len(cached)))
	return cached, nil
}

// Stats возвращает агрегированную статистику пользователя
func (s *Service) Stats(ctx context.Context) (*api.Stats, error) {
	stats, err := s.client.Stats(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch user stats", slog.Any("error", err))
		s.expireIfUnauthorized(ctx, err)
		return nil, err
	}
	return stats, nil
}

// Friends возвращает список друзей
func (s *Service) Friends(ctx context.Context) ([]api.Friend, error) {
	friends, err := s.client.Friends(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch friends list", slog.Any("error", err))
		s.expireIfUnauthorized(ctx, err)
		return nil, err
	}
	return friends, nil
}

// FriendsStatus возвращает онлайн-статусы друзей
func (s *Service) FriendsStatus(ctx context.Context) ([]api.FriendStatus, error) {
	statuses, err := s.client.FriendsStatus(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch friends status", slog.Any("error", err))
		s.expireIfUnauthorized(ctx, err)
		return nil, err
	}
	return statuses, nil
}

// AddFriend отправляет запрос в друзья
func (s *Service) AddFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return s.friendAction(ctx, "add", userID, s.client.AddFriend)
}

// RemoveFriend удаляет из друзей
func (s *Service) RemoveFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return s.friendAction(ctx, "remove", userID, s.client.RemoveFriend)
}

// AcceptFriend принимает запрос в друзья
func (s *Service) AcceptFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return s.friendAction(ctx, "accept", userID, s.client.AcceptFriend)
}

// RejectFriend отклоняет запрос в друзья
func (s *Service) RejectFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return s.friendAction(ctx, "reject", userID, s.client.RejectFriend)
}

func (s *Service) friendAction(
	ctx context.Context,
	action, userID string,
	call func(context.Context, string) (*api.FriendActionResponse, error),
) (*api.FriendActionResponse, error) {
	resp, err := call(ctx, userID)
	if err != nil {
		s.logger.Warn("friend action failed",
			slog.String("action", action),
			slog.String("user_id", userID),
			slog.Any("error", err))
		s.expireIfUnauthorized(ctx, err)
		return nil, err
	}
	return resp, nil
}
