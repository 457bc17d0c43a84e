package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/iudanet/pongdash/pkg/api"
)

// LoginExternal обменивает код внешнего провайдера на пару токенов
func (c *Client) LoginExternal(ctx context.Context, code string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.Send(ctx, api.PathLoginExternal, RequestOptions{
		Method: http.MethodPost,
		Body:   api.ExternalLoginRequest{Code: code},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("external login request failed: %w", err)
	}
	return &resp, nil
}

// LoginEmail выполняет вход по email и паролю
func (c *Client) LoginEmail(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.Send(ctx, api.PathLoginEmail, RequestOptions{Method: http.MethodPost, Body: req}, &resp)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// RegisterEmail регистрирует нового пользователя по email
func (c *Client) RegisterEmail(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.Send(ctx, api.PathRegisterEmail, RequestOptions{Method: http.MethodPost, Body: req}, &resp)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Logout инвалидирует сессию на сервере
func (c *Client) Logout(ctx context.Context) error {
	if err := c.Send(ctx, api.PathLogout, RequestOptions{Method: http.MethodPost}, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// Refresh обменивает refresh token на новый access token
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.Send(ctx, api.PathRefreshToken, RequestOptions{
		Method: http.MethodPost,
		Body:   api.RefreshRequest{RefreshToken: refreshToken},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Verify2FA проверяет код второго фактора
func (c *Client) Verify2FA(ctx context.Context, code string) (*api.VerifyResponse, error) {
	var resp api.VerifyResponse
	err := c.Send(ctx, api.PathVerify2FA, RequestOptions{
		Method: http.MethodPost,
		Body:   api.VerifyRequest{Code: code},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("2fa verify request failed: %w", err)
	}
	return &resp, nil
}

// GetProfile получает профиль текущего пользователя
func (c *Client) GetProfile(ctx context.Context) (*api.UserProfile, error) {
	var resp api.UserProfile
	if err := c.Send(ctx, api.PathProfile, RequestOptions{}, &resp); err != nil {
		return nil, fmt.Errorf("get profile request failed: %w", err)
	}
	return &resp, nil
}

// UpdateProfile обновляет профиль и возвращает его новую версию
func (c *Client) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.UserProfile, error) {
	var resp api.UserProfile
	err := c.Send(ctx, api.PathUpdateProfile, RequestOptions{Method: http.MethodPut, Body: update}, &resp)
	if err != nil {
		return nil, fmt.Errorf("update profile request failed: %w", err)
	}
	return &resp, nil
}

// UploadAvatar загружает аватар multipart-формой с полем "avatar"
func (c *Client) UploadAvatar(ctx context.Context, filename string, data []byte) (*api.AvatarResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("avatar", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write avatar: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	var resp api.AvatarResponse
	err = c.Send(ctx, api.PathUploadAvatar, RequestOptions{
		Method:  http.MethodPost,
		RawBody: buf.Bytes(),
		// JSON Content-Type заменяется на multipart с boundary
		Headers: map[string]string{"Content-Type": mw.FormDataContentType()},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("upload avatar request failed: %w", err)
	}
	return &resp, nil
}

// CheckDisplayName проверяет, свободно ли отображаемое имя
func (c *Client) CheckDisplayName(ctx context.Context, name string) (*api.NameAvailability, error) {
	var resp api.NameAvailability
	err := c.Send(ctx, api.PathCheckDisplayName, RequestOptions{
		Query: url.Values{"name": {name}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("check display name request failed: %w", err)
	}
	return &resp, nil
}

// MatchHistory получает историю матчей текущего пользователя
func (c *Client) MatchHistory(ctx context.Context) ([]api.Match, error) {
	var resp []api.Match
	if err := c.Send(ctx, api.PathMatchHistory, RequestOptions{}, &resp); err != nil {
		return nil, fmt.Errorf("match history request failed: %w", err)
	}
	return resp, nil
}

// Stats получает агрегированную статистику
func (c *Client) Stats(ctx context.Context) (*api.Stats, error) {
	var resp api.Stats
	if err := c.Send(ctx, api.PathStats, RequestOptions{}, &resp); err != nil {
		return nil, fmt.Errorf("stats request failed: %w", err)
	}
	return &resp, nil
}

// Friends получает список друзей
func (c *Client) Friends(ctx context.Context) ([]api.Friend, error) {
	var resp []api.Friend
	if err := c.Send(ctx, api.PathFriends, RequestOptions{}, &resp); err != nil {
		return nil, fmt.Errorf("friends request failed: %w", err)
	}
	return resp, nil
}

// FriendsStatus получает онлайн-статусы друзей
func (c *Client) FriendsStatus(ctx context.Context) ([]api.FriendStatus, error) {
	var resp []api.FriendStatus
	if err := c.Send(ctx, api.PathFriendsStatus, RequestOptions{}, &resp); err != nil {
		return nil, fmt.Errorf("friends status request failed: %w", err)
	}
	return resp, nil
}

// AddFriend отправляет запрос в друзья
func (c *Client) AddFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return c.friendAction(ctx, api.PathFriendsAdd, userID)
}

// RemoveFriend удаляет из друзей
func (c *Client) RemoveFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return c.friendAction(ctx, api.PathFriendsRemove, userID)
}

// AcceptFriend принимает запрос в друзья
func (c *Client) AcceptFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return c.friendAction(ctx, api.PathFriendsAccept, userID)
}

// RejectFriend отклоняет запрос в друзья
func (c *Client) RejectFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return c.friendAction(ctx, api.PathFriendsReject, userID)
}

func (c *Client) friendAction(ctx context.Context, path, userID string) (*api.FriendActionResponse, error) {
	var resp api.FriendActionResponse
	err := c.Send(ctx, path, RequestOptions{
		Method: http.MethodPost,
		Body:   api.FriendRequest{UserID: userID},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("friend action %s failed: %w", path, err)
	}
	return &resp, nil
}
