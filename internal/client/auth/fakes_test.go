package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iudanet/pongdash/internal/client/storage"
	"github.com/iudanet/pongdash/internal/models"
	"github.com/iudanet/pongdash/pkg/api"
)

// fakeAPI реализует APIClient; не заданные функции возвращают ошибку
type fakeAPI struct {
	loginEmail    func(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
	registerEmail func(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error)
	loginExternal func(ctx context.Context, code string) (*api.TokenResponse, error)
	logout        func(ctx context.Context) error
	verify        func(ctx context.Context, code string) (*api.VerifyResponse, error)
	getProfile    func(ctx context.Context) (*api.UserProfile, error)
	updateProfile func(ctx context.Context, update api.ProfileUpdate) (*api.UserProfile, error)
	uploadAvatar  func(ctx context.Context, filename string, data []byte) (*api.AvatarResponse, error)
	checkName     func(ctx context.Context, name string) (*api.NameAvailability, error)
	matches       func(ctx context.Context) ([]api.Match, error)
	friendAction  func(ctx context.Context, userID string) (*api.FriendActionResponse, error)

	token       string
	logoutCalls int
	mu          sync.Mutex
}

var errNotConfigured = errors.New("not configured in test")

func (f *fakeAPI) SetAuthToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAPI) AuthToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) LoginExternal(ctx context.Context, code string) (*api.TokenResponse, error) {
	if f.loginExternal == nil {
		return nil, errNotConfigured
	}
	return f.loginExternal(ctx, code)
}

func (f *fakeAPI) LoginEmail(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	if f.loginEmail == nil {
		return nil, errNotConfigured
	}
	return f.loginEmail(ctx, req)
}

func (f *fakeAPI) RegisterEmail(ctx context.Context, req api.RegisterRequest) (*api.TokenResponse, error) {
	if f.registerEmail == nil {
		return nil, errNotConfigured
	}
	return f.registerEmail(ctx, req)
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	if f.logout == nil {
		return nil
	}
	return f.logout(ctx)
}

func (f *fakeAPI) Verify2FA(ctx context.Context, code string) (*api.VerifyResponse, error) {
	if f.verify == nil {
		return nil, errNotConfigured
	}
	return f.verify(ctx, code)
}

func (f *fakeAPI) GetProfile(ctx context.Context) (*api.UserProfile, error) {
	if f.getProfile == nil {
		return nil, errNotConfigured
	}
	return f.getProfile(ctx)
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.UserProfile, error) {
	if f.updateProfile == nil {
		return nil, errNotConfigured
	}
	return f.updateProfile(ctx, update)
}

func (f *fakeAPI) UploadAvatar(ctx context.Context, filename string, data []byte) (*api.AvatarResponse, error) {
	if f.uploadAvatar == nil {
		return nil, errNotConfigured
	}
	return f.uploadAvatar(ctx, filename, data)
}

func (f *fakeAPI) CheckDisplayName(ctx context.Context, name string) (*api.NameAvailability, error) {
	if f.checkName == nil {
		return nil, errNotConfigured
	}
	return f.checkName(ctx, name)
}

func (f *fakeAPI) MatchHistory(ctx context.Context) ([]api.Match, error) {
	if f.matches == nil {
		return nil, errNotConfigured
	}
	return f.matches(ctx)
}

func (f *fakeAPI) Stats(ctx context.Context) (*api.Stats, error) {
	return &api.Stats{Rank: "Gold", Wins: 10, Losses: 2}, nil
}

func (f *fakeAPI) Friends(ctx context.Context) ([]api.Friend, error) {
	return []api.Friend{{ID: "u2", DisplayName: "bob", Status: "accepted"}}, nil
}

func (f *fakeAPI) FriendsStatus(ctx context.Context) ([]api.FriendStatus, error) {
	return []api.FriendStatus{{UserID: "u2", IsOnline: true}}, nil
}

func (f *fakeAPI) AddFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return f.doFriendAction(ctx, userID)
}

func (f *fakeAPI) RemoveFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return f.doFriendAction(ctx, userID)
}

func (f *fakeAPI) AcceptFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return f.doFriendAction(ctx, userID)
}

func (f *fakeAPI) RejectFriend(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	return f.doFriendAction(ctx, userID)
}

func (f *fakeAPI) doFriendAction(ctx context.Context, userID string) (*api.FriendActionResponse, error) {
	if f.friendAction == nil {
		return &api.FriendActionResponse{Success: true}, nil
	}
	return f.friendAction(ctx, userID)
}

// memStorage in-memory реализация storage.CredentialStorage
type memStorage struct {
	creds    *storage.Credentials
	redirect *string
	salt     []byte
	saveErr  error
	mu       sync.Mutex
}

func (m *memStorage) SaveCredentials(ctx context.Context, creds *storage.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	c := *creds
	m.creds = &c
	return nil
}

func (m *memStorage) GetCredentials(ctx context.Context) (*storage.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return nil, storage.ErrAuthNotFound
	}
	c := *m.creds
	return &c, nil
}

func (m *memStorage) SaveAccessToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		m.creds = &storage.Credentials{}
	}
	m.creds.AccessToken = token
	return nil
}

func (m *memStorage) DeleteCredentials(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	return nil
}

func (m *memStorage) SaveRedirect(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirect = &path
	return nil
}

func (m *memStorage) GetRedirect(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redirect == nil {
		return "", storage.ErrRedirectNotFound
	}
	return *m.redirect, nil
}

func (m *memStorage) DeleteRedirect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirect = nil
	return nil
}

func (m *memStorage) GetSalt(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.salt == nil {
		return nil, storage.ErrSaltNotFound
	}
	return m.salt, nil
}

func (m *memStorage) SaveSalt(ctx context.Context, salt []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.salt = salt
	return nil
}

func (m *memStorage) stored() *storage.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds
}

// recordingNavigator запоминает переходы
type recordingNavigator struct {
	current string
	paths   []string
}

func (n *recordingNavigator) Current() string {
	return n.current
}

func (n *recordingNavigator) Replace(ctx context.Context, path string) error {
	n.paths = append(n.paths, path)
	return nil
}

// memMatchCache in-memory реализация storage.MatchCache
type memMatchCache struct {
	data map[string][]api.Match
}

func (c *memMatchCache) SaveMatches(ctx context.Context, userID string, matches []api.Match) error {
	if c.data == nil {
		c.data = map[string][]api.Match{}
	}
	c.data[userID] = matches
	return nil
}

func (c *memMatchCache) ListMatches(ctx context.Context, userID string) ([]api.Match, error) {
	return c.data[userID], nil
}

func testProfile(name string) *api.UserProfile {
	return &api.UserProfile{
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ID:          "u1",
		Email:       "u@x.com",
		DisplayName: name,
		Stats:       api.Stats{Rank: "Bronze"},
		IsOnline:    true,
	}
}

// notification одно уведомление подписчика
type notification struct {
	name          string
	authenticated bool
}

// recorder собирает уведомления
type recorder struct {
	got []notification
	mu  sync.Mutex
}

func (r *recorder) listener(authenticated bool, session *models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := ""
	if authenticated {
		name = session.NameOrDefault()
	}
	r.got = append(r.got, notification{authenticated: authenticated, name: name})
}

func (r *recorder) all() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.got...)
}
