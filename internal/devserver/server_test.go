package devserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	clientapi "github.com/iudanet/pongdash/internal/client/api"
	"github.com/iudanet/pongdash/pkg/api"
)

// memTokenStore хранит токены клиента в памяти
type memTokenStore struct {
	refresh string
	access  string
	mu      sync.Mutex
}

func (m *memTokenStore) RefreshToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh, nil
}

func (m *memTokenStore) SaveAccessToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = token
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Secret = []byte("test-secret")
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(cfg, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = 0
	_, err := New(cfg, nil)
	assert.Error(t, err)

	// Пустой секрет заменяется случайным
	cfg = testConfig()
	cfg.Secret = nil
	s, err := New(cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.Len(t, s.cfg.Secret, 32)
}

func TestServer_Routes(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	tests := []struct {
		name       string
		method     string
		path       string
		wantCode   string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/api/health", wantStatus: http.StatusOK},
		{name: "unknown path", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound, wantCode: api.CodeNotFound},
		{name: "protected without token", method: http.MethodGet, path: "/api/users/profile", wantStatus: http.StatusUnauthorized, wantCode: api.CodeTokenInvalid},
		{name: "logout without token", method: http.MethodPost, path: "/api/auth/logout", wantStatus: http.StatusUnauthorized, wantCode: api.CodeTokenInvalid},
		{name: "missing avatar", method: http.MethodGet, path: "/uploads/avatars/none.png", wantStatus: http.StatusNotFound, wantCode: api.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			require.NoError(t, err)
			req.Header.Set(clientapi.HeaderRequestID, "req-"+tt.name)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() {
				_ = resp.Body.Close()
			}()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "req-"+tt.name, resp.Header.Get(clientapi.HeaderRequestID))
			if tt.wantCode == "" {
				return
			}

			var body api.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestServer_ClientFlow(t *testing.T) {
	ctx := context.Background()
	_, ts := newTestServer(t, testConfig())
	client := clientapi.NewClient(ts.URL + APIPrefix)

	// 1. Регистрация и профиль
	tokens, err := client.RegisterEmail(ctx, api.RegisterRequest{
		Email:       "alice@example.com",
		Password:    "password123",
		DisplayName: "alice",
	})
	require.NoError(t, err)
	client.SetAuthToken(tokens.AccessToken)

	profile, err := client.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.DisplayName)
	assert.True(t, profile.IsOnline)

	// 2. Изменение профиля
	name := "alice_v2"
	profile, err = client.UpdateProfile(ctx, api.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, profile.DisplayName)

	availability, err := client.CheckDisplayName(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, availability.Available)

	// 3. Аватар
	avatar, err := client.UploadAvatar(ctx, "me.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + avatar.AvatarURL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 4. Второй фактор
	verified, err := client.Verify2FA(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	// 5. Повторная регистрация того же email
	_, err = client.RegisterEmail(ctx, api.RegisterRequest{
		Email:       "alice@example.com",
		Password:    "password123",
		DisplayName: "other",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, clientapi.StatusOf(err))
	assert.Equal(t, "Email is already registered", clientapi.MessageOf(err, "fallback"))

	// 6. Выход инвалидирует refresh token
	require.NoError(t, client.Logout(ctx))
	_, err = client.Refresh(ctx, tokens.RefreshToken)
	assert.True(t, clientapi.IsUnauthorized(err))
}

func TestServer_RefreshRetry(t *testing.T) {
	ctx := context.Background()
	_, ts := newTestServer(t, testConfig())

	store := &memTokenStore{}
	client := clientapi.NewClient(ts.URL+APIPrefix, clientapi.WithTokenStore(store))

	tokens, err := client.LoginEmail(ctx, api.LoginRequest{Email: "nobody@example.com", Password: "x"})
	require.Error(t, err)
	assert.Nil(t, tokens)

	tokens, err = client.RegisterEmail(ctx, api.RegisterRequest{
		Email:       "bob@example.com",
		Password:    "password123",
		DisplayName: "bob",
	})
	require.NoError(t, err)
	store.refresh = tokens.RefreshToken

	// Устаревший access token: 401 → refresh → повтор
	client.SetAuthToken("stale-token")
	profile, err := client.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.DisplayName)

	assert.NotEmpty(t, store.access)
	assert.Equal(t, store.access, client.AuthToken())
}

func TestServer_ExternalLogin(t *testing.T) {
	ctx := context.Background()
	_, ts := newTestServer(t, testConfig())

	noRedirect := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	authorize := ts.URL + APIPrefix + api.PathAuthorize42 + "?" + url.Values{
		"client_id":    {"pongdash-cli"},
		"state":        {"st"},
		"redirect_uri": {"http://127.0.0.1:8765/auth/callback"},
	}.Encode()

	resp, err := noRedirect.Get(authorize)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "st", location.Query().Get("state"))

	client := clientapi.NewClient(ts.URL + APIPrefix)
	tokens, err := client.LoginExternal(ctx, location.Query().Get("code"))
	require.NoError(t, err)

	client.SetAuthToken(tokens.AccessToken)
	profile, err := client.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "student42", profile.DisplayName)
}

func TestServer_Seed(t *testing.T) {
	ctx := context.Background()
	s, ts := newTestServer(t, testConfig())
	require.NoError(t, s.Seed(ctx))

	client := clientapi.NewClient(ts.URL + APIPrefix)
	tokens, err := client.LoginEmail(ctx, api.LoginRequest{Email: DemoEmail, Password: DemoPassword})
	require.NoError(t, err)
	client.SetAuthToken(tokens.AccessToken)

	matches, err := client.MatchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 4)
	assert.Equal(t, "win", matches[0].Result)
	assert.True(t, matches[0].PlayedAt.After(matches[3].PlayedAt))

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.Stats{Rank: "Bronze", Wins: 3, Losses: 1}, *stats)

	friends, err := client.Friends(ctx)
	require.NoError(t, err)
	require.Len(t, friends, 2)

	byName := make(map[string]api.Friend)
	for _, f := range friends {
		byName[f.DisplayName] = f
	}
	assert.Equal(t, "accepted", byName["rival"].Status)
	assert.Equal(t, "requested", byName["newbie"].Status)

	// Принимаем входящий запрос
	action, err := client.AcceptFriend(ctx, byName["newbie"].ID)
	require.NoError(t, err)
	assert.True(t, action.Success)

	statuses, err := client.FriendsStatus(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
}

func TestServer_AuthRateLimit(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.AuthRateLimit = 2
	_, ts := newTestServer(t, cfg)

	client := clientapi.NewClient(ts.URL + APIPrefix)
	for i := 0; i < 2; i++ {
		_, err := client.LoginEmail(ctx, api.LoginRequest{Email: "x@example.com", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, clientapi.StatusOf(err))
	}

	_, err := client.LoginEmail(ctx, api.LoginRequest{Email: "x@example.com", Password: "password123"})
	assert.Equal(t, http.StatusTooManyRequests, clientapi.StatusOf(err))
}

func TestServer_Serve(t *testing.T) {
	s, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer s.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + APIPrefix + api.PathHealth)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
