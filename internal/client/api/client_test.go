package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/pongdash/pkg/api"
)

// fakeTokenStore простая реализация TokenStore для тестов
type fakeTokenStore struct {
	err     error
	refresh string
	saved   []string
	mu      sync.Mutex
}

func (f *fakeTokenStore) RefreshToken(ctx context.Context) (string, error) {
	return f.refresh, f.err
}

func (f *fakeTokenStore) SaveAccessToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, token)
	return nil
}

func (f *fakeTokenStore) savedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saved...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("")

	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, "application/json", client.headers.Get("Content-Type"))
	assert.Empty(t, client.AuthToken())

	client = NewClient("http://example.test/api", WithTimeout(5*time.Second))
	assert.Equal(t, "http://example.test/api", client.baseURL)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
}

func TestClient_SetAuthToken(t *testing.T) {
	client := NewClient("")

	client.SetAuthToken("abc")
	assert.Equal(t, "abc", client.AuthToken())
	assert.Equal(t, "Bearer abc", client.headers.Get("Authorization"))

	client.SetAuthToken("")
	assert.Empty(t, client.AuthToken())
	assert.Empty(t, client.headers.Get("Authorization"))
}

// TestClient_Send_Headers проверяет слияние заголовков
func TestClient_Send_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Custom"))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))
		assert.Equal(t, "a b", r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetAuthToken("tok")

	var out map[string]string
	err := client.Send(context.Background(), "/anything", RequestOptions{
		Headers: map[string]string{"Content-Type": "", "X-Custom": "yes"},
		Query:   map[string][]string{"q": {"a b"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "1", out["ok"])
}

// TestClient_Send_ServerErrors проверяет перевод ответов сервера в APIError
func TestClient_Send_ServerErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
		wantCode    string
		status      int
	}{
		{
			name:        "message and code from body",
			status:      http.StatusConflict,
			body:        `{"message":"Email already registered","code":"AUTH_EMAIL_TAKEN"}`,
			wantMessage: "Email already registered",
			wantCode:    api.CodeEmailTaken,
		},
		{
			name:        "no message in body",
			status:      http.StatusBadRequest,
			body:        `{"code":"BAD_REQUEST"}`,
			wantMessage: MessageRequestFailed,
			wantCode:    api.CodeBadRequest,
		},
		{
			name:        "body is not json",
			status:      http.StatusBadGateway,
			body:        "<html>bad gateway</html>",
			wantMessage: MessageRequestFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL).Send(context.Background(), "/x", RequestOptions{}, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.False(t, IsTransport(err))
		})
	}
}

// TestClient_Send_TransportErrors проверяет транспортные ошибки
func TestClient_Send_TransportErrors(t *testing.T) {
	t.Run("network unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		serverURL := server.URL
		server.Close()

		err := NewClient(serverURL).Send(context.Background(), "/x", RequestOptions{}, nil)
		require.Error(t, err)
		assert.True(t, IsTransport(err))
		assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
		assert.Equal(t, MessageNetworkError, MessageOf(err, ""))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeNetworkError, apiErr.Code)
	})

	t.Run("malformed success body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("{not json"))
		}))
		defer server.Close()

		var out api.UserProfile
		err := NewClient(server.URL).Send(context.Background(), "/x", RequestOptions{}, &out)
		require.Error(t, err)
		assert.True(t, IsTransport(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{})
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewClient(server.URL).Send(ctx, "/x", RequestOptions{}, nil)
		require.Error(t, err)
		assert.True(t, IsTransport(err))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// TestClient_Send_RefreshAndRetry: 401 -> refresh -> повтор с новым токеном
func TestClient_Send_RefreshAndRetry(t *testing.T) {
	var profileCalls, refreshCalls atomic.Int32
	var firstBody, retryBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case api.PathRefreshToken:
			refreshCalls.Add(1)
			var req api.RefreshRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "refresh-1", req.RefreshToken)
			writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: "fresh"})
		case api.PathUpdateProfile:
			body, _ := io.ReadAll(r.Body)
			if profileCalls.Add(1) == 1 {
				firstBody = string(body)
				assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
				writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Message: "expired", Code: api.CodeTokenInvalid})
				return
			}
			retryBody = string(body)
			assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, api.UserProfile{ID: "u1", DisplayName: "X"})
		}
	}))
	defer server.Close()

	store := &fakeTokenStore{refresh: "refresh-1"}
	client := NewClient(server.URL, WithTokenStore(store))
	client.SetAuthToken("stale")

	name := "X"
	profile, err := client.UpdateProfile(context.Background(), api.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "X", profile.DisplayName)

	assert.Equal(t, int32(2), profileCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
	// Повтор отправляет те же байты
	assert.Equal(t, firstBody, retryBody)
	assert.JSONEq(t, `{"displayName":"X"}`, retryBody)

	// Новый токен сохранен и установлен для всех последующих запросов
	assert.Equal(t, []string{"fresh"}, store.saved)
	assert.Equal(t, "fresh", client.AuthToken())
}

// TestClient_Send_RetryAtMostOnce: обновленный токен тоже отклонен
func TestClient_Send_RetryAtMostOnce(t *testing.T) {
	var profileCalls, refreshCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case api.PathRefreshToken:
			refreshCalls.Add(1)
			writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: "fresh"})
		default:
			profileCalls.Add(1)
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Message: "still bad"})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenStore(&fakeTokenStore{refresh: "r"}))

	_, err := client.GetProfile(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "still bad", MessageOf(err, ""))
	assert.Equal(t, int32(2), profileCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
}

// TestClient_Send_RefreshFails: исходная ошибка 401 возвращается вызывающему
func TestClient_Send_RefreshFails(t *testing.T) {
	tests := []struct {
		store        *fakeTokenStore
		name         string
		wantRefreshs int32
	}{
		{name: "no token store"},
		{name: "no refresh token stored", store: &fakeTokenStore{}},
		{name: "token store error", store: &fakeTokenStore{err: errors.New("disk")}},
		{name: "refresh endpoint rejects", store: &fakeTokenStore{refresh: "r"}, wantRefreshs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var profileCalls, refreshCalls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == api.PathRefreshToken {
					refreshCalls.Add(1)
					writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Message: "refresh expired"})
					return
				}
				profileCalls.Add(1)
				writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Message: "expired", Code: api.CodeTokenInvalid})
			}))
			defer server.Close()

			opts := []Option{}
			if tt.store != nil {
				opts = append(opts, WithTokenStore(tt.store))
			}
			client := NewClient(server.URL, opts...)
			client.SetAuthToken("old")

			_, err := client.GetProfile(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
			assert.Equal(t, "expired", apiErr.Message)
			assert.Equal(t, api.CodeTokenInvalid, apiErr.Code)

			assert.Equal(t, int32(1), profileCalls.Load())
			assert.Equal(t, tt.wantRefreshs, refreshCalls.Load())
			assert.Equal(t, "old", client.AuthToken())
		})
	}
}

// TestClient_Send_RefreshEndpointNotRetried: 401 на refresh не запускает refresh
func TestClient_Send_RefreshEndpointNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Message: "nope"})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenStore(&fakeTokenStore{refresh: "r"}))

	_, err := client.Refresh(context.Background(), "r")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), calls.Load())
}

// TestClient_Send_ConcurrentRefreshCoalesced: параллельные 401 дают один refresh
func TestClient_Send_ConcurrentRefreshCoalesced(t *testing.T) {
	var refreshCalls atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == api.PathRefreshToken {
			refreshCalls.Add(1)
			<-release
			writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: "fresh"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{})
			return
		}
		writeJSON(w, http.StatusOK, api.Stats{Wins: 3})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenStore(&fakeTokenStore{refresh: "r"}))
	client.SetAuthToken("stale")

	const n = 4
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Stats(context.Background())
			errs <- err
		}()
	}

	// Даем всем запросам получить 401 и встать в очередь на refresh
	require.Eventually(t, func() bool { return refreshCalls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, refreshCalls.Load(), int32(n))
	assert.Equal(t, "fresh", client.AuthToken())
}

// TestClient_Send_RefreshDiscardedAfterTokenCleared проверяет, что refresh,
// завершившийся после сброса токена (logout), не сохраняет и не ставит токен
func TestClient_Send_RefreshDiscardedAfterTokenCleared(t *testing.T) {
	var refreshCalls atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == api.PathRefreshToken {
			refreshCalls.Add(1)
			<-release
			writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: "a2"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer a2" {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Message: "expired"})
			return
		}
		writeJSON(w, http.StatusOK, api.Stats{Wins: 1})
	}))
	defer server.Close()

	store := &fakeTokenStore{refresh: "r1"}
	client := NewClient(server.URL, WithTokenStore(store))
	client.SetAuthToken("a1")

	errs := make(chan error, 1)
	go func() {
		_, err := client.Stats(context.Background())
		errs <- err
	}()

	// 1. Refresh завис на сервере
	require.Eventually(t, func() bool { return refreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	// 2. Logout сбрасывает токен, затем сервер отвечает
	client.SetAuthToken("")
	close(release)

	var err error
	select {
	case err = <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("request did not finish")
	}

	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Empty(t, store.savedTokens())
	assert.Empty(t, client.AuthToken())
	assert.Equal(t, int32(1), refreshCalls.Load())
}

// TestClient_Send_RefreshSurvivesCallerCancel проверяет, что отмена ctx
// первого вызывающего не обрывает общий refresh для остальных
func TestClient_Send_RefreshSurvivesCallerCancel(t *testing.T) {
	var refreshCalls atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == api.PathRefreshToken {
			refreshCalls.Add(1)
			<-release
			writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: "fresh"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{})
			return
		}
		writeJSON(w, http.StatusOK, api.Stats{Wins: 7})
	}))
	defer server.Close()

	store := &fakeTokenStore{refresh: "r"}
	client := NewClient(server.URL, WithTokenStore(store))
	client.SetAuthToken("stale")

	// 1. Первый вызывающий запускает refresh и уходит по отмене
	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Stats(ctx)
		firstErr <- err
	}()

	require.Eventually(t, func() bool { return refreshCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-firstErr:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("cancelled caller did not return")
	}

	// 2. Второй присоединяется к тому же refresh
	type result struct {
		stats *api.Stats
		err   error
	}
	second := make(chan result, 1)
	go func() {
		stats, err := client.Stats(context.Background())
		second <- result{stats: stats, err: err}
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)

	var res result
	select {
	case res = <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not finish")
	}

	require.NoError(t, res.err)
	assert.Equal(t, 7, res.stats.Wins)
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, []string{"fresh"}, store.savedTokens())
	assert.Equal(t, "fresh", client.AuthToken())
}

// TestClient_UploadAvatar проверяет multipart загрузку
func TestClient_UploadAvatar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, api.PathUploadAvatar, r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))

		file, header, err := r.FormFile("avatar")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "me.png", header.Filename)
		assert.Equal(t, "PNGDATA", string(data))

		writeJSON(w, http.StatusOK, api.AvatarResponse{AvatarURL: "/avatars/me.png"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).UploadAvatar(context.Background(), "me.png", []byte("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "/avatars/me.png", resp.AvatarURL)
}

// TestClient_Endpoints проверяет методы и пути типизированных вызовов
func TestClient_Endpoints(t *testing.T) {
	type call struct {
		method string
		path   string
		body   string
	}
	var got []call
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}
		mu.Lock()
		got = append(got, call{method: r.Method, path: path, body: strings.TrimSpace(string(body))})
		mu.Unlock()

		switch r.URL.Path {
		case api.PathMatchHistory, api.PathFriends, api.PathFriendsStatus:
			writeJSON(w, http.StatusOK, []any{})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "available": true, "verified": true})
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client := NewClient(server.URL)

	_, err := client.LoginExternal(ctx, "c0de")
	require.NoError(t, err)
	_, err = client.LoginEmail(ctx, api.LoginRequest{Email: "u@x.com", Password: "p"})
	require.NoError(t, err)
	_, err = client.RegisterEmail(ctx, api.RegisterRequest{Email: "u@x.com", Password: "p", DisplayName: "d"})
	require.NoError(t, err)
	require.NoError(t, client.Logout(ctx))
	verify, err := client.Verify2FA(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, verify.Verified)
	avail, err := client.CheckDisplayName(ctx, "neo & co")
	require.NoError(t, err)
	assert.True(t, avail.Available)
	_, err = client.MatchHistory(ctx)
	require.NoError(t, err)
	_, err = client.Friends(ctx)
	require.NoError(t, err)
	_, err = client.FriendsStatus(ctx)
	require.NoError(t, err)
	for _, fn := range []func(context.Context, string) (*api.FriendActionResponse, error){
		client.AddFriend, client.RemoveFriend, client.AcceptFriend, client.RejectFriend,
	} {
		resp, err := fn(ctx, "u2")
		require.NoError(t, err)
		assert.True(t, resp.Success)
	}

	want := []call{
		{http.MethodPost, api.PathLoginExternal, `{"code":"c0de"}`},
		{http.MethodPost, api.PathLoginEmail, `{"email":"u@x.com","password":"p"}`},
		{http.MethodPost, api.PathRegisterEmail, `{"email":"u@x.com","password":"p","displayName":"d"}`},
		{http.MethodPost, api.PathLogout, ""},
		{http.MethodPost, api.PathVerify2FA, `{"code":"123456"}`},
		{http.MethodGet, api.PathCheckDisplayName + "?name=neo+%26+co", ""},
		{http.MethodGet, api.PathMatchHistory, ""},
		{http.MethodGet, api.PathFriends, ""},
		{http.MethodGet, api.PathFriendsStatus, ""},
		{http.MethodPost, api.PathFriendsAdd, `{"userId":"u2"}`},
		{http.MethodPost, api.PathFriendsRemove, `{"userId":"u2"}`},
		{http.MethodPost, api.PathFriendsAccept, `{"userId":"u2"}`},
		{http.MethodPost, api.PathFriendsReject, `{"userId":"u2"}`},
	}
	assert.Equal(t, want, got)
}
