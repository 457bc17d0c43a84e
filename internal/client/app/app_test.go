package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/pongdash/internal/client/config"
	"github.com/iudanet/pongdash/internal/client/router"
	"github.com/iudanet/pongdash/internal/client/views"
	"github.com/iudanet/pongdash/internal/devserver"
	"github.com/iudanet/pongdash/pkg/api"
)

func newTestServer(t *testing.T) string {
	t.Helper()

	cfg := devserver.DefaultConfig()
	cfg.Secret = []byte("app-test-secret")
	cfg.BcryptCost = bcrypt.MinCost

	srv, err := devserver.New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Seed(context.Background()))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts.URL
}

func newTestApp(t *testing.T, serverURL string, opts Options) (*App, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.APIBaseURL = serverURL + devserver.APIPrefix
	cfg.AuthorizeURL = serverURL + devserver.APIPrefix + api.PathAuthorize42
	cfg.CallbackAddr = "127.0.0.1:0"
	cfg.DBPath = filepath.Join(dir, "pongdash.db")
	cfg.CachePath = filepath.Join(dir, "cache.db")

	var out bytes.Buffer
	a, err := New(context.Background(), cfg, &out, nil, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, a.Close())
	})
	return a, &out
}

func TestApp_StartUnauthenticated(t *testing.T) {
	a, out := newTestApp(t, newTestServer(t), Options{StartPath: "/settings"})

	require.NoError(t, a.Start(context.Background()))

	assert.Equal(t, router.PublicLanding, a.Router.Current())
	assert.Equal(t, "Welcome", a.Screen.Title())
	assert.Contains(t, out.String(), "Real-time multiplayer Pong")
	assert.Equal(t, 1, a.Router.History().Len())
}

func TestApp_SessionNavigation(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t, newTestServer(t), Options{})
	require.NoError(t, a.Start(ctx))

	// 1. Вход уводит в кабинет
	session, err := a.Session.LoginWithCredentials(ctx, devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, devserver.DemoName, session.DisplayName)
	assert.Equal(t, router.AuthenticatedLanding, a.Router.Current())
	assert.Contains(t, a.Screen.Content(), "Welcome back, demo!")

	// 2. Защищенный экран доступен
	require.NoError(t, a.Router.Navigate(ctx, "/profile", router.NavigateOptions{}))
	assert.Equal(t, "/profile", a.Router.Current())

	// 3. Выход уводит на стартовую
	require.NoError(t, a.Session.Logout(ctx))
	assert.Equal(t, router.PublicLanding, a.Router.Current())

	// 4. Без сессии защищенный экран недоступен
	require.NoError(t, a.Router.Navigate(ctx, "/profile", router.NavigateOptions{}))
	assert.Equal(t, router.PublicLanding, a.Router.Current())
}

func TestApp_LoginRendersLandingOnce(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t, newTestServer(t), Options{})
	require.NoError(t, a.Start(ctx))
	require.Equal(t, router.PublicLanding, a.Router.Current())

	var rendered []string
	unsubscribe := a.Router.OnViewReady(func(ev router.ViewReadyEvent) {
		rendered = append(rendered, ev.Path)
	})
	defer unsubscribe()

	_, err := a.Session.LoginWithCredentials(ctx, devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)

	// Подписка на сессию уже перевела в кабинет, redirect после входа не повторяет рендер
	assert.Equal(t, []string{router.AuthenticatedLanding}, rendered)
	assert.Equal(t, 1, a.Router.History().Len())
}

func TestApp_BootstrapRestoresSession(t *testing.T) {
	ctx := context.Background()
	serverURL := newTestServer(t)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.APIBaseURL = serverURL + devserver.APIPrefix
	cfg.DBPath = filepath.Join(dir, "pongdash.db")
	cfg.CachePath = ""

	first, err := New(ctx, cfg, &bytes.Buffer{}, nil, Options{})
	require.NoError(t, err)
	_, err = first.Session.LoginWithCredentials(ctx, devserver.DemoEmail, devserver.DemoPassword)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg, &bytes.Buffer{}, nil, Options{})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, second.Close())
	}()

	require.NoError(t, second.Start(ctx))
	assert.True(t, second.Session.IsAuthenticated())
	assert.Equal(t, router.AuthenticatedLanding, second.Router.Current())
}

func TestApp_ExternalLogin(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t, newTestServer(t), Options{})
	require.NoError(t, a.Start(ctx))

	require.NoError(t, a.Session.BeginExternalLogin(ctx, "/profile"))

	// Браузер: провайдер сразу редиректит на loopback callback
	code, err := a.OAuth.Run(ctx, func(authURL string) error {
		resp, err := http.Get(authURL)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	})
	require.NoError(t, err)
	require.NotEmpty(t, code)

	callback := views.CallbackPath + "?" + url.Values{"code": {code}}.Encode()
	require.NoError(t, a.Router.Navigate(ctx, callback, router.NavigateOptions{}))

	assert.True(t, a.Session.IsAuthenticated())
	assert.Equal(t, "/profile", a.Router.Current())
	assert.Equal(t, "student42", a.Session.CurrentUser().DisplayName)
}
