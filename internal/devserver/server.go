// Package devserver реализует API платформы в памяти процесса:
// для локального запуска клиента и end-to-end тестов.
package devserver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/pongdash/internal/devserver/handlers"
	"github.com/iudanet/pongdash/internal/devserver/middleware"
	"github.com/iudanet/pongdash/internal/devserver/storage/memory"
	"github.com/iudanet/pongdash/pkg/api"
)

// APIPrefix префикс всех путей API
const APIPrefix = "/api"

const shutdownTimeout = 5 * time.Second

// Config параметры dev server
type Config struct {
	Addr            string
	Version         string
	TwoFactorCode   string
	Secret          []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	OnlineWindow    time.Duration
	BcryptCost      int

	// AuthRateLimit запросов в минуту с одного адреса на login/register, 0 без лимита
	AuthRateLimit int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:3000",
		Version:         "dev",
		TwoFactorCode:   "123456",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		OnlineWindow:    handlers.DefaultOnlineWindow,
		AuthRateLimit:   30,
	}
}

// Server dev API server
type Server struct {
	logger  *slog.Logger
	store   *memory.Storage
	limiter *middleware.PathRateLimiter
	handler http.Handler
	cfg     Config
}

// New собирает handlers и middleware. Пустой Secret заменяется случайным.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		if _, err := rand.Read(cfg.Secret); err != nil {
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	s := &Server{
		logger: logger,
		store:  memory.New(),
		cfg:    cfg,
	}
	s.handler = s.routes()

	return s, nil
}

// Handler возвращает корневой http.Handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store возвращает хранилище (для seed данных и тестов)
func (s *Server) Store() *memory.Storage {
	return s.store
}

// routes регистрирует все маршруты API
func (s *Server) routes() http.Handler {
	jwtConfig := handlers.JWTConfig{
		Secret:          s.cfg.Secret,
		AccessTokenTTL:  s.cfg.AccessTokenTTL,
		RefreshTokenTTL: s.cfg.RefreshTokenTTL,
	}

	authHandler := handlers.NewAuthHandler(s.logger, s.store, s.store, handlers.AuthConfig{
		JWT:           jwtConfig,
		TwoFactorCode: s.cfg.TwoFactorCode,
		BcryptCost:    s.cfg.BcryptCost,
	})
	userHandler := handlers.NewUserHandler(s.logger, s.store, s.store, s.store, s.cfg.OnlineWindow)
	friendHandler := handlers.NewFriendHandler(s.logger, s.store, s.store, s.cfg.OnlineWindow)
	healthHandler := handlers.NewHealthHandler(s.logger, s.cfg.Version)

	authMiddleware := middleware.AuthMiddleware(s.logger, jwtConfig)
	presence := middleware.Presence(s.logger, s.store)
	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(presence(h))
	}

	mux := http.NewServeMux()
	route := func(method, path string, h http.Handler) {
		mux.Handle(method+" "+APIPrefix+path, h)
	}

	// Публичные маршруты
	route(http.MethodGet, api.PathHealth, http.HandlerFunc(healthHandler.Health))
	route(http.MethodPost, api.PathLoginEmail, http.HandlerFunc(authHandler.Login))
	route(http.MethodPost, api.PathRegisterEmail, http.HandlerFunc(authHandler.Register))
	route(http.MethodGet, api.PathAuthorize42, http.HandlerFunc(authHandler.Authorize))
	route(http.MethodPost, api.PathLoginExternal, http.HandlerFunc(authHandler.ExternalLogin))
	route(http.MethodPost, api.PathRefreshToken, http.HandlerFunc(authHandler.Refresh))
	mux.Handle("GET "+handlers.AvatarURLPrefix+"{name}", http.HandlerFunc(userHandler.Avatar))

	// Защищенные маршруты
	route(http.MethodPost, api.PathLogout, protected(authHandler.Logout))
	route(http.MethodPost, api.PathVerify2FA, protected(authHandler.Verify2FA))

	route(http.MethodGet, api.PathProfile, protected(userHandler.Profile))
	route(http.MethodPut, api.PathUpdateProfile, protected(userHandler.UpdateProfile))
	route(http.MethodPost, api.PathUploadAvatar, protected(userHandler.UploadAvatar))
	route(http.MethodGet, api.PathCheckDisplayName, protected(userHandler.CheckDisplayName))
	route(http.MethodGet, api.PathMatchHistory, protected(userHandler.Matches))
	route(http.MethodGet, api.PathStats, protected(userHandler.Stats))

	route(http.MethodGet, api.PathFriends, protected(friendHandler.List))
	route(http.MethodGet, api.PathFriendsStatus, protected(friendHandler.Status))
	route(http.MethodPost, api.PathFriendsAdd, protected(friendHandler.Add))
	route(http.MethodPost, api.PathFriendsRemove, protected(friendHandler.Remove))
	route(http.MethodPost, api.PathFriendsAccept, protected(friendHandler.Accept))
	route(http.MethodPost, api.PathFriendsReject, protected(friendHandler.Reject))

	// Все остальное: 404 в формате API
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_ = handlers.WriteError(w, "Not found", api.CodeNotFound, http.StatusNotFound)
	})

	var limits []middleware.PathRateLimit
	if s.cfg.AuthRateLimit > 0 {
		for _, p := range []string{api.PathLoginEmail, api.PathRegisterEmail} {
			limits = append(limits, middleware.PathRateLimit{
				Path:   APIPrefix + p,
				Rate:   s.cfg.AuthRateLimit,
				Window: time.Minute,
			})
		}
	}
	s.limiter = middleware.NewPathRateLimiter(limits, s.logger)

	// Порядок: request id → recovery → логирование → rate limit → маршруты
	var h http.Handler = mux
	h = s.limiter.Middleware(h)
	h = middleware.LoggingWithSkip(s.logger, []string{APIPrefix + api.PathHealth})(h)
	h = middleware.RecoveryMiddleware(s.logger)(h)
	h = middleware.RequestID(h)

	return h
}

// Run слушает cfg.Addr до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает ln до отмены ctx, затем корректно завершает соединения
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("dev server started", slog.String("addr", ln.Addr().String()), slog.String("version", s.cfg.Version))

	select {
	case err := <-errCh:
		return fmt.Errorf("dev server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown dev server: %w", err)
	}

	s.logger.Info("dev server stopped")
	return nil
}

// Close освобождает фоновые ресурсы (rate limiter)
func (s *Server) Close() {
	s.limiter.Stop()
}
