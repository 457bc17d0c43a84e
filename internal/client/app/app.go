// Package app собирает клиент pongdash: хранилища, транспорт,
// сессию, роутер и экраны. App владеет всеми зависимостями
// и закрывает их в Close.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	clientapi "github.com/iudanet/pongdash/internal/client/api"
	"github.com/iudanet/pongdash/internal/client/auth"
	"github.com/iudanet/pongdash/internal/client/config"
	"github.com/iudanet/pongdash/internal/client/oauth"
	"github.com/iudanet/pongdash/internal/client/router"
	"github.com/iudanet/pongdash/internal/client/storage/boltdb"
	"github.com/iudanet/pongdash/internal/client/storage/sqlite"
	"github.com/iudanet/pongdash/internal/client/views"
	"github.com/iudanet/pongdash/internal/models"
)

// App корневой объект клиента
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Client  *clientapi.Client
	Session *auth.Service
	Router  *router.Router
	Screen  *views.TerminalScreen
	OAuth   *oauth.Flow
	Store   *auth.SealedStore

	creds  *boltdb.Storage
	cache  *sqlite.Storage
	unsubs []func()
}

// Options дополнительные параметры сборки
type Options struct {
	// StartPath начальная запись истории (по умолчанию "/")
	StartPath string
	// ClearScreen очищать терминал перед каждым экраном
	ClearScreen bool
}

// New открывает хранилища и связывает компоненты
func New(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	a := &App{Config: cfg, Logger: logger}

	// 1. Хранилище учетных данных
	creds, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential storage: %w", err)
	}
	a.creds = creds

	a.Store, err = auth.NewSealedStore(ctx, creds, cfg.Passphrase)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	// 2. Кэш истории матчей (опционально)
	sessionOpts := []auth.Option{
		auth.WithLogger(logger.With(slog.String("component", "session"))),
		auth.WithMockLogin(cfg.MockLogin),
	}
	if cfg.CachePath != "" {
		cache, err := sqlite.New(ctx, cfg.CachePath)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to open match cache: %w", err)
		}
		a.cache = cache
		sessionOpts = append(sessionOpts, auth.WithMatchCache(cache))
	}

	// 3. Транспорт
	a.Client = clientapi.NewClient(cfg.APIBaseURL,
		clientapi.WithTimeout(cfg.RequestTimeout),
		clientapi.WithTokenStore(a.Store),
		clientapi.WithLogger(logger.With(slog.String("component", "api"))),
	)

	// 4. Сессия
	a.Session = auth.NewService(a.Client, a.Store, sessionOpts...)

	// 5. Экран, роутер и таблица маршрутов
	start := opts.StartPath
	if start == "" {
		start = router.PublicLanding
	}
	a.Screen = views.NewTerminalScreen(out, opts.ClearScreen)
	a.Router = router.New(a.Screen,
		router.WithHistory(router.NewHistory(start)),
		router.WithAuthState(a.Session.IsAuthenticated),
		router.WithLogger(logger.With(slog.String("component", "router"))),
	)

	v, err := views.New(a.Session, a.Router,
		views.WithLogger(logger.With(slog.String("component", "views"))),
		views.WithMockLogin(cfg.MockLogin),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	v.Register(a.Router)
	a.Session.SetNavigator(a.Router)

	// 6. Внешний провайдер
	a.OAuth = oauth.NewFlow(oauth.Config{
		AuthorizeURL: cfg.AuthorizeURL,
		ClientID:     cfg.ClientID,
		CallbackAddr: cfg.CallbackAddr,
	}, oauth.WithLogger(logger.With(slog.String("component", "oauth"))))

	return a, nil
}

// Bootstrap восстанавливает сессию из сохраненного токена
func (a *App) Bootstrap(ctx context.Context) {
	a.Session.Bootstrap(ctx)
}

// Start восстанавливает сессию, подписывает роутер на ее изменения
// и выполняет первичную навигацию
func (a *App) Start(ctx context.Context) error {
	a.Bootstrap(ctx)

	// Подписка после Bootstrap: replay текущего состояния не должен
	// навигировать до первичного разрешения маршрута
	if err := views.Start(ctx, a.Router, a.Session.IsAuthenticated()); err != nil {
		return err
	}

	a.unsubs = append(a.unsubs, a.Session.Subscribe(a.followSession(ctx)))
	return nil
}

// followSession уводит с экранов, ставших недоступными после
// смены сессии: без сессии на "/", с сессией со стартовой в кабинет.
// Вызывается внутри уведомления, поэтому не меняет сессию.
func (a *App) followSession(ctx context.Context) auth.Listener {
	return func(authenticated bool, _ *models.Session) {
		path := router.ParseLocation(a.Router.History().Location()).Path

		var target string
		switch {
		case authenticated && path == router.PublicLanding:
			target = router.AuthenticatedLanding
		case !authenticated && path != router.PublicLanding:
			target = router.PublicLanding
		default:
			return
		}

		if err := a.Router.Replace(ctx, target); err != nil {
			a.Logger.Warn("session navigation failed", slog.String("path", target), slog.Any("error", err))
		}
	}
}

// Close освобождает ресурсы
func (a *App) Close() error {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil

	var errs []error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close match cache: %w", err))
		}
	}
	if a.creds != nil {
		if err := a.creds.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close credential storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
