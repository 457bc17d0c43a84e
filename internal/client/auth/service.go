package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	clientapi "github.com/iudanet/pongdash/internal/client/api"
	"github.com/iudanet/pongdash/internal/client/storage"
	"github.com/iudanet/pongdash/internal/models"
	"github.com/iudanet/pongdash/internal/validation"
	"github.com/iudanet/pongdash/pkg/api"
)

const (
	// DefaultLandingPath куда попадает пользователь после входа
	DefaultLandingPath = "/dashboard"
	// PublicLandingPath стартовая страница без сессии
	PublicLandingPath = "/"
)

// Service владеет текущей Session и парой токенов.
// Все изменения Session проходят через commit и сопровождаются
// ровно одним уведомлением подписчиков.
type Service struct {
	client    APIClient
	store     CredentialStore
	cache     storage.MatchCache
	navigator Navigator
	logger    *slog.Logger
	session   *models.Session
	listeners []listenerEntry
	mockKey   []byte

	// generation увеличивается при каждой смене личности (login/logout).
	// Ответы, начатые в старом поколении, отбрасываются.
	generation uint64
	nextID     uint64

	mu       sync.Mutex // состояние
	notifyMu sync.Mutex // порядок уведомлений
	mockOn   bool
}

// Option настраивает Service
type Option func(*Service)

// WithMatchCache подключает офлайн-кэш истории матчей
func WithMatchCache(cache storage.MatchCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithNavigator задает навигатор для редиректа после входа
func WithNavigator(nav Navigator) Option {
	return func(s *Service) {
		s.navigator = nav
	}
}

// WithLogger задает логгер
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMockLogin включает mock-вход для разработки
func WithMockLogin(enabled bool) Option {
	return func(s *Service) {
		s.mockOn = enabled
	}
}

// NewService создает новый сервис сессии
func NewService(client APIClient, store CredentialStore, opts ...Option) *Service {
	s := &Service{
		client: client,
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetNavigator подключает навигатор после создания роутера
func (s *Service) SetNavigator(nav Navigator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigator = nav
}

// CurrentUser возвращает копию текущей Session или nil
func (s *Service) CurrentUser() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// IsAuthenticated сообщает, есть ли активная Session
func (s *Service) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Bootstrap восстанавливает сессию из сохраненного access token.
// Ошибки не возвращаются: невалидная сессия превращается в состояние
// "не аутентифицирован" через полный Logout.
func (s *Service) Bootstrap(ctx context.Context) {
	creds, err := s.store.GetCredentials(ctx)
	if errors.Is(err, storage.ErrAuthNotFound) {
		s.logger.Debug("no stored credentials, starting unauthenticated")
		return
	}
	if err != nil {
		s.logger.Warn("failed to load stored credentials", slog.Any("error", err))
		s.logoutQuietly(ctx)
		return
	}

	gen := s.currentGeneration()
	s.client.SetAuthToken(creds.AccessToken)

	profile, err := s.client.GetProfile(ctx)
	if err != nil {
		s.logger.Warn("failed to initialize user", slog.Any("error", err))
		s.logoutQuietly(ctx)
		return
	}

	applied := s.commit(func() bool {
		if s.generation != gen {
			return false
		}
		s.session = models.SessionFromProfile(profile)
		s.generation++
		return true
	})
	if !applied {
		s.logger.Debug("bootstrap result discarded, session changed meanwhile")
		return
	}

	s.logger.Info("session restored", slog.String("user_id", profile.ID))
}

// LoginWithCredentials выполняет вход по email и паролю, затем
// переходит на запомненный путь или DefaultLandingPath
func (s *Service) LoginWithCredentials(ctx context.Context, email, password string) (*models.Session, error) {
	if err := validation.ValidateLogin(email, password); err != nil {
		return nil, err
	}

	tokens, err := s.client.LoginEmail(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.logger.Warn("login failed", slog.Any("error", err))
		s.abandonLogin(ctx)
		return nil, err
	}

	session, err := s.establish(ctx, tokens)
	if err != nil {
		s.logger.Warn("login failed", slog.Any("error", err))
		return nil, err
	}

	s.redirectAfterLogin(ctx)
	return session, nil
}

// RegisterWithCredentials регистрирует пользователя и входит под ним
func (s *Service) RegisterWithCredentials(ctx context.Context, email, password, confirm, displayName string) (*models.Session, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidatePasswordConfirmation(password, confirm); err != nil {
		return nil, err
	}

	tokens, err := s.client.RegisterEmail(ctx, api.RegisterRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		s.logger.Warn("registration failed", slog.Any("error", err))
		s.abandonLogin(ctx)
		return nil, err
	}

	session, err := s.establish(ctx, tokens)
	if err != nil {
		s.logger.Warn("registration failed", slog.Any("error", err))
		return nil, err
	}

	s.redirectAfterLogin(ctx)
	return session, nil
}

// BeginExternalLogin запоминает путь, на который нужно вернуться
// после входа через внешнего провайдера
func (s *Service) BeginExternalLogin(ctx context.Context, returnPath string) error {
	if returnPath == "" {
		returnPath = PublicLandingPath
	}
	if err := s.store.SaveRedirect(ctx, returnPath); err != nil {
		return fmt.Errorf("failed to remember redirect path: %w", err)
	}
	return nil
}

// CompleteExternalLogin обменивает код провайдера на сессию и возвращает
// путь для перехода. Запомненный путь удаляется при любом исходе.
func (s *Service) CompleteExternalLogin(ctx context.Context, code string) (redirect string, err error) {
	defer func() {
		if derr := s.store.DeleteRedirect(ctx); derr != nil {
			s.logger.Warn("failed to clear redirect path", slog.Any("error", derr))
		}
	}()

	if code == "" {
		return "", &validation.Error{Field: "code", Message: "authorization code is missing"}
	}

	tokens, err := s.client.LoginExternal(ctx, code)
	if err != nil {
		s.logger.Warn("external login failed", slog.Any("error", err))
		s.abandonLogin(ctx)
		return "", err
	}

	if _, err := s.establish(ctx, tokens); err != nil {
		s.logger.Warn("external login failed", slog.Any("error", err))
		return "", err
	}

	return s.rememberedRedirect(ctx), nil
}

// Logout выполняет выход: удаленный вызов best effort, затем
// безусловная локальная очистка и уведомление подписчиков
func (s *Service) Logout(ctx context.Context) error {
	// 1. Уведомляем сервер (best effort)
	if s.client.AuthToken() != "" {
		if err := s.client.Logout(ctx); err != nil {
			s.logger.Warn("logout failed on server", slog.Any("error", err))
		}
	}

	// 2. Всегда очищаем локальное состояние
	return s.clearLocal(ctx, true)
}

// MockLogin создает фиктивную сессию для разработки без сервера
func (s *Service) MockLogin(ctx context.Context) (string, error) {
	if !s.mockOn {
		return "", ErrMockLoginDisabled
	}

	key, err := s.mockSigningKey()
	if err != nil {
		return "", err
	}

	id := "mock_" + uuid.NewString()[:8]
	session := &models.Session{
		CreatedAt:   time.Now().UTC(),
		ID:          id,
		Email:       "mock@dev.local",
		DisplayName: "Mock User",
		Avatar:      models.DefaultAvatar,
		Stats:       api.Stats{Rank: "Novice"},
		IsOnline:    true,
	}

	tokens, err := mintMockTokens(id, key, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to mint mock tokens: %w", err)
	}

	if err := s.store.SaveCredentials(ctx, tokens); err != nil {
		return "", fmt.Errorf("failed to save credentials: %w", err)
	}
	s.client.SetAuthToken(tokens.AccessToken)

	s.commit(func() bool {
		s.session = session
		s.generation++
		return true
	})

	s.logger.Info("mock session created", slog.String("user_id", id))
	return DefaultLandingPath, nil
}

// establish сохраняет пару токенов, загружает профиль и публикует Session.
// При ошибке состояние остается неаутентифицированным без сохраненных токенов.
func (s *Service) establish(ctx context.Context, tokens *api.TokenResponse) (*models.Session, error) {
	if tokens == nil || tokens.AccessToken == "" {
		s.abandonLogin(ctx)
		return nil, fmt.Errorf("server returned no access token")
	}

	// 1. Сохраняем оба токена
	err := s.store.SaveCredentials(ctx, &storage.Credentials{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
	if err != nil {
		s.abandonLogin(ctx)
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	// 2. Устанавливаем access token в транспорт
	s.client.SetAuthToken(tokens.AccessToken)

	// 3. Загружаем профиль
	profile, err := s.client.GetProfile(ctx)
	if err != nil {
		s.abandonLogin(ctx)
		return nil, err
	}

	// 4. Публикуем новую Session
	session := models.SessionFromProfile(profile)
	s.commit(func() bool {
		s.session = session
		s.generation++
		return true
	})

	s.logger.Info("logged in", slog.String("user_id", session.ID))
	return session.Clone(), nil
}

// abandonLogin возвращает клиент в неаутентифицированное состояние
// после неудачной попытки входа
func (s *Service) abandonLogin(ctx context.Context) {
	if err := s.clearLocal(ctx, false); err != nil {
		s.logger.Warn("failed to clean up after login failure", slog.Any("error", err))
	}
}

// clearLocal удаляет Session и токены. Уведомляет подписчиков, если
// Session существовала или always == true.
func (s *Service) clearLocal(ctx context.Context, always bool) error {
	// Сначала сбрасываем bearer: refresh в полете после этого не сохранит токен
	s.client.SetAuthToken("")

	var result error
	if err := s.store.DeleteCredentials(ctx); err != nil {
		result = fmt.Errorf("failed to delete credentials: %w", err)
	}

	s.commit(func() bool {
		changed := s.session != nil
		s.session = nil
		s.generation++
		return changed || always
	})

	return result
}

// logoutQuietly выполняет полный Logout, только логируя ошибки
func (s *Service) logoutQuietly(ctx context.Context) {
	if err := s.Logout(ctx); err != nil {
		s.logger.Warn("logout failed", slog.Any("error", err))
	}
}

// expireIfUnauthorized уничтожает Session, если сервер отклонил
// учетные данные даже после попытки обновить токен
func (s *Service) expireIfUnauthorized(ctx context.Context, err error) {
	if !clientapi.IsUnauthorized(err) || !s.IsAuthenticated() {
		return
	}

	s.logger.Warn("credentials rejected after refresh, clearing session")
	if cerr := s.clearLocal(ctx, false); cerr != nil {
		s.logger.Warn("failed to clear expired session", slog.Any("error", cerr))
	}
}

// rememberedRedirect возвращает запомненный путь или DefaultLandingPath
func (s *Service) rememberedRedirect(ctx context.Context) string {
	path, err := s.store.GetRedirect(ctx)
	if err != nil || path == "" {
		if err != nil && !errors.Is(err, storage.ErrRedirectNotFound) {
			s.logger.Warn("failed to read redirect path", slog.Any("error", err))
		}
		return DefaultLandingPath
	}
	return path
}

// redirectAfterLogin забирает запомненный путь и переходит на него с replace
func (s *Service) redirectAfterLogin(ctx context.Context) {
	path := s.rememberedRedirect(ctx)
	if err := s.store.DeleteRedirect(ctx); err != nil {
		s.logger.Warn("failed to clear redirect path", slog.Any("error", err))
	}

	s.mu.Lock()
	nav := s.navigator
	s.mu.Unlock()

	// Подписчики сессии могли уже отрендерить этот путь
	if nav == nil || nav.Current() == path {
		return
	}
	if err := nav.Replace(ctx, path); err != nil {
		s.logger.Warn("post-login navigation failed", slog.String("path", path), slog.Any("error", err))
	}
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Service) mockSigningKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mockKey == nil {
		key, err := newMockKey()
		if err != nil {
			return nil, err
		}
		s.mockKey = key
	}
	return s.mockKey, nil
}
