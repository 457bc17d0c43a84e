// Package oauth реализует вход через внешнего провайдера для терминального
// клиента: ссылка авторизации со случайным state и loopback-listener,
// принимающий code на /auth/callback.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	// DefaultAuthorizeURL точка входа провайдера на API сервере
	DefaultAuthorizeURL = "http://localhost:3000/api/auth/42/login"
	// DefaultCallbackAddr адрес loopback-listener
	DefaultCallbackAddr = "127.0.0.1:8765"
	// CallbackPath путь, на который провайдер возвращает code
	CallbackPath = "/auth/callback"
)

var (
	// ErrStateMismatch провайдер вернул чужой state
	ErrStateMismatch = errors.New("oauth state mismatch")
	// ErrMissingCode провайдер не вернул code
	ErrMissingCode = errors.New("authorization code is missing")
	// ErrAuthorizationDenied провайдер вернул error
	ErrAuthorizationDenied = errors.New("authorization denied")
)

// Config параметры внешнего входа
type Config struct {
	AuthorizeURL string
	ClientID     string
	CallbackAddr string
	Scopes       []string
}

// Opener показывает пользователю ссылку авторизации
// (печатает ее или открывает браузер)
type Opener func(authURL string) error

// Flow выполняет один вход через провайдера
type Flow struct {
	cfg      Config
	logger   *slog.Logger
	newState func() string
}

// Option настраивает Flow
type Option func(*Flow)

// WithLogger задает логгер
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFlow создает Flow; пустые поля конфигурации заменяются значениями по умолчанию
func NewFlow(cfg Config, opts ...Option) *Flow {
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}
	if cfg.CallbackAddr == "" {
		cfg.CallbackAddr = DefaultCallbackAddr
	}

	f := &Flow{
		cfg:      cfg,
		logger:   slog.New(slog.DiscardHandler),
		newState: uuid.NewString,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

type callbackResult struct {
	err  error
	code string
}

// Run поднимает loopback-listener, передает ссылку авторизации в open
// и ждет возврата провайдера. Возвращает code для обмена на токены.
func (f *Flow) Run(ctx context.Context, open Opener) (string, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", f.cfg.CallbackAddr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback listener: %w", err)
	}

	state := f.newState()
	redirectURL := (&url.URL{Scheme: "http", Host: ln.Addr().String(), Path: CallbackPath}).String()

	conf := &oauth2.Config{
		ClientID:    f.cfg.ClientID,
		RedirectURL: redirectURL,
		Scopes:      f.cfg.Scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: f.cfg.AuthorizeURL},
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, f.callbackHandler(state, results))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("callback listener failed", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			f.logger.Warn("callback listener shutdown failed", slog.Any("error", err))
		}
	}()

	authURL := conf.AuthCodeURL(state)
	f.logger.Debug("external login started", slog.String("redirect_url", redirectURL))

	if err := open(authURL); err != nil {
		return "", fmt.Errorf("failed to open authorization url: %w", err)
	}

	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// callbackHandler принимает первый ответ провайдера; повторные игнорируются
func (f *Flow) callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s %s", ErrAuthorizationDenied, q.Get("error"), q.Get("error_description"))
		case q.Get("state") != state:
			res.err = ErrStateMismatch
		case q.Get("code") == "":
			res.err = ErrMissingCode
		default:
			res.code = q.Get("code")
		}

		select {
		case results <- res:
		default:
		}

		if res.err != nil {
			f.logger.Warn("external login callback rejected", slog.Any("error", res.err))
			http.Error(w, "Authentication failed. You can close this window.", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Authentication complete. You can return to the terminal.\n"))
	}
}
