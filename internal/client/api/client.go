package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/iudanet/pongdash/pkg/api"
)

const (
	// DefaultBaseURL адрес API по умолчанию
	DefaultBaseURL = "http://localhost:3000/api"
	// DefaultTimeout таймаут HTTP запроса по умолчанию
	DefaultTimeout = 30 * time.Second

	// HeaderRequestID заголовок для корреляции запросов в логах
	HeaderRequestID = "X-Request-ID"

	// maxRetries ограничивает число повторов после обновления токена
	maxRetries = 1
)

// errCredentialsChanged возвращается, если токен сменили во время refresh
var errCredentialsChanged = errors.New("credentials changed during token refresh")

// TokenStore gives the Client access to persisted credentials for the
// refresh flow.
//
//go:generate moq -out tokenstore_mock.go . TokenStore
type TokenStore interface {
	// RefreshToken returns the persisted refresh token
	RefreshToken(ctx context.Context) (string, error)
	// SaveAccessToken persists a freshly issued access token
	SaveAccessToken(ctx context.Context, token string) error
}

// RequestOptions описывает один вызов Send
type RequestOptions struct {
	// Body кодируется в JSON, если RawBody не задан
	Body any
	// Headers переопределяют заголовки по умолчанию; пустое значение удаляет заголовок
	Headers map[string]string
	Query   url.Values
	Method  string
	RawBody []byte
}

// Client представляет HTTP клиент для взаимодействия с API
type Client struct {
	httpClient *http.Client
	tokens     TokenStore
	logger     *slog.Logger
	headers    http.Header
	refreshes  singleflight.Group
	baseURL    string
	// epoch растет при каждой смене bearer токена
	epoch  uint64
	mu     sync.RWMutex
	authMu sync.Mutex
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient подменяет HTTP клиент (тесты, кастомный транспорт)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout задает таймаут HTTP запроса
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTokenStore подключает хранилище токенов для refresh flow
func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger задает логгер
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Ограничиваем количество редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
		logger: slog.New(slog.DiscardHandler),
		headers: http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetAuthToken устанавливает bearer токен для всех последующих запросов.
// Пустая строка удаляет заголовок Authorization.
func (c *Client) SetAuthToken(token string) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	c.epoch++
	c.setHeader(token)
}

// authEpoch возвращает текущее поколение bearer токена
func (c *Client) authEpoch() uint64 {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	return c.epoch
}

func (c *Client) setHeader(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token == "" {
		c.headers.Del("Authorization")
		return
	}
	c.headers.Set("Authorization", "Bearer "+token)
}

// AuthToken возвращает текущий bearer токен или пустую строку
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	const prefix = "Bearer "
	v := c.headers.Get("Authorization")
	if len(v) <= len(prefix) {
		return ""
	}
	return v[len(prefix):]
}

// sendState состояние одного вызова Send
type sendState int

const (
	stateSending sendState = iota
	stateRefreshing
	stateRetrying
	stateDone
)

func (s sendState) String() string {
	switch s {
	case stateSending:
		return "sending"
	case stateRefreshing:
		return "refreshing"
	case stateRetrying:
		return "retrying"
	default:
		return "done"
	}
}

// rawResponse буферизованный ответ сервера
type rawResponse struct {
	body   []byte
	status int
}

// Send выполняет запрос к endpoint и декодирует успешный ответ в result.
//
// Ответ 401 на любой endpoint, кроме refresh, запускает одно обновление
// токена и, если оно удалось, ровно один повтор исходного запроса.
// Если обновить токен не удалось, возвращается исходная ошибка 401.
func (c *Client) Send(ctx context.Context, endpoint string, opts RequestOptions, result any) error {
	payload, err := encodeBody(opts)
	if err != nil {
		return NewTransportError(err)
	}

	requestID := uuid.NewString()

	var (
		state   = stateSending
		retries int
		resp    *rawResponse
	)

	for state != stateDone {
		switch state {
		case stateSending, stateRetrying:
			resp, err = c.do(ctx, endpoint, opts, payload, requestID)
			if err != nil {
				return NewTransportError(err)
			}

			if resp.status == http.StatusUnauthorized &&
				endpoint != api.PathRefreshToken &&
				retries < maxRetries {
				state = stateRefreshing
				continue
			}
			state = stateDone

		case stateRefreshing:
			retries++
			if c.refresh(ctx) {
				c.logger.Debug("retrying request after token refresh",
					slog.String("endpoint", endpoint),
					slog.String("request_id", requestID))
				state = stateRetrying
			} else {
				state = stateDone
			}
		}
	}

	return decodeResponse(resp, result)
}

// do выполняет одну HTTP попытку
func (c *Client) do(ctx context.Context, endpoint string, opts RequestOptions, payload []byte, requestID string) (*rawResponse, error) {
	target := c.baseURL + endpoint
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Заголовки: по умолчанию (включая Authorization), затем переопределения
	c.mu.RLock()
	req.Header = c.headers.Clone()
	c.mu.RUnlock()

	for k, v := range opts.Headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	req.Header.Set(HeaderRequestID, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)))

	return &rawResponse{status: resp.StatusCode, body: respBody}, nil
}

// refresh обновляет access token; параллельные вызовы объединяются в один.
// Общий обмен не зависит от отмены ctx первого вызывающего и ограничен
// таймаутом HTTP клиента; каждый вызывающий ждет его не дольше своего ctx.
func (c *Client) refresh(ctx context.Context) bool {
	if c.tokens == nil {
		return false
	}

	ch := c.refreshes.DoChan(api.PathRefreshToken, func() (any, error) {
		rctx, cancel := c.refreshContext(ctx)
		defer cancel()
		return c.refreshAccessToken(rctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("token refresh failed", slog.Any("error", res.Err))
			return false
		}
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) refreshContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.httpClient.Timeout > 0 {
		return context.WithTimeout(detached, c.httpClient.Timeout)
	}
	return context.WithCancel(detached)
}

func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	epoch := c.authEpoch()

	// 1. Берем refresh token из хранилища
	refreshToken, err := c.tokens.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load refresh token: %w", err)
	}
	if refreshToken == "" {
		return "", fmt.Errorf("no refresh token stored")
	}

	// 2. Обмениваем его на новый access token
	resp, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("refresh response has no access token")
	}

	// 3. Сохраняем и устанавливаем, только если токен не сменили (logout, новый login)
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if c.epoch != epoch {
		return "", errCredentialsChanged
	}
	if err := c.tokens.SaveAccessToken(ctx, resp.AccessToken); err != nil {
		return "", fmt.Errorf("failed to persist access token: %w", err)
	}
	c.epoch++
	c.setHeader(resp.AccessToken)

	return resp.AccessToken, nil
}

// encodeBody буферизует тело запроса, чтобы повтор отправил те же байты
func encodeBody(opts RequestOptions) ([]byte, error) {
	if opts.RawBody != nil {
		return opts.RawBody, nil
	}
	if opts.Body == nil {
		return nil, nil
	}

	data, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return data, nil
}

// decodeResponse переводит ответ в результат или APIError
func decodeResponse(resp *rawResponse, result any) error {
	if resp.status < 200 || resp.status >= 300 {
		apiErr := &APIError{
			Message: MessageRequestFailed,
			Status:  resp.status,
		}

		var errResp api.ErrorResponse
		if err := json.Unmarshal(resp.body, &errResp); err == nil {
			if errResp.Message != "" {
				apiErr.Message = errResp.Message
			}
			apiErr.Code = errResp.Code
		}
		return apiErr
	}

	// Пустое тело допустимо (204 No Content)
	if result == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.body, result); err != nil {
		return NewTransportError(fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}
