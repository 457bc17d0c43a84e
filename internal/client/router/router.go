package router

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

const (
	// AuthenticatedLanding куда редиректит guard при наличии сессии
	AuthenticatedLanding = "/dashboard"
	// PublicLanding куда редиректит guard без сессии
	PublicLanding = "/"

	// DefaultTitle заголовок маршрута без явного Title
	DefaultTitle = "pongdash"

	// maxRedirects ограничивает цепочку guard-редиректов
	maxRedirects = 8
)

type redirectDepthKey struct{}

// AuthState сообщает роутеру, есть ли активная сессия
type AuthState func() bool

type viewReadyEntry struct {
	fn ViewReadyFunc
	id uint64
}

// Router maps paths to lazily loaded views, evaluates guards before
// rendering and emits a view-ready signal after every render.
//
// Each resolution takes a token from a monotonically increasing counter;
// its output reaches the Screen only while the token is still the latest,
// so a slow resolution cannot overwrite a newer one.
type Router struct {
	screen        Screen
	history       *History
	authenticated AuthState
	logger        *slog.Logger
	routes        map[string]Route
	viewReady     []viewReadyEntry
	current       string
	token         atomic.Uint64
	state         atomic.Int32
	nextID        uint64
	mu            sync.RWMutex
}

// Option настраивает Router
type Option func(*Router)

// WithHistory задает историю (по умолчанию NewHistory("/"))
func WithHistory(h *History) Option {
	return func(r *Router) {
		if h != nil {
			r.history = h
		}
	}
}

// WithAuthState задает предикат аутентификации для guard-редиректов
func WithAuthState(fn AuthState) Option {
	return func(r *Router) {
		r.authenticated = fn
	}
}

// WithLogger задает логгер
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// New создает роутер, рендерящий на screen
func New(screen Screen, opts ...Option) *Router {
	r := &Router{
		screen:        screen,
		history:       NewHistory(PublicLanding),
		authenticated: func() bool { return false },
		logger:        slog.New(slog.DiscardHandler),
		routes:        make(map[string]Route),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// AddRoute регистрирует маршрут. Повторная регистрация заменяет запись.
func (r *Router) AddRoute(path string, route Route) {
	if route.Title == "" {
		route.Title = DefaultTitle
	}
	route.Path = path

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[path] = route
}

// Route возвращает зарегистрированный маршрут
func (r *Router) Route(path string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[path]
	return route, ok
}

// History возвращает историю навигации
func (r *Router) History() *History {
	return r.history
}

// Current возвращает путь последнего завершенного рендера
func (r *Router) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// State возвращает текущее состояние
func (r *Router) State() State {
	return State(r.state.Load())
}

// OnViewReady подписывает fn на сигнал view-ready
func (r *Router) OnViewReady(fn ViewReadyFunc) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.viewReady = append(r.viewReady, viewReadyEntry{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.viewReady = slices.DeleteFunc(r.viewReady, func(e viewReadyEntry) bool {
				return e.id == id
			})
		})
	}
}

// Navigate обновляет историю (push или replace) и разрешает маршрут
func (r *Router) Navigate(ctx context.Context, path string, opts NavigateOptions) error {
	r.logger.Debug("navigating", slog.String("path", path), slog.Bool("replace", opts.Replace))

	// Guard целевого маршрута проверяется до push:
	// неудачная попытка не добавляет запись в историю
	if !opts.Replace && !r.guardAllows(ParseLocation(path).Path) {
		return r.redirect(ctx, path)
	}

	if opts.Replace {
		r.history.Replace(path)
	} else {
		r.history.Push(path)
	}

	return r.HandleRoute(ctx)
}

// Replace навигация с replace-семантикой
func (r *Router) Replace(ctx context.Context, path string) error {
	return r.Navigate(ctx, path, NavigateOptions{Replace: true})
}

// Back переходит на предыдущую запись истории и разрешает ее
func (r *Router) Back(ctx context.Context) error {
	if _, ok := r.history.Back(); !ok {
		return nil
	}
	return r.HandleRoute(ctx)
}

// Forward переходит на следующую запись истории и разрешает ее
func (r *Router) Forward(ctx context.Context) error {
	if _, ok := r.history.Forward(); !ok {
		return nil
	}
	return r.HandleRoute(ctx)
}

// HandleRoute разрешает текущую запись истории.
// Ошибки загрузки вида не возвращаются: вместо них рендерится 404.
func (r *Router) HandleRoute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	token := r.token.Add(1)
	loc := ParseLocation(r.history.Location())
	r.setState(token, StateResolving)

	r.logger.Debug("handling route", slog.String("path", loc.Path), slog.Uint64("token", token))

	// 1. Точное совпадение, иначе fallback
	route, ok := r.Route(loc.Path)
	if !ok {
		r.logger.Debug("route not found, using 404", slog.String("path", loc.Path))
		route, ok = r.Route(NotFoundPath)
		if !ok {
			r.renderBuiltinNotFound(token)
			return nil
		}
	}

	// 2. Guard
	if route.Guard != nil && !route.Guard() {
		r.setState(token, StateIdle)
		return r.redirect(ctx, loc.Path)
	}

	// 3-7. Рендеринг
	if err := r.render(ctx, token, loc, route); err != nil {
		r.logger.Warn("route handling failed", slog.String("path", loc.Path), slog.Any("error", err))
		r.renderNotFound(ctx, token, loc)
	}

	return nil
}

// redirect уводит с маршрута, чей guard не прошел, с replace-семантикой
func (r *Router) redirect(ctx context.Context, from string) error {
	target := PublicLanding
	if r.authenticated != nil && r.authenticated() {
		target = AuthenticatedLanding
	}

	depth, _ := ctx.Value(redirectDepthKey{}).(int)
	if depth >= maxRedirects {
		r.logger.Error("guard redirect loop", slog.String("from", from), slog.String("to", target))
		r.renderNotFound(ctx, r.token.Add(1), ParseLocation(from))
		return nil
	}

	r.logger.Debug("route guard failed, redirecting", slog.String("from", from), slog.String("to", target))

	return r.Replace(context.WithValue(ctx, redirectDepthKey{}, depth+1), target)
}

// guardAllows проверяет guard маршрута, который обслужит path
func (r *Router) guardAllows(path string) bool {
	route, ok := r.Route(path)
	if !ok {
		route, ok = r.Route(NotFoundPath)
	}
	return !ok || route.Guard == nil || route.Guard()
}

// render выполняет шаги title → loader → content → active → view-ready → current
func (r *Router) render(ctx context.Context, token uint64, loc Location, route Route) error {
	if !r.isCurrent(token) {
		return nil
	}
	r.screen.SetTitle(route.Title)

	content, err := r.load(ctx, route, loc)
	if err != nil {
		return err
	}

	if !r.isCurrent(token) {
		r.logger.Debug("stale resolution discarded", slog.String("path", loc.Path), slog.Uint64("token", token))
		return nil
	}

	r.setState(token, StateRendering)
	r.screen.SetContent(content)
	r.screen.SetActive(loc.Path)

	r.emitViewReady(ViewReadyEvent{Path: loc.Path, Route: route, Location: loc})

	r.mu.Lock()
	if r.isCurrent(token) {
		r.current = loc.Path
	}
	r.mu.Unlock()

	r.setState(token, StateRendered)
	r.setState(token, StateIdle)

	return nil
}

// load вызывает loader, превращая panic в ошибку
func (r *Router) load(ctx context.Context, route Route, loc Location) (content string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("view loader panicked: %v", rec)
		}
	}()

	if route.Loader == nil {
		return "", nil
	}

	return route.Loader(ctx, loc)
}

// renderNotFound рендерит fallback-маршрут; его ошибки не выходят наружу
func (r *Router) renderNotFound(ctx context.Context, token uint64, loc Location) {
	route, ok := r.Route(NotFoundPath)
	if !ok {
		r.renderBuiltinNotFound(token)
		return
	}

	content, err := r.load(ctx, route, loc)
	if err != nil {
		r.logger.Error("not found view failed", slog.Any("error", err))
		r.renderBuiltinNotFound(token)
		return
	}

	if !r.isCurrent(token) {
		return
	}
	r.screen.SetTitle(route.Title)
	r.screen.SetContent(content)
	r.setState(token, StateIdle)
}

func (r *Router) renderBuiltinNotFound(token uint64) {
	if !r.isCurrent(token) {
		return
	}
	r.screen.SetTitle(NotFoundTitle)
	r.screen.SetContent(NotFoundTitle)
	r.setState(token, StateIdle)
}

func (r *Router) emitViewReady(ev ViewReadyEvent) {
	r.mu.RLock()
	listeners := slices.Clone(r.viewReady)
	r.mu.RUnlock()

	for _, l := range listeners {
		l.fn(ev)
	}
}

func (r *Router) isCurrent(token uint64) bool {
	return r.token.Load() == token
}

// setState меняет состояние только от имени актуального разрешения
func (r *Router) setState(token uint64, s State) {
	if r.isCurrent(token) {
		r.state.Store(int32(s))
	}
}
