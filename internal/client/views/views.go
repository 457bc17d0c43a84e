// Package views описывает таблицу маршрутов клиента: шаблоны экранов,
// layout личного кабинета и действия, доступные на каждом экране.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/common-nighthawk/go-figure"

	"github.com/iudanet/pongdash/internal/client/router"
	"github.com/iudanet/pongdash/internal/models"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const (
	// BannerText текст ASCII-баннера на стартовой странице
	BannerText = "pongdash"
	// BannerFont шрифт go-figure для баннера
	BannerFont = "cybermedium"

	// CallbackPath маршрут завершения внешнего входа
	CallbackPath = "/auth/callback"
	// SetupPath маршрут первичной настройки профиля
	SetupPath = "/auth/setup"
)

//go:generate moq -out session_mock.go . Session

// Session is the part of the session store the views read from.
// *auth.Service implements it.
type Session interface {
	CurrentUser() *models.Session
	IsAuthenticated() bool
	CompleteExternalLogin(ctx context.Context, code string) (string, error)
}

// Navigator выполняет replace-навигацию из загрузчика вида
type Navigator interface {
	Replace(ctx context.Context, path string) error
}

// page описывает один маршрут таблицы
type page struct {
	path      string
	title     string
	template  string
	navLabel  string
	protected bool
	public    bool // только для неаутентифицированных
}

// pages повторяет таблицу маршрутов веб-клиента
var pages = []page{
	{path: "/", title: "Welcome", template: "landing", public: true},
	{path: CallbackPath, title: "Completing Authentication", template: "callback"},
	{path: "/login", title: "Login", template: "login", public: true},
	{path: "/register", title: "Create Account", template: "register", public: true},

	{path: "/dashboard", title: "Dashboard", template: "dashboard", navLabel: "Dashboard", protected: true},
	{path: "/game", title: "Play Game", template: "game", navLabel: "Game", protected: true},
	{path: "/chat", title: "Chat", template: "chat", navLabel: "Chat", protected: true},
	{path: "/profile", title: "Profile", template: "profile", navLabel: "Profile", protected: true},
	{path: "/tournament", title: "Tournament", template: "tournament", navLabel: "Tournament", protected: true},
	{path: "/settings", title: "Settings", template: "settings", navLabel: "Settings", protected: true},
	{path: SetupPath, title: "Complete Your Profile", template: "setup", protected: true},
}

// navItem пункт навигации dashboard layout
type navItem struct {
	Label  string
	Path   string
	Active bool
}

// pageData данные для шаблона экрана
type pageData struct {
	User      *models.Session
	Banner    string
	Location  router.Location
	MockLogin bool
}

// layoutData данные для dashboard layout
type layoutData struct {
	User    *models.Session
	Content string
	Nav     []navItem
	Actions []string
}

// Views рендерит экраны клиента из встроенных шаблонов
type Views struct {
	session   Session
	nav       Navigator
	logger    *slog.Logger
	tmpl      *template.Template
	banner    string
	mockLogin bool
}

// Option настраивает Views
type Option func(*Views)

// WithLogger задает логгер
func WithLogger(l *slog.Logger) Option {
	return func(v *Views) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithMockLogin показывает действие mock на публичных экранах
func WithMockLogin(enabled bool) Option {
	return func(v *Views) {
		v.mockLogin = enabled
	}
}

// New разбирает встроенные шаблоны и строит баннер
func New(session Session, nav Navigator, opts ...Option) (*Views, error) {
	tmpl, err := template.New("views").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse view templates: %w", err)
	}

	v := &Views{
		session: session,
		nav:     nav,
		logger:  slog.New(slog.DiscardHandler),
		tmpl:    tmpl,
		banner:  figure.NewFigure(BannerText, BannerFont, true).String(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Register добавляет все маршруты в роутер
func (v *Views) Register(r *router.Router) {
	for _, p := range pages {
		route := router.Route{
			Title:  p.title,
			Loader: v.loader(p),
			Guard:  v.guard(p),
		}
		if p.path == CallbackPath {
			route.Loader = v.callback
		}
		r.AddRoute(p.path, route)
	}

	r.AddRoute(router.NotFoundPath, router.Route{
		Title:  router.NotFoundTitle,
		Loader: v.loader(page{template: "notfound"}),
	})
}

func (v *Views) guard(p page) router.Guard {
	switch {
	case p.protected:
		return v.session.IsAuthenticated
	case p.public:
		return func() bool { return !v.session.IsAuthenticated() }
	default:
		return nil
	}
}

// loader возвращает загрузчик, исполняющий шаблон страницы;
// защищенные страницы оборачиваются в dashboard layout
func (v *Views) loader(p page) router.Loader {
	return func(ctx context.Context, loc router.Location) (string, error) {
		content, err := v.render(p.template, v.pageData(loc))
		if err != nil {
			return "", err
		}
		if !p.protected {
			return content, nil
		}
		return v.withLayout(loc.Path, content)
	}
}

// callback обменивает код внешнего провайдера на сессию и уходит
// на возвращенный путь; при ошибке или без кода уходит на стартовую
func (v *Views) callback(ctx context.Context, loc router.Location) (string, error) {
	content, err := v.render("callback", v.pageData(loc))
	if err != nil {
		return "", err
	}

	target := router.PublicLanding
	if code := loc.Query.Get("code"); code != "" {
		redirect, err := v.session.CompleteExternalLogin(ctx, code)
		if err != nil {
			v.logger.Warn("auth callback failed", slog.Any("error", err))
		} else {
			target = redirect
		}
	}

	if err := v.nav.Replace(ctx, target); err != nil {
		v.logger.Warn("callback navigation failed", slog.String("path", target), slog.Any("error", err))
	}

	return content, nil
}

// withLayout вставляет content в dashboard layout с данными пользователя
func (v *Views) withLayout(active, content string) (string, error) {
	data := layoutData{
		User:    v.user(),
		Content: strings.TrimRight(content, "\n"),
		Actions: Actions(active),
	}
	for _, p := range pages {
		if p.navLabel == "" {
			continue
		}
		data.Nav = append(data.Nav, navItem{Label: p.navLabel, Path: p.path, Active: p.path == active})
	}

	return v.render("layout", data)
}

func (v *Views) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s view: %w", name, err)
	}
	return buf.String(), nil
}

func (v *Views) pageData(loc router.Location) pageData {
	return pageData{
		User:      v.user(),
		Banner:    v.banner,
		Location:  loc,
		MockLogin: v.mockLogin,
	}
}

// user возвращает текущую Session или пустую, чтобы шаблоны
// подставили значения по умолчанию
func (v *Views) user() *models.Session {
	if u := v.session.CurrentUser(); u != nil {
		return u
	}
	return &models.Session{}
}
