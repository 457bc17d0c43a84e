package router

import (
	"context"
	"net/url"
)

// NotFoundPath зарезервированный путь fallback-маршрута
const NotFoundPath = "*"

// NotFoundTitle заголовок и текст встроенной страницы 404
const NotFoundTitle = "404 - Page Not Found"

// Loader возвращает содержимое вида. Может выполнять I/O.
type Loader func(ctx context.Context, loc Location) (string, error)

// Guard синхронный предикат над состоянием сессии; не должен выполнять I/O
type Guard func() bool

// Route запись таблицы маршрутов
type Route struct {
	Loader Loader
	Guard  Guard
	Title  string
	Path   string
}

// Location путь и query текущей записи истории
type Location struct {
	Query url.Values
	Path  string
	Raw   string
}

// ParseLocation разбирает "/path?x=1" на путь и query
func ParseLocation(raw string) Location {
	if raw == "" {
		raw = "/"
	}

	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return Location{Raw: raw, Path: raw, Query: url.Values{}}
	}

	return Location{Raw: raw, Path: u.Path, Query: u.Query()}
}

// Screen принимает результат рендеринга
type Screen interface {
	SetTitle(title string)
	SetContent(content string)
	SetActive(path string)
}

// ViewReadyEvent отправляется после вставки нового содержимого
type ViewReadyEvent struct {
	Location Location
	Route    Route
	Path     string
}

// ViewReadyFunc подписчик на ViewReadyEvent
type ViewReadyFunc func(ViewReadyEvent)

// NavigateOptions параметры Navigate
type NavigateOptions struct {
	Replace bool
}

// State состояние роутера
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateRendering
	StateRendered
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateRendering:
		return "rendering"
	case StateRendered:
		return "rendered"
	default:
		return "unknown"
	}
}
