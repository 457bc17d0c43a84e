package auth

import "errors"

var (
	// ErrNotAuthenticated операция требует активной сессии
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionChanged результат запроса отброшен: за время запроса сменилась сессия
	ErrSessionChanged = errors.New("session changed while request was in flight")

	// ErrMockLoginDisabled mock-вход доступен только в режиме разработки
	ErrMockLoginDisabled = errors.New("mock login is disabled")
)
