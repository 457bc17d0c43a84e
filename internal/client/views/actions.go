package views

import (
	"context"
	"slices"

	"github.com/iudanet/pongdash/internal/client/router"
)

// Имена действий, которые интерактивный shell привязывает к экрану
const (
	ActionLogin         = "login"
	ActionLoginExternal = "login-external"
	ActionRegister      = "register"
	ActionMock          = "mock"
	ActionLogout        = "logout"
	ActionMatches       = "matches"
	ActionFriends       = "friends"
	ActionName          = "name"
	ActionAvatar        = "avatar"
	ActionVerify        = "verify"
)

var actionsByPath = map[string][]string{
	"/":           {ActionLoginExternal, ActionLogin, ActionRegister, ActionMock},
	"/login":      {ActionLogin, ActionLoginExternal, ActionMock},
	"/register":   {ActionRegister, ActionLoginExternal},
	"/dashboard":  {ActionMatches, ActionFriends, ActionLogout},
	"/game":       {ActionMatches, ActionLogout},
	"/chat":       {ActionFriends, ActionLogout},
	"/profile":    {ActionName, ActionAvatar, ActionLogout},
	"/tournament": {ActionLogout},
	"/settings":   {ActionName, ActionAvatar, ActionVerify, ActionLogout},
	SetupPath:     {ActionName, ActionAvatar},
}

// Actions возвращает действия, доступные на экране path
func Actions(path string) []string {
	return slices.Clone(actionsByPath[path])
}

// Start выполняет первичную навигацию при запуске клиента:
// с сессией на "/" уходит в кабинет, без сессии вне "/" уходит на "/",
// иначе разрешает текущую запись истории. CallbackPath всегда
// разрешается как есть, иначе код провайдера был бы потерян.
func Start(ctx context.Context, r *router.Router, authenticated bool) error {
	path := router.ParseLocation(r.History().Location()).Path

	switch {
	case path == CallbackPath:
		return r.HandleRoute(ctx)
	case authenticated && path == router.PublicLanding:
		return r.Replace(ctx, router.AuthenticatedLanding)
	case !authenticated && path != router.PublicLanding:
		return r.Replace(ctx, router.PublicLanding)
	default:
		return r.HandleRoute(ctx)
	}
}
