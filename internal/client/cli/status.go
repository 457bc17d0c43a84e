package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/iudanet/pongdash/internal/client/auth"
	"github.com/iudanet/pongdash/internal/models"
)

type statusView struct {
	Now           time.Time
	User          *models.Session
	Token         *auth.TokenInfo
	Authenticated bool
	Sealed        bool
}

func (c *Cli) runStatus(ctx context.Context) error {
	// Проверяем сохраненную сессию
	c.app.Bootstrap(ctx)

	view := statusView{
		Now:           time.Now(),
		User:          c.app.Session.CurrentUser(),
		Authenticated: c.app.Session.IsAuthenticated(),
		Sealed:        c.app.Store.Sealed(),
	}

	if view.Authenticated {
		info, err := c.app.Session.TokenInfo(ctx)
		if err != nil {
			c.app.Logger.Warn("failed to read token info", slog.Any("error", err))
		}
		view.Token = info
	}

	return c.render(statusTemplate, view)
}
