package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/iudanet/pongdash/internal/client/router"
	"github.com/iudanet/pongdash/internal/client/views"
)

const shellPrompt = "pongdash> "

// actionFunc обработчик действия экрана
type actionFunc func(ctx context.Context, args []string) error

// shell интерактивный режим. Набор доступных действий
// перепривязывается на каждый сигнал view-ready.
type shell struct {
	cli      *Cli
	handlers map[string]actionFunc
	bound    []string
	path     string
	mu       sync.Mutex
}

func newShell(c *Cli) *shell {
	return &shell{
		cli: c,
		handlers: map[string]actionFunc{
			views.ActionLogin: func(ctx context.Context, args []string) error {
				email := ""
				if len(args) > 0 {
					email = args[0]
				}
				return c.runLogin(ctx, email)
			},
			views.ActionLoginExternal: func(ctx context.Context, _ []string) error {
				return c.runLoginExternal(ctx, "")
			},
			views.ActionRegister: func(ctx context.Context, _ []string) error {
				return c.runRegister(ctx)
			},
			views.ActionMock: func(ctx context.Context, _ []string) error {
				return c.runMockLogin(ctx)
			},
			views.ActionLogout: func(ctx context.Context, _ []string) error {
				return c.runLogout(ctx)
			},
			views.ActionMatches: func(ctx context.Context, _ []string) error {
				return c.runMatches(ctx)
			},
			views.ActionFriends: c.runFriends,
			views.ActionName:    c.runProfileName,
			views.ActionAvatar:  c.runProfileAvatar,
			views.ActionVerify:  c.runVerify,
		},
	}
}

// rebind привязывает действия нового экрана
func (s *shell) rebind(ev router.ViewReadyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = ev.Path
	s.bound = views.Actions(ev.Path)
}

// lookup возвращает обработчик, если действие привязано к текущему экрану
func (s *shell) lookup(name string) (actionFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.bound, name) {
		return nil, false
	}
	fn, ok := s.handlers[name]
	return fn, ok
}

func (s *shell) current() (string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, slices.Clone(s.bound)
}

// exec выполняет одну строку ввода. Возвращает true для выхода.
func (s *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	c := s.cli
	name, args := fields[0], fields[1:]

	var err error
	switch name {
	case "quit", "exit":
		return true
	case "help":
		s.help()
		return false
	case "go":
		if len(args) == 0 {
			c.io.Println("Usage: go <path>")
			return false
		}
		err = c.app.Router.Navigate(ctx, args[0], router.NavigateOptions{})
	case "back":
		err = c.app.Router.Back(ctx)
	case "forward":
		err = c.app.Router.Forward(ctx)
	default:
		fn, ok := s.lookup(name)
		if !ok {
			c.io.Printf("Action %q is not available on this screen. Type 'help'.\n", name)
			return false
		}
		err = fn(ctx, args)
	}

	if err != nil {
		c.app.Logger.Debug("shell action failed", slog.String("action", name), slog.Any("error", err))
		if errors.Is(err, context.Canceled) {
			return true
		}
	}
	return false
}

func (s *shell) help() {
	c := s.cli
	path, actions := s.current()
	c.io.Printf("Actions on %s:\n", path)
	for _, a := range actions {
		c.io.Printf("  %s\n", a)
	}
	c.io.Println("Navigation:")
	c.io.Println("  go <path>   open a screen, e.g. go /profile")
	c.io.Println("  back        previous screen")
	c.io.Println("  forward     next screen")
	c.io.Println("  quit        leave the shell")
}

// runShell интерактивный цикл: экран, приглашение, действие
func (c *Cli) runShell(ctx context.Context) error {
	sh := newShell(c)

	// Подписка до Start, чтобы привязать действия первого экрана
	unsubscribe := c.app.Router.OnViewReady(sh.rebind)
	defer unsubscribe()

	if err := c.app.Start(ctx); err != nil {
		return err
	}

	for {
		line, err := c.io.ReadInput(shellPrompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if sh.exec(ctx, line) {
			return nil
		}
	}
}
