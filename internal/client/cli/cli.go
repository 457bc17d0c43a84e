package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	clientapi "github.com/iudanet/pongdash/internal/client/api"
	"github.com/iudanet/pongdash/internal/client/app"
	"github.com/iudanet/pongdash/internal/client/config"
	"github.com/iudanet/pongdash/internal/client/iocli"
	"github.com/iudanet/pongdash/internal/logging"
	"github.com/iudanet/pongdash/internal/validation"
)

// ErrNotAuthenticated команда требует активной сессии
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'pongdash login' first")

// annotationNoApp помечает команды, которым не нужен App
const annotationNoApp = "pongdash/no-app"

// BuildInfo информация о сборке, задается через ldflags
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Cli связывает команды cobra с App
type Cli struct {
	io        iocli.IO
	stderr    io.Writer
	lookupEnv config.LookupEnv
	app       *app.App
	build     BuildInfo
}

// New создает Cli. lookupEnv обычно os.LookupEnv.
func New(term iocli.IO, stderr io.Writer, lookupEnv config.LookupEnv, build BuildInfo) *Cli {
	return &Cli{
		io:        term,
		stderr:    stderr,
		lookupEnv: lookupEnv,
		build:     build,
	}
}

// Execute разбирает args, выполняет команду и освобождает ресурсы App
func (c *Cli) Execute(ctx context.Context, args []string) error {
	root := c.NewRootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)

	if c.app != nil {
		if cerr := c.app.Close(); cerr != nil {
			_, _ = fmt.Fprintf(c.stderr, "Warning: %v\n", cerr)
		}
		c.app = nil
	}

	return err
}

// setup загружает конфигурацию и собирает App
func (c *Cli) setup(cmd *cobra.Command) error {
	if cmd.Annotations[annotationNoApp] != "" {
		return nil
	}

	cfg, err := config.Load(cmd.Flags(), c.lookupEnv)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, c.stderr)
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, c.io, logger, app.Options{})
	if err != nil {
		return err
	}
	c.app = a

	logger.Debug("client initialized",
		slog.String("api", cfg.APIBaseURL),
		slog.String("db", cfg.DBPath),
		slog.Bool("sealed", a.Store.Sealed()),
	)

	return nil
}

// requireSession восстанавливает сессию и проверяет, что она есть
func (c *Cli) requireSession(ctx context.Context) error {
	c.app.Bootstrap(ctx)
	if !c.app.Session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// failureMessage возвращает сообщение ошибки для пользователя
// или fallback, если ошибка его не несет
func failureMessage(err error, fallback string) string {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	return clientapi.MessageOf(err, fallback)
}
