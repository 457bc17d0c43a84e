package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iudanet/pongdash/internal/devserver"
	"github.com/iudanet/pongdash/internal/logging"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := devserver.DefaultConfig()
	cfg.Version = Version

	flags := pflag.NewFlagSet("pongdash-devserver", pflag.ExitOnError)
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	secret := flags.String("secret", "", "JWT signing secret (random when empty)")
	flags.DurationVar(&cfg.AccessTokenTTL, "access-ttl", cfg.AccessTokenTTL, "access token lifetime")
	flags.DurationVar(&cfg.RefreshTokenTTL, "refresh-ttl", cfg.RefreshTokenTTL, "refresh token lifetime")
	flags.StringVar(&cfg.TwoFactorCode, "2fa-code", cfg.TwoFactorCode, "code accepted by /auth/2fa/verify")
	flags.IntVar(&cfg.AuthRateLimit, "auth-rate-limit", cfg.AuthRateLimit, "login/register requests per minute per address, 0 disables")
	seed := flags.Bool("seed", false, "create the demo account "+devserver.DemoEmail)
	logLevel := flags.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flags.String("log-format", "text", "log format: text or json")
	showVersion := flags.Bool("version", false, "show version information")

	// pflag.ExitOnError завершает процесс сам
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		printVersion()
		return nil
	}

	logger, err := logging.New(*logLevel, *logFormat, os.Stderr)
	if err != nil {
		return err
	}
	cfg.Secret = []byte(*secret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := devserver.New(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	if *seed {
		if err := srv.Seed(ctx); err != nil {
			return err
		}
		logger.Info("demo account ready",
			slog.String("email", devserver.DemoEmail),
			slog.String("password", devserver.DemoPassword))
	}

	return srv.Run(ctx)
}

func printVersion() {
	fmt.Printf("pongdash dev server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
