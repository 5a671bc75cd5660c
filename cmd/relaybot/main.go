// Command relaybot runs the message relay gateway: anonymous users
// send messages into named rooms and admins reply back through the
// bot without either side learning the other's contact.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"roomrelay/bot"
	"roomrelay/core/buildinfo"
	"roomrelay/core/config"
	"roomrelay/core/logger"
	"roomrelay/core/telegram"
	"roomrelay/relay"
	"roomrelay/session"
	"roomrelay/store"

	"log/slog"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("relaybot: %v", err)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.InitLogger(cfg); err != nil {
		return err
	}
	defer logger.Shutdown()

	st := store.NewFileStore(cfg.Storage.Path)
	svc, err := relay.NewService(st)
	if err != nil {
		// A snapshot that exists but cannot be decoded must never be
		// overwritten by an empty one; refuse to start instead.
		logger.Error(logger.Background(), "app", "startup.failed",
			slog.String("err", err.Error()),
			slog.String("path", st.Path()),
		)
		return err
	}

	app := bot.NewApp(cfg, svc, session.NewManager())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "app", "starting",
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
	)

	if err := telegram.RunBot(ctx, app.RunOptions()); err != nil {
		logger.Error(ctx, "app", "run.failed",
			slog.String("err", err.Error()),
		)
		return err
	}

	logger.Info(logger.Background(), "app", "stopped")
	return nil
}
