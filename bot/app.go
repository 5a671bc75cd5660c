// Package bot is the Telegram surface of the relay gateway: commands
// and callbacks for owner administration, room selection menus and the
// per-user payload routing that feeds the relay dispatcher.
package bot

import (
	"context"

	coreconfig "roomrelay/core/config"
	"roomrelay/core/logger"
	tg "roomrelay/core/telegram"
	tghelpers "roomrelay/core/telegram/helpers"
	"roomrelay/core/telegram/router"
	"roomrelay/relay"
	"roomrelay/session"

	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// App wires the relay domain onto the bot runtime.
type App struct {
	cfg      *coreconfig.Config
	svc      *relay.Service
	sessions *session.Manager
	registry *tg.Registry

	// dispatch is bound in OnStart, once the bot client exists and
	// before any update is processed.
	dispatch *relay.Dispatcher
}

// NewApp builds the application and registers all commands and
// callbacks on a fresh registry.
func NewApp(cfg *coreconfig.Config, svc *relay.Service, sessions *session.Manager) *App {
	a := &App{
		cfg:      cfg,
		svc:      svc,
		sessions: sessions,
		registry: tg.NewRegistry(),
	}
	a.registerCommands()
	a.registerCallbacks()

	a.registry.SetTextFallback(func(c tele.Context) error {
		return tghelpers.SendText(c, "❓ Unknown command. Use /start.")
	})
	a.registry.SetCallbackNotFound(func(c tele.Context) error {
		return tghelpers.SendText(c, "⚠️ This button is no longer active.")
	})

	logger.Debug(logger.Background(), "tg.wire", "register.done",
		slog.Int("count", len(a.registry.ListCallbacks())),
	)
	return a
}

// RunOptions assembles the bot runtime configuration.
func (a *App) RunOptions() tg.RunOptions {
	onLimited := func(c tele.Context) error {
		return c.Send("⏳ Too many requests, please slow down.")
	}
	return tg.RunOptions{
		Config:      a.cfg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, onLimited),
		Routes:      a.routes(),
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.dispatch = relay.NewDispatcher(a.svc, newTransport(rt.Bot))
			tg.InitBotCommands(rt.Bot, a.registry)
			logger.Info(ctx, "bot", "ready",
				slog.String("mode", a.cfg.Telegram.RunMode),
			)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			logger.Info(ctx, "bot", "shutdown")
			return nil
		},
	}
}

func (a *App) routes() []tg.Route {
	routes := router.MessageRoutes(a, a.registry)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	return routes
}
