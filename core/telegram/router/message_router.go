package router

import (
	"strings"
	"time"

	tg "roomrelay/core/telegram"
	"roomrelay/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Sessions is the minimal interface the router needs from the per-user
// session state machine: every non-command payload is interpreted by it.
type Sessions interface {
	HandlePayload(c tele.Context) error
}

// MessageRoutes builds handlers for text and media payload routing.
// Only "/"-prefixed text is considered for command dispatch; any other
// text is a payload for the session state machine, even when it
// happens to spell a command name. Media always flows to the session.
func MessageRoutes(sessions Sessions, reg *tg.Registry) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil && strings.HasPrefix(text, "/") {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
			logHandlerSummary(c, "unknown_command", start, "skip", nil)
			return nil
		}

		if sessions != nil {
			return handleWithSummary(c, "session", start, func() error {
				return sessions.HandlePayload(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if sessions != nil {
			return handleWithSummary(c, "session_media", start, func() error {
				return sessions.HandlePayload(c)
			})
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(textHandler)),
		},
		{
			Endpoint: tele.OnMedia,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(mediaHandler)),
		},
	}
}
