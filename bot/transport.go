package bot

import (
	"context"
	"strconv"

	"roomrelay/relay"

	tele "gopkg.in/telebot.v4"
)

// replyCallbackKey is the callback unique carried by reply buttons; it
// must match the key the reply callback handler is registered under.
const replyCallbackKey = "reply"

// transport delivers relay traffic straight through the bot API
// client. Calls are synchronous and single-attempt so failures surface
// to the dispatcher immediately.
type transport struct {
	bot *tele.Bot
}

func newTransport(b *tele.Bot) relay.Transport {
	return &transport{bot: b}
}

func (t *transport) SendText(ctx context.Context, recipient int64, text string, actions ...relay.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := &tele.User{ID: recipient}
	if len(actions) == 0 {
		_, err := t.bot.Send(to, text)
		return err
	}

	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, markup.Row(markup.Data(a.Label, replyCallbackKey, a.Token)))
	}
	markup.Inline(rows...)
	_, err := t.bot.Send(to, text, markup)
	return err
}

func (t *transport) Forward(ctx context.Context, recipient int64, ref relay.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.ChatID,
	}
	_, err := t.bot.Forward(&tele.User{ID: recipient}, msg)
	return err
}
