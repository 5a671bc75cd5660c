package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tghelpers "roomrelay/core/telegram/helpers"
	"roomrelay/relay"
	"roomrelay/session"

	tele "gopkg.in/telebot.v4"
)

// HandlePayload interprets every non-command message against the
// sender's session. Precedence: a pending prompt consumes the message
// first, then the sticky room selection relays it, otherwise the user
// gets guidance.
func (a *App) HandlePayload(c tele.Context) error {
	sender := c.Sender()
	msg := c.Message()
	if sender == nil || msg == nil {
		return nil
	}
	userID := sender.ID

	sess := a.sessions.Get(userID)
	switch p := sess.Pending.(type) {
	case session.AwaitRoomName:
		return a.consumeRoomName(c, userID)
	case session.AwaitAdminID:
		return a.consumeAdminID(c, userID, p.Room)
	case session.AwaitReplyBody:
		return a.consumeReplyBody(c, userID, p.Token)
	}

	if sess.SelectedRoom != "" {
		return a.relayToRoom(c, userID, sess.SelectedRoom)
	}
	return tghelpers.SendText(c, "ℹ️ Pick a room with /start before sending a message.")
}

// consumeRoomName finishes the create-room prompt. Non-text payloads
// keep the prompt armed; so does a persistence failure, letting the
// owner resend the same name.
func (a *App) consumeRoomName(c tele.Context, userID int64) error {
	if !a.svc.IsOwner(userID) {
		a.sessions.ClearPending(userID)
		return replyServiceError(c, relay.ErrPermissionDenied)
	}

	name := strings.TrimSpace(c.Text())
	if name == "" {
		return tghelpers.SendText(c, "❌ Please send the room name as text.")
	}

	err := a.svc.CreateRoom(name)
	switch {
	case err == nil:
		a.sessions.ClearPending(userID)
		return tghelpers.SendText(c, fmt.Sprintf("✅ Room '%s' created!", name))
	case errors.Is(err, relay.ErrPersistence):
		return replyServiceError(c, err)
	default:
		a.sessions.ClearPending(userID)
		return replyServiceError(c, err)
	}
}

// consumeAdminID finishes the add-admin prompt. A payload that does
// not parse as a numeric ID keeps the prompt armed.
func (a *App) consumeAdminID(c tele.Context, userID int64, room string) error {
	if !a.svc.IsOwner(userID) {
		a.sessions.ClearPending(userID)
		return replyServiceError(c, relay.ErrPermissionDenied)
	}

	text := strings.TrimSpace(c.Text())
	if text == "" {
		return tghelpers.SendText(c, "❌ Please send the user ID as text.")
	}
	adminID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		_ = tghelpers.SendText(c, "❌ Please send a numeric user ID.")
		return relay.ErrParse
	}

	added, err := a.svc.AddAdmin(room, adminID)
	switch {
	case err == nil && added:
		a.sessions.ClearPending(userID)
		return tghelpers.SendText(c, fmt.Sprintf("✅ Admin %d added to '%s'!", adminID, room))
	case err == nil:
		a.sessions.ClearPending(userID)
		return tghelpers.SendText(c, fmt.Sprintf("⚠️ That user is already an admin of '%s'.", room))
	case errors.Is(err, relay.ErrPersistence):
		return replyServiceError(c, err)
	default:
		a.sessions.ClearPending(userID)
		return replyServiceError(c, err)
	}
}

// consumeReplyBody routes the reply body back to the original sender.
// The prompt is disarmed whatever the outcome; a failed reply starts
// over from the reply button.
func (a *App) consumeReplyBody(c tele.Context, userID int64, token string) error {
	a.sessions.ClearPending(userID)

	if a.dispatch == nil {
		return replyServiceError(c, relay.ErrDelivery)
	}

	ref := relay.MessageRef{ChatID: c.Chat().ID, MessageID: c.Message().ID}
	if err := a.dispatch.DeliverReply(tghelpers.BuildContext(c), userID, token, ref); err != nil {
		return replyServiceError(c, err)
	}
	return tghelpers.SendText(c, "✅ Your reply has been delivered!")
}

// relayToRoom fans the message out to the selected room. A selection
// pointing at a deleted room is dropped so the next message prompts
// for a fresh pick.
func (a *App) relayToRoom(c tele.Context, userID int64, room string) error {
	if a.dispatch == nil {
		return replyServiceError(c, relay.ErrDelivery)
	}

	ref := relay.MessageRef{ChatID: c.Chat().ID, MessageID: c.Message().ID}
	_, err := a.dispatch.Relay(tghelpers.BuildContext(c), userID, room, ref)
	switch {
	case err == nil:
		return tghelpers.SendText(c, "✅ Your message has been sent to the room admins!")
	case errors.Is(err, relay.ErrRoomNotFound):
		a.sessions.ClearSelection(userID)
		_ = tghelpers.SendText(c, "❌ The selected room no longer exists. Pick another with /start.")
		return err
	default:
		return replyServiceError(c, err)
	}
}
