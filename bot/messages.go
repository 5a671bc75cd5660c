package bot

import (
	"errors"

	tghelpers "roomrelay/core/telegram/helpers"
	"roomrelay/relay"

	tele "gopkg.in/telebot.v4"
)

// userMessage maps a routing error onto the text shown to the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, relay.ErrDuplicateRoom):
		return "⚠️ A room with that name already exists."
	case errors.Is(err, relay.ErrRoomNotFound):
		return "❌ Room not found."
	case errors.Is(err, relay.ErrAdminNotFound):
		return "❌ That user is not an admin of this room."
	case errors.Is(err, relay.ErrNoAdmins):
		return "⚠️ This room has no admins yet."
	case errors.Is(err, relay.ErrTokenNotFound):
		return "❌ The original message could not be found."
	case errors.Is(err, relay.ErrPermissionDenied):
		return "⛔️ You don't have permission to do that."
	case errors.Is(err, relay.ErrPersistence):
		return "⚠️ Could not save changes, please try again."
	case errors.Is(err, relay.ErrDelivery):
		return "❌ The reply could not be delivered."
	case errors.Is(err, relay.ErrParse):
		return "❌ That input doesn't look right."
	default:
		return "❌ Something went wrong, please try again."
	}
}

// replyServiceError reports the error to the user and passes it up so
// the handler summary log records the failure.
func replyServiceError(c tele.Context, err error) error {
	_ = tghelpers.SendText(c, userMessage(err))
	return err
}

// editServiceError is replyServiceError for callback handlers, which
// rewrite the menu message instead of sending a new one.
func editServiceError(c tele.Context, err error) error {
	_ = tghelpers.EditOrSendText(c, userMessage(err))
	return err
}
