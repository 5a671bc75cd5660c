package bot

import (
	"errors"
	"fmt"

	"roomrelay/core/telegram/commands"
	tghelpers "roomrelay/core/telegram/helpers"
	"roomrelay/core/telegram/keyboard"
	"roomrelay/relay"

	"github.com/samber/lo"
	tele "gopkg.in/telebot.v4"
)

func (a *App) registerCommands() {
	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Show the main menu",
	})
	a.registry.RegisterCommand("/setowner", commands.Command{
		Handler:     a.handleSetOwner,
		Description: "Claim the owner role",
		Hidden:      true,
	})
	a.registry.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Cancel the current action",
	})
}

// handleStart shows the owner menu to the owner and the room picker to
// everyone else. Before an owner exists the bot only points at
// /setowner.
func (a *App) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	owner, ok := a.svc.Owner()
	if !ok {
		return tghelpers.SendText(c, "⚠️ Owner is not set yet. Use the /setowner command.")
	}
	if owner == userID {
		return tghelpers.SendKeyboard(c, "👑 Owner menu:", ownerMenu())
	}

	rooms := a.svc.Rooms()
	if len(rooms) == 0 {
		return tghelpers.SendText(c, "ℹ️ No rooms have been created yet. Please try again later.")
	}
	return tghelpers.SendKeyboard(c, "🏠 Choose a room to send your message to:", roomPicker(rooms))
}

func (a *App) handleSetOwner(c tele.Context) error {
	userID := c.Sender().ID

	err := a.svc.ClaimOwner(userID)
	switch {
	case err == nil:
		return tghelpers.SendText(c, fmt.Sprintf("✅ You are now the owner (ID: %d).", userID))
	case errors.Is(err, relay.ErrOwnerAlreadySet):
		owner, _ := a.svc.Owner()
		_ = tghelpers.SendText(c, fmt.Sprintf("⚠️ Owner is already set (ID: %d).", owner))
		return err
	default:
		return replyServiceError(c, err)
	}
}

// handleCancel drops the whole session: any pending prompt and the
// room selection.
func (a *App) handleCancel(c tele.Context) error {
	a.sessions.Reset(c.Sender().ID)
	return tghelpers.SendText(c, "✅ Cancelled. Use /start to begin again.")
}

func ownerMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "➕ Create room", Unique: cbCreateRoom},
		{Text: "🗑 Delete room", Unique: cbDeleteRoom},
		{Text: "👤 Manage admins", Unique: cbManageAdmins},
		{Text: "📋 List rooms", Unique: cbListRooms},
	})
}

func roomPicker(rooms []relay.RoomInfo) *tele.ReplyMarkup {
	btns := lo.Map(rooms, func(r relay.RoomInfo, _ int) keyboard.InlineBtn {
		return keyboard.InlineBtn{Text: "🏠 " + r.Name, Unique: cbSelectRoom, Data: r.Name}
	})
	return keyboard.InlineButtonsNPerRow(btns, 2)
}
