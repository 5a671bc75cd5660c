package bot

import (
	"fmt"
	"strings"

	"roomrelay/core/telegram/callbacks"
	tghelpers "roomrelay/core/telegram/helpers"
	"roomrelay/core/telegram/keyboard"
	"roomrelay/relay"
	"roomrelay/session"

	"github.com/samber/lo"
	tele "gopkg.in/telebot.v4"
)

// Callback uniques. rm_admin carries "<id>:<room>" because room names
// may themselves contain ':'.
const (
	cbSelectRoom      = "select_room"
	cbCreateRoom      = "create_room"
	cbDeleteRoom      = "delete_room"
	cbDeleteRoomPick  = "del_room"
	cbManageAdmins    = "manage_admins"
	cbAdminRoom       = "admin_room"
	cbAddAdmin        = "add_admin"
	cbRemoveAdmin     = "remove_admin"
	cbRemoveAdminPick = "rm_admin"
	cbListRooms       = "list_rooms"
)

func (a *App) registerCallbacks() {
	_ = a.registry.RegisterCallback(cbSelectRoom, a.cbSelectRoom)
	_ = a.registry.RegisterCallback(cbCreateRoom, a.ownerOnly(a.cbCreateRoom))
	_ = a.registry.RegisterCallback(cbDeleteRoom, a.ownerOnly(a.cbDeleteRoomMenu))
	_ = a.registry.RegisterCallback(cbDeleteRoomPick, a.ownerOnly(a.cbDeleteRoomPick))
	_ = a.registry.RegisterCallback(cbManageAdmins, a.ownerOnly(a.cbManageAdmins))
	_ = a.registry.RegisterCallback(cbAdminRoom, a.ownerOnly(a.cbAdminRoom))
	_ = a.registry.RegisterCallback(cbAddAdmin, a.ownerOnly(a.cbAddAdmin))
	_ = a.registry.RegisterCallback(cbRemoveAdmin, a.ownerOnly(a.cbRemoveAdminMenu))
	_ = a.registry.RegisterCallback(cbRemoveAdminPick, a.ownerOnly(a.cbRemoveAdminPick))
	_ = a.registry.RegisterCallback(cbListRooms, a.ownerOnly(a.cbListRooms))
	_ = a.registry.RegisterCallback(replyCallbackKey, a.cbReply)
}

func (a *App) ownerOnly(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !a.svc.IsOwner(c.Sender().ID) {
			_ = tghelpers.EditOrSendText(c, userMessage(relay.ErrPermissionDenied))
			return relay.ErrPermissionDenied
		}
		return h(c)
	}
}

func (a *App) cbSelectRoom(c tele.Context) error {
	room := callbacks.CallbackPayload(c)
	if !a.svc.RoomExists(room) {
		return editServiceError(c, relay.ErrRoomNotFound)
	}
	a.sessions.SelectRoom(c.Sender().ID, room)
	return tghelpers.EditOrSendText(c,
		fmt.Sprintf("✅ Room '%s' selected. Send your message now.", room))
}

func (a *App) cbCreateRoom(c tele.Context) error {
	a.sessions.SetPending(c.Sender().ID, session.AwaitRoomName{})
	return tghelpers.EditOrSendText(c, "📝 Send the name of the new room:")
}

func (a *App) cbDeleteRoomMenu(c tele.Context) error {
	rooms := a.svc.Rooms()
	if len(rooms) == 0 {
		return tghelpers.EditOrSendText(c, "❌ No rooms exist yet.")
	}
	btns := lo.Map(rooms, func(r relay.RoomInfo, _ int) keyboard.InlineBtn {
		return keyboard.InlineBtn{Text: "🗑 " + r.Name, Unique: cbDeleteRoomPick, Data: r.Name}
	})
	return tghelpers.EditOrSendText(c, "Choose a room to delete:", keyboard.InlineButtons(btns))
}

func (a *App) cbDeleteRoomPick(c tele.Context) error {
	room := callbacks.CallbackPayload(c)
	if err := a.svc.DeleteRoom(room); err != nil {
		return editServiceError(c, err)
	}
	return tghelpers.EditOrSendText(c, fmt.Sprintf("✅ Room '%s' deleted.", room))
}

func (a *App) cbManageAdmins(c tele.Context) error {
	rooms := a.svc.Rooms()
	if len(rooms) == 0 {
		return tghelpers.EditOrSendText(c, "❌ No rooms exist yet.")
	}
	btns := lo.Map(rooms, func(r relay.RoomInfo, _ int) keyboard.InlineBtn {
		return keyboard.InlineBtn{Text: "🏠 " + r.Name, Unique: cbAdminRoom, Data: r.Name}
	})
	return tghelpers.EditOrSendText(c, "Choose a room to manage:", keyboard.InlineButtons(btns))
}

func (a *App) cbAdminRoom(c tele.Context) error {
	room := callbacks.CallbackPayload(c)
	info, err := a.svc.Room(room)
	if err != nil {
		return editServiceError(c, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 Admins of '%s':\n", info.Name)
	if len(info.Admins) == 0 {
		b.WriteString("(none)\n")
	}
	for _, id := range info.Admins {
		fmt.Fprintf(&b, "• %d\n", id)
	}

	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "➕ Add admin", Unique: cbAddAdmin, Data: info.Name}},
		[]keyboard.InlineBtn{{Text: "➖ Remove admin", Unique: cbRemoveAdmin, Data: info.Name}},
	)
	return tghelpers.EditOrSendText(c, b.String(), markup)
}

func (a *App) cbAddAdmin(c tele.Context) error {
	room := callbacks.CallbackPayload(c)
	if !a.svc.RoomExists(room) {
		return editServiceError(c, relay.ErrRoomNotFound)
	}
	a.sessions.SetPending(c.Sender().ID, session.AwaitAdminID{Room: room})
	return tghelpers.EditOrSendText(c,
		fmt.Sprintf("📝 Send the user ID to add as admin of '%s':", room))
}

func (a *App) cbRemoveAdminMenu(c tele.Context) error {
	room := callbacks.CallbackPayload(c)
	info, err := a.svc.Room(room)
	if err != nil {
		return editServiceError(c, err)
	}
	if len(info.Admins) == 0 {
		return tghelpers.EditOrSendText(c, "❌ This room has no admins.")
	}
	btns := lo.Map(info.Admins, func(id int64, _ int) keyboard.InlineBtn {
		return keyboard.InlineBtn{
			Text:   fmt.Sprintf("➖ %d", id),
			Unique: cbRemoveAdminPick,
			Data:   fmt.Sprintf("%d:%s", id, info.Name),
		}
	})
	return tghelpers.EditOrSendText(c, "Choose an admin to remove:", keyboard.InlineButtons(btns))
}

func (a *App) cbRemoveAdminPick(c tele.Context) error {
	id, room, err := callbacks.PayloadIDString(c)
	if err != nil {
		return editServiceError(c, relay.ErrParse)
	}
	if err := a.svc.RemoveAdmin(room, id); err != nil {
		return editServiceError(c, err)
	}
	return tghelpers.EditOrSendText(c,
		fmt.Sprintf("✅ Admin %d removed from '%s'.", id, room))
}

func (a *App) cbListRooms(c tele.Context) error {
	rooms := a.svc.Rooms()
	if len(rooms) == 0 {
		return tghelpers.EditOrSendText(c, "❌ No rooms exist yet.")
	}
	var b strings.Builder
	b.WriteString("📋 Rooms:\n")
	for _, r := range rooms {
		fmt.Fprintf(&b, "• %s (%d admins)\n", r.Name, len(r.Admins))
	}
	return tghelpers.EditOrSendText(c, b.String())
}

// cbReply arms the reply flow for an admin or the owner. Authorization
// is checked again when the body arrives.
func (a *App) cbReply(c tele.Context) error {
	userID := c.Sender().ID
	if !a.svc.CanReply(userID) {
		return editServiceError(c, relay.ErrPermissionDenied)
	}

	token := callbacks.CallbackPayload(c)
	origin, err := a.svc.Resolve(token)
	if err != nil {
		return editServiceError(c, err)
	}

	a.sessions.SetPending(userID, session.AwaitReplyBody{Token: token})
	return tghelpers.EditOrSendText(c,
		fmt.Sprintf("💬 Replying to user %d in room '%s'.\nSend your reply:", origin.SenderID, origin.Room))
}
