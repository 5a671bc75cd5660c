package bot

import (
	"strings"
	"testing"

	"roomrelay/core/telegram/router"
	"roomrelay/session"

	tele "gopkg.in/telebot.v4"
)

func (f *fakeCtx) Callback() *tele.Callback { return f.cb }

func (f *fakeCtx) Respond(_ ...*tele.CallbackResponse) error { return nil }

func textRoute(a *App) tele.HandlerFunc {
	return router.MessageRoutes(a, a.registry)[0].Handler
}

func TestTextSpellingCommandNameIsRelayedNotDispatched(t *testing.T) {
	a, svc, tr := newTestApp(t)
	mustSetupRoom(t, svc, "support", 42)
	a.sessions.SelectRoom(99, "support")

	c := newFakeCtx(99, "start")
	if err := textRoute(a)(c); err != nil {
		t.Fatalf("route: %v", err)
	}

	if len(tr.forwards) != 1 {
		t.Errorf("message not relayed: forwards=%d", len(tr.forwards))
	}
	if strings.Contains(c.lastSent(), "Choose a room") {
		t.Errorf("payload hijacked by command dispatch: %q", c.lastSent())
	}
}

func TestRoomNameSpellingCommandNameCreatesRoom(t *testing.T) {
	a, svc, _ := newTestApp(t)
	if err := svc.ClaimOwner(7); err != nil {
		t.Fatal(err)
	}
	a.sessions.SetPending(7, session.AwaitRoomName{})

	c := newFakeCtx(7, "setowner")
	if err := textRoute(a)(c); err != nil {
		t.Fatalf("route: %v", err)
	}

	if !svc.RoomExists("setowner") {
		t.Error("room named after a command was not created")
	}
	if a.sessions.Get(7).Pending != nil {
		t.Errorf("pending not cleared: %#v", a.sessions.Get(7).Pending)
	}
}

func TestSlashCommandStillDispatched(t *testing.T) {
	a, _, _ := newTestApp(t)

	c := newFakeCtx(99, "/start")
	if err := textRoute(a)(c); err != nil {
		t.Fatalf("route: %v", err)
	}
	if !strings.Contains(c.lastSent(), "/setowner") {
		t.Errorf("command handler not reached: %q", c.lastSent())
	}
}

func TestUnknownSlashCommandHitsFallback(t *testing.T) {
	a, svc, tr := newTestApp(t)
	mustSetupRoom(t, svc, "support", 42)
	a.sessions.SelectRoom(99, "support")

	c := newFakeCtx(99, "/bogus")
	if err := textRoute(a)(c); err != nil {
		t.Fatalf("route: %v", err)
	}
	if !strings.Contains(c.lastSent(), "Unknown command") {
		t.Errorf("fallback not reached: %q", c.lastSent())
	}
	if len(tr.forwards) != 0 {
		t.Error("unknown command was relayed as a payload")
	}
}

func TestCancelCommandResetsSession(t *testing.T) {
	a, svc, _ := newTestApp(t)
	mustSetupRoom(t, svc, "support", 42)
	a.sessions.SelectRoom(99, "support")
	a.sessions.SetPending(99, session.AwaitReplyBody{Token: "m1-99"})

	c := newFakeCtx(99, "/cancel")
	if err := textRoute(a)(c); err != nil {
		t.Fatalf("route: %v", err)
	}

	s := a.sessions.Get(99)
	if s.Pending != nil || s.SelectedRoom != "" {
		t.Errorf("session survived /cancel: %+v", s)
	}
	if !strings.Contains(c.lastSent(), "Cancelled") {
		t.Errorf("no confirmation: %q", c.lastSent())
	}
}

func TestUnknownCallbackKeyIsAnswered(t *testing.T) {
	a, _, _ := newTestApp(t)
	route := router.CallbackRoute(a.registry, router.CallbackOptions{})

	c := newFakeCtx(99, "")
	c.cb = &tele.Callback{Unique: "bogus"}
	if err := route.Handler(c); err != nil {
		t.Fatalf("route: %v", err)
	}
	if !strings.Contains(c.lastSent(), "no longer active") {
		t.Errorf("not-found fallback not reached: %q", c.lastSent())
	}
}
