package relay

import (
	"errors"
	"fmt"
	"testing"

	"roomrelay/store"
)

// memStore is an in-memory Store with an optional failure switch so
// rollback behaviour can be exercised.
type memStore struct {
	snap     store.Snapshot
	saves    int
	failSave error
}

func newMemStore() *memStore {
	return &memStore{snap: store.NewSnapshot()}
}

func (m *memStore) Load() (store.Snapshot, error) {
	return m.snap.Clone(), nil
}

func (m *memStore) Save(snap store.Snapshot) error {
	if m.failSave != nil {
		return m.failSave
	}
	m.snap = snap.Clone()
	m.saves++
	return nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	ms := newMemStore()
	svc, err := NewService(ms)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, ms
}

func TestClaimOwnerExactlyOnce(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.ClaimOwner(7); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if owner, ok := svc.Owner(); !ok || owner != 7 {
		t.Fatalf("owner = %d, %v", owner, ok)
	}
	if err := svc.ClaimOwner(8); !errors.Is(err, ErrOwnerAlreadySet) {
		t.Errorf("second claim by other user: %v", err)
	}
	if err := svc.ClaimOwner(7); !errors.Is(err, ErrOwnerAlreadySet) {
		t.Errorf("repeat claim by owner: %v", err)
	}
	if owner, _ := svc.Owner(); owner != 7 {
		t.Errorf("owner changed to %d", owner)
	}
}

func TestCreateRoomRejectsDuplicatesAndEmptyNames(t *testing.T) {
	svc, ms := newTestService(t)

	if err := svc.CreateRoom("support"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	saves := ms.saves

	if err := svc.CreateRoom("support"); !errors.Is(err, ErrDuplicateRoom) {
		t.Errorf("duplicate create: %v", err)
	}
	if err := svc.CreateRoom("  "); !errors.Is(err, ErrParse) {
		t.Errorf("blank name: %v", err)
	}
	if ms.saves != saves {
		t.Errorf("failed creates touched the store: %d saves", ms.saves-saves)
	}
}

func TestDeleteRoomNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.DeleteRoom("ghost"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("DeleteRoom: %v", err)
	}
}

func TestAdminSetSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.CreateRoom("support"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	added, err := svc.AddAdmin("support", 42)
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	added, err = svc.AddAdmin("support", 42)
	if err != nil || added {
		t.Fatalf("repeat add: added=%v err=%v", added, err)
	}
	if _, err := svc.AddAdmin("ghost", 42); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("add to missing room: %v", err)
	}

	if err := svc.RemoveAdmin("support", 99); !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("remove non-admin: %v", err)
	}
	if err := svc.RemoveAdmin("support", 42); err != nil {
		t.Fatalf("remove admin: %v", err)
	}
	room, err := svc.Room("support")
	if err != nil || len(room.Admins) != 0 {
		t.Errorf("admins after removal: %v (err=%v)", room.Admins, err)
	}
}

func TestRoomsSortedByName(t *testing.T) {
	svc, _ := newTestService(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := svc.CreateRoom(name); err != nil {
			t.Fatalf("CreateRoom %s: %v", name, err)
		}
	}

	rooms := svc.Rooms()
	want := []string{"alpha", "mid", "zeta"}
	if len(rooms) != len(want) {
		t.Fatalf("rooms = %v", rooms)
	}
	for i, name := range want {
		if rooms[i].Name != name {
			t.Errorf("rooms[%d] = %s, want %s", i, rooms[i].Name, name)
		}
	}
}

func TestCanReply(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.ClaimOwner(7); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateRoom("support"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddAdmin("support", 42); err != nil {
		t.Fatal(err)
	}

	if !svc.CanReply(7) {
		t.Error("owner should be able to reply")
	}
	if !svc.CanReply(42) {
		t.Error("admin should be able to reply")
	}
	if svc.CanReply(123) {
		t.Error("unrelated user should not be able to reply")
	}
}

func TestRelayTargetsDeduplicatesOwner(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.ClaimOwner(7); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateRoom("support"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddAdmin("support", 7); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddAdmin("support", 42); err != nil {
		t.Fatal(err)
	}

	targets, err := svc.RelayTargets("support")
	if err != nil {
		t.Fatalf("RelayTargets: %v", err)
	}
	if len(targets) != 2 {
		t.Errorf("owner-as-admin not deduplicated: %v", targets)
	}
}

func TestRelayTargetsErrors(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.CreateRoom("empty"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.RelayTargets("ghost"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("missing room: %v", err)
	}
	if _, err := svc.RelayTargets("empty"); !errors.Is(err, ErrNoAdmins) {
		t.Errorf("adminless room: %v", err)
	}
}

func TestRecordAndResolve(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.CreateRoom("support"); err != nil {
		t.Fatal(err)
	}

	origin := Origin{SenderID: 99, Room: "support", ChatID: 99, MessageID: 5}
	token, err := svc.Record(origin)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if token != "m1-99" {
		t.Errorf("token = %q", token)
	}

	got, err := svc.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != origin {
		t.Errorf("Resolve = %+v, want %+v", got, origin)
	}

	second, err := svc.Record(origin)
	if err != nil {
		t.Fatalf("second Record: %v", err)
	}
	if second == token {
		t.Errorf("tokens not unique: %q", second)
	}
}

func TestResolveUnknownAndStaleTokens(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.CreateRoom("support"); err != nil {
		t.Fatal(err)
	}
	token, err := svc.Record(Origin{SenderID: 99, Room: "support", ChatID: 99, MessageID: 5})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Resolve("m999-1"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("unknown token: %v", err)
	}

	if err := svc.DeleteRoom("support"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(token); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("stale token after room deletion: %v", err)
	}
}

func TestTokenSequenceSurvivesReload(t *testing.T) {
	ms := newMemStore()
	svc, err := NewService(ms)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateRoom("support"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Record(Origin{SenderID: 99, Room: "support"}); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewService(ms)
	if err != nil {
		t.Fatal(err)
	}
	token, err := reloaded.Record(Origin{SenderID: 50, Room: "support"})
	if err != nil {
		t.Fatal(err)
	}
	if token != "m2-50" {
		t.Errorf("token after reload = %q, want m2-50", token)
	}
}

func TestSaveFailureRollsBack(t *testing.T) {
	svc, ms := newTestService(t)
	if err := svc.CreateRoom("support"); err != nil {
		t.Fatal(err)
	}

	ms.failSave = fmt.Errorf("disk full")

	err := svc.CreateRoom("billing")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	var relayErr *Error
	if !errors.As(err, &relayErr) || relayErr.Code() != "PERSISTENCE_FAILURE" {
		t.Errorf("error code: %v", err)
	}

	ms.failSave = nil
	if svc.RoomExists("billing") {
		t.Error("failed create left room visible")
	}
	if err := svc.CreateRoom("billing"); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
}
