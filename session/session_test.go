package session

import (
	"sync"
	"testing"
)

func TestZeroSessionIsIdle(t *testing.T) {
	m := NewManager()

	s := m.Get(1)
	if s.Pending != nil || s.SelectedRoom != "" {
		t.Errorf("fresh session not idle: %+v", s)
	}
}

func TestPendingReplacesAtomically(t *testing.T) {
	m := NewManager()

	m.SetPending(1, AwaitRoomName{})
	m.SetPending(1, AwaitAdminID{Room: "support"})

	s := m.Get(1)
	p, ok := s.Pending.(AwaitAdminID)
	if !ok || p.Room != "support" {
		t.Errorf("pending = %#v", s.Pending)
	}
}

func TestSelectionSurvivesPendingLifecycle(t *testing.T) {
	m := NewManager()

	m.SelectRoom(1, "support")
	m.SetPending(1, AwaitReplyBody{Token: "m1-99"})
	m.ClearPending(1)

	s := m.Get(1)
	if s.SelectedRoom != "support" {
		t.Errorf("selection lost: %+v", s)
	}
	if s.Pending != nil {
		t.Errorf("pending not cleared: %#v", s.Pending)
	}
}

func TestSelectRoomCancelsPending(t *testing.T) {
	m := NewManager()

	m.SetPending(1, AwaitRoomName{})
	m.SelectRoom(1, "billing")

	s := m.Get(1)
	if s.Pending != nil {
		t.Errorf("pending survived room selection: %#v", s.Pending)
	}
	if s.SelectedRoom != "billing" {
		t.Errorf("selection = %q", s.SelectedRoom)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	m := NewManager()

	m.SelectRoom(1, "support")
	m.SetPending(2, AwaitRoomName{})

	if s := m.Get(1); s.Pending != nil {
		t.Errorf("user 1 picked up user 2's pending: %#v", s.Pending)
	}
	if s := m.Get(2); s.SelectedRoom != "" {
		t.Errorf("user 2 picked up user 1's selection: %q", s.SelectedRoom)
	}
}

func TestResetDropsEverything(t *testing.T) {
	m := NewManager()

	m.SelectRoom(1, "support")
	m.SetPending(1, AwaitReplyBody{Token: "m1-99"})
	m.Reset(1)

	s := m.Get(1)
	if s.Pending != nil || s.SelectedRoom != "" {
		t.Errorf("session survived reset: %+v", s)
	}
}

func TestConcurrentUpdatesDoNotRace(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.SelectRoom(userID, "support")
				m.SetPending(userID, AwaitReplyBody{Token: "m1-1"})
				_ = m.Get(userID)
				m.ClearPending(userID)
			}
		}(int64(i % 4))
	}
	wg.Wait()
}
