package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type sentText struct {
	recipient int64
	text      string
	actions   []Action
}

type sentForward struct {
	recipient int64
	ref       MessageRef
}

// fakeTransport records deliveries; fan-out runs concurrently so all
// access is guarded. failFor makes every call to a recipient fail.
type fakeTransport struct {
	mu       sync.Mutex
	texts    []sentText
	forwards []sentForward
	failFor  map[int64]error
}

func (f *fakeTransport) SendText(_ context.Context, recipient int64, text string, actions ...Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[recipient]; err != nil {
		return err
	}
	f.texts = append(f.texts, sentText{recipient: recipient, text: text, actions: actions})
	return nil
}

func (f *fakeTransport) Forward(_ context.Context, recipient int64, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[recipient]; err != nil {
		return err
	}
	f.forwards = append(f.forwards, sentForward{recipient: recipient, ref: ref})
	return nil
}

func (f *fakeTransport) textsFor(recipient int64) []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentText
	for _, s := range f.texts {
		if s.recipient == recipient {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeTransport) forwardsFor(recipient int64) []sentForward {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentForward
	for _, s := range f.forwards {
		if s.recipient == recipient {
			out = append(out, s)
		}
	}
	return out
}

func newRelayFixture(t *testing.T) (*Dispatcher, *Service, *fakeTransport) {
	t.Helper()
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
	tr := &fakeTransport{failFor: map[int64]error{}}
	return NewDispatcher(svc, tr), svc, tr
}

func TestRelayFansOutToAdminsAndOwner(t *testing.T) {
	d, svc, tr := newRelayFixture(t)

	ref := MessageRef{ChatID: 99, MessageID: 5}
	token, err := d.Relay(context.Background(), 99, "support", ref)
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if token != "m1-99" {
		t.Errorf("token = %q", token)
	}

	for _, recipient := range []int64{42, 7} {
		texts := tr.textsFor(recipient)
		if len(texts) != 2 {
			t.Fatalf("recipient %d got %d texts", recipient, len(texts))
		}
		if !strings.Contains(texts[0].text, "support") || !strings.Contains(texts[0].text, "99") {
			t.Errorf("notice for %d: %q", recipient, texts[0].text)
		}
		if len(texts[1].actions) != 1 || texts[1].actions[0].Token != token {
			t.Errorf("reply affordance for %d: %+v", recipient, texts[1].actions)
		}
		forwards := tr.forwardsFor(recipient)
		if len(forwards) != 1 || forwards[0].ref != ref {
			t.Errorf("forwards for %d: %+v", recipient, forwards)
		}
	}

	origin, err := svc.Resolve(token)
	if err != nil || origin.SenderID != 99 {
		t.Errorf("Resolve after relay: %+v, %v", origin, err)
	}
}

func TestRelayWithoutAdminsRecordsNothing(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.ClaimOwner(7); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateRoom("empty"); err != nil {
		t.Fatal(err)
	}
	tr := &fakeTransport{failFor: map[int64]error{}}
	d := NewDispatcher(svc, tr)

	_, err := d.Relay(context.Background(), 99, "empty", MessageRef{ChatID: 99, MessageID: 1})
	if !errors.Is(err, ErrNoAdmins) {
		t.Fatalf("Relay: %v", err)
	}
	if len(tr.texts) != 0 || len(tr.forwards) != 0 {
		t.Error("transport called for adminless room")
	}
	if _, err := svc.Resolve("m1-99"); !errors.Is(err, ErrTokenNotFound) {
		t.Error("correlation entry created despite failed relay")
	}
}

func TestRelayToMissingRoom(t *testing.T) {
	d, _, _ := newRelayFixture(t)

	_, err := d.Relay(context.Background(), 99, "ghost", MessageRef{})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Relay: %v", err)
	}
}

func TestRelayPartialFailureStillSucceeds(t *testing.T) {
	d, _, tr := newRelayFixture(t)
	tr.failFor[42] = fmt.Errorf("blocked by recipient")

	token, err := d.Relay(context.Background(), 99, "support", MessageRef{ChatID: 99, MessageID: 5})
	if err != nil {
		t.Fatalf("Relay should not fail on partial delivery: %v", err)
	}
	if token == "" {
		t.Fatal("no token returned")
	}
	if len(tr.textsFor(7)) != 2 {
		t.Error("owner delivery was aborted by another recipient's failure")
	}
}

func TestDeliverReplyRoundTrip(t *testing.T) {
	d, _, tr := newRelayFixture(t)

	token, err := d.Relay(context.Background(), 99, "support", MessageRef{ChatID: 99, MessageID: 5})
	if err != nil {
		t.Fatal(err)
	}

	body := MessageRef{ChatID: 42, MessageID: 77}
	if err := d.DeliverReply(context.Background(), 42, token, body); err != nil {
		t.Fatalf("DeliverReply: %v", err)
	}

	texts := tr.textsFor(99)
	if len(texts) != 1 || !strings.Contains(texts[0].text, "support") {
		t.Errorf("sender notice: %+v", texts)
	}
	forwards := tr.forwardsFor(99)
	if len(forwards) != 1 || forwards[0].ref != body {
		t.Errorf("sender forwards: %+v", forwards)
	}
}

func TestDeliverReplyPermissionDenied(t *testing.T) {
	d, _, tr := newRelayFixture(t)

	token, err := d.Relay(context.Background(), 99, "support", MessageRef{ChatID: 99, MessageID: 5})
	if err != nil {
		t.Fatal(err)
	}
	before := len(tr.texts)

	err = d.DeliverReply(context.Background(), 123, token, MessageRef{ChatID: 123, MessageID: 1})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("DeliverReply by outsider: %v", err)
	}
	if len(tr.texts) != before {
		t.Error("outsider reply reached the transport")
	}
}

func TestDeliverReplyUnknownToken(t *testing.T) {
	d, _, _ := newRelayFixture(t)

	err := d.DeliverReply(context.Background(), 42, "m99-1", MessageRef{})
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("DeliverReply: %v", err)
	}
}

func TestDeliverReplyTransportFailureSurfaces(t *testing.T) {
	d, _, tr := newRelayFixture(t)

	token, err := d.Relay(context.Background(), 99, "support", MessageRef{ChatID: 99, MessageID: 5})
	if err != nil {
		t.Fatal(err)
	}
	tr.failFor[99] = fmt.Errorf("user deactivated")

	err = d.DeliverReply(context.Background(), 42, token, MessageRef{ChatID: 42, MessageID: 77})
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected delivery failure, got %v", err)
	}
	var relayErr *Error
	if !errors.As(err, &relayErr) || relayErr.Code() != "DELIVERY_FAILURE" {
		t.Errorf("error code: %v", err)
	}
}
