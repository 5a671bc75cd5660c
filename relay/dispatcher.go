package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"roomrelay/core/logger"

	"log/slog"
)

// MessageRef points at a concrete chat message so the transport can
// forward it verbatim without the relay ever seeing its content.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Action is an interactive affordance attached to an outbound text,
// a reply button carrying the correlation token.
type Action struct {
	Label string
	Token string
}

// Transport is the delivery boundary. Implementations are synchronous
// and single-attempt; the dispatcher decides what runs concurrently.
type Transport interface {
	SendText(ctx context.Context, recipient int64, text string, actions ...Action) error
	Forward(ctx context.Context, recipient int64, ref MessageRef) error
}

// Dispatcher performs the fan-out of inbound messages to a room's
// recipients and routes admin replies back to the original sender.
type Dispatcher struct {
	svc       *Service
	transport Transport
}

// NewDispatcher binds a dispatcher to routing state and a transport.
func NewDispatcher(svc *Service, transport Transport) *Dispatcher {
	return &Dispatcher{svc: svc, transport: transport}
}

// Relay records the origin of an inbound message, then fans it out to
// every admin of the room plus the owner. Per-recipient deliveries run
// concurrently and a failed delivery never aborts the rest; the caller
// gets the token back once fan-out has been attempted. The routing
// lock is released before any transport call is made.
func (d *Dispatcher) Relay(ctx context.Context, senderID int64, room string, ref MessageRef) (string, error) {
	targets, err := d.svc.RelayTargets(room)
	if err != nil {
		return "", err
	}

	origin := Origin{SenderID: senderID, Room: room, ChatID: ref.ChatID, MessageID: ref.MessageID}
	token, err := d.svc.Record(origin)
	if err != nil {
		return "", err
	}

	notice := fmt.Sprintf("📨 New message in room '%s' from user %d:", room, senderID)

	var failed atomic.Int64
	var wg sync.WaitGroup
	for _, recipient := range targets {
		wg.Add(1)
		go func(recipient int64) {
			defer wg.Done()
			if err := d.deliverToRecipient(ctx, recipient, notice, ref, token); err != nil {
				failed.Add(1)
				logger.Warn(ctx, "relay", "fanout.delivery_failed",
					slog.Int64("recipient", recipient),
					slog.String("token", token),
					slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				)
			}
		}(recipient)
	}
	wg.Wait()

	logger.Info(ctx, "relay", "fanout.done",
		slog.String("room", room),
		slog.String("token", token),
		slog.Int("recipients", len(targets)),
		slog.Int64("delivered", int64(len(targets))-failed.Load()),
		slog.Int64("failed", failed.Load()),
	)
	return token, nil
}

// deliverToRecipient sends the notice, forwards the original message
// and attaches the reply affordance, in order, stopping at the first
// failure for this recipient.
func (d *Dispatcher) deliverToRecipient(ctx context.Context, recipient int64, notice string, ref MessageRef, token string) error {
	if err := d.transport.SendText(ctx, recipient, notice); err != nil {
		return err
	}
	if err := d.transport.Forward(ctx, recipient, ref); err != nil {
		return err
	}
	return d.transport.SendText(ctx, recipient, "Reply to this message:",
		Action{Label: "💬 Reply", Token: token})
}

// DeliverReply routes a reply body back to the sender behind a token.
// Authorization is re-checked here, not only when the reply affordance
// was shown. Delivery is synchronous so failures surface to the
// replier instead of being swallowed.
func (d *Dispatcher) DeliverReply(ctx context.Context, replierID int64, token string, body MessageRef) error {
	if !d.svc.CanReply(replierID) {
		return ErrPermissionDenied
	}

	origin, err := d.svc.Resolve(token)
	if err != nil {
		return err
	}

	notice := fmt.Sprintf("💬 Reply from an admin of room '%s':", origin.Room)
	if err := d.transport.SendText(ctx, origin.SenderID, notice); err != nil {
		return deliveryFailed(err)
	}
	if err := d.transport.Forward(ctx, origin.SenderID, body); err != nil {
		return deliveryFailed(err)
	}

	logger.Info(ctx, "relay", "reply.delivered",
		slog.String("token", token),
		slog.String("room", origin.Room),
		slog.Int64("recipient", origin.SenderID),
	)
	return nil
}
