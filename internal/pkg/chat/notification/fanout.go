package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"jobboard/internal/infrastructure/observability"
	pubsub "jobboard/internal/infrastructure/pubsub/port"
	chat "jobboard/internal/pkg/chat/application/domain"
)

// RelayChannel is the pub/sub channel shared by every node.
const RelayChannel = "chat:events"

const resubscribeDelay = time.Second

// Deliverer sends a payload to every live connection of one identity.
type Deliverer interface {
	Deliver(identity string, payload []byte) (delivered, failed int)
}

// envelope carries one encoded frame between nodes.
type envelope struct {
	Origin     string          `json:"origin"`
	Recipients []string        `json:"recipients"`
	Payload    json.RawMessage `json:"payload"`
}

// Fanout delivers newMessage events to the rooms of the recipients on this
// node and, when a relay bus is configured, to the same rooms on every other
// node. Delivery is best effort; failures are logged and counted only.
type Fanout struct {
	rooms   Deliverer
	nodeID  string
	bus     pubsub.Bus
	metrics *observability.ChatMetrics
}

type Option func(*Fanout)

// WithRelay publishes every event on bus and accepts events from other nodes.
func WithRelay(bus pubsub.Bus) Option {
	return func(f *Fanout) { f.bus = bus }
}

func WithMetrics(m *observability.ChatMetrics) Option {
	return func(f *Fanout) { f.metrics = m }
}

func NewFanout(rooms Deliverer, nodeID string, opts ...Option) *Fanout {
	f := &Fanout{rooms: rooms, nodeID: nodeID}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Notify implements the use case Notifier port.
func (f *Fanout) Notify(ctx context.Context, ev chat.NewMessageEvent, recipients ...string) {
	payload, err := EncodeNewMessage(ev)
	if err != nil {
		slog.Error("encode newMessage failed", "chatId", ev.ConversationID, "error", err)
		return
	}
	targets := unique(recipients)
	f.deliverLocal(targets, payload)

	if f.bus == nil {
		return
	}
	raw, err := json.Marshal(envelope{Origin: f.nodeID, Recipients: targets, Payload: payload})
	if err != nil {
		slog.Error("encode relay envelope failed", "chatId", ev.ConversationID, "error", err)
		return
	}
	if err := f.bus.Publish(ctx, RelayChannel, raw); err != nil {
		f.metrics.RecordRelay(observability.RelayFailed)
		slog.Warn("relay publish failed", "chatId", ev.ConversationID, "error", err)
		return
	}
	f.metrics.RecordRelay(observability.RelayPublished)
}

// Run consumes events published by other nodes until ctx is canceled,
// resubscribing after a failed subscription. Without a relay bus it only
// waits for ctx.
func (f *Fanout) Run(ctx context.Context) error {
	if f.bus == nil {
		<-ctx.Done()
		return nil
	}
	for {
		slog.Info("chat relay subscribing", "channel", RelayChannel, "node", f.nodeID)
		err := f.bus.Subscribe(ctx, RelayChannel, f.handleRelay)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("chat relay subscription ended", "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(resubscribeDelay):
		}
	}
}

func (f *Fanout) handleRelay(_ context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		f.metrics.RecordRelay(observability.RelayFailed)
		slog.Warn("malformed relay envelope", "error", err)
		return
	}
	if env.Origin == f.nodeID {
		return
	}
	f.metrics.RecordRelay(observability.RelayReceived)
	f.deliverLocal(env.Recipients, env.Payload)
}

func (f *Fanout) deliverLocal(recipients []string, payload []byte) {
	for _, identity := range recipients {
		delivered, failed := f.rooms.Deliver(identity, payload)
		f.metrics.RecordDelivery(delivered, failed)
	}
}

func unique(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
