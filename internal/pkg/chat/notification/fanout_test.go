package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobboard/internal/infrastructure/observability"
	pubsub "jobboard/internal/infrastructure/pubsub/port"
	chat "jobboard/internal/pkg/chat/application/domain"
)

type recordingRooms struct {
	mu    sync.Mutex
	sent  map[string][][]byte
	alive map[string]bool
}

func newRooms(alive ...string) *recordingRooms {
	r := &recordingRooms{sent: make(map[string][][]byte), alive: make(map[string]bool)}
	for _, id := range alive {
		r.alive[id] = true
	}
	return r
}

func (r *recordingRooms) Deliver(identity string, payload []byte) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.alive[identity] {
		return 0, 0
	}
	r.sent[identity] = append(r.sent[identity], payload)
	return 1, 0
}

func (r *recordingRooms) count(identity string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent[identity])
}

// memoryBus connects several Fanouts in-process.
type memoryBus struct {
	mu       sync.Mutex
	handlers []pubsub.Handler
	failPub  error
	ready    chan struct{}
}

func newMemoryBus() *memoryBus { return &memoryBus{ready: make(chan struct{}, 8)} }

func (b *memoryBus) Publish(ctx context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	if b.failPub != nil {
		b.mu.Unlock()
		return b.failPub
	}
	hs := append([]pubsub.Handler(nil), b.handlers...)
	b.mu.Unlock()
	for _, h := range hs {
		h(ctx, payload)
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, _ string, h pubsub.Handler) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
	b.ready <- struct{}{}
	<-ctx.Done()
	return nil
}

func (b *memoryBus) Close() error { return nil }

var sample = chat.NewMessageEvent{
	ConversationID: "c1",
	Message:        chat.Message{SenderID: "H", Body: "Hi", CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
}

func TestEncodeNewMessage_WireShape(t *testing.T) {
	raw, err := EncodeNewMessage(sample)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"event": "newMessage",
		"data": {
			"chatId": "c1",
			"message": {"senderId": "H", "message": "Hi", "timestamp": "2025-03-01T10:00:00Z"}
		}
	}`, string(raw))
}

func TestEncodeChatError_WireShape(t *testing.T) {
	raw, err := EncodeChatError("Chat not found", "not_found")
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"chatError","data":{"message":"Chat not found","code":"not_found"}}`, string(raw))
}

func TestFanout_DeliversToEachRecipientOnce(t *testing.T) {
	rooms := newRooms("H", "U", "X")
	m := observability.NewChatMetrics(prometheus.NewRegistry())
	f := NewFanout(rooms, "node-a", WithMetrics(m))

	f.Notify(context.Background(), sample, "H", "U", "H", "")

	assert.Equal(t, 1, rooms.count("H"))
	assert.Equal(t, 1, rooms.count("U"))
	assert.Zero(t, rooms.count("X"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues(observability.DeliveryDelivered)))
}

func TestFanout_OfflineRecipientIsDropped(t *testing.T) {
	rooms := newRooms("H")
	m := observability.NewChatMetrics(prometheus.NewRegistry())
	f := NewFanout(rooms, "node-a", WithMetrics(m))

	f.Notify(context.Background(), sample, "H", "U")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues(observability.DeliveryDropped)))
}

func TestFanout_RelaysAcrossNodes(t *testing.T) {
	bus := newMemoryBus()
	roomsA, roomsB := newRooms("H"), newRooms("U")
	a := NewFanout(roomsA, "node-a", WithRelay(bus))
	b := NewFanout(roomsB, "node-b", WithRelay(bus))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()
	go func() { _ = b.Run(ctx) }()
	<-bus.ready
	<-bus.ready

	a.Notify(ctx, sample, "H", "U")

	// Node A delivers locally and ignores its own envelope.
	assert.Equal(t, 1, roomsA.count("H"))
	assert.Equal(t, 1, roomsB.count("U"))
	assert.Zero(t, roomsB.count("H"))

	var frame struct {
		Event string         `json:"event"`
		Data  NewMessageData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(roomsB.sent["U"][0], &frame))
	assert.Equal(t, EventNewMessage, frame.Event)
	assert.Equal(t, "c1", frame.Data.ChatID)
}

func TestFanout_RelayFailureIsSwallowed(t *testing.T) {
	bus := newMemoryBus()
	bus.failPub = errors.New("redis down")
	rooms := newRooms("H")
	m := observability.NewChatMetrics(prometheus.NewRegistry())
	f := NewFanout(rooms, "node-a", WithRelay(bus), WithMetrics(m))

	assert.NotPanics(t, func() { f.Notify(context.Background(), sample, "H") })
	assert.Equal(t, 1, rooms.count("H"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayMessagesTotal.WithLabelValues(observability.RelayFailed)))
}

func TestFanout_MalformedEnvelopeIgnored(t *testing.T) {
	rooms := newRooms("U")
	f := NewFanout(rooms, "node-b")
	f.handleRelay(context.Background(), []byte("{not json"))
	assert.Zero(t, rooms.count("U"))
}

func TestFanout_RunWithoutRelayWaitsForCancel(t *testing.T) {
	f := NewFanout(newRooms(), "node-a")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
