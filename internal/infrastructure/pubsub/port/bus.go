package port

import "context"

// Handler receives one published payload. It is called from the
// subscriber goroutine, so it must not block for long.
type Handler func(ctx context.Context, payload []byte)

// Bus is a fire-and-forget broadcast channel shared by every node.
// Delivery is at-most-once; subscribers that are offline miss messages.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe blocks, invoking h for each message on channel, until ctx
	// is canceled or the subscription fails.
	Subscribe(ctx context.Context, channel string, h Handler) error

	Close() error
}
