// Package queue abstracts the order message channel.
//
// The channel has at-least-once semantics with manual acknowledgment: a
// delivery that is never acked is redelivered, so consumers must only ack
// after the order has reached a terminal state.
package queue

import "context"

// Delivery is a single message handed to a consumer. Ack removes it from
// the channel; until then it counts toward the queue depth and may be
// delivered again.
type Delivery struct {
	Key     []byte
	Value   []byte
	Headers map[string]string

	ack func(ctx context.Context) error
}

// Ack acknowledges the delivery. Safe to call once per delivery.
func (d Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Producer publishes messages to a channel.
type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// Consumer fetches deliveries from a channel. Fetch blocks until a message
// is available or ctx is done; this is the consumer loop's only expected
// suspension point.
type Consumer interface {
	Fetch(ctx context.Context) (Delivery, error)
	Close() error
}

// DepthCounter reports a best-effort count of not-yet-acknowledged
// messages. Approximate under concurrent consumption.
type DepthCounter interface {
	Depth(ctx context.Context) (int64, error)
}
