package queue

import (
	"context"
	"sync"
	"sync/atomic"
)

// Memory is an in-process order channel used for local mode and tests.
// It preserves FIFO order and models at-least-once delivery: Depth counts
// every published message until its delivery is acked, and a message can
// be published again to simulate broker redelivery.
type Memory struct {
	deliveries chan Delivery
	unacked    atomic.Int64

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemory creates an in-memory channel buffering up to size messages.
func NewMemory(size int) *Memory {
	return &Memory{
		deliveries: make(chan Delivery, size),
		closed:     make(chan struct{}),
	}
}

// Publish enqueues a message. It returns an error only when the channel is
// closed or ctx is done before the buffer accepts the message.
func (m *Memory) Publish(ctx context.Context, key, value []byte) error {
	select {
	case <-m.closed:
		return context.Canceled
	default:
	}

	d := Delivery{Key: key, Value: value}
	var once sync.Once
	d.ack = func(context.Context) error {
		once.Do(func() { m.unacked.Add(-1) })
		return nil
	}

	m.unacked.Add(1)
	select {
	case m.deliveries <- d:
		return nil
	case <-m.closed:
		m.unacked.Add(-1)
		return context.Canceled
	case <-ctx.Done():
		m.unacked.Add(-1)
		return ctx.Err()
	}
}

// Fetch returns the next delivery in publish order, blocking until one is
// available.
func (m *Memory) Fetch(ctx context.Context) (Delivery, error) {
	select {
	case d := <-m.deliveries:
		return d, nil
	case <-m.closed:
		return Delivery{}, context.Canceled
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

// Depth reports the number of published, not-yet-acked messages.
func (m *Memory) Depth(context.Context) (int64, error) {
	return m.unacked.Load(), nil
}

// Close shuts the channel down. Pending deliveries are dropped.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}
