package machine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ecw74/coffe-tech-demo/internal/queue"
)

// Consumer is the single sequential order consumer. Orders are fetched and
// processed strictly in delivery order; there is never more than one drink
// in preparation.
type Consumer struct {
	queue   queue.Consumer
	machine *Machine
	log     *zap.Logger
}

// NewConsumer wires the consumer loop to its queue and machine.
func NewConsumer(q queue.Consumer, m *Machine, log *zap.Logger) *Consumer {
	return &Consumer{queue: q, machine: m, log: log}
}

// Run blocks processing orders until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("Order consumer started. Waiting for messages...")

	for {
		d, err := c.queue.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.log.Info("Context done, exiting consumer loop.")
				break
			}
			c.log.Error("❌ Error fetching from order queue", zap.Error(err))
			continue
		}

		if err := c.machine.Process(ctx, d); err != nil {
			c.log.Error("❌ Order processing did not reach a terminal state", zap.Error(err))
			continue
		}
	}

	c.log.Info("Consumer finished. Shutting down...")
	return nil
}
