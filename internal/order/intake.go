package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecw74/coffe-tech-demo/internal/queue"
	"github.com/ecw74/coffe-tech-demo/internal/recipe"
)

// Intake validates incoming drink orders and publishes them on the
// order.placed channel.
type Intake struct {
	producer queue.Producer
	depth    queue.DepthCounter
	log      *zap.Logger
}

// NewIntake creates an intake service. depth may be nil when no queue
// inspection is available; QueueDepth then reports zero.
func NewIntake(producer queue.Producer, depth queue.DepthCounter, log *zap.Logger) *Intake {
	return &Intake{producer: producer, depth: depth, log: log}
}

// Submit validates the requested drink type, assigns an order id and
// timestamp, and publishes the order. It returns only after the queue has
// accepted the message, so a returned Message is guaranteed to be queued.
func (i *Intake) Submit(ctx context.Context, requestedType string) (Message, error) {
	drink, err := recipe.Parse(requestedType)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		OrderID:   uuid.New().String(),
		Type:      string(drink),
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return Message{}, err
	}
	if err := i.producer.Publish(ctx, []byte(msg.OrderID), payload); err != nil {
		return Message{}, fmt.Errorf("publish order: %w", err)
	}

	i.log.Info("📤 Order published",
		zap.String("order_id", msg.OrderID),
		zap.String("type", msg.Type),
	)
	return msg, nil
}

// QueueDepth reports a best-effort count of pending orders.
func (i *Intake) QueueDepth(ctx context.Context) (int64, error) {
	if i.depth == nil {
		return 0, nil
	}
	return i.depth.Depth(ctx)
}
