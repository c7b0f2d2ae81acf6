package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecw74/coffe-tech-demo/internal/queue"
	"github.com/ecw74/coffe-tech-demo/internal/recipe"
)

func TestSubmit_PublishesOrder(t *testing.T) {
	q := queue.NewMemory(4)
	intake := NewIntake(q, q, zap.NewNop())

	msg, err := intake.Submit(context.Background(), "espresso")
	require.NoError(t, err)

	_, err = uuid.Parse(msg.OrderID)
	assert.NoError(t, err, "order id must be a fresh uuid")
	assert.Equal(t, "espresso", msg.Type)
	assert.False(t, msg.Timestamp.IsZero())

	d, err := q.Fetch(context.Background())
	require.NoError(t, err)

	var published Message
	require.NoError(t, json.Unmarshal(d.Value, &published))
	assert.Equal(t, msg, published)
	assert.Equal(t, msg.OrderID, string(d.Key))
}

func TestSubmit_CanonicalizesSynonyms(t *testing.T) {
	q := queue.NewMemory(4)
	intake := NewIntake(q, q, zap.NewNop())

	msg, err := intake.Submit(context.Background(), "kaffee")
	require.NoError(t, err)
	assert.Equal(t, "coffee", msg.Type)
}

func TestSubmit_UniqueIDs(t *testing.T) {
	q := queue.NewMemory(16)
	intake := NewIntake(q, q, zap.NewNop())

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		msg, err := intake.Submit(context.Background(), "coffee")
		require.NoError(t, err)
		assert.False(t, seen[msg.OrderID], "order ids must be unique")
		seen[msg.OrderID] = true
	}
}

func TestSubmit_RejectsUnknownDrink(t *testing.T) {
	q := queue.NewMemory(4)
	intake := NewIntake(q, q, zap.NewNop())

	_, err := intake.Submit(context.Background(), "tea")
	assert.ErrorIs(t, err, recipe.ErrUnknownDrink)

	depth, _ := q.Depth(context.Background())
	assert.Equal(t, int64(0), depth, "nothing is published for invalid orders")
}

func TestQueueDepth(t *testing.T) {
	q := queue.NewMemory(4)
	intake := NewIntake(q, q, zap.NewNop())

	_, err := intake.Submit(context.Background(), "espresso")
	require.NoError(t, err)
	_, err = intake.Submit(context.Background(), "cappuccino")
	require.NoError(t, err)

	depth, err := intake.QueueDepth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}

func TestQueueDepth_NoCounter(t *testing.T) {
	q := queue.NewMemory(4)
	intake := NewIntake(q, nil, zap.NewNop())

	depth, err := intake.QueueDepth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}
