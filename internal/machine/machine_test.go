package machine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecw74/coffe-tech-demo/internal/ledger"
	"github.com/ecw74/coffe-tech-demo/internal/order"
	"github.com/ecw74/coffe-tech-demo/internal/queue"
	"github.com/ecw74/coffe-tech-demo/internal/status"
)

func newTestMachine(t *testing.T, stock ledger.Snapshot, failures queue.Producer) (*Machine, *ledger.Ledger, *status.Tracker) {
	t.Helper()
	l := ledger.New(stock)
	tracker := status.NewTracker()
	m := New(l, tracker, failures, 0, zap.NewNop())
	return m, l, tracker
}

// publishOrder places a raw order message on the queue and returns its
// delivery.
func publishOrder(t *testing.T, q *queue.Memory, msg order.Message) queue.Delivery {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, q.Publish(context.Background(), []byte(msg.OrderID), payload))
	d, err := q.Fetch(context.Background())
	require.NoError(t, err)
	return d
}

func TestProcess_Done(t *testing.T) {
	m, l, tracker := newTestMachine(t, ledger.Snapshot{"beans": 20, "milk": 10}, nil)
	q := queue.NewMemory(4)

	d := publishOrder(t, q, order.Message{
		OrderID:   "o-1",
		Type:      "espresso",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, m.Process(context.Background(), d))

	assert.Equal(t, ledger.Snapshot{"beans": 19, "milk": 10}, l.Read())

	st := tracker.Current()
	assert.True(t, st.Ready)
	require.NotNil(t, st.LastOrder)
	assert.Equal(t, "o-1", st.LastOrder.OrderID)
	assert.Equal(t, order.StatusDone, st.LastOrder.Status)
	assert.False(t, st.LastOrder.FinishedAt.IsZero())

	depth, _ := q.Depth(context.Background())
	assert.Equal(t, int64(0), depth, "message must be acked after DONE")
}

func TestProcess_InsufficientStock(t *testing.T) {
	m, l, tracker := newTestMachine(t, ledger.Snapshot{"beans": 0, "milk": 10}, nil)
	q := queue.NewMemory(4)

	d := publishOrder(t, q, order.Message{OrderID: "o-2", Type: "espresso"})
	require.NoError(t, m.Process(context.Background(), d))

	// Business failure: ledger untouched, machine idle, message acked.
	assert.Equal(t, 0, l.Read()["beans"])

	st := tracker.Current()
	assert.True(t, st.Ready)
	require.NotNil(t, st.LastOrder)
	assert.Equal(t, order.StatusFailed, st.LastOrder.Status)
	assert.Equal(t, "beans insufficient", st.LastOrder.Reason)

	depth, _ := q.Depth(context.Background())
	assert.Equal(t, int64(0), depth, "insufficient stock is terminal, not retried")
}

func TestProcess_UnknownType(t *testing.T) {
	m, l, tracker := newTestMachine(t, ledger.Snapshot{"beans": 20, "milk": 10}, nil)
	q := queue.NewMemory(4)

	d := publishOrder(t, q, order.Message{OrderID: "o-3", Type: "tea"})
	require.NoError(t, m.Process(context.Background(), d))

	assert.Equal(t, ledger.Snapshot{"beans": 20, "milk": 10}, l.Read())

	st := tracker.Current()
	require.NotNil(t, st.LastOrder)
	assert.Equal(t, order.StatusFailed, st.LastOrder.Status)
	assert.Equal(t, "unknown drink type", st.LastOrder.Reason)

	depth, _ := q.Depth(context.Background())
	assert.Equal(t, int64(0), depth)
}

func TestProcess_InvalidPayloadIsDropped(t *testing.T) {
	m, _, tracker := newTestMachine(t, ledger.Snapshot{"beans": 20, "milk": 10}, nil)
	q := queue.NewMemory(4)

	require.NoError(t, q.Publish(context.Background(), nil, []byte("not json")))
	d, err := q.Fetch(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Process(context.Background(), d))

	assert.Nil(t, tracker.Current().LastOrder, "garbage must not produce an outcome")
	depth, _ := q.Depth(context.Background())
	assert.Equal(t, int64(0), depth, "garbage is acked away, never redelivered")
}

// Redelivering an already-completed order runs the whole pipeline again
// and deducts stock a second time. At-least-once delivery without dedup
// makes this the specified behavior, not a bug to patch here.
func TestProcess_RedeliveryDeductsTwice(t *testing.T) {
	m, l, tracker := newTestMachine(t, ledger.Snapshot{"beans": 20, "milk": 10}, nil)
	q := queue.NewMemory(4)

	msg := order.Message{OrderID: "o-4", Type: "cappuccino", Timestamp: time.Now().UTC()}

	d := publishOrder(t, q, msg)
	require.NoError(t, m.Process(context.Background(), d))
	assert.Equal(t, ledger.Snapshot{"beans": 19, "milk": 8}, l.Read())

	// Same order id, same payload, delivered again.
	redelivered := publishOrder(t, q, msg)
	require.NoError(t, m.Process(context.Background(), redelivered))

	assert.Equal(t, ledger.Snapshot{"beans": 18, "milk": 6}, l.Read(),
		"second delivery deducts again against current stock")
	assert.Equal(t, order.StatusDone, tracker.Current().LastOrder.Status)
}

func TestProcess_PublishesOnFailureChannel(t *testing.T) {
	failed := queue.NewMemory(4)
	m, _, _ := newTestMachine(t, ledger.Snapshot{"beans": 0, "milk": 0}, failed)
	q := queue.NewMemory(4)

	d := publishOrder(t, q, order.Message{OrderID: "o-5", Type: "coffee"})
	require.NoError(t, m.Process(context.Background(), d))

	fd, err := failed.Fetch(context.Background())
	require.NoError(t, err)

	var f order.Failure
	require.NoError(t, json.Unmarshal(fd.Value, &f))
	assert.Equal(t, "o-5", f.OrderID)
	assert.Equal(t, "coffee", f.Type)
	assert.Equal(t, "beans insufficient", f.Reason)
}

type failingLedger struct{}

func (failingLedger) TryDeduct(context.Context, []ledger.Amount) (ledger.Snapshot, error) {
	return nil, errors.New("connection refused")
}

func TestProcess_LedgerFaultLeavesMessageUnacked(t *testing.T) {
	tracker := status.NewTracker()
	m := New(failingLedger{}, tracker, nil, 0, zap.NewNop())
	q := queue.NewMemory(4)

	d := publishOrder(t, q, order.Message{OrderID: "o-6", Type: "espresso"})
	err := m.Process(context.Background(), d)

	require.Error(t, err, "transient ledger faults are not terminal")
	depth, _ := q.Depth(context.Background())
	assert.Equal(t, int64(1), depth, "unacked message stays pending for redelivery")
	assert.Nil(t, tracker.Current().LastOrder)
}

func TestConsumer_EndToEnd(t *testing.T) {
	m, l, tracker := newTestMachine(t, ledger.Snapshot{"beans": 20, "milk": 10}, nil)
	q := queue.NewMemory(16)
	consumer := NewConsumer(q, m, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Run(ctx)
	}()

	msg := order.Message{OrderID: "o-7", Type: "cappuccino", Timestamp: time.Now().UTC()}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, []byte(msg.OrderID), payload))

	require.Eventually(t, func() bool {
		st := tracker.Current()
		return st.Ready && st.LastOrder != nil && st.LastOrder.OrderID == "o-7"
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, order.StatusDone, tracker.Current().LastOrder.Status)
	assert.Equal(t, ledger.Snapshot{"beans": 19, "milk": 8}, l.Read(),
		"exactly one deduction matching the cappuccino recipe")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop on cancellation")
	}
}
