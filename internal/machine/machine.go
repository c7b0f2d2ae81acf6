// Package machine implements the order fulfillment state machine: it
// consumes queued orders one at a time, deducts ingredients from the
// ledger and records the outcome in the status tracker.
package machine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ecw74/coffe-tech-demo/internal/ledger"
	"github.com/ecw74/coffe-tech-demo/internal/order"
	"github.com/ecw74/coffe-tech-demo/internal/queue"
	"github.com/ecw74/coffe-tech-demo/internal/recipe"
	"github.com/ecw74/coffe-tech-demo/internal/status"
)

// State is the per-order fulfillment state.
type State string

const (
	StateReceived        State = "RECEIVED"
	StateResolvingRecipe State = "RESOLVING_RECIPE"
	StateCheckingStock   State = "CHECKING_STOCK"
	StateDeducting       State = "DEDUCTING"
	StatePreparing       State = "PREPARING"
	StateDone            State = "DONE"
	StateInsufficient    State = "INSUFFICIENT_STOCK"
	StateUnknownType     State = "UNKNOWN_TYPE"
)

// Terminal reports whether no further action is taken for the order.
func (s State) Terminal() bool {
	return s == StateDone || s == StateInsufficient || s == StateUnknownType
}

// Ledger is the stock store the machine deducts from. Satisfied by both
// the in-memory ledger and the remote inventory client.
type Ledger interface {
	TryDeduct(ctx context.Context, amounts []ledger.Amount) (ledger.Snapshot, error)
}

// Machine processes one order at a time. It is not safe for concurrent
// Process calls; the single consumer loop is what makes the tracker's
// ready flag meaningful as a global busy indicator.
type Machine struct {
	ledger  Ledger
	tracker *status.Tracker

	// failures is the optional order.failed sink. Publishing business
	// failures there is a policy choice, controlled by the caller wiring
	// a producer or passing nil.
	failures queue.Producer

	prepDelay time.Duration
	log       *zap.Logger
	tracer    trace.Tracer
}

// New creates a fulfillment machine. failures may be nil to disable the
// order.failed channel.
func New(l Ledger, tracker *status.Tracker, failures queue.Producer, prepDelay time.Duration, log *zap.Logger) *Machine {
	return &Machine{
		ledger:    l,
		tracker:   tracker,
		failures:  failures,
		prepDelay: prepDelay,
		log:       log,
		tracer:    otel.Tracer("machine-service"),
	}
}

// Process runs one delivery through the state machine and acks it once a
// terminal state is reached and reflected in the tracker. The ack ordering
// is the at-least-once contract: a crash before ack causes redelivery and
// a full re-run, which may deduct stock a second time. There is
// deliberately no order-id dedup here; if idempotent processing is ever
// wanted it needs a dedup set with bounded retention, not a silent fix in
// this loop.
func (m *Machine) Process(ctx context.Context, d queue.Delivery) error {
	msgCtx := m.extractTraceContext(ctx, d.Headers)

	var msg order.Message
	if err := json.Unmarshal(d.Value, &msg); err != nil {
		m.log.Error("❌ Invalid order message, discarding",
			zap.Error(err),
			zap.ByteString("raw_value", d.Value),
		)
		// Malformed payloads can never become valid; drop them.
		return d.Ack(ctx)
	}

	m.log.Info("📨 Order received",
		zap.String("order_id", msg.OrderID),
		zap.String("type", msg.Type),
		zap.Time("placed_at", msg.Timestamp),
	)

	st := m.fulfill(msgCtx, msg)
	if !st.Terminal() {
		// Transient fault (ledger unreachable). Leave the message unacked
		// so the channel redelivers it.
		return fmt.Errorf("order %s stalled in %s", msg.OrderID, st)
	}

	m.log.Info("Order reached terminal state",
		zap.String("order_id", msg.OrderID),
		zap.String("state", string(st)),
	)
	return d.Ack(ctx)
}

// fulfill drives the order through the state transitions and returns the
// last state reached. Terminal outcomes are stored in the tracker before
// this returns.
func (m *Machine) fulfill(ctx context.Context, msg order.Message) State {
	ctx, span := m.tracer.Start(ctx, "fulfill_order")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", msg.OrderID),
		attribute.String("order.type", msg.Type),
	)

	st := m.transition(span, StateReceived)

	st = m.transition(span, StateResolvingRecipe)
	amounts, err := recipe.RequirementsFor(msg.Type)
	if err != nil {
		st = m.transition(span, StateUnknownType)
		span.SetStatus(codes.Error, "unknown drink type")
		m.log.Error("❌ Unknown beverage type",
			zap.String("order_id", msg.OrderID),
			zap.String("type", msg.Type),
		)
		m.recordFailure(ctx, msg, "unknown drink type")
		return st
	}

	st = m.transition(span, StateCheckingStock)
	_, err = m.ledger.TryDeduct(ctx, amounts)
	var insufficient *ledger.InsufficientStockError
	if errors.As(err, &insufficient) {
		st = m.transition(span, StateInsufficient)
		span.SetStatus(codes.Error, insufficient.Error())
		m.log.Error("❌ Insufficient ingredients",
			zap.String("order_id", msg.OrderID),
			zap.String("type", msg.Type),
			zap.String("ingredient", insufficient.Ingredient),
			zap.Int("required", insufficient.Required),
			zap.Int("available", insufficient.Available),
		)
		m.recordFailure(ctx, msg, fmt.Sprintf("%s insufficient", insufficient.Ingredient))
		return st
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.log.Error("❌ Ledger call failed",
			zap.Error(err),
			zap.String("order_id", msg.OrderID),
		)
		return st
	}
	st = m.transition(span, StateDeducting)

	st = m.transition(span, StatePreparing)
	m.tracker.SetPreparing()
	m.prepare(ctx)

	st = m.transition(span, StateDone)
	m.tracker.Record(order.Outcome{
		OrderID:    msg.OrderID,
		Type:       msg.Type,
		Status:     order.StatusDone,
		FinishedAt: time.Now().UTC(),
	})
	span.SetStatus(codes.Ok, "order done")
	m.log.Info("✅ Order completed", zap.String("order_id", msg.OrderID))
	return st
}

// transition records a state change on the active span.
func (m *Machine) transition(span trace.Span, to State) State {
	span.AddEvent("state_transition", trace.WithAttributes(
		attribute.String("order.state", string(to)),
	))
	return to
}

// prepare simulates the bounded preparation delay. Only process shutdown
// cuts it short; individual orders are not cancellable once dequeued.
func (m *Machine) prepare(ctx context.Context) {
	if m.prepDelay <= 0 {
		return
	}
	timer := time.NewTimer(m.prepDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// recordFailure stores a failed outcome (the machine stays ready: it is
// idle, it just could not serve) and optionally notifies order.failed.
func (m *Machine) recordFailure(ctx context.Context, msg order.Message, reason string) {
	m.tracker.Record(order.Outcome{
		OrderID:    msg.OrderID,
		Type:       msg.Type,
		Status:     order.StatusFailed,
		Reason:     reason,
		FinishedAt: time.Now().UTC(),
	})

	if m.failures == nil {
		return
	}
	payload, err := json.Marshal(order.Failure{
		OrderID: msg.OrderID,
		Type:    msg.Type,
		Reason:  reason,
	})
	if err != nil {
		return
	}
	if err := m.failures.Publish(ctx, []byte(msg.OrderID), payload); err != nil {
		m.log.Error("❌ Failed to publish order.failed event",
			zap.Error(err),
			zap.String("order_id", msg.OrderID),
		)
	}
}

// extractTraceContext restores the trace context injected by the producer
// into the message headers.
func (m *Machine) extractTraceContext(ctx context.Context, headers map[string]string) context.Context {
	propagator := otel.GetTextMapPropagator()
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		carrier[k] = v
	}
	return propagator.Extract(ctx, carrier)
}
