// Package order defines the order messages exchanged between intake and
// the fulfillment machine, and the intake service that accepts them.
package order

import "time"

// Message is the payload published on the order.placed channel. Immutable
// once published; the queue owns it until a consumer acks it.
type Message struct {
	OrderID   string    `json:"order_id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the terminal result of processing one order.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Outcome records how an order ended. Produced once per processed
// delivery (a redelivered order produces a fresh outcome).
type Outcome struct {
	OrderID    string    `json:"order_id"`
	Type       string    `json:"type"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Failure is the payload published on the order.failed channel for
// business failures (insufficient stock, unknown type). Pure
// observability sink; nothing in this system consumes it.
type Failure struct {
	OrderID string `json:"order_id"`
	Type    string `json:"type"`
	Reason  string `json:"reason"`
}
