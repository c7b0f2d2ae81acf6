// Package status tracks the fulfillment machine's readiness and its last
// processed order.
package status

import (
	"sync"

	"github.com/ecw74/coffe-tech-demo/internal/order"
)

// MachineStatus is the snapshot returned to status queries. LastOrder is
// nil until the first order has been processed.
type MachineStatus struct {
	Ready     bool           `json:"ready"`
	LastOrder *order.Outcome `json:"last_order"`
}

// Tracker is a single-writer, multi-reader status cell. The fulfillment
// machine is the only writer; any number of status queries may read
// concurrently.
type Tracker struct {
	mu    sync.RWMutex
	ready bool
	last  *order.Outcome
}

// NewTracker returns a tracker in the ready state with no last order.
func NewTracker() *Tracker {
	return &Tracker{ready: true}
}

// Current returns the latest consistent snapshot without blocking on the
// writer beyond the read lock.
func (t *Tracker) Current() MachineStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *order.Outcome
	if t.last != nil {
		o := *t.last
		last = &o
	}
	return MachineStatus{Ready: t.ready, LastOrder: last}
}

// SetPreparing marks the machine busy while a drink is being prepared.
func (t *Tracker) SetPreparing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = false
}

// Record stores the terminal outcome of an order and marks the machine
// ready again.
func (t *Tracker) Record(o order.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = true
	t.last = &o
}
