// Package ledger holds the in-memory ingredient stock counters.
//
// Every counter is a non-negative integer. Mutations go through Refill
// (additive) or TryDeduct (all-or-nothing consumption); both run under a
// single exclusive lock so concurrent refills and deductions can never
// drive a counter below zero or expose a partially applied update.
package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Snapshot is a point-in-time copy of the stock counters.
type Snapshot map[string]int

// Amount pairs an ingredient with a quantity. Deductions are expressed as
// an ordered list of amounts so that the first insufficient ingredient is
// reported deterministically.
type Amount struct {
	Ingredient string
	Quantity   int
}

// ValidationError reports a malformed refill request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ErrNoValues is returned when a refill carries no recognized deltas.
var ErrNoValues = &ValidationError{Msg: "No values to update"}

// InsufficientStockError reports the first ingredient that could not cover
// a requested deduction. The ledger is left untouched when it is returned.
type InsufficientStockError struct {
	Ingredient string `json:"ingredient"`
	Required   int    `json:"required"`
	Available  int    `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s insufficient: need %d, have %d", e.Ingredient, e.Required, e.Available)
}

// Ledger is the process-wide stock store. The zero value is not usable;
// construct it with New.
type Ledger struct {
	mu     sync.Mutex
	counts map[string]int
}

// New creates a ledger seeded with the given initial stock.
func New(initial Snapshot) *Ledger {
	counts := make(map[string]int, len(initial))
	for k, v := range initial {
		counts[k] = v
	}
	return &Ledger{counts: counts}
}

// Read returns a copy of the current counters. A concurrent mutation is
// observed either fully applied or not at all.
func (l *Ledger) Read() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Known reports whether the ledger tracks the given ingredient.
func (l *Ledger) Known(ingredient string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.counts[ingredient]
	return ok
}

// Refill adds the given deltas to the current counters as a single atomic
// unit. It rejects an empty delta set and any negative delta; on error the
// ledger is unchanged.
func (l *Ledger) Refill(deltas Snapshot) (Snapshot, error) {
	if len(deltas) == 0 {
		return nil, ErrNoValues
	}
	for ingredient, delta := range deltas {
		if delta < 0 {
			return nil, &ValidationError{Msg: fmt.Sprintf("%s must be non-negative", ingredient)}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for ingredient, delta := range deltas {
		l.counts[ingredient] += delta
	}
	return l.snapshotLocked(), nil
}

// TryDeduct atomically subtracts all amounts if and only if every counter
// covers its requested quantity. On failure it returns an
// InsufficientStockError for the first short ingredient in the order given
// and leaves every counter untouched.
//
// ctx is accepted for symmetry with the remote inventory client; the
// in-memory ledger never blocks on it.
func (l *Ledger) TryDeduct(ctx context.Context, amounts []Amount) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, a := range amounts {
		if available := l.counts[a.Ingredient]; available < a.Quantity {
			return nil, &InsufficientStockError{
				Ingredient: a.Ingredient,
				Required:   a.Quantity,
				Available:  available,
			}
		}
	}
	for _, a := range amounts {
		l.counts[a.Ingredient] -= a.Quantity
	}
	return l.snapshotLocked(), nil
}

func (l *Ledger) snapshotLocked() Snapshot {
	out := make(Snapshot, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}
