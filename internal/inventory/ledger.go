package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ShortfallError details an insufficient stock rejection.
type ShortfallError struct {
	Key       Key
	Quantity  string
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("%s: %s at %s would become %s (change %s)", ErrInsufficientStock, e.Quantity, e.Key, e.Remaining, e.Requested)
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficientStock }

// ApplyDelta returns the balance after applying signed onhand and reserved
// deltas. It never mutates its input and rejects any result that would leave
// onhand, reserved or available negative.
func ApplyDelta(b Balance, onhandDelta, reservedDelta decimal.Decimal) (Balance, error) {
	next := b
	next.Onhand = b.Onhand.Add(onhandDelta)
	next.Reserved = b.Reserved.Add(reservedDelta)
	switch {
	case next.Onhand.IsNegative():
		return b, &ShortfallError{Key: b.Key, Quantity: "onhand", Requested: onhandDelta, Remaining: next.Onhand}
	case next.Reserved.IsNegative():
		return b, &ShortfallError{Key: b.Key, Quantity: "reserved", Requested: reservedDelta, Remaining: next.Reserved}
	case next.Available().IsNegative():
		return b, &ShortfallError{Key: b.Key, Quantity: "available", Requested: reservedDelta.Sub(onhandDelta), Remaining: next.Available()}
	}
	return next, nil
}

// Replayer folds movement records into balances starting from zero.
type Replayer struct {
	balances map[Key]Balance
	count    int
}

// NewReplayer constructs an empty Replayer.
func NewReplayer() *Replayer {
	return &Replayer{balances: make(map[Key]Balance)}
}

// Apply folds one movement.
func (r *Replayer) Apply(m Movement) {
	b, ok := r.balances[m.Key]
	if !ok {
		b = Balance{Key: m.Key}
	}
	b.Onhand = b.Onhand.Add(m.QuantityChange)
	b.Reserved = b.Reserved.Add(m.ReservedChange)
	if m.CreatedAt.After(b.UpdatedAt) {
		b.UpdatedAt = m.CreatedAt
	}
	r.balances[m.Key] = b
	r.count++
}

// Count returns the number of folded movements.
func (r *Replayer) Count() int { return r.count }

// Balances returns the replayed balance per key.
func (r *Replayer) Balances() map[Key]Balance {
	out := make(map[Key]Balance, len(r.balances))
	for k, b := range r.balances {
		out[k] = b
	}
	return out
}

// Replay folds the movement log into balances per key.
func Replay(movements []Movement) map[Key]Balance {
	r := NewReplayer()
	for _, m := range movements {
		r.Apply(m)
	}
	return r.Balances()
}
