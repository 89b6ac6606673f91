/*
ledger.go - The allocation ledger, the mutable heart of the engine

PURPOSE:
  Maps each batch to the quantity selected from it, in the caller's
  display unit. Every mutation re-validates against that batch's
  converted availability, so the map can never hold an impossible
  selection.

CRITICAL INVARIANTS:
  1. Every stored value is > 0. A selection reaching zero transitions
     back to "unselected" (absent from the map); there is no
     "selected with qty = 0" state.
  2. Every stored value is <= that batch's converted availability.
     Violations are clamped immediately, never left standing.
  3. Insertion order is preserved. The result arrays follow the order
     batches were selected, not expiry order - the caller needs a
     stable list to submit.

OVER-LIMIT SIGNALING:
  Clamping is not a failure: the operation still succeeds and the
  stored value becomes the maximum. Each mutator reports whether it
  clamped so the session can raise a transient advisory. Adjustments
  already sitting at the ceiling do not re-signal on every tick, to
  avoid repeated noise.

TOTALITY:
  All operations are synchronous and total. Invalid input degrades to
  "no selection" rather than raising an error - this is operator-facing
  allocation, not a correctness-critical financial ledger.

SEE ALSO:
  - catalog.go: Where availability ceilings come from
  - totals.go: Derives AllocationResult from this ledger
  - session.go: Owns one ledger per product session
*/
package allocation

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger holds the per-session batch selections. Not safe for concurrent
// use on its own; the owning Session serializes access.
type Ledger struct {
	selected  map[BatchID]decimal.Decimal
	order     []BatchID          // insertion order of selected batches
	overLimit map[BatchID]bool   // standing over-limit conditions
}

func NewLedger() *Ledger {
	return &Ledger{
		selected:  make(map[BatchID]decimal.Decimal),
		overLimit: make(map[BatchID]bool),
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// Quantity returns the selected quantity for a batch, and whether the
// batch is selected at all.
func (l *Ledger) Quantity(id BatchID) (decimal.Decimal, bool) {
	qty, ok := l.selected[id]
	return qty, ok
}

// Len returns the number of selected batches.
func (l *Ledger) Len() int {
	return len(l.selected)
}

// Total sums all selected quantities, unrounded.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, qty := range l.selected {
		total = total.Add(qty)
	}
	return total
}

// Snapshot returns the selected (batchID, quantity) pairs in insertion
// order. The returned slices are copies.
func (l *Ledger) Snapshot() ([]BatchID, []decimal.Decimal) {
	ids := make([]BatchID, len(l.order))
	quantities := make([]decimal.Decimal, len(l.order))
	for i, id := range l.order {
		ids[i] = id
		quantities[i] = l.selected[id]
	}
	return ids, quantities
}

// OverLimit reports whether a batch has a standing over-limit condition.
func (l *Ledger) OverLimit(id BatchID) bool {
	return l.overLimit[id]
}

// =============================================================================
// MUTATIONS
// =============================================================================
// Every mutator takes the batch's current converted availability as a
// precondition input. The bool return reports whether the call clamped
// (i.e. an over-limit advisory should be raised).

// SetQuantity applies a manual entry. Non-numeric or non-positive input
// removes the selection. Input above availability is clamped to it and
// signaled. Any prior over-limit condition for the batch is cleared
// before re-evaluating.
func (l *Ledger) SetQuantity(id BatchID, raw string, available decimal.Decimal) bool {
	delete(l.overLimit, id)

	qty, ok := ParseQuantity(raw)
	if !ok || !qty.IsPositive() {
		l.remove(id)
		return false
	}

	if qty.GreaterThan(available) {
		l.store(id, available)
		if _, selected := l.selected[id]; selected {
			l.overLimit[id] = true
		}
		return true
	}

	l.store(id, qty)
	return false
}

// AdjustQuantity adds delta (typically +-0.5) to the current selection,
// treating absent as zero. The result floors at zero (removal) and
// clamps at availability. The over-limit condition is signaled only on
// the transition into the ceiling, not on every adjustment once there.
func (l *Ledger) AdjustQuantity(id BatchID, delta, available decimal.Decimal) bool {
	current := l.selected[id] // zero value when absent
	next := Round2(current.Add(delta))

	if !next.IsPositive() {
		l.remove(id)
		return false
	}

	if next.GreaterThan(available) {
		alreadyAtCeiling := current.GreaterThanOrEqual(available)
		l.store(id, available)
		if !alreadyAtCeiling {
			l.overLimit[id] = true
			return true
		}
		return false
	}

	delete(l.overLimit, id)
	l.store(id, next)
	return false
}

// SelectQuantity stores min(requested, available) if the result is
// positive; otherwise it makes no change. Used by the select shortcuts,
// which never over-ask, so no over-limit condition is raised here.
func (l *Ledger) SelectQuantity(id BatchID, requested, available decimal.Decimal) {
	qty := Round2(decimal.Min(requested, available))
	if !qty.IsPositive() {
		return
	}
	l.store(id, qty)
}

// SelectAll selects the batch's full availability.
func (l *Ledger) SelectAll(id BatchID, available decimal.Decimal) {
	l.SelectQuantity(id, available, available)
}

// SelectRemaining is the one-click "fill the gap from this batch" action.
func (l *Ledger) SelectRemaining(id BatchID, remainingNeeded, available decimal.Decimal) {
	l.SelectQuantity(id, decimal.Min(remainingNeeded, available), available)
}

// RemoveSelection deletes the entry and any over-limit condition,
// unconditionally.
func (l *Ledger) RemoveSelection(id BatchID) {
	l.remove(id)
}

// Rescale multiplies every selection by factor, used when the display
// unit changes so existing selections are re-expressed, not lost. Full
// precision is kept: a shrinking factor (g to kg is 0.001) would round
// small selections to zero and strand a zero-valued entry in the map.
// Rounding happens where quantities are presented, never here.
func (l *Ledger) Rescale(factor decimal.Decimal) {
	for id, qty := range l.selected {
		l.selected[id] = qty.Mul(factor)
	}
}

// Clear empties the ledger and all over-limit conditions.
func (l *Ledger) Clear() {
	l.selected = make(map[BatchID]decimal.Decimal)
	l.order = l.order[:0]
	l.overLimit = make(map[BatchID]bool)
}

// =============================================================================
// INTERNALS
// =============================================================================

// store upserts an entry, enforcing invariant 1 at the boundary: a
// non-positive quantity (a zero availability ceiling, say) is a removal,
// never a stored zero.
func (l *Ledger) store(id BatchID, qty decimal.Decimal) {
	if !qty.IsPositive() {
		l.remove(id)
		return
	}
	if _, exists := l.selected[id]; !exists {
		l.order = append(l.order, id)
	}
	l.selected[id] = qty
}

func (l *Ledger) remove(id BatchID) {
	if _, exists := l.selected[id]; !exists {
		delete(l.overLimit, id)
		return
	}
	delete(l.selected, id)
	delete(l.overLimit, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
