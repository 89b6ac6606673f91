/*
session.go - Per-product allocation session

PURPOSE:
  Wires the pieces together for one product: the batch snapshot, the
  converted availability map, the ledger, the totals, and the debounced
  propagation back to the caller. One Session instance exclusively owns
  one ledger for the lifetime of one product session.

RESET CONTROLLER:
  SetTarget watches the externally supplied (productID, targetQuantity)
  pair against the previously *processed* values:
  - first pair: initialize an empty ledger
  - productID changed: clear the ledger and over-limit conditions, the
    old product's batches no longer apply
  - only targetQuantity changed: preserve the ledger, totals recompute
    against the new target
  - same pair re-supplied: no-op
  A display unit switch re-expresses availability and every existing
  ledger entry in the new unit; no selection is lost.

CONCURRENCY:
  Mutations are serialized under the session mutex. The only asynchrony
  is the two debounce timers; their fire callbacks re-check the product
  ID and drop stale notifications (see scheduler.go). The debounced
  callbacks are invoked outside the lock so they may call back into the
  session; Signal fires inline during the mutation and must not re-enter.

ERROR PROPAGATION:
  Nothing operator-driven errors out: over-limit input clamps, invalid
  numeric input removes. The sentinel errors cover misuse of the session
  boundary only (closed session, unknown batch, gated confirmation).

SEE ALSO:
  - ledger.go, catalog.go, totals.go, scheduler.go, errors.go
*/
package allocation

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALLBACKS
// =============================================================================

// Callbacks are the session's outputs. Any nil callback is skipped.
type Callbacks struct {
	// OnQuantityChange fires debounced (quantity window) with the total
	// selected quantity after a burst of mutations.
	OnQuantityChange func(totalSelected decimal.Decimal)

	// OnBatchSelect fires debounced (selection window) with the full
	// selection tuple in ledger insertion order.
	OnBatchSelect func(batchIDs []BatchID, quantities []decimal.Decimal, totalSelected decimal.Decimal, unit Unit)

	// Signal surfaces advisories. Presentation (toast, banner) is
	// entirely the caller's concern.
	Signal func(kind AdvisoryKind, message string)
}

// =============================================================================
// SESSION
// =============================================================================

type Session struct {
	callbacks Callbacks
	scheduler *Scheduler

	mu      sync.Mutex
	started bool
	closed  bool

	target       AllocationTarget
	batches      []Batch // eligible, FEFO order
	availability map[BatchID]decimal.Decimal
	ledger       *Ledger

	insufficient bool // last evaluated stock feasibility
}

// NewSession creates a session with the default debounce windows.
func NewSession(cb Callbacks) *Session {
	return NewSessionWithWindows(cb, DefaultQuantityWindow, DefaultSelectionWindow)
}

// NewSessionWithWindows creates a session with explicit debounce windows
// (tests use short ones).
func NewSessionWithWindows(cb Callbacks, quantityWindow, selectionWindow time.Duration) *Session {
	return &Session{
		callbacks:    cb,
		scheduler:    NewScheduler(quantityWindow, selectionWindow),
		availability: make(map[BatchID]decimal.Decimal),
		ledger:       NewLedger(),
	}
}

// Close tears the session down. Pending debounced notifications are
// dropped, per last-write-wins.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.scheduler.Close()
}

// =============================================================================
// TARGET - The reset controller
// =============================================================================

// SetTarget processes an externally supplied (productID, targetQuantity,
// displayUnit) triple per the reset rules above. targetQuantity is always
// interpreted in displayUnit: a caller changing the unit must re-express
// the quantity in the new unit, it is never converted from the old one.
func (s *Session) SetTarget(productID ProductID, targetQuantity decimal.Decimal, displayUnit Unit) error {
	if !KnownUnit(displayUnit) {
		panic(fmt.Sprintf("allocation: unsupported display unit %q", displayUnit))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	if !s.started {
		s.started = true
		s.target = AllocationTarget{ProductID: productID, TargetQuantity: targetQuantity, DisplayUnit: displayUnit}
		return nil
	}

	sameProduct := productID == s.target.ProductID
	sameQuantity := targetQuantity.Equal(s.target.TargetQuantity)
	sameUnit := displayUnit == s.target.DisplayUnit
	if sameProduct && sameQuantity && sameUnit {
		return nil // re-derived pair, nothing to process
	}

	if !sameProduct {
		// Batches belong to the old product; the ledger is invalid.
		s.ledger.Clear()
		s.batches = nil
		s.availability = make(map[BatchID]decimal.Decimal)
		s.insufficient = false
		s.target = AllocationTarget{ProductID: productID, TargetQuantity: targetQuantity, DisplayUnit: displayUnit}
		return nil
	}

	if !sameUnit {
		s.rescaleLocked(s.target.DisplayUnit, displayUnit)
		s.target.DisplayUnit = displayUnit
		s.target.TargetQuantity = targetQuantity
	} else {
		s.target.TargetQuantity = targetQuantity
	}

	s.evaluateStockLocked()
	return nil
}

// SetDisplayUnit switches the unit quantities are expressed in without
// touching the target quantity's meaning: the target itself is
// re-expressed too, along with availability and every ledger entry.
func (s *Session) SetDisplayUnit(unit Unit) error {
	if !KnownUnit(unit) {
		panic(fmt.Sprintf("allocation: unsupported display unit %q", unit))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.started {
		return ErrNoSession
	}
	if unit == s.target.DisplayUnit {
		return nil
	}

	old := s.target.DisplayUnit
	s.rescaleLocked(old, unit)
	s.target.TargetQuantity = Convert(s.target.TargetQuantity, old, unit)
	s.target.DisplayUnit = unit
	return nil
}

// rescaleLocked re-expresses availability and ledger entries from one
// unit to another. Availability is recomputed from the batch snapshot,
// never rescaled from a cached value; because it is rounded per unit, a
// full-precision rescaled entry can land a hair above the new ceiling,
// so entries are re-clamped after the rescale.
func (s *Session) rescaleLocked(from, to Unit) {
	s.availability = ConvertedAvailability(s.batches, to)
	s.ledger.Rescale(ConversionFactor(from, to))

	ids, quantities := s.ledger.Snapshot()
	for i, id := range ids {
		available, ok := s.availability[id]
		if !ok || !quantities[i].GreaterThan(available) {
			continue
		}
		if available.IsPositive() {
			s.ledger.SelectQuantity(id, available, available)
		} else {
			s.ledger.RemoveSelection(id)
		}
	}
}

// Target returns the currently processed target.
func (s *Session) Target() (AllocationTarget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.started
}

// =============================================================================
// BATCH SNAPSHOT
// =============================================================================

// LoadBatches installs a fresh snapshot of the product's batches,
// recomputing eligibility, FEFO order, and converted availability.
// Selections for batches that disappeared are removed; selections above
// their new availability are clamped, keeping the ledger invariant.
func (s *Session) LoadBatches(all []Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.started {
		return ErrNoSession
	}

	snapshot := make([]Batch, 0, len(all))
	for _, b := range all {
		if b.ProductID == s.target.ProductID {
			snapshot = append(snapshot, b)
		}
	}

	s.batches = EligibleBatches(snapshot)
	s.availability = ConvertedAvailability(s.batches, s.target.DisplayUnit)

	ids, quantities := s.ledger.Snapshot()
	for i, id := range ids {
		available, ok := s.availability[id]
		if !ok || !available.IsPositive() {
			s.ledger.RemoveSelection(id)
			continue
		}
		if quantities[i].GreaterThan(available) {
			s.ledger.SelectQuantity(id, available, available)
		}
	}

	s.evaluateStockLocked()
	return nil
}

// EligibleBatchList returns the current eligible batches in FEFO order.
func (s *Session) EligibleBatchList() []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Batch, len(s.batches))
	copy(out, s.batches)
	return out
}

// AvailabilityFor returns a batch's converted availability.
func (s *Session) AvailabilityFor(id BatchID) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qty, ok := s.availability[id]
	return qty, ok
}

// =============================================================================
// MUTATIONS
// =============================================================================

// SetQuantity applies a manual entry for a batch (see Ledger.SetQuantity).
func (s *Session) SetQuantity(id BatchID, raw string) error {
	return s.mutate(id, func(available decimal.Decimal) {
		if s.ledger.SetQuantity(id, raw, available) {
			s.signalOverLimitLocked(id, available)
		}
	})
}

// AdjustQuantity nudges a batch's selection by delta.
func (s *Session) AdjustQuantity(id BatchID, delta decimal.Decimal) error {
	return s.mutate(id, func(available decimal.Decimal) {
		if s.ledger.AdjustQuantity(id, delta, available) {
			s.signalOverLimitLocked(id, available)
		}
	})
}

// SelectAll selects a batch's full availability.
func (s *Session) SelectAll(id BatchID) error {
	return s.mutate(id, func(available decimal.Decimal) {
		s.ledger.SelectAll(id, available)
	})
}

// SelectRemaining fills the current gap from one batch.
func (s *Session) SelectRemaining(id BatchID) error {
	return s.mutate(id, func(available decimal.Decimal) {
		remaining := s.remainingLocked()
		s.ledger.SelectRemaining(id, remaining, available)
	})
}

// RemoveSelection drops a batch's selection unconditionally. Removing a
// batch that is not selected is a no-op, not an error.
func (s *Session) RemoveSelection(id BatchID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.started {
		s.mu.Unlock()
		return ErrNoSession
	}
	s.ledger.RemoveSelection(id)
	s.noteMutationLocked()
	s.mu.Unlock()
	return nil
}

// AutoFill allocates the remaining needed quantity greedily in FEFO
// order: each batch contributes its headroom until the target is met or
// the eligible batches run out.
func (s *Session) AutoFill() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.started {
		s.mu.Unlock()
		return ErrNoSession
	}

	remaining := s.remainingLocked()
	for _, b := range s.batches {
		if !remaining.IsPositive() {
			break
		}
		available := s.availability[b.ID]
		current, _ := s.ledger.Quantity(b.ID)
		headroom := available.Sub(current)
		if !headroom.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, headroom)
		s.ledger.SelectQuantity(b.ID, current.Add(take), available)
		remaining = remaining.Sub(take)
	}

	s.noteMutationLocked()
	s.mu.Unlock()
	return nil
}

// SuggestedQuantity returns the FEFO suggestion for one batch: the gap
// it could close, capped at its availability.
func (s *Session) SuggestedQuantity(id BatchID) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	available, ok := s.availability[id]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.Min(s.remainingLocked(), available), true
}

// mutate runs a ledger mutation against a known batch and schedules the
// debounced notifications.
func (s *Session) mutate(id BatchID, apply func(available decimal.Decimal)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.started {
		s.mu.Unlock()
		return ErrNoSession
	}
	available, ok := s.availability[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownBatch
	}

	apply(available)
	s.noteMutationLocked()
	s.mu.Unlock()
	return nil
}

// =============================================================================
// TOTALS + CONFIRMATION
// =============================================================================

// Totals recomputes the AllocationResult synchronously.
func (s *Session) Totals() AllocationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.ledger, s.target, s.availability)
}

// Confirm returns the selection tuple immediately, bypassing the
// debounce. Gated on the target being met; also gated when there are
// zero eligible batches rather than silently allowed through.
func (s *Session) Confirm() (AllocationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return AllocationResult{}, ErrSessionClosed
	}
	if !s.started {
		return AllocationResult{}, ErrNoSession
	}

	result := ComputeTotals(s.ledger, s.target, s.availability)
	if len(s.batches) == 0 || !result.TargetMet {
		return AllocationResult{}, ErrConfirmationGated
	}
	return result, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Session) remainingLocked() decimal.Decimal {
	remaining := s.target.TargetQuantity.Sub(Round2(s.ledger.Total()))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// noteMutationLocked schedules both debounce channels, capturing the
// current product so a stale fire is dropped.
func (s *Session) noteMutationLocked() {
	product := s.target.ProductID
	s.scheduler.NoteQuantity(product, s.fireQuantity)
	s.scheduler.NoteSelection(product, s.fireSelection)
}

// fireQuantity runs on the quantity channel's timer goroutine.
func (s *Session) fireQuantity(product ProductID) {
	s.mu.Lock()
	if s.closed || !s.started || product != s.target.ProductID {
		s.mu.Unlock()
		return // stale session, silently discarded
	}
	total := Round2(s.ledger.Total())
	cb := s.callbacks.OnQuantityChange
	s.mu.Unlock()

	if cb != nil {
		cb(total)
	}
}

// fireSelection runs on the selection channel's timer goroutine.
func (s *Session) fireSelection(product ProductID) {
	s.mu.Lock()
	if s.closed || !s.started || product != s.target.ProductID {
		s.mu.Unlock()
		return // stale session, silently discarded
	}
	ids, quantities := s.ledger.Snapshot()
	total := Round2(s.ledger.Total())
	unit := s.target.DisplayUnit
	cb := s.callbacks.OnBatchSelect
	s.mu.Unlock()

	if cb != nil {
		cb(ids, quantities, total, unit)
	}
}

// signalOverLimitLocked raises the transient clamp advisory.
func (s *Session) signalOverLimitLocked(id BatchID, available decimal.Decimal) {
	if s.callbacks.Signal == nil {
		return
	}
	s.callbacks.Signal(AdvisoryOverLimit,
		fmt.Sprintf("batch %d: requested quantity exceeds the available %s %s, clamped to maximum",
			id, available.String(), s.target.DisplayUnit))
}

// evaluateStockLocked re-checks feasibility and raises the standing
// advisory on the transition into the infeasible state.
func (s *Session) evaluateStockLocked() {
	insufficient := TotalAvailability(s.availability).LessThan(s.target.TargetQuantity)
	wasInsufficient := s.insufficient
	s.insufficient = insufficient

	if insufficient && !wasInsufficient && s.callbacks.Signal != nil {
		s.callbacks.Signal(AdvisoryInsufficientStock,
			fmt.Sprintf("eligible batches hold less than the required %s %s",
				s.target.TargetQuantity.String(), s.target.DisplayUnit))
	}
}
