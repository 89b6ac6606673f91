/*
Package allocation provides the batch allocation and unit-conversion engine.

PURPOSE:
  This package contains the core types and algorithms for fulfilling a
  required quantity of a product from a set of expiring inventory lots
  ("batches"): which batches to draw from, in what order, with quantities
  converted between measurement units and manual overrides clamped to
  what each batch actually has.

KEY CONCEPTS IN THIS FILE (types.go):
  - Unit: A measurement unit symbol (g, kg, ml, l, ...)
  - Batch: A read-only inventory lot with quantity, expiry, and price
  - AllocationTarget: The caller's demand (product, quantity, display unit)
  - AllocationResult: Derived totals, never stored

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Derivation: Totals are always recomputed from the ledger, never cached
  3. Clamping: A selection can never exceed a batch's converted availability
  4. FEFO: Batches nearest expiry are offered first

SEE ALSO:
  - convert.go: Unit conversion table
  - catalog.go: Eligible batch filtering and FEFO ordering
  - ledger.go: The mutable selection state machine
  - totals.go: Derived totals calculation
  - session.go: Per-product session wiring all of the above together
*/
package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// UNITS
// =============================================================================

// Unit is a measurement unit symbol. The supported set is small and fixed
// by the product domain; see convert.go for the conversion table.
type Unit string

const (
	UnitMilligram  Unit = "mg"
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "l"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BatchID int64
type ProductID int64

// =============================================================================
// BATCH - Read-only inventory lot (owned by the inventory service)
// =============================================================================

type BatchStatus string

const (
	StatusActive   BatchStatus = "active"
	StatusInactive BatchStatus = "inactive"
)

// Batch is a tracked lot of a product. The engine never mutates batches;
// they are a snapshot refreshed by the caller.
type Batch struct {
	ID         BatchID
	ProductID  ProductID
	Quantity   decimal.Decimal // in NativeUnit
	NativeUnit Unit
	ExpiryDate time.Time
	UnitPrice  decimal.Decimal // per canonical reference unit
	Status     BatchStatus
}

// Eligible reports whether the batch can be drawn from at all.
func (b Batch) Eligible() bool {
	return b.Status == StatusActive && b.Quantity.IsPositive()
}

// =============================================================================
// ALLOCATION TARGET - The caller's authoritative demand
// =============================================================================

// AllocationTarget describes how much of which product is needed, and in
// which unit the caller wants quantities expressed.
type AllocationTarget struct {
	ProductID      ProductID
	TargetQuantity decimal.Decimal // in DisplayUnit
	DisplayUnit    Unit
}

// =============================================================================
// ALLOCATION RESULT - Derived state, recomputed on every change
// =============================================================================

// AllocationResult is the tuple handed back to the caller. BatchIDs and
// Quantities follow ledger insertion order (the order batches were
// selected), giving the caller a stable list to submit.
type AllocationResult struct {
	BatchIDs          []BatchID
	Quantities        []decimal.Decimal
	TotalSelected     decimal.Decimal
	RemainingNeeded   decimal.Decimal
	Excess            decimal.Decimal
	Unit              Unit
	TargetMet         bool
	StockInsufficient bool
}

// =============================================================================
// QUANTITY HELPERS
// =============================================================================

// Round2 rounds to two decimal places. Applied at presentation and
// validation boundaries only, never inside Convert.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseQuantity parses operator input into a quantity rounded to two
// decimals. The second return is false for non-numeric input.
func ParseQuantity(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return Round2(d), true
}
