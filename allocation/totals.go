/*
totals.go - Derived totals, recomputed on every change

PURPOSE:
  Computes the AllocationResult from the ledger and the current target.
  There is no stored "totals" state that can drift out of sync; every
  ledger or target change recomputes from scratch.

SUFFICIENCY vs FEASIBILITY:
  - TargetMet is strict sufficiency: totalSelected >= target.
    Over-allocation still counts as met; the overshoot is reported
    separately via Excess.
  - StockInsufficient is feasibility, independent of the ledger: the sum
    of all eligible batches' availability is below the target, so no
    combination of selections can satisfy the request.

SEE ALSO:
  - ledger.go: Source of the selected quantities
  - session.go: Calls this after every mutation
*/
package allocation

import (
	"github.com/shopspring/decimal"
)

// ComputeTotals derives the AllocationResult for the current ledger,
// target, and availability map. Pure; the ledger is only read.
func ComputeTotals(ledger *Ledger, target AllocationTarget, availability map[BatchID]decimal.Decimal) AllocationResult {
	ids, quantities := ledger.Snapshot()
	totalSelected := Round2(ledger.Total())

	remaining := target.TargetQuantity.Sub(totalSelected)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	excess := totalSelected.Sub(target.TargetQuantity)
	if excess.IsNegative() {
		excess = decimal.Zero
	}

	return AllocationResult{
		BatchIDs:          ids,
		Quantities:        quantities,
		TotalSelected:     totalSelected,
		RemainingNeeded:   remaining,
		Excess:            excess,
		Unit:              target.DisplayUnit,
		TargetMet:         totalSelected.GreaterThanOrEqual(target.TargetQuantity),
		StockInsufficient: TotalAvailability(availability).LessThan(target.TargetQuantity),
	}
}
