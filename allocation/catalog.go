/*
catalog.go - Eligible batch filtering and FEFO ordering

PURPOSE:
  Pure derivations over a raw batch snapshot:
  - EligibleBatches: which batches may be drawn from, nearest expiry first
  - ConvertedAvailability: how much each eligible batch offers in the
    caller's display unit

FEFO (First-Expired-First-Out):
  Batches nearest expiry are offered first, for both automatic and
  suggested-quantity allocation. Ties keep the snapshot's input order;
  no secondary sort key is imposed.

RECOMPUTATION:
  Both functions are side-effect free and recomputed whenever their
  inputs change: a batch refetch invalidates EligibleBatches, a display
  unit switch invalidates ConvertedAvailability. Nothing here is cached
  across a unit change.

SEE ALSO:
  - ledger.go: Consumes availability as the clamp ceiling
  - session.go: Drives recomputation on snapshot/unit changes
*/
package allocation

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ELIGIBILITY + FEFO ORDER
// =============================================================================

// EligibleBatches filters a raw snapshot to active batches with positive
// quantity and sorts them ascending by expiry date. The sort is stable so
// equal expiries keep their input order. The input slice is not modified.
func EligibleBatches(all []Batch) []Batch {
	eligible := make([]Batch, 0, len(all))
	for _, b := range all {
		if b.Eligible() {
			eligible = append(eligible, b)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].ExpiryDate.Before(eligible[j].ExpiryDate)
	})
	return eligible
}

// =============================================================================
// CONVERTED AVAILABILITY
// =============================================================================

// ConvertedAvailability maps each eligible batch to its available quantity
// expressed in displayUnit, rounded to two decimals. Pure in both inputs.
func ConvertedAvailability(eligible []Batch, displayUnit Unit) map[BatchID]decimal.Decimal {
	availability := make(map[BatchID]decimal.Decimal, len(eligible))
	for _, b := range eligible {
		availability[b.ID] = Round2(Convert(b.Quantity, b.NativeUnit, displayUnit))
	}
	return availability
}

// TotalAvailability sums converted availability across all batches.
// Used for the insufficient-stock check, which is ledger-independent.
func TotalAvailability(availability map[BatchID]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, qty := range availability {
		total = total.Add(qty)
	}
	return total
}
