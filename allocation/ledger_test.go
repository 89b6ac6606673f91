package allocation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// MANUAL ENTRY (SetQuantity)
// =============================================================================

func TestLedger_SetQuantity_Stores(t *testing.T) {
	l := allocation.NewLedger()

	overLimit := l.SetQuantity(1, "3.5", dec("8"))

	assert.False(t, overLimit)
	qty, ok := l.Quantity(1)
	require.True(t, ok)
	assert.True(t, qty.Equal(dec("3.5")))
}

func TestLedger_SetQuantity_RoundsToTwoDecimals(t *testing.T) {
	l := allocation.NewLedger()

	l.SetQuantity(1, "3.14159", dec("8"))

	qty, _ := l.Quantity(1)
	assert.True(t, qty.Equal(dec("3.14")))
}

func TestLedger_SetQuantity_ClampsAndSignalsOnce(t *testing.T) {
	// GIVEN: A batch with 8 available (Scenario C)
	// WHEN: The operator enters 12
	// THEN: 8 is stored, the call reports the clamp, the condition stands

	l := allocation.NewLedger()

	overLimit := l.SetQuantity(1, "12", dec("8"))

	assert.True(t, overLimit, "clamp should be signaled")
	qty, ok := l.Quantity(1)
	require.True(t, ok)
	assert.True(t, qty.Equal(dec("8")), "stored value should be clamped to available")
	assert.True(t, l.OverLimit(1))
}

func TestLedger_SetQuantity_ClearsPriorOverLimit(t *testing.T) {
	// A valid re-entry clears the standing condition before re-evaluating.
	l := allocation.NewLedger()
	l.SetQuantity(1, "12", dec("8"))
	require.True(t, l.OverLimit(1))

	overLimit := l.SetQuantity(1, "5", dec("8"))

	assert.False(t, overLimit)
	assert.False(t, l.OverLimit(1))
}

func TestLedger_SetQuantity_NonNumericRemoves(t *testing.T) {
	l := allocation.NewLedger()
	l.SetQuantity(1, "5", dec("8"))

	l.SetQuantity(1, "abc", dec("8"))

	_, ok := l.Quantity(1)
	assert.False(t, ok, "non-numeric input degrades to removal")
	assert.Equal(t, 0, l.Len())
}

func TestLedger_SetQuantity_NonPositiveRemoves(t *testing.T) {
	l := allocation.NewLedger()
	l.SetQuantity(1, "5", dec("8"))

	l.SetQuantity(1, "0", dec("8"))
	_, ok := l.Quantity(1)
	assert.False(t, ok, "zero is never stored; it transitions to unselected")

	l.SetQuantity(1, "5", dec("8"))
	l.SetQuantity(1, "-2", dec("8"))
	_, ok = l.Quantity(1)
	assert.False(t, ok)
}

// =============================================================================
// ADJUSTMENT (AdjustQuantity)
// =============================================================================

func TestLedger_AdjustQuantity_FromAbsent(t *testing.T) {
	l := allocation.NewLedger()

	l.AdjustQuantity(1, dec("0.5"), dec("8"))

	qty, ok := l.Quantity(1)
	require.True(t, ok)
	assert.True(t, qty.Equal(dec("0.5")), "absent treated as zero")
}

func TestLedger_AdjustQuantity_FloorsAtZero(t *testing.T) {
	l := allocation.NewLedger()
	l.SetQuantity(1, "0.5", dec("8"))

	l.AdjustQuantity(1, dec("-0.5"), dec("8"))

	_, ok := l.Quantity(1)
	assert.False(t, ok, "reaching zero transitions back to unselected")
}

func TestLedger_AdjustQuantity_ClampSignalsOnlyOnTransition(t *testing.T) {
	// GIVEN: A selection just below the ceiling
	// WHEN: Adjusting past the ceiling repeatedly
	// THEN: The over-limit condition is signaled once, not per tick

	l := allocation.NewLedger()
	l.SetQuantity(1, "7.8", dec("8"))

	first := l.AdjustQuantity(1, dec("0.5"), dec("8"))
	second := l.AdjustQuantity(1, dec("0.5"), dec("8"))
	third := l.AdjustQuantity(1, dec("0.5"), dec("8"))

	assert.True(t, first, "transition into the ceiling signals")
	assert.False(t, second, "already at the ceiling, no repeated noise")
	assert.False(t, third)
	qty, _ := l.Quantity(1)
	assert.True(t, qty.Equal(dec("8")))
}

func TestLedger_AdjustQuantity_BackBelowCeilingClearsCondition(t *testing.T) {
	l := allocation.NewLedger()
	l.SetQuantity(1, "7.8", dec("8"))
	l.AdjustQuantity(1, dec("0.5"), dec("8"))
	require.True(t, l.OverLimit(1))

	l.AdjustQuantity(1, dec("-0.5"), dec("8"))

	assert.False(t, l.OverLimit(1))
	qty, _ := l.Quantity(1)
	assert.True(t, qty.Equal(dec("7.5")))
}

// =============================================================================
// SELECT SHORTCUTS
// =============================================================================

func TestLedger_SelectQuantity_CapsAtAvailable(t *testing.T) {
	l := allocation.NewLedger()

	l.SelectQuantity(1, dec("12"), dec("8"))

	qty, _ := l.Quantity(1)
	assert.True(t, qty.Equal(dec("8")))
}

func TestLedger_SelectQuantity_NonPositiveNoChange(t *testing.T) {
	l := allocation.NewLedger()
	l.SetQuantity(1, "3", dec("8"))

	l.SelectQuantity(1, dec("0"), dec("8"))

	qty, ok := l.Quantity(1)
	require.True(t, ok, "a non-positive request performs no change")
	assert.True(t, qty.Equal(dec("3")))
}

func TestLedger_SelectAll(t *testing.T) {
	l := allocation.NewLedger()

	l.SelectAll(1, dec("8"))

	qty, _ := l.Quantity(1)
	assert.True(t, qty.Equal(dec("8")))
}

func TestLedger_SelectRemaining(t *testing.T) {
	l := allocation.NewLedger()

	// Gap smaller than availability: take the gap.
	l.SelectRemaining(1, dec("6"), dec("8"))
	qty, _ := l.Quantity(1)
	assert.True(t, qty.Equal(dec("6")))

	// Gap larger than availability: take everything there is.
	l.SelectRemaining(2, dec("20"), dec("8"))
	qty, _ = l.Quantity(2)
	assert.True(t, qty.Equal(dec("8")))
}

// =============================================================================
// REMOVAL + RESCALE + ORDER
// =============================================================================

func TestLedger_RemoveSelection(t *testing.T) {
	l := allocation.NewLedger()
	l.SetQuantity(1, "12", dec("8")) // leaves an over-limit condition

	l.RemoveSelection(1)

	_, ok := l.Quantity(1)
	assert.False(t, ok)
	assert.False(t, l.OverLimit(1), "removal clears the over-limit condition")
}

func TestLedger_Rescale(t *testing.T) {
	// Display unit kg -> g: every entry re-expressed, none lost.
	l := allocation.NewLedger()
	l.SetQuantity(1, "2.5", dec("4"))
	l.SetQuantity(2, "1", dec("8"))

	l.Rescale(dec("1000"))

	q1, _ := l.Quantity(1)
	q2, _ := l.Quantity(2)
	assert.True(t, q1.Equal(dec("2500")))
	assert.True(t, q2.Equal(dec("1000")))
	assert.Equal(t, 2, l.Len())
}

func TestLedger_Rescale_ShrinkKeepsSmallSelections(t *testing.T) {
	// GIVEN: A small selection in a fine-grained unit (4 g)
	// WHEN: Rescaling to a coarser unit (g -> kg, factor 0.001)
	// THEN: The entry survives at full precision instead of rounding to
	//       zero and stranding a zero-valued selection

	l := allocation.NewLedger()
	l.SetQuantity(1, "4", dec("100"))

	l.Rescale(dec("0.001"))

	q, ok := l.Quantity(1)
	require.True(t, ok, "selection must not be lost")
	assert.True(t, q.Equal(dec("0.004")))
	assert.True(t, q.IsPositive(), "stored values stay strictly positive")

	ids, quantities := l.Snapshot()
	require.Equal(t, []allocation.BatchID{1}, ids)
	assert.True(t, quantities[0].Equal(dec("0.004")))
}

func TestLedger_Rescale_NoRenormalization(t *testing.T) {
	// 123 g must become exactly 0.123 kg, not a two-decimal 0.12.
	l := allocation.NewLedger()
	l.SetQuantity(1, "123", dec("500"))

	l.Rescale(dec("0.001"))

	q, _ := l.Quantity(1)
	assert.True(t, q.Equal(dec("0.123")))
}

func TestLedger_SetQuantity_ZeroCeilingClampRemoves(t *testing.T) {
	// An availability ceiling of zero clamps to removal, never to a
	// stored zero entry.
	l := allocation.NewLedger()

	clamped := l.SetQuantity(1, "4", decimal.Zero)

	assert.True(t, clamped, "the entry was still over the limit")
	_, ok := l.Quantity(1)
	assert.False(t, ok)
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.OverLimit(1), "no standing condition on an absent entry")
}

func TestLedger_Snapshot_InsertionOrder(t *testing.T) {
	// GIVEN: Batches selected in a deliberate order
	// WHEN: Taking the snapshot
	// THEN: Pairs come back in selection order, not batch ID or expiry order

	l := allocation.NewLedger()
	l.SetQuantity(9, "1", dec("8"))
	l.SetQuantity(2, "2", dec("8"))
	l.SetQuantity(5, "3", dec("8"))

	ids, quantities := l.Snapshot()

	require.Equal(t, []allocation.BatchID{9, 2, 5}, ids)
	assert.True(t, quantities[0].Equal(dec("1")))
	assert.True(t, quantities[1].Equal(dec("2")))
	assert.True(t, quantities[2].Equal(dec("3")))
}

func TestLedger_Snapshot_UpdateKeepsPosition(t *testing.T) {
	l := allocation.NewLedger()
	l.SetQuantity(9, "1", dec("8"))
	l.SetQuantity(2, "2", dec("8"))

	l.SetQuantity(9, "4", dec("8")) // update, not re-insert

	ids, _ := l.Snapshot()
	assert.Equal(t, []allocation.BatchID{9, 2}, ids)
}

func TestLedger_Snapshot_RemovalCompactsOrder(t *testing.T) {
	l := allocation.NewLedger()
	l.SetQuantity(9, "1", dec("8"))
	l.SetQuantity(2, "2", dec("8"))
	l.SetQuantity(5, "3", dec("8"))

	l.RemoveSelection(2)

	ids, _ := l.Snapshot()
	assert.Equal(t, []allocation.BatchID{9, 5}, ids)
}

func TestLedger_ClampingInvariant(t *testing.T) {
	// After any mix of operations, every entry stays within (0, available].
	l := allocation.NewLedger()
	available := dec("8")

	l.SetQuantity(1, "12", available)
	l.AdjustQuantity(1, dec("5"), available)
	l.SelectQuantity(1, dec("100"), available)
	l.AdjustQuantity(2, dec("0.5"), available)
	l.SetQuantity(3, "-1", available)

	ids, quantities := l.Snapshot()
	for i, id := range ids {
		assert.True(t, quantities[i].IsPositive(), "batch %d holds a non-positive selection", id)
		assert.True(t, quantities[i].LessThanOrEqual(available), "batch %d exceeds availability", id)
	}
}

func TestLedger_Total(t *testing.T) {
	l := allocation.NewLedger()
	l.SetQuantity(1, "2.5", dec("8"))
	l.SetQuantity(2, "1.25", dec("8"))

	assert.True(t, l.Total().Equal(decimal.RequireFromString("3.75")))
}
