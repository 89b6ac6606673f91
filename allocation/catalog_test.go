package allocation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var baseDate = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

func testBatch(id, product int64, qty string, unit allocation.Unit, daysToExpiry int) allocation.Batch {
	return allocation.Batch{
		ID:         allocation.BatchID(id),
		ProductID:  allocation.ProductID(product),
		Quantity:   dec(qty),
		NativeUnit: unit,
		ExpiryDate: baseDate.AddDate(0, 0, daysToExpiry),
		UnitPrice:  dec("2.10"),
		Status:     allocation.StatusActive,
	}
}

func inactiveBatch(id, product int64, qty string, unit allocation.Unit, daysToExpiry int) allocation.Batch {
	b := testBatch(id, product, qty, unit, daysToExpiry)
	b.Status = allocation.StatusInactive
	return b
}

// =============================================================================
// ELIGIBILITY + FEFO TESTS
// =============================================================================

func TestEligibleBatches_FiltersInactiveAndEmpty(t *testing.T) {
	// GIVEN: A snapshot with inactive and depleted batches mixed in
	// WHEN: Computing the eligible set
	// THEN: Only active batches with positive quantity remain

	all := []allocation.Batch{
		testBatch(1, 1, "4", allocation.UnitKilogram, 2),
		inactiveBatch(2, 1, "3", allocation.UnitKilogram, 1),
		testBatch(3, 1, "0", allocation.UnitKilogram, 3),
		testBatch(4, 1, "8", allocation.UnitKilogram, 10),
	}

	eligible := allocation.EligibleBatches(all)

	require.Len(t, eligible, 2)
	assert.Equal(t, allocation.BatchID(1), eligible[0].ID)
	assert.Equal(t, allocation.BatchID(4), eligible[1].ID)
}

func TestEligibleBatches_FEFOOrder(t *testing.T) {
	// Nearest expiry first, regardless of input order.
	all := []allocation.Batch{
		testBatch(1, 1, "5", allocation.UnitKilogram, 30),
		testBatch(2, 1, "5", allocation.UnitKilogram, 3),
		testBatch(3, 1, "5", allocation.UnitKilogram, 12),
	}

	eligible := allocation.EligibleBatches(all)

	require.Len(t, eligible, 3)
	for i := 1; i < len(eligible); i++ {
		assert.False(t, eligible[i].ExpiryDate.Before(eligible[i-1].ExpiryDate),
			"expiry order violated at position %d", i)
	}
	assert.Equal(t, allocation.BatchID(2), eligible[0].ID)
	assert.Equal(t, allocation.BatchID(3), eligible[1].ID)
	assert.Equal(t, allocation.BatchID(1), eligible[2].ID)
}

func TestEligibleBatches_TiesKeepInputOrder(t *testing.T) {
	// GIVEN: Three batches expiring the same day
	// WHEN: Sorting
	// THEN: Input order is preserved (stable sort, no secondary key)

	all := []allocation.Batch{
		testBatch(7, 1, "1", allocation.UnitKilogram, 5),
		testBatch(3, 1, "1", allocation.UnitKilogram, 5),
		testBatch(9, 1, "1", allocation.UnitKilogram, 5),
	}

	eligible := allocation.EligibleBatches(all)

	require.Len(t, eligible, 3)
	assert.Equal(t, allocation.BatchID(7), eligible[0].ID)
	assert.Equal(t, allocation.BatchID(3), eligible[1].ID)
	assert.Equal(t, allocation.BatchID(9), eligible[2].ID)
}

func TestEligibleBatches_DoesNotMutateInput(t *testing.T) {
	all := []allocation.Batch{
		testBatch(1, 1, "5", allocation.UnitKilogram, 30),
		testBatch(2, 1, "5", allocation.UnitKilogram, 3),
	}

	allocation.EligibleBatches(all)

	assert.Equal(t, allocation.BatchID(1), all[0].ID, "input slice must not be reordered")
}

// =============================================================================
// CONVERTED AVAILABILITY TESTS
// =============================================================================

func TestConvertedAvailability_MixedNativeUnits(t *testing.T) {
	// GIVEN: Batches recorded in kg and g
	// WHEN: Displaying in kg
	// THEN: Each availability equals convert(quantity, native, display)

	eligible := []allocation.Batch{
		testBatch(1, 1, "4", allocation.UnitKilogram, 2),
		testBatch(2, 1, "2500", allocation.UnitGram, 5),
	}

	availability := allocation.ConvertedAvailability(eligible, allocation.UnitKilogram)

	require.Len(t, availability, 2)
	assert.True(t, availability[1].Equal(dec("4")))
	assert.True(t, availability[2].Equal(dec("2.5")))
}

func TestConvertedAvailability_RecomputedPerUnit(t *testing.T) {
	eligible := []allocation.Batch{testBatch(1, 1, "4", allocation.UnitKilogram, 2)}

	inKg := allocation.ConvertedAvailability(eligible, allocation.UnitKilogram)
	inG := allocation.ConvertedAvailability(eligible, allocation.UnitGram)

	assert.True(t, inKg[1].Equal(dec("4")))
	assert.True(t, inG[1].Equal(dec("4000")))
}

func TestTotalAvailability(t *testing.T) {
	eligible := []allocation.Batch{
		testBatch(1, 1, "4", allocation.UnitKilogram, 2),
		testBatch(2, 1, "8", allocation.UnitKilogram, 10),
	}
	availability := allocation.ConvertedAvailability(eligible, allocation.UnitKilogram)

	assert.True(t, allocation.TotalAvailability(availability).Equal(dec("12")))
}
