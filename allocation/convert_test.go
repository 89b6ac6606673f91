package allocation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/allocation-engine/allocation"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// CONVERSION TABLE TESTS
// =============================================================================

func TestConvert_Identity(t *testing.T) {
	// GIVEN: A quantity with an awkward decimal expansion
	// WHEN: Converting to the same unit
	// THEN: The exact input comes back, no factor applied

	q := dec("3.333333")
	got := allocation.Convert(q, allocation.UnitKilogram, allocation.UnitKilogram)
	assert.True(t, got.Equal(q))
}

func TestConvert_KilogramToGram(t *testing.T) {
	got := allocation.Convert(dec("2.5"), allocation.UnitKilogram, allocation.UnitGram)
	assert.True(t, got.Equal(dec("2500")), "2.5 kg should be 2500 g, got %s", got)
}

func TestConvert_GramToKilogram(t *testing.T) {
	got := allocation.Convert(dec("750"), allocation.UnitGram, allocation.UnitKilogram)
	assert.True(t, got.Equal(dec("0.75")), "750 g should be 0.75 kg, got %s", got)
}

func TestConvert_LiterToMilliliter(t *testing.T) {
	got := allocation.Convert(dec("1.2"), allocation.UnitLiter, allocation.UnitMilliliter)
	assert.True(t, got.Equal(dec("1200")))
}

func TestConvert_RoundTrip(t *testing.T) {
	// GIVEN: Any quantity and any same-family unit pair
	// WHEN: Converting there and back
	// THEN: The original survives within two-decimal tolerance

	pairs := []struct {
		from, to allocation.Unit
	}{
		{allocation.UnitMilligram, allocation.UnitGram},
		{allocation.UnitGram, allocation.UnitKilogram},
		{allocation.UnitKilogram, allocation.UnitMilligram},
		{allocation.UnitMilliliter, allocation.UnitLiter},
	}
	quantities := []string{"0.01", "1", "2.5", "123.45", "99999.99"}

	for _, p := range pairs {
		for _, qs := range quantities {
			q := dec(qs)
			back := allocation.Convert(allocation.Convert(q, p.from, p.to), p.to, p.from)
			diff := back.Sub(q).Abs()
			assert.True(t, diff.LessThan(dec("0.005")),
				"%s %s -> %s -> back drifted by %s", qs, p.from, p.to, diff)
		}
	}
}

func TestConvert_UnsupportedUnit_Panics(t *testing.T) {
	assert.Panics(t, func() {
		allocation.Convert(dec("1"), allocation.Unit("stone"), allocation.UnitKilogram)
	})
}

func TestConvert_CrossFamily_Panics(t *testing.T) {
	// Mass to volume has no fixed factor; this is a coding mistake.
	assert.Panics(t, func() {
		allocation.Convert(dec("1"), allocation.UnitKilogram, allocation.UnitLiter)
	})
}

func TestKnownUnit(t *testing.T) {
	assert.True(t, allocation.KnownUnit(allocation.UnitGram))
	assert.False(t, allocation.KnownUnit(allocation.Unit("oz")))
}

func TestConversionFactor(t *testing.T) {
	assert.True(t, allocation.ConversionFactor(allocation.UnitKilogram, allocation.UnitGram).Equal(dec("1000")))
	assert.True(t, allocation.ConversionFactor(allocation.UnitGram, allocation.UnitKilogram).Equal(dec("0.001")))
}
