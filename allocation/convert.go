/*
convert.go - Fixed unit conversion table

PURPOSE:
  Pure conversion between the small, fixed set of mass and volume units
  the product domain records quantities in. Each unit carries a
  multiplicative factor to its family's base unit (grams for mass,
  milliliters for volume); conversion goes through that base.

CONTRACT:
  - Convert(q, u, u) returns q unchanged (identity, no factor applied)
  - Unsupported units or cross-family pairs are a programming error and
    panic; the unit set is fixed, so this can only happen from a coding
    mistake, never from operator input
  - Referentially pure: no rounding state between calls. Round2 is the
    caller's job at presentation/validation boundaries.

SEE ALSO:
  - types.go: Unit constants
  - catalog.go: ConvertedAvailability, the main consumer
*/
package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONVERSION TABLE
// =============================================================================

type unitFamily string

const (
	familyMass   unitFamily = "mass"
	familyVolume unitFamily = "volume"
)

type unitInfo struct {
	Family unitFamily
	Factor decimal.Decimal // multiplier to the family base unit
}

// unitTable maps each supported unit to its family and base-unit factor.
// Mass base: gram. Volume base: milliliter.
var unitTable = map[Unit]unitInfo{
	UnitMilligram:  {Family: familyMass, Factor: decimal.RequireFromString("0.001")},
	UnitGram:       {Family: familyMass, Factor: decimal.NewFromInt(1)},
	UnitKilogram:   {Family: familyMass, Factor: decimal.NewFromInt(1000)},
	UnitMilliliter: {Family: familyVolume, Factor: decimal.NewFromInt(1)},
	UnitLiter:      {Family: familyVolume, Factor: decimal.NewFromInt(1000)},
}

// KnownUnit reports whether u is in the supported unit set.
func KnownUnit(u Unit) bool {
	_, ok := unitTable[u]
	return ok
}

// Convert re-expresses quantity from one unit in another. Panics on an
// unsupported unit or a cross-family pair (mass to volume).
func Convert(quantity decimal.Decimal, from, to Unit) decimal.Decimal {
	if from == to {
		return quantity
	}

	fromInfo, ok := unitTable[from]
	if !ok {
		panic(fmt.Sprintf("allocation: unsupported unit %q", from))
	}
	toInfo, ok := unitTable[to]
	if !ok {
		panic(fmt.Sprintf("allocation: unsupported unit %q", to))
	}
	if fromInfo.Family != toInfo.Family {
		panic(fmt.Sprintf("allocation: cannot convert %q to %q (different families)", from, to))
	}

	return quantity.Mul(fromInfo.Factor).Div(toInfo.Factor)
}

// ConversionFactor returns the multiplier that re-expresses one unit of
// from in to. Same panic rules as Convert.
func ConversionFactor(from, to Unit) decimal.Decimal {
	return Convert(decimal.NewFromInt(1), from, to)
}
