/*
Package generic provides the domain-agnostic primitives of the leave engine.

PURPOSE:
  Leave balances are quantities with a unit (days, weeks or months) that are
  computed against a calendar. This package holds the pieces every other
  package builds on: decimal quantities, day-granular calendar points, the
  error taxonomy and the audit contract. It knows nothing about leave types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 5 days, 4 weeks, 3 months)
  - Unit: days, weeks or months
  - Rounding helpers shared by the engine (3 dp) and display layers (1 dp)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal, 1.667 * 3 is 5.001 and not 5.00099...
  2. Determinism: No function here reads the wall clock except Clock
  3. Type Safety: Units travel with the value

USAGE:
  used := generic.NewAmount(3, generic.UnitDays)
  left := generic.NewAmountFromInt(36, generic.UnitDays).Sub(used)

SEE ALSO:
  - time.go: TimePoint and month arithmetic
  - errors.go: Validation / NotFound / concurrency taxonomy
  - audit.go: Audit entries for balance field updates and rollover
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

// EnginePlaces is the precision every engine result is rounded to.
const EnginePlaces int32 = 3

// DisplayPlaces is the precision display layers may round to.
const DisplayPlaces int32 = 1

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }

// Round returns the amount rounded to the engine precision.
func (a Amount) Round() Amount { return Amount{Value: a.Value.Round(EnginePlaces), Unit: a.Unit} }

// Display rounds to one decimal and clamps at zero. The engine itself never clamps.
func (a Amount) Display() Amount {
	v := a.Value.Round(DisplayPlaces)
	if v.IsNegative() {
		v = decimal.Zero
	}
	return Amount{Value: v, Unit: a.Unit}
}

func (a Amount) String() string { return a.Value.String() + " " + string(a.Unit) }
