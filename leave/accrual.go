/*
accrual.go - Annual leave accrual

PURPOSE:
  Computes the annual leave earned in the calculation year up to a
  reference date. The result is never read back from storage; records only
  cache it.

RULES:
  - 1.667 days per month, capped at 20, rounded to 3 decimals
  - Accrual posts on the last day of a month, never pro-rata daily
  - The start month earns (daysInMonth - startDay + 1) / daysInMonth of a
    month, credited only once that month has ended
  - Employees who started before the calculation year earn one full month
    per month elapsed before the calculation month
  - A termination date in the reference year freezes the calculation there

EXAMPLE:
  start := generic.NewTimePoint(2024, time.June, 15)
  CalculateAccumulatedLeave(generic.NewTimePoint(2024, time.July, 1), nil, &start)
  // 0.889: 16/30 of June, nothing for July yet

SEE ALSO:
  - balance.go: consumes the accrued value
  - service.go: writes the cache back through Reconcile
*/
package leave

import (
	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/shopspring/decimal"
)

var (
	MonthlyAccrualRate = decimal.RequireFromString("1.667")
	AccrualCap         = decimal.NewFromInt(20)

	// ReconcileTolerance is the cache drift that triggers a write-back.
	ReconcileTolerance = decimal.RequireFromString("0.001")
)

// CalculationDate is the termination date when it falls in the reference
// year, otherwise the reference date.
func CalculationDate(reference generic.TimePoint, termination *generic.TimePoint) generic.TimePoint {
	if termination != nil && termination.Year() == reference.Year() {
		return *termination
	}
	return reference
}

// CalculateAccumulatedLeave returns the annual leave accrued as of reference.
// A nil start date is treated as employment from before the calculation year.
func CalculateAccumulatedLeave(reference generic.TimePoint, termination, start *generic.TimePoint) decimal.Decimal {
	calc := CalculationDate(reference, termination)

	if start == nil || start.Year() < calc.Year() {
		elapsed := int64(calc.Month()) - 1
		return capAccrual(MonthlyAccrualRate.Mul(decimal.NewFromInt(elapsed)))
	}
	if start.After(calc) {
		return decimal.Zero
	}

	total := decimal.Zero

	// Start month, posted at its last day.
	if !calc.Before(start.EndOfMonth()) {
		daysInMonth := generic.DaysInMonth(start.Year(), start.Month())
		worked := daysInMonth - start.Day() + 1
		total = total.Add(MonthlyAccrualRate.
			Mul(decimal.NewFromInt(int64(worked))).
			Div(decimal.NewFromInt(int64(daysInMonth))))
	}

	// Full months between the start month and the calculation month.
	for m := start.Month() + 1; m < calc.Month(); m++ {
		if !calc.Before(generic.EndOfMonth(calc.Year(), m)) {
			total = total.Add(MonthlyAccrualRate)
		}
	}

	return capAccrual(total)
}

func capAccrual(v decimal.Decimal) decimal.Decimal {
	if v.GreaterThan(AccrualCap) {
		v = AccrualCap
	}
	return v.Round(generic.EnginePlaces)
}

// Reconcile compares a cached accrual with a fresh computation. It returns
// the value to store and whether the cache must be rewritten.
func Reconcile(stored, computed decimal.Decimal) (decimal.Decimal, bool) {
	if stored.Sub(computed).Abs().GreaterThan(ReconcileTolerance) {
		return computed, true
	}
	return stored, false
}

// AccrualReference clamps today into the record's year so reading an old
// record does not accrue against the following year's calendar.
func AccrualReference(recordYear int, today generic.TimePoint) generic.TimePoint {
	switch {
	case today.Year() > recordYear:
		return generic.EndOfYear(recordYear)
	case today.Year() < recordYear:
		return generic.StartOfYear(recordYear)
	default:
		return today
	}
}
