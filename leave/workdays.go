package leave

import (
	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// WORKING DAYS - Unit counts for day, week and month denominated leave
// =============================================================================

var (
	halfDay     = decimal.NewFromFloat(0.5)
	daysPerWeek = decimal.NewFromInt(7)
)

// WorkingDays counts the days in [start, end] that are neither weekend days
// nor closed holidays. A nil calendar means weekends only. Half-day requests
// count 0.5 per day with a floor of 0.5.
func WorkingDays(start, end generic.TimePoint, cal *Resolver, isHalfDay bool) decimal.Decimal {
	count := 0
	if !end.Before(start) {
		nonWorking := cal.NonWorkingDates(start, end)
		for d := start; !d.After(end); d = d.AddDays(1) {
			if !nonWorking.Has(d) {
				count++
			}
		}
	}
	result := decimal.NewFromInt(int64(count))
	if isHalfDay {
		result = result.Mul(halfDay)
		if result.LessThan(halfDay) {
			result = halfDay
		}
	}
	return result
}

// WeeksBetween is ceil(calendar days / 7); the same day is zero weeks.
func WeeksBetween(start, end generic.TimePoint) decimal.Decimal {
	diff := generic.DaysBetween(start, end)
	if diff <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(diff)).Div(daysPerWeek).Ceil()
}

// MonthsBetween counts whole months plus the remainder as a fraction of the
// month it falls in, rounded to one decimal. The same day counts as a month.
func MonthsBetween(start, end generic.TimePoint) decimal.Decimal {
	if start.Equal(end) {
		return decimal.NewFromInt(1)
	}
	if end.Before(start) {
		return decimal.Zero
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	anchor := start.AddMonths(months)
	remainder := generic.DaysBetween(anchor, end)
	fraction := decimal.NewFromInt(int64(remainder)).
		Div(decimal.NewFromInt(int64(generic.DaysInMonth(anchor.Year(), anchor.Month()))))
	return decimal.NewFromInt(int64(months)).Add(fraction).Round(1)
}

// RequestUnits returns how much of t's entitlement [start, end] consumes,
// in t's unit. Half-day is only meaningful for day-denominated types.
func RequestUnits(t LeaveType, start, end generic.TimePoint, cal *Resolver, isHalfDay bool) (decimal.Decimal, error) {
	e, ok := t.Entitlement()
	if !ok {
		return decimal.Zero, generic.NewValidationError("leave type", "unknown leave type")
	}
	if end.Before(start) {
		return decimal.Zero, generic.NewValidationError("end_date", "before start date")
	}
	if isHalfDay && e.Unit != generic.UnitDays {
		return decimal.Zero, generic.NewValidationError("is_half_day", t.String()+" leave is counted in "+string(e.Unit))
	}
	switch e.Unit {
	case generic.UnitWeeks:
		return WeeksBetween(start, end), nil
	case generic.UnitMonths:
		return MonthsBetween(start, end), nil
	default:
		return WorkingDays(start, end, cal, isHalfDay), nil
	}
}
