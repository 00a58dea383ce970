package leave

import (
	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENT BALANCE
// =============================================================================

// AnnualBalance is broughtForward + accrued - used - forfeited - adjustments.
// Adjustments are subtracted whatever their sign.
func AnnualBalance(r BalanceRecord, accrued decimal.Decimal) decimal.Decimal {
	return r.BroughtForward.
		Add(accrued).
		Sub(r.AnnualUsed).
		Sub(r.Forfeited).
		Sub(r.AnnualAdjustments).
		Round(generic.EnginePlaces)
}

// CurrentBalance returns the balance of t as of asOf. Annual leave
// recomputes accrual; every other type is allocation minus used. Results are
// not clamped at zero.
func CurrentBalance(r BalanceRecord, t LeaveType, asOf generic.TimePoint) (generic.Amount, error) {
	e, ok := t.Entitlement()
	if !ok {
		return generic.Amount{}, generic.NewValidationError("leave type", "unknown leave type")
	}
	if t == Annual {
		accrued := CalculateAccumulatedLeave(asOf, r.TerminationDate, r.StartDate)
		return generic.NewAmountFromDecimal(AnnualBalance(r, accrued), e.Unit), nil
	}
	used := *e.used(&r)
	return generic.NewAmountFromDecimal(e.Allocation.Sub(used).Round(generic.EnginePlaces), e.Unit), nil
}

// Balances holds one amount per leave type.
type Balances map[LeaveType]generic.Amount

// AllBalances computes every leave type in one pass.
func AllBalances(r BalanceRecord, asOf generic.TimePoint) Balances {
	out := make(Balances, len(AllTypes))
	for _, t := range AllTypes {
		// Every AllTypes member is in the catalog.
		b, _ := CurrentBalance(r, t, asOf)
		out[t] = b
	}
	return out
}

// =============================================================================
// TERMINATION BALANCE
// =============================================================================

// TerminationResult splits the payout into its two proration layers so
// callers can see both.
type TerminationResult struct {
	Base    decimal.Decimal // current balance with accrual frozen at termination
	TopUp   decimal.Decimal // 1.667 * terminationDay / daysInTerminationMonth
	Balance generic.Amount
	Status  EmployeeStatus
}

// TerminationBalance computes the annual balance owed at termination. The
// top-up is added on top of the accrual engine's own termination handling.
// Accrual is measured against the record's year, so the result does not
// move once the calendar has turned over; today only decides the status.
func TerminationBalance(r BalanceRecord, termination, today generic.TimePoint) TerminationResult {
	accrued := CalculateAccumulatedLeave(AccrualReference(r.Year, today), &termination, r.StartDate)
	base := AnnualBalance(r, accrued)

	daysInMonth := generic.DaysInMonth(termination.Year(), termination.Month())
	topUp := MonthlyAccrualRate.
		Mul(decimal.NewFromInt(int64(termination.Day()))).
		Div(decimal.NewFromInt(int64(daysInMonth)))

	status := StatusActive
	if termination.Before(today) {
		status = StatusInactive
	}

	return TerminationResult{
		Base:    base,
		TopUp:   topUp.Round(generic.EnginePlaces),
		Balance: generic.NewAmountFromDecimal(base.Add(topUp).Round(generic.EnginePlaces), generic.UnitDays),
		Status:  status,
	}
}
