package leave

import (
	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionCancel  Action = "cancel"
)

// FieldUpdate describes one balance column change for the audit trail.
type FieldUpdate struct {
	Field string
	Old   decimal.Decimal
	New   decimal.Decimal
}

// ApplyLeaveEffect adds (approve) or removes (cancel) units from t's used
// counter. It is not idempotent; callers guard it with the request's
// BalanceUpdated flag.
func ApplyLeaveEffect(r *BalanceRecord, t LeaveType, units decimal.Decimal, action Action) (FieldUpdate, error) {
	e, ok := t.Entitlement()
	if !ok {
		return FieldUpdate{}, generic.NewValidationError("leave type", "unknown leave type")
	}
	if units.IsNegative() {
		return FieldUpdate{}, generic.NewValidationError("units", "must not be negative")
	}

	used := e.used(r)
	update := FieldUpdate{Field: e.UsedField, Old: *used}
	switch action {
	case ActionApprove:
		*used = used.Add(units)
	case ActionCancel:
		*used = used.Sub(units)
	default:
		return FieldUpdate{}, generic.NewValidationError("action", "unknown action "+string(action))
	}
	update.New = *used
	return update, nil
}
