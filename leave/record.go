package leave

import (
	"fmt"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE RECORD - One per (employee email, year)
// =============================================================================

// BalanceRecord is the persisted per-year balance row. AccumulatedLeave is
// a cache of CalculateAccumulatedLeave and is never trusted on read.
type BalanceRecord struct {
	Email        string
	Name         string
	Department   string
	ManagerEmail string
	Year         int

	BroughtForward    decimal.Decimal
	AccumulatedLeave  decimal.Decimal
	AnnualUsed        decimal.Decimal
	Forfeited         decimal.Decimal
	AnnualAdjustments decimal.Decimal // signed, subtracted from the annual balance

	SickUsed      decimal.Decimal
	MaternityUsed decimal.Decimal
	ParentalUsed  decimal.Decimal
	FamilyUsed    decimal.Decimal
	AdoptionUsed  decimal.Decimal
	StudyUsed     decimal.Decimal
	WellnessUsed  decimal.Decimal

	StartDate       *generic.TimePoint
	TerminationDate *generic.TimePoint

	UpdatedAt time.Time
}

type EmployeeStatus string

const (
	StatusActive   EmployeeStatus = "Active"
	StatusInactive EmployeeStatus = "Inactive"
)

// Status is derived from the termination date: Inactive once it has passed.
func (r BalanceRecord) Status(today generic.TimePoint) EmployeeStatus {
	if r.TerminationDate != nil && r.TerminationDate.Before(today) {
		return StatusInactive
	}
	return StatusActive
}

// Key identifies the row for logs and errors.
func (r BalanceRecord) Key() string { return RecordKey(r.Email, r.Year) }

func RecordKey(email string, year int) string { return fmt.Sprintf("%s/%d", email, year) }

// Used returns the used counter for t.
func (r *BalanceRecord) Used(t LeaveType) (decimal.Decimal, error) {
	e, ok := t.Entitlement()
	if !ok {
		return decimal.Zero, generic.NewValidationError("leave type", "unknown leave type")
	}
	return *e.used(r), nil
}

// Validate checks the fields every store requires and the sign invariants.
func (r BalanceRecord) Validate() error {
	if r.Email == "" {
		return generic.NewValidationError("email", "required")
	}
	if r.Year < 1900 || r.Year > 9999 {
		return generic.NewValidationError("year", fmt.Sprintf("out of range: %d", r.Year))
	}
	nonNegative := map[string]decimal.Decimal{
		"brought_forward": r.BroughtForward,
		"forfeited":       r.Forfeited,
	}
	for _, t := range AllTypes {
		e := catalog[t]
		nonNegative[e.UsedField] = *e.used(&r)
	}
	for field, v := range nonNegative {
		if v.IsNegative() {
			return generic.NewValidationError(field, "must not be negative, got "+v.String())
		}
	}
	if r.StartDate != nil && r.TerminationDate != nil && r.TerminationDate.Before(*r.StartDate) {
		return generic.NewValidationError("contract_termination_date", "before start date")
	}
	return nil
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// LeaveRequest is one leave application. Units is frozen at submission in
// the leave type's unit. BalanceUpdated is true while the approval effect is
// claimed by, or applied to, the balance record.
type LeaveRequest struct {
	ID             string
	Title          string
	Detail         string
	Start          generic.TimePoint
	End            generic.TimePoint
	Type           LeaveType
	RequesterEmail string
	ApproverEmail  string
	Status         RequestStatus
	IsHalfDay      bool
	Units          decimal.Decimal
	BalanceUpdated bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BalanceYear is the record year the request draws from.
func (r LeaveRequest) BalanceYear() int { return r.Start.Year() }
