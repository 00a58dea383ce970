package leave

import (
	"context"
	"fmt"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// =============================================================================
// BALANCE SERVICE - Reads balances and owns the accrual cache write-back
// =============================================================================

type BalanceService struct {
	Store Store
	Clock generic.Clock
	Mode  ModeSource
	Log   *log.Logger
}

func NewBalanceService(store Store, clock generic.Clock, mode ModeSource, logger *log.Logger) *BalanceService {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	if mode == nil {
		mode = normalMode{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &BalanceService{Store: store, Clock: clock, Mode: mode, Log: logger}
}

// Register creates the balance row for a new employee. The accrual cache is
// filled from the start date immediately.
func (s *BalanceService) Register(ctx context.Context, r BalanceRecord, actorID string) error {
	if err := s.writable(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	r.AccumulatedLeave = CalculateAccumulatedLeave(AccrualReference(r.Year, s.Clock.Today()), r.TerminationDate, r.StartDate)
	r.UpdatedAt = s.Clock.Now()
	if err := s.Store.CreateBalance(ctx, r); err != nil {
		return fmt.Errorf("register %s: %w", r.Key(), err)
	}
	s.audit(ctx, generic.AuditEntry{
		ActorID: actorID,
		Action:  generic.AuditBalanceUpdated,
		Subject: r.Email,
		Year:    r.Year,
		Payload: generic.FieldChange("record", nil, "created"),
	})
	return nil
}

// Record loads a row and refreshes its accrual cache when it drifted.
func (s *BalanceService) Record(ctx context.Context, email string, year int) (*BalanceRecord, error) {
	r, err := s.Store.GetBalance(ctx, email, year)
	if err != nil {
		return nil, err
	}
	if _, err := s.ReconcileAccrual(ctx, r); err != nil {
		// A failed cache write does not change what the caller sees.
		s.Log.WithContext(ctx).WithError(err).WithField("record", r.Key()).Warn("accrual cache write-back failed")
	}
	return r, nil
}

// ReconcileAccrual recomputes r's accrual and writes it back when the cache
// is off by more than the tolerance. r is updated in place either way.
func (s *BalanceService) ReconcileAccrual(ctx context.Context, r *BalanceRecord) (bool, error) {
	computed := CalculateAccumulatedLeave(AccrualReference(r.Year, s.Clock.Today()), r.TerminationDate, r.StartDate)
	value, changed := Reconcile(r.AccumulatedLeave, computed)
	stored := r.AccumulatedLeave
	r.AccumulatedLeave = computed
	if !changed {
		return false, nil
	}
	s.Log.WithContext(ctx).WithFields(log.Fields{
		"record":   r.Key(),
		"stored":   stored.String(),
		"computed": computed.String(),
	}).Debug("stale accrual cache")

	if s.Mode.MaintenanceMode() {
		return false, nil
	}
	_, err := s.Store.UpdateBalance(ctx, r.Email, r.Year, func(row *BalanceRecord) error {
		row.AccumulatedLeave = value
		row.UpdatedAt = s.Clock.Now()
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReconcileSummary is the outcome of one ReconcileYear pass.
type ReconcileSummary struct {
	Year      int
	Checked   int
	Refreshed int
	Failed    int
}

// ReconcileYear refreshes the accrual cache of every row in year.
func (s *BalanceService) ReconcileYear(ctx context.Context, year int) (ReconcileSummary, error) {
	summary := ReconcileSummary{Year: year}
	records, err := s.Store.ListBalances(ctx, year)
	if err != nil {
		return summary, err
	}
	for i := range records {
		summary.Checked++
		changed, err := s.ReconcileAccrual(ctx, &records[i])
		if err != nil {
			summary.Failed++
			s.Log.WithContext(ctx).WithError(err).WithField("record", records[i].Key()).Warn("reconcile failed")
			continue
		}
		if changed {
			summary.Refreshed++
		}
	}
	return summary, nil
}

// Balance returns the current balance of one leave type.
func (s *BalanceService) Balance(ctx context.Context, email string, year int, t LeaveType) (generic.Amount, error) {
	r, err := s.Record(ctx, email, year)
	if err != nil {
		return generic.Amount{}, err
	}
	return CurrentBalance(*r, t, AccrualReference(year, s.Clock.Today()))
}

// Balances returns all eight balances of a row.
func (s *BalanceService) Balances(ctx context.Context, email string, year int) (*BalanceRecord, Balances, error) {
	r, err := s.Record(ctx, email, year)
	if err != nil {
		return nil, nil, err
	}
	return r, AllBalances(*r, AccrualReference(year, s.Clock.Today())), nil
}

// Termination returns the termination payout of a row that has a
// termination date.
func (s *BalanceService) Termination(ctx context.Context, email string, year int) (TerminationResult, error) {
	r, err := s.Store.GetBalance(ctx, email, year)
	if err != nil {
		return TerminationResult{}, err
	}
	if r.TerminationDate == nil {
		return TerminationResult{}, generic.NewValidationError("contract_termination_date", "not set for "+r.Key())
	}
	return TerminationBalance(*r, *r.TerminationDate, s.Clock.Today()), nil
}

// =============================================================================
// ADMIN ADJUSTMENTS
// =============================================================================

// AdjustableFields maps field names accepted by Adjust to their columns.
var AdjustableFields = map[string]func(r *BalanceRecord) *decimal.Decimal{
	"brought_forward":    func(r *BalanceRecord) *decimal.Decimal { return &r.BroughtForward },
	"forfeited":          func(r *BalanceRecord) *decimal.Decimal { return &r.Forfeited },
	"annual_adjustments": func(r *BalanceRecord) *decimal.Decimal { return &r.AnnualAdjustments },
}

func init() {
	for _, t := range AllTypes {
		e := catalog[t]
		AdjustableFields[e.UsedField] = e.used
	}
}

// Adjust sets one balance field and audits the old and new values.
func (s *BalanceService) Adjust(ctx context.Context, email string, year int, field string, value decimal.Decimal, actorID string) (*BalanceRecord, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	accessor, ok := AdjustableFields[field]
	if !ok {
		return nil, generic.NewValidationError("field", "not adjustable: "+field)
	}

	var change FieldUpdate
	updated, err := s.Store.UpdateBalance(ctx, email, year, func(r *BalanceRecord) error {
		target := accessor(r)
		change = FieldUpdate{Field: field, Old: *target, New: value}
		*target = value
		if err := r.Validate(); err != nil {
			return err
		}
		r.UpdatedAt = s.Clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.auditField(ctx, actorID, email, year, change)
	return updated, nil
}

func (s *BalanceService) writable() error {
	if s.Mode.MaintenanceMode() {
		return generic.ErrMaintenanceMode
	}
	return nil
}

func (s *BalanceService) auditField(ctx context.Context, actorID, email string, year int, c FieldUpdate) {
	s.audit(ctx, generic.AuditEntry{
		ActorID: actorID,
		Action:  generic.AuditBalanceUpdated,
		Subject: email,
		Year:    year,
		Payload: generic.FieldChange(c.Field, c.Old.String(), c.New.String()),
	})
}

// audit never fails the caller; a lost audit entry is logged at error level.
func (s *BalanceService) audit(ctx context.Context, e generic.AuditEntry) {
	appendAudit(ctx, s.Store, s.Clock, s.Log, e)
}

func appendAudit(ctx context.Context, al generic.AuditLog, clock generic.Clock, logger *log.Logger, e generic.AuditEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = clock.Now()
	}
	if err := al.AppendAudit(ctx, e); err != nil {
		logger.WithContext(ctx).WithError(err).WithFields(log.Fields{
			"action":  e.Action,
			"subject": e.Subject,
		}).Error("audit entry lost")
	}
}
