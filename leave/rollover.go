/*
rollover.go - Year-end rollover

PURPOSE:
  Seeds next year's balance rows from this year's. The net annual balance
  becomes the new brought-forward amount; annual counters reset; sick leave
  usage carries over; every other used counter resets.

ATOMICITY:
  The whole run is one Store.WithTx call. Any failure (a duplicate target
  row, a storage error, the audit write) rolls back every inserted row.

ACCRUAL:
  The stored accumulated_leave is a cache. Each source row's accrual is
  recomputed as of Dec 31 of the source year (or today, mid-year) before
  carrying, and a stale cache is rewritten in the same transaction.

EXAMPLE:
  BF 5, accumulated 15, used 8 -> next year BF 12, used 0, accumulated 0.
*/
package leave

import (
	"context"
	"fmt"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// RolloverSummary is the result of one run.
type RolloverSummary struct {
	FromYear           int `json:"from_year"`
	ToYear             int `json:"to_year"`
	EmployeesProcessed int `json:"employees_processed"`
}

// NewBroughtForward is the annual balance carried into the next year,
// never negative. r.AccumulatedLeave must already be current.
func NewBroughtForward(r BalanceRecord) decimal.Decimal {
	net := AnnualBalance(r, r.AccumulatedLeave)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// CarryForward builds the toYear row from r.
func CarryForward(r BalanceRecord, toYear int) BalanceRecord {
	return BalanceRecord{
		Email:          r.Email,
		Name:           r.Name,
		Department:     r.Department,
		ManagerEmail:   r.ManagerEmail,
		Year:           toYear,
		BroughtForward: NewBroughtForward(r),
		SickUsed:       r.SickUsed,

		StartDate:       r.StartDate,
		TerminationDate: r.TerminationDate,
	}
}

type RolloverProcessor struct {
	Store    Store
	Clock    generic.Clock
	Mode     ModeSource
	Notifier Notifier
	Log      *log.Logger

	// NotifyTo receives the completion notice. Empty disables it.
	NotifyTo []string
}

func NewRolloverProcessor(store Store, clock generic.Clock, mode ModeSource, notifier Notifier, logger *log.Logger) *RolloverProcessor {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	if mode == nil {
		mode = normalMode{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RolloverProcessor{Store: store, Clock: clock, Mode: mode, Notifier: notifier, Log: logger}
}

// Rollover copies every Active fromYear row into toYear in one transaction.
func (p *RolloverProcessor) Rollover(ctx context.Context, fromYear, toYear int, actorID string) (RolloverSummary, error) {
	summary := RolloverSummary{FromYear: fromYear, ToYear: toYear}
	if toYear <= fromYear {
		return summary, generic.NewValidationError("to_year", fmt.Sprintf("%d must be after %d", toYear, fromYear))
	}
	if p.Mode.MaintenanceMode() {
		return summary, generic.ErrMaintenanceMode
	}

	today := p.Clock.Today()
	logger := p.Log.WithContext(ctx).WithFields(log.Fields{"from_year": fromYear, "to_year": toYear})

	err := p.Store.WithTx(ctx, func(tx TxStore) error {
		records, err := tx.ListBalances(ctx, fromYear)
		if err != nil {
			return fmt.Errorf("list %d balances: %w", fromYear, err)
		}

		processed := 0
		for _, r := range records {
			if r.Status(today) != StatusActive {
				continue
			}
			accrued := CalculateAccumulatedLeave(AccrualReference(fromYear, today), r.TerminationDate, r.StartDate)
			if !accrued.Equal(r.AccumulatedLeave) {
				if _, err := tx.UpdateBalance(ctx, r.Email, r.Year, func(cached *BalanceRecord) error {
					cached.AccumulatedLeave = accrued
					cached.UpdatedAt = p.Clock.Now()
					return nil
				}); err != nil {
					return fmt.Errorf("refresh accrual for %s: %w", r.Key(), err)
				}
				r.AccumulatedLeave = accrued
			}
			next := CarryForward(r, toYear)
			next.UpdatedAt = p.Clock.Now()
			if err := tx.CreateBalance(ctx, next); err != nil {
				return fmt.Errorf("create %s: %w", next.Key(), err)
			}
			processed++
		}
		if processed == 0 {
			return generic.NewNotFoundError("active balance records for year", fmt.Sprint(fromYear))
		}

		if err := tx.AppendAudit(ctx, generic.AuditEntry{
			ID:        fmt.Sprintf("rollover-%d-%d", fromYear, toYear),
			Timestamp: p.Clock.Now(),
			ActorID:   actorID,
			Action:    generic.AuditRollover,
			Subject:   "*",
			Year:      toYear,
			Payload: map[string]any{
				"from_year":           fromYear,
				"to_year":             toYear,
				"employees_processed": processed,
			},
		}); err != nil {
			return fmt.Errorf("audit rollover: %w", err)
		}
		summary.EmployeesProcessed = processed
		return nil
	})
	if err != nil {
		summary.EmployeesProcessed = 0
		logger.WithError(err).Warn("rollover rolled back")
		return summary, err
	}

	logger.WithField("employees_processed", summary.EmployeesProcessed).Info("rollover committed")
	if len(p.NotifyTo) > 0 {
		n := Notification{
			To:      p.NotifyTo,
			Subject: fmt.Sprintf("Leave rollover %d -> %d complete", fromYear, toYear),
			Body:    fmt.Sprintf("%d employee balances were carried forward into %d.", summary.EmployeesProcessed, toYear),
		}
		if err := p.Notifier.Notify(ctx, n); err != nil {
			logger.WithError(err).Warn("notification not sent")
		}
	}
	return summary, nil
}
