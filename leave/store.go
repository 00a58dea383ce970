/*
store.go - Persistence and collaborator contracts

PURPOSE:
  The engine is pure; the services in this package reach storage,
  notifications and runtime configuration only through these interfaces.

KEY INTERFACES:
  BalanceStore:  (email, year) balance rows with serialized read-modify-write
  RequestStore:  leave requests
  HolidayStore:  holiday calendar rows
  Store:         all of the above plus the audit log and WithTx
  Notifier:      outbound notification sink
  ModeSource:    maintenance-mode reader

CONCURRENCY:
  UpdateBalance is the only way services mutate a balance row. Each
  implementation guarantees at most one writer per row at a time:
  memory and sqlite hold a writer lock, postgres uses SELECT ... FOR UPDATE.
  WithTx runs fn as one all-or-nothing transaction with a consistent view
  of the rows it reads.

IMPLEMENTATIONS:
  - store/memory: snapshot + rollback
  - store/sqlite: database/sql transaction
  - store/postgres: pgx transaction at REPEATABLE READ
*/
package leave

import (
	"context"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
)

type BalanceStore interface {
	// GetBalance returns a NotFoundError when no row exists.
	GetBalance(ctx context.Context, email string, year int) (*BalanceRecord, error)

	// ListBalances returns every row of year ordered by email.
	ListBalances(ctx context.Context, year int) ([]BalanceRecord, error)

	// CreateBalance fails with generic.ErrAlreadyExists for a duplicate (email, year).
	CreateBalance(ctx context.Context, r BalanceRecord) error

	// UpdateBalance loads the row, calls fn and persists the result while
	// holding the row. If fn returns an error nothing is written.
	UpdateBalance(ctx context.Context, email string, year int, fn func(*BalanceRecord) error) (*BalanceRecord, error)
}

type RequestStore interface {
	CreateRequest(ctx context.Context, r LeaveRequest) error
	GetRequest(ctx context.Context, id string) (*LeaveRequest, error)
	UpdateRequest(ctx context.Context, id string, fn func(*LeaveRequest) error) (*LeaveRequest, error)
	ListRequests(ctx context.Context, requesterEmail string) ([]LeaveRequest, error)
}

type HolidayStore interface {
	SaveHoliday(ctx context.Context, h Holiday) error

	// HolidaysBetween returns holidays dated in [from, to] plus every
	// recurring holiday, which the Resolver expands.
	HolidaysBetween(ctx context.Context, from, to generic.TimePoint) ([]Holiday, error)
}

// TxStore is the view of the store inside WithTx.
type TxStore interface {
	BalanceStore
	generic.AuditLog
}

type Store interface {
	BalanceStore
	RequestStore
	HolidayStore
	generic.AuditLog

	WithTx(ctx context.Context, fn func(tx TxStore) error) error
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Notification is a plain-text message. Attachments are file paths.
type Notification struct {
	To          []string
	Subject     string
	Body        string
	Attachments []string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ModeSource reports whether mutations are currently frozen.
type ModeSource interface {
	MaintenanceMode() bool
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }

type normalMode struct{}

func (normalMode) MaintenanceMode() bool { return false }

// ResolverFor loads the holidays overlapping p and builds a Resolver.
func ResolverFor(ctx context.Context, hs HolidayStore, p generic.Period) (*Resolver, error) {
	holidays, err := hs.HolidaysBetween(ctx, p.Start, p.End)
	if err != nil {
		return nil, err
	}
	return NewResolver(holidays)
}
