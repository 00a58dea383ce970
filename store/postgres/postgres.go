/*
Package postgres provides a PostgreSQL implementation of leave.Store on pgx.

CONCURRENCY:
  UpdateBalance and UpdateRequest lock the row with SELECT ... FOR UPDATE
  inside a transaction, so one writer per (email, year) row at a time.
  WithTx runs at REPEATABLE READ and reads source rows FOR SHARE, so a
  rollover sees one snapshot and blocks concurrent balance writers on the
  rows it copies until it commits.

NUMERICS:
  Decimal columns are NUMERIC. They are read back as text and parsed with
  shopspring/decimal, and written as text parameters cast to numeric.

SCHEMA:
  migrations/postgres, applied with cmd/migrate.
*/
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Store struct {
	db DB
	tm *TransactionManager
}

var _ leave.Store = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db, tm: NewTransactionManager(db)}
}

func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *Store) q(ctx context.Context) Queryer { return QueryerFromContext(ctx, s.db) }

// =============================================================================
// BALANCES
// =============================================================================

const selectBalanceSQL = `SELECT email, year, name, department, manager_email,
       brought_forward::text, accumulated_leave::text, annual_used::text, forfeited::text, annual_adjustments::text,
       sick_used::text, maternity_used::text, parental_used::text, family_used::text,
       adoption_used::text, study_used::text, wellness_used::text,
       start_date::text, termination_date::text, updated_at
  FROM balances`

const (
	getBalanceSQL         = selectBalanceSQL + ` WHERE email = lower($1) AND year = $2`
	lockBalanceSQL        = getBalanceSQL + ` FOR UPDATE`
	listBalancesSQL       = selectBalanceSQL + ` WHERE year = $1 ORDER BY email`
	listBalancesSharedSQL = listBalancesSQL + ` FOR SHARE`
	insertBalanceSQL      = `INSERT INTO balances (email, year, name, department, manager_email,
       brought_forward, accumulated_leave, annual_used, forfeited, annual_adjustments,
       sick_used, maternity_used, parental_used, family_used, adoption_used, study_used, wellness_used,
       start_date, termination_date, updated_at)
VALUES (lower($1), $2, $3, $4, $5,
       $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric,
       $11::numeric, $12::numeric, $13::numeric, $14::numeric, $15::numeric, $16::numeric, $17::numeric,
       $18::date, $19::date, $20)`
	updateBalanceSQL = `UPDATE balances
   SET name = $3, department = $4, manager_email = $5,
       brought_forward = $6::numeric, accumulated_leave = $7::numeric, annual_used = $8::numeric,
       forfeited = $9::numeric, annual_adjustments = $10::numeric,
       sick_used = $11::numeric, maternity_used = $12::numeric, parental_used = $13::numeric,
       family_used = $14::numeric, adoption_used = $15::numeric, study_used = $16::numeric, wellness_used = $17::numeric,
       start_date = $18::date, termination_date = $19::date, updated_at = $20
 WHERE email = lower($1) AND year = $2`
)

func (s *Store) GetBalance(ctx context.Context, email string, year int) (*leave.BalanceRecord, error) {
	return s.getBalance(ctx, getBalanceSQL, email, year)
}

func (s *Store) getBalance(ctx context.Context, query, email string, year int) (*leave.BalanceRecord, error) {
	r, err := scanBalance(s.q(ctx).QueryRow(ctx, query, email, year))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, generic.NewNotFoundError("balance record", leave.RecordKey(email, year))
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get balance: %w", err)
	}
	return r, nil
}

func (s *Store) ListBalances(ctx context.Context, year int) ([]leave.BalanceRecord, error) {
	return s.listBalances(ctx, listBalancesSQL, year)
}

func (s *Store) listBalances(ctx context.Context, query string, year int) ([]leave.BalanceRecord, error) {
	rows, err := s.q(ctx).Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("postgres: list balances: %w", err)
	}
	defer rows.Close()

	var out []leave.BalanceRecord
	for rows.Next() {
		r, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan balance: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) CreateBalance(ctx context.Context, r leave.BalanceRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if _, err := s.q(ctx).Exec(ctx, insertBalanceSQL, balanceArgs(r)...); err != nil {
		return fmt.Errorf("postgres: create balance %s: %w", r.Key(), translatePgError(err))
	}
	return nil
}

// UpdateBalance locks the row, applies fn and writes it back.
func (s *Store) UpdateBalance(ctx context.Context, email string, year int, fn func(*leave.BalanceRecord) error) (*leave.BalanceRecord, error) {
	var updated *leave.BalanceRecord
	err := s.tm.WithinReadWrite(ctx, func(ctx context.Context) error {
		r, err := s.getBalance(ctx, lockBalanceSQL, email, year)
		if err != nil {
			return err
		}
		identity, y := r.Email, r.Year
		if err := fn(r); err != nil {
			return err
		}
		r.Email, r.Year = identity, y
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = time.Now().UTC()
		}

		tag, err := s.q(ctx).Exec(ctx, updateBalanceSQL, balanceArgs(*r)...)
		if err != nil {
			return fmt.Errorf("postgres: update balance %s: %w", r.Key(), translatePgError(err))
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("balance %s: %w", r.Key(), generic.ErrConcurrentModification)
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func balanceArgs(r leave.BalanceRecord) []any {
	return []any{
		r.Email, r.Year, r.Name, r.Department, r.ManagerEmail,
		r.BroughtForward.String(), r.AccumulatedLeave.String(), r.AnnualUsed.String(), r.Forfeited.String(), r.AnnualAdjustments.String(),
		r.SickUsed.String(), r.MaternityUsed.String(), r.ParentalUsed.String(), r.FamilyUsed.String(),
		r.AdoptionUsed.String(), r.StudyUsed.String(), r.WellnessUsed.String(),
		dateArg(r.StartDate), dateArg(r.TerminationDate), updatedAt(r.UpdatedAt),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*leave.BalanceRecord, error) {
	var (
		r     leave.BalanceRecord
		nums  [12]string
		start sql.NullString
		term  sql.NullString
	)
	err := row.Scan(
		&r.Email, &r.Year, &r.Name, &r.Department, &r.ManagerEmail,
		&nums[0], &nums[1], &nums[2], &nums[3], &nums[4],
		&nums[5], &nums[6], &nums[7], &nums[8], &nums[9], &nums[10], &nums[11],
		&start, &term, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	targets := []*decimal.Decimal{
		&r.BroughtForward, &r.AccumulatedLeave, &r.AnnualUsed, &r.Forfeited, &r.AnnualAdjustments,
		&r.SickUsed, &r.MaternityUsed, &r.ParentalUsed, &r.FamilyUsed, &r.AdoptionUsed, &r.StudyUsed, &r.WellnessUsed,
	}
	for i, t := range targets {
		if *t, err = decimal.NewFromString(nums[i]); err != nil {
			return nil, fmt.Errorf("decimal column %d: %w", i, err)
		}
	}
	if r.StartDate, err = parseDatePtr(start); err != nil {
		return nil, err
	}
	if r.TerminationDate, err = parseDatePtr(term); err != nil {
		return nil, err
	}
	return &r, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn in one REPEATABLE READ transaction.
func (s *Store) WithTx(ctx context.Context, fn func(leave.TxStore) error) error {
	return s.tm.WithinSnapshot(ctx, func(txCtx context.Context) error {
		tx, _ := txFromContext(txCtx)
		return fn(&txStore{s: s, tx: tx})
	})
}

// txStore rebinds every call's context to the open transaction.
type txStore struct {
	s  *Store
	tx pgx.Tx
}

func (ts *txStore) bind(ctx context.Context) context.Context { return contextWithTx(ctx, ts.tx) }

func (ts *txStore) GetBalance(ctx context.Context, email string, year int) (*leave.BalanceRecord, error) {
	return ts.s.GetBalance(ts.bind(ctx), email, year)
}

func (ts *txStore) ListBalances(ctx context.Context, year int) ([]leave.BalanceRecord, error) {
	return ts.s.listBalances(ts.bind(ctx), listBalancesSharedSQL, year)
}

func (ts *txStore) CreateBalance(ctx context.Context, r leave.BalanceRecord) error {
	return ts.s.CreateBalance(ts.bind(ctx), r)
}

func (ts *txStore) UpdateBalance(ctx context.Context, email string, year int, fn func(*leave.BalanceRecord) error) (*leave.BalanceRecord, error) {
	return ts.s.UpdateBalance(ts.bind(ctx), email, year, fn)
}

func (ts *txStore) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	return ts.s.AppendAudit(ts.bind(ctx), e)
}

func (ts *txStore) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	return ts.s.QueryAudit(ts.bind(ctx), f)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const selectRequestSQL = `SELECT id, title, detail, start_date::text, end_date::text, leave_type,
       requester_email, approver_email, status, is_half_day, units::text, balance_updated, created_at, updated_at
  FROM leave_requests`

const (
	getRequestSQL    = selectRequestSQL + ` WHERE id = $1`
	lockRequestSQL   = getRequestSQL + ` FOR UPDATE`
	listRequestsSQL  = selectRequestSQL + ` WHERE requester_email = lower($1) ORDER BY start_date`
	insertRequestSQL = `INSERT INTO leave_requests (id, title, detail, start_date, end_date, leave_type,
       requester_email, approver_email, status, is_half_day, units, balance_updated, created_at, updated_at)
VALUES ($1, $2, $3, $4::date, $5::date, $6, lower($7), $8, $9, $10, $11::numeric, $12, $13, $14)`
	updateRequestSQL = `UPDATE leave_requests
   SET title = $2, detail = $3, approver_email = $4, status = $5, units = $6::numeric,
       balance_updated = $7, updated_at = $8
 WHERE id = $1`
)

func (s *Store) CreateRequest(ctx context.Context, r leave.LeaveRequest) error {
	_, err := s.q(ctx).Exec(ctx, insertRequestSQL,
		r.ID, r.Title, r.Detail, r.Start.String(), r.End.String(), r.Type.String(),
		r.RequesterEmail, r.ApproverEmail, string(r.Status), r.IsHalfDay, r.Units.String(), r.BalanceUpdated,
		updatedAt(r.CreatedAt), updatedAt(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("postgres: create request %s: %w", r.ID, translatePgError(err))
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return s.getRequest(ctx, getRequestSQL, id)
}

func (s *Store) getRequest(ctx context.Context, query, id string) (*leave.LeaveRequest, error) {
	r, err := scanRequest(s.q(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, generic.NewNotFoundError("leave request", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get request: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateRequest(ctx context.Context, id string, fn func(*leave.LeaveRequest) error) (*leave.LeaveRequest, error) {
	var updated *leave.LeaveRequest
	err := s.tm.WithinReadWrite(ctx, func(ctx context.Context) error {
		r, err := s.getRequest(ctx, lockRequestSQL, id)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		r.ID = id
		_, err = s.q(ctx).Exec(ctx, updateRequestSQL,
			r.ID, r.Title, r.Detail, r.ApproverEmail, string(r.Status), r.Units.String(), r.BalanceUpdated, updatedAt(r.UpdatedAt))
		if err != nil {
			return fmt.Errorf("postgres: update request %s: %w", id, translatePgError(err))
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) ListRequests(ctx context.Context, requesterEmail string) ([]leave.LeaveRequest, error) {
	rows, err := s.q(ctx).Query(ctx, listRequestsSQL, requesterEmail)
	if err != nil {
		return nil, fmt.Errorf("postgres: list requests: %w", err)
	}
	defer rows.Close()

	var out []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan request: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (*leave.LeaveRequest, error) {
	var (
		r                       leave.LeaveRequest
		start, end, typ, status string
		units                   string
	)
	err := row.Scan(&r.ID, &r.Title, &r.Detail, &start, &end, &typ,
		&r.RequesterEmail, &r.ApproverEmail, &status, &r.IsHalfDay, &units, &r.BalanceUpdated, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if r.Start, err = generic.ParseDate(start); err != nil {
		return nil, err
	}
	if r.End, err = generic.ParseDate(end); err != nil {
		return nil, err
	}
	if r.Type, err = leave.ParseLeaveType(typ); err != nil {
		return nil, err
	}
	if r.Units, err = decimal.NewFromString(units); err != nil {
		return nil, err
	}
	r.Status = leave.RequestStatus(status)
	return &r, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

const (
	upsertHolidaySQL = `INSERT INTO holidays (id, name, date, type, office_status, recurrence)
VALUES ($1, $2, $3::date, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
   SET name = EXCLUDED.name, date = EXCLUDED.date, type = EXCLUDED.type,
       office_status = EXCLUDED.office_status, recurrence = EXCLUDED.recurrence`
	holidaysBetweenSQL = `SELECT id, name, date::text, type, office_status, recurrence
  FROM holidays
 WHERE (date BETWEEN $1::date AND $2::date) OR recurrence <> ''
 ORDER BY date`
)

func (s *Store) SaveHoliday(ctx context.Context, h leave.Holiday) error {
	_, err := s.q(ctx).Exec(ctx, upsertHolidaySQL,
		h.ID, h.Name, h.Date.String(), string(h.Type), string(h.OfficeStatus), h.Recurrence)
	if err != nil {
		return fmt.Errorf("postgres: save holiday %s: %w", h.ID, translatePgError(err))
	}
	return nil
}

func (s *Store) HolidaysBetween(ctx context.Context, from, to generic.TimePoint) ([]leave.Holiday, error) {
	rows, err := s.q(ctx).Query(ctx, holidaysBetweenSQL, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: query holidays: %w", err)
	}
	defer rows.Close()

	var out []leave.Holiday
	for rows.Next() {
		var (
			h                 leave.Holiday
			date, typ, status string
		)
		if err := rows.Scan(&h.ID, &h.Name, &date, &typ, &status, &h.Recurrence); err != nil {
			return nil, fmt.Errorf("postgres: scan holiday: %w", err)
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		h.Type = leave.HolidayType(typ)
		h.OfficeStatus = leave.OfficeStatus(status)
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT LOG
// =============================================================================

const insertAuditSQL = `INSERT INTO audit_log (id, occurred_at, actor_id, action, subject, year, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)`

func (s *Store) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("postgres: encode audit payload: %w", err)
	}
	_, err = s.q(ctx).Exec(ctx, insertAuditSQL,
		e.ID, updatedAt(e.Timestamp), e.ActorID, string(e.Action), e.Subject, e.Year, string(payload))
	if err != nil {
		return fmt.Errorf("postgres: append audit %s: %w", e.ID, translatePgError(err))
	}
	return nil
}

func (s *Store) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	query, args := buildAuditQuery(f)
	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query audit: %w", err)
	}
	defer rows.Close()

	var out []generic.AuditEntry
	for rows.Next() {
		var (
			e       generic.AuditEntry
			action  string
			payload string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActorID, &action, &e.Subject, &e.Year, &payload); err != nil {
			return nil, fmt.Errorf("postgres: scan audit: %w", err)
		}
		e.Action = generic.AuditAction(action)
		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
				return nil, fmt.Errorf("postgres: decode audit payload: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func buildAuditQuery(f generic.AuditFilter) (string, []any) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 2+len(f.Actions))

	if f.Subject != nil {
		args = append(args, *f.Subject)
		conditions = append(conditions, "subject = $"+strconv.Itoa(len(args)))
	}
	if f.Year != nil {
		args = append(args, *f.Year)
		conditions = append(conditions, "year = $"+strconv.Itoa(len(args)))
	}
	if len(f.Actions) > 0 {
		actions := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			actions[i] = string(a)
		}
		args = append(args, actions)
		conditions = append(conditions, "action = ANY($"+strconv.Itoa(len(args))+")")
	}

	query := `SELECT id, occurred_at, actor_id, action, subject, year, payload::text FROM audit_log`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query + " ORDER BY occurred_at, id", args
}

// Helper functions

func dateArg(d *generic.TimePoint) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDatePtr(s sql.NullString) (*generic.TimePoint, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func updatedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
