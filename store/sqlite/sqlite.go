/*
Package sqlite provides a SQLite-backed implementation of leave.Store.

PURPOSE:
  The default persistence backend. The Postgres store implements the same
  interface for multi-process deployments.

KEY TABLES:
  balances:       one row per (email, year), decimals stored as TEXT
  leave_requests: leave applications and their balance_updated guard
  holidays:       dated and recurring (RRULE) holidays
  audit_log:      append-only field updates and rollover summaries

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. UpdateBalance and WithTx hold the
  writer lock around a database/sql transaction, so a row has at most one
  writer and a rollover never interleaves with balance mutations.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). Postgres uses golang-migrate instead
  (see migrations/postgres).
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ leave.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS balances (
		email TEXT NOT NULL COLLATE NOCASE,
		year INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		manager_email TEXT NOT NULL DEFAULT '',
		brought_forward TEXT NOT NULL DEFAULT '0',
		accumulated_leave TEXT NOT NULL DEFAULT '0',
		annual_used TEXT NOT NULL DEFAULT '0',
		forfeited TEXT NOT NULL DEFAULT '0',
		annual_adjustments TEXT NOT NULL DEFAULT '0',
		sick_used TEXT NOT NULL DEFAULT '0',
		maternity_used TEXT NOT NULL DEFAULT '0',
		parental_used TEXT NOT NULL DEFAULT '0',
		family_used TEXT NOT NULL DEFAULT '0',
		adoption_used TEXT NOT NULL DEFAULT '0',
		study_used TEXT NOT NULL DEFAULT '0',
		wellness_used TEXT NOT NULL DEFAULT '0',
		start_date TEXT,
		termination_date TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (email, year)
	);

	CREATE INDEX IF NOT EXISTS idx_balances_year ON balances(year);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		requester_email TEXT NOT NULL COLLATE NOCASE,
		approver_email TEXT NOT NULL,
		status TEXT NOT NULL,
		is_half_day INTEGER NOT NULL DEFAULT 0,
		units TEXT NOT NULL,
		balance_updated INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_requester ON leave_requests(requester_email);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		office_status TEXT NOT NULL,
		recurrence TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(date);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		subject TEXT NOT NULL,
		year INTEGER NOT NULL,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_log(subject, year);
	`

	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// BALANCE STORE
// =============================================================================

const balanceColumns = `email, year, name, department, manager_email,
	brought_forward, accumulated_leave, annual_used, forfeited, annual_adjustments,
	sick_used, maternity_used, parental_used, family_used, adoption_used, study_used, wellness_used,
	start_date, termination_date, updated_at`

func (s *Store) GetBalance(ctx context.Context, email string, year int) (*leave.BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, email, year)
}

func getBalance(ctx context.Context, q queryer, email string, year int) (*leave.BalanceRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+balanceColumns+` FROM balances WHERE email = ? AND year = ?`, email, year)
	r, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.NewNotFoundError("balance record", leave.RecordKey(email, year))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return r, nil
}

func (s *Store) ListBalances(ctx context.Context, year int) ([]leave.BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBalances(ctx, s.db, year)
}

func listBalances(ctx context.Context, q queryer, year int) ([]leave.BalanceRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+balanceColumns+` FROM balances WHERE year = ? ORDER BY email`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var out []leave.BalanceRecord
	for rows.Next() {
		r, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) CreateBalance(ctx context.Context, r leave.BalanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createBalance(ctx, s.db, r)
}

func createBalance(ctx context.Context, q queryer, r leave.BalanceRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `INSERT INTO balances (`+balanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Email, r.Year, r.Name, r.Department, r.ManagerEmail,
		r.BroughtForward.String(), r.AccumulatedLeave.String(), r.AnnualUsed.String(), r.Forfeited.String(), r.AnnualAdjustments.String(),
		r.SickUsed.String(), r.MaternityUsed.String(), r.ParentalUsed.String(), r.FamilyUsed.String(),
		r.AdoptionUsed.String(), r.StudyUsed.String(), r.WellnessUsed.String(),
		nullDate(r.StartDate), nullDate(r.TerminationDate), timestamp(r.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("balance %s: %w", r.Key(), generic.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create balance: %w", err)
	}
	return nil
}

// UpdateBalance runs a read-modify-write of one row under the writer lock.
func (s *Store) UpdateBalance(ctx context.Context, email string, year int, fn func(*leave.BalanceRecord) error) (*leave.BalanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	updated, err := updateBalance(ctx, sqlTx, email, year, fn)
	if err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit balance update: %w", err)
	}
	return updated, nil
}

func updateBalance(ctx context.Context, q queryer, email string, year int, fn func(*leave.BalanceRecord) error) (*leave.BalanceRecord, error) {
	r, err := getBalance(ctx, q, email, year)
	if err != nil {
		return nil, err
	}
	identity, y := r.Email, r.Year
	if err := fn(r); err != nil {
		return nil, err
	}
	r.Email, r.Year = identity, y

	res, err := q.ExecContext(ctx, `UPDATE balances SET
		name = ?, department = ?, manager_email = ?,
		brought_forward = ?, accumulated_leave = ?, annual_used = ?, forfeited = ?, annual_adjustments = ?,
		sick_used = ?, maternity_used = ?, parental_used = ?, family_used = ?, adoption_used = ?, study_used = ?, wellness_used = ?,
		start_date = ?, termination_date = ?, updated_at = ?
		WHERE email = ? AND year = ?`,
		r.Name, r.Department, r.ManagerEmail,
		r.BroughtForward.String(), r.AccumulatedLeave.String(), r.AnnualUsed.String(), r.Forfeited.String(), r.AnnualAdjustments.String(),
		r.SickUsed.String(), r.MaternityUsed.String(), r.ParentalUsed.String(), r.FamilyUsed.String(),
		r.AdoptionUsed.String(), r.StudyUsed.String(), r.WellnessUsed.String(),
		nullDate(r.StartDate), nullDate(r.TerminationDate), timestamp(r.UpdatedAt),
		r.Email, r.Year,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, fmt.Errorf("balance %s: %w", r.Key(), generic.ErrConcurrentModification)
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBalance(row scanner) (*leave.BalanceRecord, error) {
	var (
		r                        leave.BalanceRecord
		start, term, updatedAt   sql.NullString
	)
	err := row.Scan(
		&r.Email, &r.Year, &r.Name, &r.Department, &r.ManagerEmail,
		&r.BroughtForward, &r.AccumulatedLeave, &r.AnnualUsed, &r.Forfeited, &r.AnnualAdjustments,
		&r.SickUsed, &r.MaternityUsed, &r.ParentalUsed, &r.FamilyUsed, &r.AdoptionUsed, &r.StudyUsed, &r.WellnessUsed,
		&start, &term, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if r.StartDate, err = parseNullDate(start); err != nil {
		return nil, err
	}
	if r.TerminationDate, err = parseNullDate(term); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
	}
	return &r, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(leave.TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", generic.ErrTransactionFailed, err)
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetBalance(ctx context.Context, email string, year int) (*leave.BalanceRecord, error) {
	return getBalance(ctx, ts.tx, email, year)
}

func (ts *txStore) ListBalances(ctx context.Context, year int) ([]leave.BalanceRecord, error) {
	return listBalances(ctx, ts.tx, year)
}

func (ts *txStore) CreateBalance(ctx context.Context, r leave.BalanceRecord) error {
	return createBalance(ctx, ts.tx, r)
}

func (ts *txStore) UpdateBalance(ctx context.Context, email string, year int, fn func(*leave.BalanceRecord) error) (*leave.BalanceRecord, error) {
	return updateBalance(ctx, ts.tx, email, year, fn)
}

func (ts *txStore) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	return appendAudit(ctx, ts.tx, e)
}

func (ts *txStore) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	return queryAudit(ctx, ts.tx, f)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, title, detail, start_date, end_date, leave_type, requester_email, approver_email,
	status, is_half_day, units, balance_updated, created_at, updated_at`

func (s *Store) CreateRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO leave_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Detail, r.Start.String(), r.End.String(), r.Type.String(),
		r.RequesterEmail, r.ApproverEmail, string(r.Status), r.IsHalfDay, r.Units.String(), r.BalanceUpdated,
		timestamp(r.CreatedAt), timestamp(r.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("request %s: %w", r.ID, generic.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, q queryer, id string) (*leave.LeaveRequest, error) {
	row := q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.NewNotFoundError("leave request", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateRequest(ctx context.Context, id string, fn func(*leave.LeaveRequest) error) (*leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	r, err := getRequest(ctx, sqlTx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	r.ID = id

	_, err = sqlTx.ExecContext(ctx, `UPDATE leave_requests SET
		title = ?, detail = ?, status = ?, units = ?, balance_updated = ?, approver_email = ?, updated_at = ?
		WHERE id = ?`,
		r.Title, r.Detail, string(r.Status), r.Units.String(), r.BalanceUpdated, r.ApproverEmail, timestamp(r.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit request update: %w", err)
	}
	return r, nil
}

func (s *Store) ListRequests(ctx context.Context, requesterEmail string) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM leave_requests
		WHERE requester_email = ? ORDER BY start_date`, requesterEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var out []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRequest(row scanner) (*leave.LeaveRequest, error) {
	var (
		r                    leave.LeaveRequest
		start, end, typ      string
		status               string
		createdAt, updatedAt string
	)
	err := row.Scan(&r.ID, &r.Title, &r.Detail, &start, &end, &typ, &r.RequesterEmail, &r.ApproverEmail,
		&status, &r.IsHalfDay, &r.Units, &r.BalanceUpdated, &createdAt, &updatedAt)
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
	r.Status = leave.RequestStatus(status)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// SaveHoliday inserts or replaces a holiday by ID.
func (s *Store) SaveHoliday(ctx context.Context, h leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, name, date, type, office_status, recurrence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			date = excluded.date,
			type = excluded.type,
			office_status = excluded.office_status,
			recurrence = excluded.recurrence
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.Name,
		h.Date.String(),
		string(h.Type),
		string(h.OfficeStatus),
		h.Recurrence,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// HolidaysBetween returns holidays dated in [from, to] and all recurring ones.
func (s *Store) HolidaysBetween(ctx context.Context, from, to generic.TimePoint) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date, type, office_status, recurrence
		FROM holidays
		WHERE (date >= ? AND date <= ?) OR recurrence != ''
		ORDER BY date
	`, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []leave.Holiday
	for rows.Next() {
		var (
			h                  leave.Holiday
			date, typ, status string
		)
		if err := rows.Scan(&h.ID, &h.Name, &date, &typ, &status, &h.Recurrence); err != nil {
			return nil, err
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

func (s *Store) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, e)
}

func appendAudit(ctx context.Context, q queryer, e generic.AuditEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, subject, year, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, timestamp(e.Timestamp), e.ActorID, string(e.Action), e.Subject, e.Year, string(payload),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("audit %s: %w", e.ID, generic.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *Store) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAudit(ctx, s.db, f)
}

func queryAudit(ctx context.Context, q queryer, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	query := `SELECT id, timestamp, actor_id, action, subject, year, payload_json FROM audit_log WHERE 1=1`
	var args []any
	if f.Subject != nil {
		query += ` AND subject = ?`
		args = append(args, *f.Subject)
	}
	if f.Year != nil {
		query += ` AND year = ?`
		args = append(args, *f.Year)
	}
	if len(f.Actions) > 0 {
		query += ` AND action IN (?` + strings.Repeat(`, ?`, len(f.Actions)-1) + `)`
		for _, a := range f.Actions {
			args = append(args, string(a))
		}
	}
	query += ` ORDER BY timestamp, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []generic.AuditEntry
	for rows.Next() {
		var (
			e       generic.AuditEntry
			ts      string
			action  string
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &action, &e.Subject, &e.Year, &payload); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, ts)
		e.Action = generic.AuditAction(action)
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Helper functions

func nullDate(d *generic.TimePoint) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (*generic.TimePoint, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
