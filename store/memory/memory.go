// Package memory provides an in-memory leave.Store for tests and dev runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory serializes every write behind one mutex, which trivially gives
// per-row single-writer semantics.
type Memory struct {
	mu       sync.RWMutex
	balances map[key]leave.BalanceRecord
	requests map[string]leave.LeaveRequest
	holidays map[string]leave.Holiday
	audit    []generic.AuditEntry
}

type key struct {
	Email string
	Year  int
}

var _ leave.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		balances: make(map[key]leave.BalanceRecord),
		requests: make(map[string]leave.LeaveRequest),
		holidays: make(map[string]leave.Holiday),
	}
}

// -----------------------------------------------------------------------------
// Balances
// -----------------------------------------------------------------------------

func (m *Memory) GetBalance(_ context.Context, email string, year int) (*leave.BalanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(email, year)
}

func (m *Memory) getLocked(email string, year int) (*leave.BalanceRecord, error) {
	r, ok := m.balances[key{normalize(email), year}]
	if !ok {
		return nil, generic.NewNotFoundError("balance record", leave.RecordKey(email, year))
	}
	return &r, nil
}

func (m *Memory) ListBalances(_ context.Context, year int) ([]leave.BalanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(year), nil
}

func (m *Memory) listLocked(year int) []leave.BalanceRecord {
	var out []leave.BalanceRecord
	for k, r := range m.balances {
		if k.Year == year {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func (m *Memory) CreateBalance(_ context.Context, r leave.BalanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(r)
}

func (m *Memory) createLocked(r leave.BalanceRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	k := key{normalize(r.Email), r.Year}
	if _, exists := m.balances[k]; exists {
		return generic.ErrAlreadyExists
	}
	m.balances[k] = r
	return nil
}

func (m *Memory) UpdateBalance(_ context.Context, email string, year int, fn func(*leave.BalanceRecord) error) (*leave.BalanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(email, year, fn)
}

func (m *Memory) updateLocked(email string, year int, fn func(*leave.BalanceRecord) error) (*leave.BalanceRecord, error) {
	current, err := m.getLocked(email, year)
	if err != nil {
		return nil, err
	}
	identity, y := current.Email, current.Year
	if err := fn(current); err != nil {
		return nil, err
	}
	current.Email, current.Year = identity, y
	m.balances[key{normalize(email), year}] = *current
	out := *current
	return &out, nil
}

// -----------------------------------------------------------------------------
// Requests
// -----------------------------------------------------------------------------

func (m *Memory) CreateRequest(_ context.Context, r leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[r.ID]; exists {
		return generic.ErrAlreadyExists
	}
	m.requests[r.ID] = r
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id string) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, generic.NewNotFoundError("leave request", id)
	}
	return &r, nil
}

func (m *Memory) UpdateRequest(_ context.Context, id string, fn func(*leave.LeaveRequest) error) (*leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, generic.NewNotFoundError("leave request", id)
	}
	if err := fn(&r); err != nil {
		return nil, err
	}
	r.ID = id
	m.requests[id] = r
	return &r, nil
}

func (m *Memory) ListRequests(_ context.Context, requesterEmail string) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.LeaveRequest
	for _, r := range m.requests {
		if normalize(r.RequesterEmail) == normalize(requesterEmail) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// -----------------------------------------------------------------------------
// Holidays
// -----------------------------------------------------------------------------

func (m *Memory) SaveHoliday(_ context.Context, h leave.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) HolidaysBetween(_ context.Context, from, to generic.TimePoint) ([]leave.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	period := generic.Period{Start: from, End: to}
	var out []leave.Holiday
	for _, h := range m.holidays {
		if h.Recurrence != "" || period.Contains(h.Date) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// -----------------------------------------------------------------------------
// Audit
// -----------------------------------------------------------------------------

func (m *Memory) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

func (m *Memory) QueryAudit(_ context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryAuditLocked(f), nil
}

func (m *Memory) queryAuditLocked(f generic.AuditFilter) []generic.AuditEntry {
	var out []generic.AuditEntry
	for _, e := range m.audit {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The store lock is held for the duration, so no other writer can
// interleave with the transaction.
func (m *Memory) WithTx(_ context.Context, fn func(leave.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	balances map[key]leave.BalanceRecord
	audit    []generic.AuditEntry
}

func (m *Memory) snapshot() memorySnapshot {
	balances := make(map[key]leave.BalanceRecord, len(m.balances))
	for k, v := range m.balances {
		balances[k] = v
	}
	return memorySnapshot{balances: balances, audit: append([]generic.AuditEntry{}, m.audit...)}
}

func (m *Memory) restore(s memorySnapshot) {
	m.balances = s.balances
	m.audit = s.audit
}

// txView runs against the parent's maps while WithTx holds the lock.
type txView struct {
	parent *Memory
}

func (tv *txView) GetBalance(_ context.Context, email string, year int) (*leave.BalanceRecord, error) {
	return tv.parent.getLocked(email, year)
}

func (tv *txView) ListBalances(_ context.Context, year int) ([]leave.BalanceRecord, error) {
	return tv.parent.listLocked(year), nil
}

func (tv *txView) CreateBalance(_ context.Context, r leave.BalanceRecord) error {
	return tv.parent.createLocked(r)
}

func (tv *txView) UpdateBalance(_ context.Context, email string, year int, fn func(*leave.BalanceRecord) error) (*leave.BalanceRecord, error) {
	return tv.parent.updateLocked(email, year, fn)
}

func (tv *txView) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	tv.parent.audit = append(tv.parent.audit, e)
	return nil
}

func (tv *txView) QueryAudit(_ context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	return tv.parent.queryAuditLocked(f), nil
}

func normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
