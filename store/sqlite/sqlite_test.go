package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/CHAISAHR/saleaveapp-sub000/store/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ana(year int) leave.BalanceRecord {
	start := date(2021, time.May, 3)
	return leave.BalanceRecord{
		Email: "ana@example.com", Name: "Ana", Department: "Finance", ManagerEmail: "boss@example.com",
		Year:           year,
		BroughtForward: dec("5"), AccumulatedLeave: dec("8.335"), AnnualUsed: dec("3.5"),
		AnnualAdjustments: dec("-1.25"), SickUsed: dec("2"), ParentalUsed: dec("1"),
		StartDate: &start,
		UpdatedAt: time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// BALANCES
// =============================================================================

func TestBalance_RoundTripKeepsDecimalsAndDates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateBalance(ctx, ana(2024)))

	r, err := store.GetBalance(ctx, "ANA@example.com", 2024)

	require.NoError(t, err)
	assert.Equal(t, "Finance", r.Department)
	assert.True(t, dec("8.335").Equal(r.AccumulatedLeave))
	assert.True(t, dec("-1.25").Equal(r.AnnualAdjustments))
	assert.True(t, dec("1").Equal(r.ParentalUsed))
	require.NotNil(t, r.StartDate)
	assert.Equal(t, "2021-05-03", r.StartDate.String())
	assert.Nil(t, r.TerminationDate)
}

func TestBalance_MissingAndDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetBalance(ctx, "ana@example.com", 2024)
	assert.True(t, generic.IsNotFound(err))

	require.NoError(t, store.CreateBalance(ctx, ana(2024)))
	err = store.CreateBalance(ctx, ana(2024))
	assert.ErrorIs(t, err, generic.ErrAlreadyExists)

	require.NoError(t, store.CreateBalance(ctx, ana(2025)), "same email, next year")
}

func TestBalance_UpdateWritesOnlyOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateBalance(ctx, ana(2024)))

	updated, err := store.UpdateBalance(ctx, "ana@example.com", 2024, func(r *leave.BalanceRecord) error {
		r.AnnualUsed = r.AnnualUsed.Add(dec("1.5"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(updated.AnnualUsed))

	_, err = store.UpdateBalance(ctx, "ana@example.com", 2024, func(r *leave.BalanceRecord) error {
		r.AnnualUsed = dec("99")
		return errors.New("nope")
	})
	require.Error(t, err)

	r, err := store.GetBalance(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(r.AnnualUsed))
}

func TestBalance_ListIsPerYearOrderedByEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, email := range []string{"cara@example.com", "ana@example.com", "ben@example.com"} {
		require.NoError(t, store.CreateBalance(ctx, leave.BalanceRecord{Email: email, Year: 2024}))
	}
	require.NoError(t, store.CreateBalance(ctx, leave.BalanceRecord{Email: "dan@example.com", Year: 2025}))

	rows, err := store.ListBalances(ctx, 2024)

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ana@example.com", rows[0].Email)
	assert.Equal(t, "cara@example.com", rows[2].Email)
}

func TestWithTx_FailureRollsBackInsertsAndAudit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateBalance(ctx, ana(2024)))
	require.NoError(t, store.CreateBalance(ctx, leave.BalanceRecord{Email: "ben@example.com", Year: 2025}))

	err := store.WithTx(ctx, func(tx leave.TxStore) error {
		if err := tx.CreateBalance(ctx, leave.CarryForward(ana(2024), 2025)); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, generic.AuditEntry{ID: "a-1", Action: generic.AuditRollover, Subject: "*", Year: 2025}); err != nil {
			return err
		}
		return tx.CreateBalance(ctx, leave.BalanceRecord{Email: "ben@example.com", Year: 2025})
	})
	assert.ErrorIs(t, err, generic.ErrAlreadyExists)

	_, err = store.GetBalance(ctx, "ana@example.com", 2025)
	assert.True(t, generic.IsNotFound(err))
	entries, err := store.QueryAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWithTx_CommitsAndSeesOwnWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateBalance(ctx, ana(2024)))

	err := store.WithTx(ctx, func(tx leave.TxStore) error {
		rows, err := tx.ListBalances(ctx, 2024)
		if err != nil {
			return err
		}
		if err := tx.CreateBalance(ctx, leave.CarryForward(rows[0], 2025)); err != nil {
			return err
		}
		_, err = tx.GetBalance(ctx, "ana@example.com", 2025)
		return err
	})
	require.NoError(t, err)

	r, err := store.GetBalance(ctx, "ana@example.com", 2025)
	require.NoError(t, err)
	assert.True(t, dec("11.085").Equal(r.BroughtForward))
	assert.True(t, dec("2").Equal(r.SickUsed))
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestRequest_RoundTripAndUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req := leave.LeaveRequest{
		ID: "r-1", Title: "Holiday", Start: date(2024, time.June, 3), End: date(2024, time.June, 7),
		Type: leave.Annual, RequesterEmail: "ana@example.com", ApproverEmail: "boss@example.com",
		Status: leave.RequestPending, Units: dec("4"),
		CreatedAt: time.Date(2024, time.May, 20, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, time.May, 20, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateRequest(ctx, req))
	assert.ErrorIs(t, store.CreateRequest(ctx, req), generic.ErrAlreadyExists)

	got, err := store.GetRequest(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, leave.Annual, got.Type)
	assert.Equal(t, "2024-06-07", got.End.String())
	assert.True(t, dec("4").Equal(got.Units))

	updated, err := store.UpdateRequest(ctx, "r-1", func(r *leave.LeaveRequest) error {
		r.Status = leave.RequestApproved
		r.BalanceUpdated = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, leave.RequestApproved, updated.Status)

	list, err := store.ListRequests(ctx, "Ana@Example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].BalanceUpdated)

	_, err = store.GetRequest(ctx, "r-2")
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// HOLIDAYS AND AUDIT
// =============================================================================

func TestHolidaysBetween_IncludesRecurring(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	holidays := []leave.Holiday{
		{ID: "youth", Name: "Youth Day", Date: date(2024, time.June, 16), Type: leave.HolidayPublic, OfficeStatus: leave.OfficeClosed},
		{ID: "heritage", Name: "Heritage Day", Date: date(2024, time.September, 24), Type: leave.HolidayPublic, OfficeStatus: leave.OfficeClosed},
		{ID: "xmas", Name: "Christmas", Date: date(2020, time.December, 25), Type: leave.HolidayPublic,
			OfficeStatus: leave.OfficeClosed, Recurrence: "FREQ=YEARLY"},
	}
	for _, h := range holidays {
		require.NoError(t, store.SaveHoliday(ctx, h))
	}

	got, err := store.HolidaysBetween(ctx, date(2024, time.June, 1), date(2024, time.June, 30))

	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, h := range got {
		ids = append(ids, h.ID)
	}
	assert.ElementsMatch(t, []string{"youth", "xmas"}, ids)
}

func TestAudit_FiltersAndDecodesPayload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendAudit(ctx, generic.AuditEntry{
		ID: "a-1", Timestamp: at, ActorID: "hr", Action: generic.AuditBalanceUpdated,
		Subject: "ana@example.com", Year: 2024, Payload: generic.FieldChange("annual_used", "0", "5"),
	}))
	require.NoError(t, store.AppendAudit(ctx, generic.AuditEntry{
		ID: "a-2", Timestamp: at.Add(time.Minute), ActorID: "hr", Action: generic.AuditRollover,
		Subject: "*", Year: 2025, Payload: map[string]any{"employees_processed": 1},
	}))

	subject := "ana@example.com"
	got, err := store.QueryAudit(ctx, generic.AuditFilter{Subject: &subject})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "5", got[0].Payload["new_value"])
	assert.True(t, got[0].Timestamp.Equal(at))

	rollovers, err := store.QueryAudit(ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditRollover}})
	require.NoError(t, err)
	require.Len(t, rollovers, 1)
	assert.Equal(t, float64(1), rollovers[0].Payload["employees_processed"])

	err = store.AppendAudit(ctx, generic.AuditEntry{ID: "a-1", Timestamp: at})
	assert.ErrorIs(t, err, generic.ErrAlreadyExists)
}
