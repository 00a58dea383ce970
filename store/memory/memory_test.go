package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/CHAISAHR/saleaveapp-sub000/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_EmailLookupIgnoresCase(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.CreateBalance(ctx, leave.BalanceRecord{Email: "ana@example.com", Year: 2024}))

	_, err := store.GetBalance(ctx, " Ana@Example.com", 2024)
	require.NoError(t, err)

	err = store.CreateBalance(ctx, leave.BalanceRecord{Email: "ANA@example.com", Year: 2024})
	assert.ErrorIs(t, err, generic.ErrAlreadyExists)
}

func TestMemory_CreateValidates(t *testing.T) {
	store := memory.New()

	err := store.CreateBalance(context.Background(), leave.BalanceRecord{Email: "ana@example.com", Year: 2024, SickUsed: decimal.NewFromInt(-1)})

	assert.True(t, generic.IsValidation(err))
}

func TestMemory_UpdateKeepsIdentity(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.CreateBalance(ctx, leave.BalanceRecord{Email: "ana@example.com", Year: 2024}))

	r, err := store.UpdateBalance(ctx, "ana@example.com", 2024, func(r *leave.BalanceRecord) error {
		r.Email = "someone@else.com"
		r.Year = 1999
		r.FamilyUsed = decimal.NewFromInt(1)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", r.Email)
	assert.Equal(t, 2024, r.Year)
	assert.Equal(t, "1", r.FamilyUsed.String())
}

func TestMemory_ConcurrentUpdatesAreSerialized(t *testing.T) {
	// GIVEN: 50 goroutines each charging 1 day
	// THEN: No increment is lost
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.CreateBalance(ctx, leave.BalanceRecord{Email: "ana@example.com", Year: 2024}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdateBalance(ctx, "ana@example.com", 2024, func(r *leave.BalanceRecord) error {
				_, err := leave.ApplyLeaveEffect(r, leave.Annual, decimal.NewFromInt(1), leave.ActionApprove)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	r, err := store.GetBalance(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.Equal(t, "50", r.AnnualUsed.String())
}

func TestMemory_WithTxRestoresOnError(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx leave.TxStore) error {
		if err := tx.CreateBalance(ctx, leave.BalanceRecord{Email: "ana@example.com", Year: 2025}); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, generic.AuditEntry{ID: "a-1", Action: generic.AuditRollover}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	rows, err := store.ListBalances(ctx, 2025)
	require.NoError(t, err)
	assert.Empty(t, rows)
	entries, err := store.QueryAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemory_HolidaysBetween(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.SaveHoliday(ctx, leave.Holiday{ID: "a", Date: generic.NewTimePoint(2024, time.June, 16)}))
	require.NoError(t, store.SaveHoliday(ctx, leave.Holiday{ID: "b", Date: generic.NewTimePoint(2024, time.August, 9)}))
	require.NoError(t, store.SaveHoliday(ctx, leave.Holiday{ID: "c", Date: generic.NewTimePoint(2019, time.January, 1), Recurrence: "FREQ=YEARLY"}))

	got, err := store.HolidaysBetween(ctx, generic.NewTimePoint(2024, time.June, 1), generic.NewTimePoint(2024, time.June, 30))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}
