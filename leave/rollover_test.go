package leave_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/CHAISAHR/saleaveapp-sub000/logging"
	"github.com/CHAISAHR/saleaveapp-sub000/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func clockAt(d generic.TimePoint) generic.FixedClock {
	return generic.FixedClock{At: d.Time.Add(9 * time.Hour)}
}

type modeFlag bool

func (m modeFlag) MaintenanceMode() bool { return bool(m) }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []leave.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg leave.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func seed(t *testing.T, store leave.Store, records ...leave.BalanceRecord) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, store.CreateBalance(context.Background(), r))
	}
}

// =============================================================================
// ROLLOVER MATHS
// =============================================================================

func TestNewBroughtForward(t *testing.T) {
	// GIVEN: BF 5, accumulated 15, used 8
	// THEN: Next year's BF is 12
	r := leave.BalanceRecord{BroughtForward: dec("5"), AccumulatedLeave: dec("15"), AnnualUsed: dec("8")}

	assert.True(t, dec("12").Equal(leave.NewBroughtForward(r)))
}

func TestNewBroughtForward_NeverNegative(t *testing.T) {
	r := leave.BalanceRecord{AccumulatedLeave: dec("3"), AnnualUsed: dec("8")}

	assert.True(t, leave.NewBroughtForward(r).IsZero())
}

func TestCarryForward_ResetsCountersExceptSick(t *testing.T) {
	start := date(2021, time.May, 3)
	r := leave.BalanceRecord{
		Email: "ana@example.com", Name: "Ana", Department: "Finance", ManagerEmail: "boss@example.com",
		Year:           2024,
		BroughtForward: dec("5"), AccumulatedLeave: dec("15"), AnnualUsed: dec("8"),
		Forfeited: dec("1"), AnnualAdjustments: dec("0.5"),
		SickUsed: dec("4"), FamilyUsed: dec("1"), StudyUsed: dec("2"), MaternityUsed: dec("1"),
		StartDate: &start,
	}

	next := leave.CarryForward(r, 2025)

	assert.Equal(t, 2025, next.Year)
	assert.Equal(t, "Ana", next.Name)
	assert.Equal(t, "boss@example.com", next.ManagerEmail)
	assert.Equal(t, &start, next.StartDate)
	assert.True(t, dec("10.5").Equal(next.BroughtForward))
	assert.True(t, dec("4").Equal(next.SickUsed), "sick usage carries over")
	for _, v := range []decimal.Decimal{
		next.AccumulatedLeave, next.AnnualUsed, next.Forfeited, next.AnnualAdjustments,
		next.FamilyUsed, next.StudyUsed, next.MaternityUsed,
	} {
		assert.True(t, v.IsZero())
	}
}

func TestCarryForward_NewYearOpensAtBroughtForward(t *testing.T) {
	// Idempotence of the rollover maths: right after rollover the annual
	// balance equals what was carried.
	for _, r := range []leave.BalanceRecord{
		{BroughtForward: dec("5"), AccumulatedLeave: dec("15"), AnnualUsed: dec("8")},
		{BroughtForward: dec("0"), AccumulatedLeave: dec("18.337"), Forfeited: dec("2.5")},
		{BroughtForward: dec("1"), AccumulatedLeave: dec("1.667"), AnnualUsed: dec("9")},
	} {
		next := leave.CarryForward(r, 2025)
		assert.True(t, next.BroughtForward.Equal(leave.AnnualBalance(next, next.AccumulatedLeave)))
	}
}

// =============================================================================
// ROLLOVER PROCESSOR
// =============================================================================

func rolloverFixture(t *testing.T) (*memory.Memory, *leave.RolloverProcessor, *recordingNotifier) {
	t.Helper()
	store := memory.New()
	terminated := date(2024, time.March, 31)
	seed(t, store,
		leave.BalanceRecord{Email: "ana@example.com", Year: 2024,
			BroughtForward: dec("5"), AccumulatedLeave: dec("15"), AnnualUsed: dec("8"), SickUsed: dec("2")},
		leave.BalanceRecord{Email: "ben@example.com", Year: 2024,
			AccumulatedLeave: dec("4.5"), TerminationDate: &terminated},
		leave.BalanceRecord{Email: "cara@example.com", Year: 2024,
			AccumulatedLeave: dec("18.337"), AnnualUsed: dec("20")},
	)
	notifier := &recordingNotifier{}
	p := leave.NewRolloverProcessor(store, clockAt(date(2025, time.January, 5)), nil, notifier, logging.Discard())
	p.NotifyTo = []string{"hr@example.com"}
	return store, p, notifier
}

func TestRollover_CarriesActiveEmployees(t *testing.T) {
	store, p, notifier := rolloverFixture(t)
	ctx := context.Background()

	summary, err := p.Rollover(ctx, 2024, 2025, "hr-admin")

	require.NoError(t, err)
	assert.Equal(t, leave.RolloverSummary{FromYear: 2024, ToYear: 2025, EmployeesProcessed: 2}, summary)

	// Accrual is recomputed for the whole of 2024: 5 + 18.337 - 8.
	ana, err := store.GetBalance(ctx, "ana@example.com", 2025)
	require.NoError(t, err)
	assert.True(t, dec("15.337").Equal(ana.BroughtForward), ana.BroughtForward.String())
	assert.True(t, dec("2").Equal(ana.SickUsed))

	cara, err := store.GetBalance(ctx, "cara@example.com", 2025)
	require.NoError(t, err)
	assert.True(t, cara.BroughtForward.IsZero(), "overdrawn balance carries as zero")

	_, err = store.GetBalance(ctx, "ben@example.com", 2025)
	assert.True(t, generic.IsNotFound(err), "inactive employees are skipped")

	entries, err := store.QueryAudit(ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditRollover}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "*", entries[0].Subject)
	assert.Equal(t, "hr-admin", entries[0].ActorID)
	assert.Equal(t, 2, entries[0].Payload["employees_processed"])

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, []string{"hr@example.com"}, notifier.sent[0].To)
}

func TestRollover_RecomputesStaleAccrualCache(t *testing.T) {
	// GIVEN: Employed since 2020, the 2024 cache last refreshed in April
	// WHEN: Rolling 2024 into 2025 on 2025-01-02
	// THEN: The carried amount uses a full year of accrual and the cache is rewritten
	store := memory.New()
	start := date(2020, time.January, 1)
	seed(t, store, leave.BalanceRecord{Email: "ana@example.com", Year: 2024,
		AccumulatedLeave: dec("5.001"), StartDate: &start})
	p := leave.NewRolloverProcessor(store, clockAt(date(2025, time.January, 2)), nil, nil, logging.Discard())
	ctx := context.Background()

	_, err := p.Rollover(ctx, 2024, 2025, "hr-admin")
	require.NoError(t, err)

	next, err := store.GetBalance(ctx, "ana@example.com", 2025)
	require.NoError(t, err)
	assert.True(t, dec("18.337").Equal(next.BroughtForward), next.BroughtForward.String())

	prev, err := store.GetBalance(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.True(t, dec("18.337").Equal(prev.AccumulatedLeave), prev.AccumulatedLeave.String())
}

func TestRollover_DuplicateTargetRollsEverythingBack(t *testing.T) {
	// GIVEN: cara already has a 2025 row
	// WHEN: Rolling 2024 into 2025
	// THEN: The run fails and ana's freshly inserted row is gone too
	store, p, notifier := rolloverFixture(t)
	ctx := context.Background()
	seed(t, store, leave.BalanceRecord{Email: "cara@example.com", Year: 2025})

	summary, err := p.Rollover(ctx, 2024, 2025, "hr-admin")

	assert.ErrorIs(t, err, generic.ErrAlreadyExists)
	assert.Zero(t, summary.EmployeesProcessed)

	_, err = store.GetBalance(ctx, "ana@example.com", 2025)
	assert.True(t, generic.IsNotFound(err))

	entries, err := store.QueryAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, notifier.sent)
}

func TestRollover_RunningTwiceFails(t *testing.T) {
	_, p, _ := rolloverFixture(t)
	ctx := context.Background()

	_, err := p.Rollover(ctx, 2024, 2025, "hr-admin")
	require.NoError(t, err)

	_, err = p.Rollover(ctx, 2024, 2025, "hr-admin")
	assert.ErrorIs(t, err, generic.ErrAlreadyExists)
}

func TestRollover_NoActiveRecordsIsNotFound(t *testing.T) {
	_, p, _ := rolloverFixture(t)

	_, err := p.Rollover(context.Background(), 2023, 2024, "hr-admin")

	assert.True(t, generic.IsNotFound(err))
}

func TestRollover_RejectsBadYearsAndMaintenance(t *testing.T) {
	store, p, _ := rolloverFixture(t)
	ctx := context.Background()

	_, err := p.Rollover(ctx, 2024, 2024, "hr-admin")
	assert.True(t, generic.IsValidation(err))

	_, err = p.Rollover(ctx, 2024, 2023, "hr-admin")
	assert.True(t, generic.IsValidation(err))

	p.Mode = modeFlag(true)
	_, err = p.Rollover(ctx, 2024, 2025, "hr-admin")
	assert.ErrorIs(t, err, generic.ErrMaintenanceMode)

	rows, err := store.ListBalances(ctx, 2025)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
