package leave_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/CHAISAHR/saleaveapp-sub000/logging"
	"github.com/CHAISAHR/saleaveapp-sub000/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// BALANCE SERVICE
// =============================================================================

func newBalanceService(t *testing.T, today generic.TimePoint) (*memory.Memory, *leave.BalanceService) {
	t.Helper()
	store := memory.New()
	return store, leave.NewBalanceService(store, clockAt(today), nil, logging.Discard())
}

func TestBalanceService_RegisterFillsAccrualCache(t *testing.T) {
	store, svc := newBalanceService(t, date(2024, time.April, 1))
	ctx := context.Background()
	start := date(2024, time.January, 1)

	err := svc.Register(ctx, leave.BalanceRecord{Email: "ana@example.com", Year: 2024, StartDate: &start}, "hr-admin")
	require.NoError(t, err)

	r, err := store.GetBalance(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.True(t, dec("5.001").Equal(r.AccumulatedLeave))

	err = svc.Register(ctx, leave.BalanceRecord{Email: "ana@example.com", Year: 2024}, "hr-admin")
	assert.ErrorIs(t, err, generic.ErrAlreadyExists)
}

func TestBalanceService_RecordWritesBackStaleCache(t *testing.T) {
	// GIVEN: A row cached at 1.667 in April
	// WHEN: The record is read
	// THEN: The caller sees 5.001 and the row is rewritten
	store, svc := newBalanceService(t, date(2024, time.April, 1))
	ctx := context.Background()
	seed(t, store, leave.BalanceRecord{Email: "ana@example.com", Year: 2024, AccumulatedLeave: dec("1.667")})

	r, err := svc.Record(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.True(t, dec("5.001").Equal(r.AccumulatedLeave))

	stored, err := store.GetBalance(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.True(t, dec("5.001").Equal(stored.AccumulatedLeave))
}

func TestBalanceService_MaintenanceModeSkipsWriteBack(t *testing.T) {
	store, svc := newBalanceService(t, date(2024, time.April, 1))
	svc.Mode = modeFlag(true)
	ctx := context.Background()
	seed(t, store, leave.BalanceRecord{Email: "ana@example.com", Year: 2024, AccumulatedLeave: dec("1.667")})

	r, err := svc.Record(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.True(t, dec("5.001").Equal(r.AccumulatedLeave), "reads still recompute")

	stored, err := store.GetBalance(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.True(t, dec("1.667").Equal(stored.AccumulatedLeave))

	_, err = svc.Adjust(ctx, "ana@example.com", 2024, "forfeited", dec("1"), "hr-admin")
	assert.ErrorIs(t, err, generic.ErrMaintenanceMode)
}

func TestBalanceService_ReconcileYear(t *testing.T) {
	store, svc := newBalanceService(t, date(2024, time.April, 1))
	seed(t, store,
		leave.BalanceRecord{Email: "ana@example.com", Year: 2024, AccumulatedLeave: dec("5.001")},
		leave.BalanceRecord{Email: "ben@example.com", Year: 2024, AccumulatedLeave: dec("0")},
	)

	summary, err := svc.ReconcileYear(context.Background(), 2024)

	require.NoError(t, err)
	assert.Equal(t, leave.ReconcileSummary{Year: 2024, Checked: 2, Refreshed: 1}, summary)
}

func TestBalanceService_BalancesOfPastYearStopAtYearEnd(t *testing.T) {
	store, svc := newBalanceService(t, date(2025, time.February, 10))
	seed(t, store, leave.BalanceRecord{Email: "ana@example.com", Year: 2024, AnnualUsed: dec("10")})

	_, balances, err := svc.Balances(context.Background(), "ana@example.com", 2024)

	require.NoError(t, err)
	assert.True(t, dec("8.337").Equal(balances[leave.Annual].Value))
	assert.True(t, dec("36").Equal(balances[leave.Sick].Value))
}

func TestBalanceService_AdjustAuditsOldAndNew(t *testing.T) {
	store, svc := newBalanceService(t, date(2024, time.April, 1))
	ctx := context.Background()
	seed(t, store, leave.BalanceRecord{Email: "ana@example.com", Year: 2024, BroughtForward: dec("5")})

	r, err := svc.Adjust(ctx, "ana@example.com", 2024, "brought_forward", dec("7.5"), "hr-admin")
	require.NoError(t, err)
	assert.True(t, dec("7.5").Equal(r.BroughtForward))

	subject := "ana@example.com"
	entries, err := store.QueryAudit(ctx, generic.AuditFilter{Subject: &subject})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, generic.AuditBalanceUpdated, entries[0].Action)
	assert.Equal(t, "brought_forward", entries[0].Payload["field"])
	assert.Equal(t, "5", entries[0].Payload["old_value"])
	assert.Equal(t, "7.5", entries[0].Payload["new_value"])
	assert.NotEmpty(t, entries[0].ID)
}

func TestBalanceService_AdjustRejectsBadInput(t *testing.T) {
	store, svc := newBalanceService(t, date(2024, time.April, 1))
	ctx := context.Background()
	seed(t, store, leave.BalanceRecord{Email: "ana@example.com", Year: 2024, Forfeited: dec("1")})

	_, err := svc.Adjust(ctx, "ana@example.com", 2024, "accumulated_leave", dec("3"), "hr-admin")
	assert.True(t, generic.IsValidation(err), "accrual cache is not adjustable")

	_, err = svc.Adjust(ctx, "ana@example.com", 2024, "forfeited", dec("-1"), "hr-admin")
	assert.True(t, generic.IsValidation(err))

	r, err := store.GetBalance(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.True(t, dec("1").Equal(r.Forfeited), "failed adjustment leaves the row unchanged")

	_, err = svc.Adjust(ctx, "ghost@example.com", 2024, "forfeited", dec("1"), "hr-admin")
	assert.True(t, generic.IsNotFound(err))
}

func TestBalanceService_Termination(t *testing.T) {
	store, svc := newBalanceService(t, date(2024, time.June, 1))
	ctx := context.Background()
	termination := date(2024, time.March, 15)
	seed(t, store,
		leave.BalanceRecord{Email: "ana@example.com", Year: 2024, TerminationDate: &termination},
		leave.BalanceRecord{Email: "ben@example.com", Year: 2024},
	)

	res, err := svc.Termination(ctx, "ana@example.com", 2024)
	require.NoError(t, err)
	assert.True(t, dec("4.141").Equal(res.Balance.Value))
	assert.Equal(t, leave.StatusInactive, res.Status)

	_, err = svc.Termination(ctx, "ben@example.com", 2024)
	assert.True(t, generic.IsValidation(err))
}

func TestBalanceService_TerminationReadNextYear(t *testing.T) {
	// GIVEN: A 2024 leaver whose payout is read in January 2025
	// THEN: Accrual is frozen at the termination date, not reset by the new year
	store, svc := newBalanceService(t, date(2025, time.January, 5))
	start := date(2020, time.January, 1)
	termination := date(2024, time.December, 15)
	seed(t, store, leave.BalanceRecord{Email: "ana@example.com", Year: 2024, StartDate: &start, TerminationDate: &termination})

	res, err := svc.Termination(context.Background(), "ana@example.com", 2024)

	require.NoError(t, err)
	assert.True(t, dec("18.337").Equal(res.Base), res.Base.String())
	assert.True(t, dec("19.144").Equal(res.Balance.Value), res.Balance.Value.String())
	assert.Equal(t, leave.StatusInactive, res.Status)
}

// =============================================================================
// REQUEST SERVICE
// =============================================================================

type requestFixture struct {
	store    *memory.Memory
	svc      *leave.RequestService
	notifier *recordingNotifier
}

func newRequestFixture(t *testing.T) requestFixture {
	t.Helper()
	store := memory.New()
	seed(t, store, leave.BalanceRecord{Email: "ana@example.com", Year: 2024, BroughtForward: dec("5")})
	notifier := &recordingNotifier{}
	svc := leave.NewRequestService(store, clockAt(date(2024, time.May, 20)), nil, notifier, logging.Discard())
	return requestFixture{store: store, svc: svc, notifier: notifier}
}

func annualInput(start, end string) leave.SubmitInput {
	return leave.SubmitInput{
		Title:          "Holiday",
		StartDate:      start,
		EndDate:        end,
		LeaveType:      "annual",
		RequesterEmail: "ana@example.com",
		ApproverEmail:  "boss@example.com",
	}
}

func (f requestFixture) annualUsed(t *testing.T) string {
	t.Helper()
	r, err := f.store.GetBalance(context.Background(), "ana@example.com", 2024)
	require.NoError(t, err)
	return r.AnnualUsed.String()
}

func TestRequest_SubmitFreezesWorkingDays(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SaveHoliday(ctx, leave.Holiday{
		ID: "youth-day", Name: "Youth Day", Date: date(2024, time.June, 5),
		Type: leave.HolidayPublic, OfficeStatus: leave.OfficeClosed,
	}))

	req, err := f.svc.Submit(ctx, annualInput("2024-06-03", "2024-06-09"))

	require.NoError(t, err)
	assert.Equal(t, leave.RequestPending, req.Status)
	assert.Equal(t, "4", req.Units.String())
	assert.False(t, req.BalanceUpdated)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, []string{"boss@example.com"}, f.notifier.sent[0].To)
}

func TestRequest_SubmitRejectsInvalidInput(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	bad := annualInput("2024-06-03", "2024-06-07")
	bad.RequesterEmail = "not-an-email"
	_, err := f.svc.Submit(ctx, bad)
	assert.True(t, generic.IsValidation(err))

	_, err = f.svc.Submit(ctx, annualInput("2024-06-07", "2024-06-03"))
	assert.True(t, generic.IsValidation(err), "end before start")

	_, err = f.svc.Submit(ctx, annualInput("2024-06-08", "2024-06-09"))
	assert.True(t, generic.IsValidation(err), "weekend only")

	unknown := annualInput("2024-06-03", "2024-06-07")
	unknown.LeaveType = "sabbatical"
	_, err = f.svc.Submit(ctx, unknown)
	assert.True(t, generic.IsValidation(err))

	halfDayWeeks := annualInput("2024-06-03", "2024-06-07")
	halfDayWeeks.LeaveType = "parental"
	halfDayWeeks.IsHalfDay = true
	_, err = f.svc.Submit(ctx, halfDayWeeks)
	assert.True(t, generic.IsValidation(err))
}

func TestRequest_ApproveThenCancelRestoresBalance(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, annualInput("2024-06-03", "2024-06-07"))
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, req.ID, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, leave.RequestApproved, approved.Status)
	assert.True(t, approved.BalanceUpdated)
	assert.Equal(t, "5", f.annualUsed(t))

	_, err = f.svc.Approve(ctx, req.ID, "boss@example.com")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition, "no double charge")
	assert.Equal(t, "5", f.annualUsed(t))

	cancelled, err := f.svc.Cancel(ctx, req.ID, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, leave.RequestCancelled, cancelled.Status)
	assert.False(t, cancelled.BalanceUpdated)
	assert.Equal(t, "0", f.annualUsed(t))

	_, err = f.svc.Cancel(ctx, req.ID, "ana@example.com")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition, "no double refund")
	assert.Equal(t, "0", f.annualUsed(t))

	subject := "ana@example.com"
	updates, err := f.store.QueryAudit(ctx, generic.AuditFilter{
		Subject: &subject,
		Actions: []generic.AuditAction{generic.AuditBalanceUpdated},
	})
	require.NoError(t, err)
	assert.Len(t, updates, 2)
}

func TestRequest_RejectAndInvalidTransitions(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, annualInput("2024-06-03", "2024-06-04"))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, req.ID, "ana@example.com")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition, "pending cannot be cancelled")

	rejected, err := f.svc.Reject(ctx, req.ID, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, leave.RequestRejected, rejected.Status)

	_, err = f.svc.Approve(ctx, req.ID, "boss@example.com")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	_, err = f.svc.Reject(ctx, req.ID, "boss@example.com")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	assert.Equal(t, "0", f.annualUsed(t))

	_, err = f.svc.Approve(ctx, "missing", "boss@example.com")
	assert.True(t, generic.IsNotFound(err))
}

func TestRequest_ApproveRepairsMissingBalanceEffect(t *testing.T) {
	// GIVEN: A request approved while its balance row did not exist yet
	// WHEN: The row is created and the request approved again
	// THEN: The effect is applied exactly once
	f := newRequestFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, leave.SubmitInput{
		Title: "Study", StartDate: "2025-01-06", EndDate: "2025-01-07", LeaveType: "study",
		RequesterEmail: "ana@example.com", ApproverEmail: "boss@example.com",
	})
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, req.ID, "boss@example.com")
	require.Error(t, err)
	assert.True(t, generic.IsNotFound(err))
	assert.Equal(t, leave.RequestApproved, approved.Status)
	assert.False(t, approved.BalanceUpdated)

	seed(t, f.store, leave.BalanceRecord{Email: "ana@example.com", Year: 2025})

	repaired, err := f.svc.Approve(ctx, req.ID, "boss@example.com")
	require.NoError(t, err)
	assert.True(t, repaired.BalanceUpdated)

	_, err = f.svc.Approve(ctx, req.ID, "boss@example.com")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)

	r, err := f.store.GetBalance(ctx, "ana@example.com", 2025)
	require.NoError(t, err)
	assert.Equal(t, "2", r.StudyUsed.String())
}

// interleavingStore runs hook once, just before the first balance write.
type interleavingStore struct {
	leave.Store
	fired bool
	hook  func()
}

func (s *interleavingStore) UpdateBalance(ctx context.Context, email string, year int, fn func(*leave.BalanceRecord) error) (*leave.BalanceRecord, error) {
	if !s.fired {
		s.fired = true
		s.hook()
	}
	return s.Store.UpdateBalance(ctx, email, year, fn)
}

func TestRequest_OverlappingApprovalsChargeOnce(t *testing.T) {
	// GIVEN: A second approval arrives after the first changed the status
	//        but before it wrote the balance
	// THEN: The second approval is refused and the leave is charged once
	f := newRequestFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, annualInput("2024-06-03", "2024-06-04"))
	require.NoError(t, err)

	var secondErr error
	store := &interleavingStore{Store: f.store}
	svc := leave.NewRequestService(store, clockAt(date(2024, time.May, 20)), nil, nil, logging.Discard())
	store.hook = func() { _, secondErr = svc.Approve(ctx, req.ID, "boss@example.com") }

	approved, err := svc.Approve(ctx, req.ID, "boss@example.com")

	require.NoError(t, err)
	assert.True(t, approved.BalanceUpdated)
	assert.ErrorIs(t, secondErr, generic.ErrInvalidTransition)
	assert.Equal(t, "2", f.annualUsed(t))
}

func TestRequest_OverlappingCancelsRestoreOnce(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, annualInput("2024-06-03", "2024-06-04"))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, req.ID, "boss@example.com")
	require.NoError(t, err)

	var secondErr error
	store := &interleavingStore{Store: f.store}
	svc := leave.NewRequestService(store, clockAt(date(2024, time.May, 20)), nil, nil, logging.Discard())
	store.hook = func() { _, secondErr = svc.Cancel(ctx, req.ID, "ana@example.com") }

	_, err = svc.Cancel(ctx, req.ID, "ana@example.com")

	require.NoError(t, err)
	assert.ErrorIs(t, secondErr, generic.ErrInvalidTransition)
	assert.Equal(t, "0", f.annualUsed(t))
}

func TestRequest_CancelUnchargedApprovalLeavesBalance(t *testing.T) {
	// GIVEN: An approval whose balance row was missing, so nothing was charged
	// WHEN: The request is cancelled
	// THEN: Nothing is restored either
	f := newRequestFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, leave.SubmitInput{
		Title: "Study", StartDate: "2025-01-06", EndDate: "2025-01-07", LeaveType: "study",
		RequesterEmail: "ana@example.com", ApproverEmail: "boss@example.com",
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, req.ID, "boss@example.com")
	require.Error(t, err)
	seed(t, f.store, leave.BalanceRecord{Email: "ana@example.com", Year: 2025})

	cancelled, err := f.svc.Cancel(ctx, req.ID, "ana@example.com")

	require.NoError(t, err)
	assert.Equal(t, leave.RequestCancelled, cancelled.Status)
	r, err := f.store.GetBalance(ctx, "ana@example.com", 2025)
	require.NoError(t, err)
	assert.True(t, r.StudyUsed.IsZero())
}

func TestRequest_HalfDayCountsHalf(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	in := annualInput("2024-06-03", "2024-06-03")
	in.IsHalfDay = true

	req, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, req.ID, "boss@example.com")
	require.NoError(t, err)

	assert.Equal(t, "0.5", f.annualUsed(t))
}

func TestRequest_MaintenanceModeFreezesLifecycle(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, annualInput("2024-06-03", "2024-06-04"))
	require.NoError(t, err)

	f.svc.Mode = modeFlag(true)

	_, err = f.svc.Submit(ctx, annualInput("2024-06-10", "2024-06-11"))
	assert.ErrorIs(t, err, generic.ErrMaintenanceMode)
	_, err = f.svc.Approve(ctx, req.ID, "boss@example.com")
	assert.ErrorIs(t, err, generic.ErrMaintenanceMode)
	_, err = f.svc.Reject(ctx, req.ID, "boss@example.com")
	assert.True(t, errors.Is(err, generic.ErrMaintenanceMode))
	_, err = f.svc.Cancel(ctx, req.ID, "ana@example.com")
	assert.ErrorIs(t, err, generic.ErrMaintenanceMode)
}
