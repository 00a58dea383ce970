/*
scheduler.go - Background accrual reconciliation and year-end rollover

PURPOSE:
  Periodically refreshes the stored accrual cache of every current-year
  balance record, and optionally rolls the previous year into the current
  one once the calendar year has turned.

DESIGN:
  - One goroutine driven by a ticker; runs once immediately on Start
  - Reconciliation touches only the current year's records
  - Auto-rollover fires only when the current year has no records yet and
    the previous year has some, so it runs at most once per year
  - The last runs are kept in memory for the ops API

CONFIGURATION:
  - Interval: how often to check (LEAVE_RECONCILE_INTERVAL, default 1h)
  - AutoRollover: whether year-end rollover runs unattended (default off)

SEE ALSO:
  - leave/service.go: ReconcileYear
  - leave/rollover.go: RolloverProcessor
*/
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	log "github.com/sirupsen/logrus"
)

// ActorID is recorded in audit entries written by unattended runs.
const ActorID = "scheduler"

const maxRuns = 20

type Reconciler interface {
	ReconcileYear(ctx context.Context, year int) (leave.ReconcileSummary, error)
}

type Roller interface {
	Rollover(ctx context.Context, fromYear, toYear int, actorID string) (leave.RolloverSummary, error)
}

type YearLister interface {
	ListBalances(ctx context.Context, year int) ([]leave.BalanceRecord, error)
}

// RunKind names what a scheduler pass did.
type RunKind string

const (
	RunReconcile RunKind = "reconcile"
	RunRollover  RunKind = "rollover"
)

type Run struct {
	ID          string    `json:"id"`
	Kind        RunKind   `json:"kind"`
	Year        int       `json:"year"`
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

type Scheduler struct {
	Reconciler   Reconciler
	Roller       Roller
	Years        YearLister
	Clock        generic.Clock
	Log          *log.Logger
	Interval     time.Duration
	AutoRollover bool

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	runsMu  sync.Mutex
	runs    []Run
	lastRun time.Time
}

func New(reconciler Reconciler, roller Roller, years YearLister, clock generic.Clock, logger *log.Logger) *Scheduler {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Scheduler{
		Reconciler: reconciler,
		Roller:     roller,
		Years:      years,
		Clock:      clock,
		Log:        logger,
		Interval:   time.Hour,
	}
}

func (s *Scheduler) logger() *log.Entry {
	return s.Log.WithField("component", "scheduler")
}

// Start begins the loop. An Interval of zero disables the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Interval <= 0 {
		s.logger().Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	s.logger().WithField("interval", s.Interval).Info("started")
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.logger().Info("stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.RunNow(context.Background())
	for {
		select {
		case <-s.ticker.C:
			s.RunNow(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunNow performs one pass: rollover first when due, then reconciliation.
func (s *Scheduler) RunNow(ctx context.Context) {
	year := s.Clock.Today().Year()

	if s.AutoRollover {
		s.maybeRollover(ctx, year)
	}
	s.reconcile(ctx, year)

	s.runsMu.Lock()
	s.lastRun = s.Clock.Now()
	s.runsMu.Unlock()
}

func (s *Scheduler) reconcile(ctx context.Context, year int) {
	started := s.Clock.Now()
	summary, err := s.Reconciler.ReconcileYear(ctx, year)
	if err != nil {
		s.logger().WithError(err).WithField("year", year).Error("reconcile failed")
		s.record(Run{Kind: RunReconcile, Year: year, Status: "failed", Detail: err.Error(), StartedAt: started})
		return
	}

	entry := s.logger().WithFields(log.Fields{
		"year":      year,
		"checked":   summary.Checked,
		"refreshed": summary.Refreshed,
		"failed":    summary.Failed,
	})
	if summary.Refreshed > 0 || summary.Failed > 0 {
		entry.Info("reconcile completed")
	} else {
		entry.Debug("reconcile completed")
	}
	s.record(Run{
		Kind:      RunReconcile,
		Year:      year,
		Status:    "completed",
		Detail:    fmt.Sprintf("checked=%d refreshed=%d failed=%d", summary.Checked, summary.Refreshed, summary.Failed),
		StartedAt: started,
	})
}

func (s *Scheduler) maybeRollover(ctx context.Context, year int) {
	current, err := s.Years.ListBalances(ctx, year)
	if err != nil {
		s.logger().WithError(err).Error("rollover check failed")
		return
	}
	if len(current) > 0 {
		return
	}
	previous, err := s.Years.ListBalances(ctx, year-1)
	if err != nil {
		s.logger().WithError(err).Error("rollover check failed")
		return
	}
	if len(previous) == 0 {
		return
	}

	started := s.Clock.Now()
	summary, err := s.Roller.Rollover(ctx, year-1, year, ActorID)
	if err != nil {
		s.logger().WithError(err).WithField("year", year).Error("auto rollover failed")
		s.record(Run{Kind: RunRollover, Year: year, Status: "failed", Detail: err.Error(), StartedAt: started})
		return
	}
	s.record(Run{
		Kind:      RunRollover,
		Year:      year,
		Status:    "completed",
		Detail:    fmt.Sprintf("from=%d employees=%d", summary.FromYear, summary.EmployeesProcessed),
		StartedAt: started,
	})
}

func (s *Scheduler) record(r Run) {
	r.CompletedAt = s.Clock.Now()
	r.ID = fmt.Sprintf("%s-%d-%d", r.Kind, r.Year, r.StartedAt.UnixNano())

	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	s.runs = append(s.runs, r)
	if len(s.runs) > maxRuns {
		s.runs = s.runs[len(s.runs)-maxRuns:]
	}
}

// Runs returns the most recent runs, newest last.
func (s *Scheduler) Runs() []Run {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	return append([]Run(nil), s.runs...)
}

// NextRunTime estimates when the next tick fires. Zero when never run.
func (s *Scheduler) NextRunTime() time.Time {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	if s.lastRun.IsZero() || s.Interval <= 0 {
		return time.Time{}
	}
	return s.lastRun.Add(s.Interval)
}
