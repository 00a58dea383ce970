/*
app.go - Shared wiring for the daemon and the CLI

PURPOSE:
  Opens the configured store, seeds holidays from the calendar file and
  builds the leave services over it, so cmd/leaved and cmd/leavectl wire
  the engine the same way.

SEE ALSO:
  - config/config.go: LEAVE_* settings
  - cmd/leaved/main.go, cmd/leavectl/main.go
*/
package app

import (
	"context"
	"fmt"

	"github.com/CHAISAHR/saleaveapp-sub000/config"
	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/CHAISAHR/saleaveapp-sub000/notify"
	"github.com/CHAISAHR/saleaveapp-sub000/store/postgres"
	"github.com/CHAISAHR/saleaveapp-sub000/store/sqlite"
	log "github.com/sirupsen/logrus"
)

// Backend is a leave.Store that can be health-checked and closed.
type Backend interface {
	leave.Store
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	Config   config.Config
	Store    Backend
	Runtime  *config.Runtime
	Clock    generic.Clock
	Notifier leave.Notifier
	Log      *log.Logger

	Balances *leave.BalanceService
	Requests *leave.RequestService
	Rollover *leave.RolloverProcessor
}

// Open connects to the backend named by cfg.DBDriver and builds the services.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := New(cfg, store, generic.SystemClock{}, logger)
	if cfg.HolidayFile != "" {
		n, err := ImportHolidays(ctx, store, cfg.HolidayFile)
		if err != nil {
			store.Close()
			return nil, err
		}
		logger.WithFields(log.Fields{"file": cfg.HolidayFile, "holidays": n}).Info("holiday calendar loaded")
	}
	return a, nil
}

// New builds the services over an already open store.
func New(cfg config.Config, store Backend, clock generic.Clock, logger *log.Logger) *App {
	runtime := config.NewRuntime(cfg)
	notifier := notify.FromConfig(cfg.Mail, logger)

	rollover := leave.NewRolloverProcessor(store, clock, runtime, notifier, logger)
	if cfg.Mail.HREmail != "" {
		rollover.NotifyTo = []string{cfg.Mail.HREmail}
	}

	return &App{
		Config:   cfg,
		Store:    store,
		Runtime:  runtime,
		Clock:    clock,
		Notifier: notifier,
		Log:      logger,
		Balances: leave.NewBalanceService(store, clock, runtime, logger),
		Requests: leave.NewRequestService(store, clock, runtime, notifier, logger),
		Rollover: rollover,
	}
}

func (a *App) Close() error { return a.Store.Close() }

// OpenStore opens the SQLite file or the Postgres pool.
func OpenStore(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: int32(cfg.DBMaxConns),
		})
		if err != nil {
			return nil, err
		}
		return &pgBackend{Store: postgres.New(pool), close: pool.Close}, nil
	case config.DriverSQLite, "":
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

type pgBackend struct {
	*postgres.Store
	close func()
}

func (b *pgBackend) Close() error {
	b.close()
	return nil
}

// ImportHolidays loads a YAML calendar into the store and returns how many
// holidays it saved.
func ImportHolidays(ctx context.Context, hs leave.HolidayStore, path string) (int, error) {
	holidays, err := config.LoadHolidays(path)
	if err != nil {
		return 0, err
	}
	for _, h := range holidays {
		if err := hs.SaveHoliday(ctx, h); err != nil {
			return 0, fmt.Errorf("save holiday %s: %w", h.ID, err)
		}
	}
	return len(holidays), nil
}
