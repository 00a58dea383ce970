/*
main.go - Leave engine daemon

PURPOSE:
  Runs the ops HTTP API and the background scheduler over the configured
  store. Handles configuration, dependency injection and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and LEAVE_* environment
  2. Open the store (SQLite or Postgres) and load the holiday calendar
  3. Start the reconciliation scheduler
  4. Start the HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler
  4. Close the store

SEE ALSO:
  - config/config.go: environment keys
  - api/server.go: routes
  - scheduler/scheduler.go: background jobs
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/api"
	"github.com/CHAISAHR/saleaveapp-sub000/app"
	"github.com/CHAISAHR/saleaveapp-sub000/config"
	"github.com/CHAISAHR/saleaveapp-sub000/logging"
	"github.com/CHAISAHR/saleaveapp-sub000/scheduler"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	a, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer a.Close()

	sched := scheduler.New(a.Balances, a.Rollover, a.Store, a.Clock, logger)
	sched.Interval = cfg.ReconcileInterval
	sched.AutoRollover = cfg.AutoRollover
	sched.Start()

	handler := &api.Handler{
		Balances:  a.Balances,
		Rollover:  a.Rollover,
		Records:   a.Store,
		Runtime:   a.Runtime,
		Scheduler: sched,
		Pinger:    a.Store,
		Clock:     a.Clock,
		Log:       logger,
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(log.Fields{
			"addr":        cfg.HTTPAddr,
			"driver":      cfg.DBDriver,
			"maintenance": cfg.MaintenanceMode,
		}).Info("leaved listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	sched.Stop()

	logger.Info("stopped")
}
