// Command migrate applies the Postgres schema in migrations/postgres.
//
//	migrate [-dir migrations/postgres] [up|down|drop|version]
//
// The database URL comes from LEAVE_DATABASE_URL (or -url).
package main

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/CHAISAHR/saleaveapp-sub000/config"
	"github.com/CHAISAHR/saleaveapp-sub000/logging"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		migrationsDir = flag.String("dir", "migrations/postgres", "directory containing migration files")
		databaseURL   = flag.String("url", "", "database URL (defaults to LEAVE_DATABASE_URL)")
	)
	flag.Parse()

	action := "up"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	dsn := *databaseURL
	if dsn == "" {
		dsn = cfg.DatabaseURL
	}
	if dsn == "" {
		logger.Fatal("no database URL: set LEAVE_DATABASE_URL or -url")
	}

	if err := runMigration(logger, action, *migrationsDir, dsn); err != nil {
		logger.WithError(err).WithField("action", action).Fatal("migration failed")
	}
	logger.WithField("action", action).Info("migration completed")
}

func runMigration(logger *log.Logger, action, dir, dsn string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(absDir), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch action {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migration applied")
			return nil
		}
		if err != nil {
			return err
		}
		logger.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("schema version")
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}
