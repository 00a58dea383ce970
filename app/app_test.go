package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/config"
	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteWithHolidayFile(t *testing.T) {
	dir := t.TempDir()
	holidays := filepath.Join(dir, "holidays.yaml")
	require.NoError(t, os.WriteFile(holidays, []byte(`
holidays:
  - id: freedom-day
    name: Freedom Day
    date: "2025-04-27"
    recurrence: FREQ=YEARLY
`), 0o600))

	cfg := config.Config{
		DBDriver:    config.DriverSQLite,
		SQLitePath:  filepath.Join(dir, "leave.db"),
		HolidayFile: holidays,
		Mail:        config.MailConfig{HREmail: "hr@example.com"},
	}

	a, err := Open(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Store.Ping(context.Background()))
	assert.Equal(t, []string{"hr@example.com"}, a.Rollover.NotifyTo)

	got, err := a.Store.HolidaysBetween(context.Background(),
		generic.NewTimePoint(2026, time.April, 1), generic.NewTimePoint(2026, time.April, 30))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Freedom Day", got[0].Name)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.Config{DBDriver: "mongo"})

	assert.Error(t, err)
}
