package seed

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/repository"
	"github.com/minaamq/Q2time-tracking-system/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRun_ProvisionsDemoEntriesForToday(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "seed_test.db")), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	repo, err := repository.NewGormTimeEntryRepository(db, logger)
	require.NoError(t, err)

	clock := service.NewSystemClock()
	require.NoError(t, Run(context.Background(), repo, clock, logger))

	now := clock.Now("")
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	calc := service.NewTimeCalculator(logger)

	// эталонный полный день
	entry, err := repo.GetByEmpAndDate(context.Background(), "Emp123", today)
	require.NoError(t, err)
	hours, _, scenario := calc.CalculateWorkHours(entry)
	assert.Equal(t, 9.0, hours)
	assert.Equal(t, service.ScenarioCalculation, scenario)

	// перерасход перерывов
	entry, err = repo.GetByEmpAndDate(context.Background(), "Emp239", today)
	require.NoError(t, err)
	hours, _, scenario = calc.CalculateWorkHours(entry)
	assert.InDelta(t, 8.75, hours, 1e-9)
	assert.Equal(t, service.ScenarioExceedsBreak, scenario)

	// отсутствие
	entry, err = repo.GetByEmpAndDate(context.Background(), "Emp567", today)
	require.NoError(t, err)
	hours, _, scenario = calc.CalculateWorkHours(entry)
	assert.Zero(t, hours)
	assert.Equal(t, service.ScenarioAbsent, scenario)

	// забытый выход
	entry, err = repo.GetByEmpAndDate(context.Background(), "Emp564", today)
	require.NoError(t, err)
	_, _, scenario = calc.CalculateWorkHours(entry)
	assert.Contains(t, scenario, service.ScenarioExceedsBreak)

	// повторный запуск перезаливает без дублей
	require.NoError(t, Run(context.Background(), repo, clock, logger))
	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
