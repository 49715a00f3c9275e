package seed

import (
	"context"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"
	"github.com/minaamq/Q2time-tracking-system/internal/repository"
	"github.com/minaamq/Q2time-tracking-system/internal/service"

	"github.com/sirupsen/logrus"
)

// Демо-сотрудники; Emp999 зарезервирован и только вычищается
var demoEmpIDs = []string{"Emp123", "Emp564", "Emp567", "Emp239", "Emp999"}

type demoCase struct {
	empID    string
	login    bool
	logout   bool
	timezone string
	breaks   []demoBreak
}

type demoBreak struct {
	breakType models.BreakType
	minutes   int
}

// Эталонные дневные записи: полный день 9:00-18:00 с нормативными
// перерывами, забытый выход, отсутствие, перерасход перерывов
var demoCases = []demoCase{
	{
		empID: "Emp123", login: true, logout: true, timezone: "Asia/Kolkata",
		breaks: []demoBreak{
			{models.BreakTypeBreak1, 30},
			{models.BreakTypeBreak2, 30},
			{models.BreakTypeBio, 10},
		},
	},
	{
		empID: "Emp564", login: true, logout: false, timezone: "America/New_York",
		breaks: []demoBreak{
			{models.BreakTypeBreak1, 40},
			{models.BreakTypeBreak2, 20},
			{models.BreakTypeBio, 5},
		},
	},
	{
		empID: "Emp567", login: false, logout: false, timezone: "UTC",
	},
	{
		empID: "Emp239", login: true, logout: true, timezone: "Europe/London",
		breaks: []demoBreak{
			{models.BreakTypeBreak1, 35},
			{models.BreakTypeBreak2, 40},
			{models.BreakTypeBio, 30},
		},
	},
}

// Run заливает демо-данные за текущий день, предварительно удалив
// прежние записи демо-сотрудников. Даты относительные: записи всегда
// попадают в "сегодня" запросов расчета.
func Run(ctx context.Context, repo repository.TimeEntryRepository, clock service.Clock, logger *logrus.Logger) error {
	if _, err := repo.DeleteByEmpIDs(ctx, demoEmpIDs); err != nil {
		return err
	}

	today := clock.Now("")
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	for _, tc := range demoCases {
		entry := models.NewTimeEntry(tc.empID, day, tc.timezone)

		if tc.login {
			login := day.Add(9 * time.Hour) // 9:00
			entry.LoginTime = &login
		}
		if tc.logout {
			logout := day.Add(18 * time.Hour) // 18:00
			entry.LogoutTime = &logout
		}

		for i, db := range tc.breaks {
			minutes := db.minutes
			brk, err := models.NewBreakEntry(db.breakType, nil, nil, &minutes, tc.timezone)
			if err != nil {
				return err
			}
			brk.Position = i + 1
			entry.Breaks = append(entry.Breaks, *brk)
		}

		if _, err := repo.Upsert(ctx, entry); err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"emp_id": tc.empID,
			"date":   day.Format("2006-01-02"),
		}).Info("Demo time entry created")
	}

	return nil
}
