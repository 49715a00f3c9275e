package service

import (
	"fmt"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"

	"github.com/sirupsen/logrus"
)

// Политика рабочего дня
const (
	StandardWorkHours     = 9.0 // эталонная длина полного дня, часы
	MandatoryBreakMinutes = 30  // норматив break1 и break2, минуты
	MaxBioBreakMinutes    = 30  // суммарный лимит bio-перерывов, минуты
	DefaultLogoutHour     = 18  // подстановка выхода при забытом logout

	// Полным днем считается залогированное время в пределах
	// получаса от эталона
	fullDayToleranceHours = 0.5
)

// Сценарии расчета
const (
	ScenarioAbsent        = "Absent"
	ScenarioCalculation   = "Calculation"
	ScenarioForgotLogout  = "Emp forgot to logout"
	ScenarioExceedsBreak  = "Emp exceeds break"
	scenarioOverlapSuffix = " with overlapping breaks"
)

// CalculationDetails - структурированная разбивка расчета,
// отдается клиентам API как есть
type CalculationDetails map[string]any

// TimeCalculator выводит итоговые часы за день из снимка записи.
// Чистый расчет: запись не мутируется, ошибок не возвращает,
// при отсутствии входа деградирует в сценарий Absent.
type TimeCalculator struct {
	logger *logrus.Logger
}

func NewTimeCalculator(logger *logrus.Logger) *TimeCalculator {
	return &TimeCalculator{logger: logger}
}

// CalculateWorkHours возвращает (часы, разбивка, сценарий) для записи дня.
//
// Полный день (в пределах получаса от 9 часов): база 9 часов, перерасход
// break1/break2/bio штрафуется, недобор break1/break2 возвращается бонусом;
// итог не превышает базу. Неполный день: из залогированного вычитаются все
// перерывы плюс штрафы за перерасход, бонусов нет.
func (c *TimeCalculator) CalculateWorkHours(entry *models.TimeEntry) (float64, CalculationDetails, string) {
	if !entry.HasLogin() {
		return 0.0, CalculationDetails{"error": "No login time recorded"}, ScenarioAbsent
	}

	login := *entry.LoginTime

	// Забытый выход: подставляем 18:00 того же дня
	var logout time.Time
	scenario := ScenarioCalculation
	if entry.HasLogout() {
		logout = *entry.LogoutTime
	} else {
		logout = time.Date(login.Year(), login.Month(), login.Day(),
			DefaultLogoutHour, 0, 0, 0, login.Location())
		scenario = ScenarioForgotLogout
	}

	totalLoggedHours := logout.Sub(login).Hours()
	isFullDay := abs(totalLoggedHours-StandardWorkHours) < fullDayToleranceHours

	mandatoryBreaks := CalculationDetails{}
	bioBreaks := CalculationDetails{}
	adjustments := CalculationDetails{}

	details := CalculationDetails{
		"total_logged_hours": totalLoggedHours,
		"is_full_workday":    isFullDay,
		"login_time":         login,
		"logout_time":        logout,
		"mandatory_breaks":   mandatoryBreaks,
		"bio_breaks":         bioBreaks,
		"adjustments":        adjustments,
	}

	// Пересечения фиксируются в разбивке, но расчет не блокируют:
	// пересекающиеся перерывы все равно суммируются
	hasOverlaps, overlapDetails := CheckOverlappingBreaks(entry.Breaks)
	details["overlap_handling"] = CalculationDetails{
		"has_overlaps":     hasOverlaps,
		"overlap_details":  overlapDetails,
		"adjustments_made": []string{},
	}

	totalBreakMin := 0
	break1Min, break2Min, bioMin := 0, 0, 0

	for _, br := range entry.Breaks {
		dur := br.Minutes()
		totalBreakMin += dur

		switch br.BreakType {
		case models.BreakTypeBreak1:
			break1Min = dur
			mandatoryBreaks["break1"] = dur
		case models.BreakTypeBreak2:
			break2Min = dur
			mandatoryBreaks["break2"] = dur
		case models.BreakTypeBio:
			bioMin += dur
			bioBreaks[fmt.Sprintf("bio_break_%d", len(bioBreaks)+1)] = dur
		}
	}

	var finalHours float64
	penaltyMin := 0

	if isFullDay {
		bonusMin := 0

		// Норматив обязательного слота: перерасход - штраф,
		// частичное использование - возврат остатка, ровно ноль минут
		// корректировки не дает
		mandatorySlot := func(actual int, label string) {
			switch {
			case actual > MandatoryBreakMinutes:
				excess := actual - MandatoryBreakMinutes
				adjustments[label+"_excess"] = -excess
				penaltyMin += excess
			case actual > 0 && actual < MandatoryBreakMinutes:
				unused := MandatoryBreakMinutes - actual
				adjustments[label+"_unused"] = unused
				bonusMin += unused
			}
		}

		mandatorySlot(break1Min, "break1")
		mandatorySlot(break2Min, "break2")

		if bioMin > MaxBioBreakMinutes {
			excess := bioMin - MaxBioBreakMinutes
			adjustments["bio_excess"] = -excess
			penaltyMin += excess
		}

		finalHours = clamp(
			StandardWorkHours-float64(penaltyMin)/60+float64(bonusMin)/60,
			0, StandardWorkHours,
		)
	} else {
		productiveHours := totalLoggedHours - float64(totalBreakMin)/60

		if break1Min > MandatoryBreakMinutes {
			extra := break1Min - MandatoryBreakMinutes
			adjustments["break1_excess_penalty"] = -extra
			penaltyMin += extra
		}
		if break2Min > MandatoryBreakMinutes {
			extra := break2Min - MandatoryBreakMinutes
			adjustments["break2_excess_penalty"] = -extra
			penaltyMin += extra
		}
		if bioMin > MaxBioBreakMinutes {
			extra := bioMin - MaxBioBreakMinutes
			adjustments["bio_excess_penalty"] = -extra
			penaltyMin += extra
		}

		finalHours = productiveHours - float64(penaltyMin)/60
		if finalHours < 0 {
			finalHours = 0
		}
	}

	details["total_break_minutes"] = totalBreakMin
	details["final_work_hours"] = finalHours

	if penaltyMin > 0 {
		scenario = ScenarioExceedsBreak
	}
	if hasOverlaps {
		scenario += scenarioOverlapSuffix
	}

	c.logger.WithFields(logrus.Fields{
		"emp_id":      entry.EmpID,
		"final_hours": finalHours,
		"scenario":    scenario,
		"full_day":    isFullDay,
	}).Debug("Work hours calculated")

	return finalHours, details, scenario
}

// FormatHours форматирует часы для отчета: "Absent", "9 hrs", "8:45hrs"
func FormatHours(hours float64) string {
	if hours == 0 {
		return "Absent"
	}
	totalMin := int(hours*60 + 0.5)
	h, m := totalMin/60, totalMin%60
	if m == 0 {
		return fmt.Sprintf("%d hrs", h)
	}
	return fmt.Sprintf("%d:%02dhrs", h, m)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
