package service

import (
	"io"
	"testing"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sessionAt(loginHour, loginMin int, logoutHour, logoutMin int, breaks ...models.BreakEntry) *models.TimeEntry {
	entry := models.NewTimeEntry("Emp123", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), "UTC")

	login := time.Date(2025, 6, 2, loginHour, loginMin, 0, 0, time.UTC)
	entry.LoginTime = &login

	if logoutHour >= 0 {
		logout := time.Date(2025, 6, 2, logoutHour, logoutMin, 0, 0, time.UTC)
		entry.LogoutTime = &logout
	}

	entry.Breaks = breaks
	return entry
}

func adjustments(details CalculationDetails) CalculationDetails {
	return details["adjustments"].(CalculationDetails)
}

func TestCalculate_AbsentWithoutLogin(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	entry := models.NewTimeEntry("Emp567", time.Now(), "UTC")

	hours, details, scenario := calc.CalculateWorkHours(entry)

	assert.Equal(t, 0.0, hours)
	assert.Equal(t, ScenarioAbsent, scenario)
	assert.Equal(t, "No login time recorded", details["error"])
}

func TestCalculate_FullDayWithStandardBreaks(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	entry := sessionAt(9, 0, 18, 0,
		durationBreak(t, models.BreakTypeBreak1, 30),
		durationBreak(t, models.BreakTypeBreak2, 30),
		durationBreak(t, models.BreakTypeBio, 10),
	)

	hours, details, scenario := calc.CalculateWorkHours(entry)

	assert.Equal(t, 9.0, hours)
	assert.Equal(t, ScenarioCalculation, scenario)
	assert.Equal(t, true, details["is_full_workday"])
	assert.Equal(t, 9.0, details["total_logged_hours"])
	assert.Equal(t, 70, details["total_break_minutes"])
	assert.Empty(t, adjustments(details))
}

func TestCalculate_ForgotLogoutDefaultsToSixPM(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	entry := sessionAt(9, 0, -1, 0)

	hours, details, scenario := calc.CalculateWorkHours(entry)

	assert.Equal(t, ScenarioForgotLogout, scenario)
	assert.Equal(t, 9.0, hours)

	logout := details["logout_time"].(time.Time)
	assert.Equal(t, DefaultLogoutHour, logout.Hour())
	assert.Equal(t, 0, logout.Minute())
}

func TestCalculate_MandatorySlotAdjustments(t *testing.T) {
	calc := NewTimeCalculator(testLogger())

	tests := []struct {
		name      string
		minutes   int
		wantKey   string
		wantValue int
		wantHours float64
	}{
		{name: "exactly at allotment yields no adjustment", minutes: 30, wantHours: 9.0},
		{name: "excess penalized", minutes: 40, wantKey: "break1_excess", wantValue: -10, wantHours: 9.0 - 10.0/60},
		{name: "underuse credited back", minutes: 20, wantKey: "break1_unused", wantValue: 10, wantHours: 9.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := sessionAt(9, 0, 18, 0, durationBreak(t, models.BreakTypeBreak1, tt.minutes))

			hours, details, _ := calc.CalculateWorkHours(entry)

			adj := adjustments(details)
			if tt.wantKey == "" {
				assert.Empty(t, adj)
			} else {
				assert.Equal(t, tt.wantValue, adj[tt.wantKey])
			}
			assert.InDelta(t, tt.wantHours, hours, 1e-9)
		})
	}
}

func TestCalculate_FullDayNeverExceedsStandardHours(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	// both mandatory slots underused: 40 bonus minutes, still capped at 9h
	entry := sessionAt(9, 0, 18, 0,
		durationBreak(t, models.BreakTypeBreak1, 10),
		durationBreak(t, models.BreakTypeBreak2, 10),
	)

	hours, details, scenario := calc.CalculateWorkHours(entry)

	assert.Equal(t, 9.0, hours)
	assert.Equal(t, ScenarioCalculation, scenario)
	assert.Equal(t, 20, adjustments(details)["break1_unused"])
	assert.Equal(t, 20, adjustments(details)["break2_unused"])
}

func TestCalculate_BioCapAppliesRegardlessOfDayType(t *testing.T) {
	calc := NewTimeCalculator(testLogger())

	t.Run("full day at cap has no penalty", func(t *testing.T) {
		entry := sessionAt(9, 0, 18, 0, durationBreak(t, models.BreakTypeBio, 30))
		hours, details, scenario := calc.CalculateWorkHours(entry)
		assert.Equal(t, 9.0, hours)
		assert.Equal(t, ScenarioCalculation, scenario)
		assert.Empty(t, adjustments(details))
	})

	t.Run("full day over cap is penalized", func(t *testing.T) {
		entry := sessionAt(9, 0, 18, 0, durationBreak(t, models.BreakTypeBio, 45))
		hours, details, scenario := calc.CalculateWorkHours(entry)
		assert.InDelta(t, 9.0-15.0/60, hours, 1e-9)
		assert.Equal(t, ScenarioExceedsBreak, scenario)
		assert.Equal(t, -15, adjustments(details)["bio_excess"])
	})

	t.Run("partial day over cap is penalized", func(t *testing.T) {
		entry := sessionAt(9, 0, 14, 0, durationBreak(t, models.BreakTypeBio, 40))
		hours, details, scenario := calc.CalculateWorkHours(entry)
		// 5h logged - 40min breaks - 10min penalty
		assert.InDelta(t, 5.0-40.0/60-10.0/60, hours, 1e-9)
		assert.Equal(t, ScenarioExceedsBreak, scenario)
		assert.Equal(t, -10, adjustments(details)["bio_excess_penalty"])
	})
}

func TestCalculate_MultipleBioBreaksAreSummed(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	entry := sessionAt(9, 0, 18, 0,
		durationBreak(t, models.BreakTypeBio, 20),
		durationBreak(t, models.BreakTypeBio, 15),
	)

	hours, details, scenario := calc.CalculateWorkHours(entry)

	// 35 total bio minutes, 5 over the cap
	assert.InDelta(t, 9.0-5.0/60, hours, 1e-9)
	assert.Equal(t, ScenarioExceedsBreak, scenario)

	bio := details["bio_breaks"].(CalculationDetails)
	assert.Equal(t, 20, bio["bio_break_1"])
	assert.Equal(t, 15, bio["bio_break_2"])
}

func TestCalculate_ExceedsBreakExample(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	entry := sessionAt(9, 0, 18, 0,
		durationBreak(t, models.BreakTypeBreak1, 35),
		durationBreak(t, models.BreakTypeBreak2, 40),
		durationBreak(t, models.BreakTypeBio, 30),
	)

	hours, details, scenario := calc.CalculateWorkHours(entry)

	// penalty = (35-30)+(40-30) = 15 min, bio exactly at cap
	assert.InDelta(t, 8.75, hours, 1e-9)
	assert.Equal(t, ScenarioExceedsBreak, scenario)

	adj := adjustments(details)
	assert.Equal(t, -5, adj["break1_excess"])
	assert.Equal(t, -10, adj["break2_excess"])
	assert.NotContains(t, adj, "bio_excess")
}

func TestCalculate_PartialDayEarnsNoBreakCredit(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	// 5h logged: well outside the full-day band
	entry := sessionAt(9, 0, 14, 0, durationBreak(t, models.BreakTypeBreak1, 20))

	hours, details, scenario := calc.CalculateWorkHours(entry)

	assert.Equal(t, false, details["is_full_workday"])
	// all break minutes subtracted, no unused credit
	assert.InDelta(t, 5.0-20.0/60, hours, 1e-9)
	assert.Equal(t, ScenarioCalculation, scenario)
	assert.Empty(t, adjustments(details))
}

func TestCalculate_PartialDayExcessPenalty(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	entry := sessionAt(9, 0, 14, 0, durationBreak(t, models.BreakTypeBreak1, 40))

	hours, details, scenario := calc.CalculateWorkHours(entry)

	assert.InDelta(t, 5.0-40.0/60-10.0/60, hours, 1e-9)
	assert.Equal(t, ScenarioExceedsBreak, scenario)
	assert.Equal(t, -10, adjustments(details)["break1_excess_penalty"])
}

func TestCalculate_PartialDayClampsAtZero(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	// 1h logged, 90min of break1
	entry := sessionAt(9, 0, 10, 0, durationBreak(t, models.BreakTypeBreak1, 90))

	hours, _, scenario := calc.CalculateWorkHours(entry)

	assert.Equal(t, 0.0, hours)
	assert.Equal(t, ScenarioExceedsBreak, scenario)
}

func TestCalculate_LongSpanFallsToPartialDay(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	// 20h logged span is just another partial day, no special band
	login := time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)
	logout := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)
	entry := models.NewTimeEntry("Emp123", login, "UTC")
	entry.LoginTime = &login
	entry.LogoutTime = &logout

	hours, details, _ := calc.CalculateWorkHours(entry)

	assert.Equal(t, false, details["is_full_workday"])
	assert.Equal(t, 20.0, hours)
}

func TestCalculate_OverlapSuffixAppended(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	entry := sessionAt(9, 0, 18, 0,
		timedBreak(t, models.BreakTypeBreak1, 13, 0, 13, 30),
		timedBreak(t, models.BreakTypeBio, 13, 15, 13, 25),
	)

	hours, details, scenario := calc.CalculateWorkHours(entry)

	assert.Equal(t, "Calculation with overlapping breaks", scenario)

	overlap := details["overlap_handling"].(CalculationDetails)
	assert.Equal(t, true, overlap["has_overlaps"])
	assert.Equal(t, "break1(1) overlaps bio(2) for 10 min", overlap["overlap_details"])

	// overlapping breaks are still summed; both within policy, so 9h stands
	require.Equal(t, 40, details["total_break_minutes"])
	assert.Equal(t, 9.0, hours)
}

func TestCalculate_ExceedsBreakWithOverlapSuffix(t *testing.T) {
	calc := NewTimeCalculator(testLogger())
	entry := sessionAt(9, 0, 18, 0,
		timedBreak(t, models.BreakTypeBreak1, 13, 0, 13, 45),
		timedBreak(t, models.BreakTypeBio, 13, 30, 13, 40),
	)

	_, _, scenario := calc.CalculateWorkHours(entry)

	assert.Equal(t, "Emp exceeds break with overlapping breaks", scenario)
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "Absent", FormatHours(0))
	assert.Equal(t, "9 hrs", FormatHours(9.0))
	assert.Equal(t, "8:45hrs", FormatHours(8.75))
	assert.Equal(t, "4:40hrs", FormatHours(4.0+40.0/60))
}
