package service

import (
	"testing"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timedBreak(t *testing.T, kind models.BreakType, startHour, startMin, endHour, endMin int) models.BreakEntry {
	t.Helper()
	start := time.Date(2025, 6, 2, startHour, startMin, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, endHour, endMin, 0, 0, time.UTC)
	entry, err := models.NewBreakEntry(kind, &start, &end, nil, "UTC")
	require.NoError(t, err)
	return *entry
}

func durationBreak(t *testing.T, kind models.BreakType, minutes int) models.BreakEntry {
	t.Helper()
	entry, err := models.NewBreakEntry(kind, nil, nil, &minutes, "UTC")
	require.NoError(t, err)
	return *entry
}

func TestCheckOverlappingBreaks_Empty(t *testing.T) {
	has, details := CheckOverlappingBreaks(nil)
	assert.False(t, has)
	assert.Empty(t, details)
}

func TestCheckOverlappingBreaks_DisjointIntervals(t *testing.T) {
	breaks := []models.BreakEntry{
		timedBreak(t, models.BreakTypeBreak1, 12, 0, 12, 30),
		timedBreak(t, models.BreakTypeBreak2, 15, 0, 15, 30),
	}

	has, details := CheckOverlappingBreaks(breaks)
	assert.False(t, has)
	assert.Empty(t, details)
}

func TestCheckOverlappingBreaks_TouchingEndpointsDoNotOverlap(t *testing.T) {
	breaks := []models.BreakEntry{
		timedBreak(t, models.BreakTypeBreak1, 12, 0, 12, 30),
		timedBreak(t, models.BreakTypeBio, 12, 30, 12, 40),
	}

	has, _ := CheckOverlappingBreaks(breaks)
	assert.False(t, has)
}

func TestCheckOverlappingBreaks_ReportsPairWithPositions(t *testing.T) {
	breaks := []models.BreakEntry{
		timedBreak(t, models.BreakTypeBio, 13, 0, 13, 30),
		timedBreak(t, models.BreakTypeBreak1, 13, 15, 13, 45),
	}

	has, details := CheckOverlappingBreaks(breaks)
	assert.True(t, has)
	assert.Equal(t, "bio(1) overlaps break1(2) for 15 min", details)
}

func TestCheckOverlappingBreaks_UntimedEntriesKeepPositions(t *testing.T) {
	// duration-only entry occupies position 1 but cannot overlap
	breaks := []models.BreakEntry{
		durationBreak(t, models.BreakTypeBreak1, 30),
		timedBreak(t, models.BreakTypeBreak2, 14, 0, 14, 40),
		timedBreak(t, models.BreakTypeBio, 14, 30, 14, 50),
	}

	has, details := CheckOverlappingBreaks(breaks)
	assert.True(t, has)
	assert.Equal(t, "break2(2) overlaps bio(3) for 10 min", details)
}

func TestCheckOverlappingBreaks_DetectionIsOrderIndependent(t *testing.T) {
	a := timedBreak(t, models.BreakTypeBreak1, 13, 0, 13, 40)
	b := timedBreak(t, models.BreakTypeBio, 13, 20, 13, 50)

	hasAB, detailsAB := CheckOverlappingBreaks([]models.BreakEntry{a, b})
	hasBA, detailsBA := CheckOverlappingBreaks([]models.BreakEntry{b, a})

	assert.True(t, hasAB)
	assert.True(t, hasBA)

	// same overlap either way, message text follows input order
	assert.Equal(t, "break1(1) overlaps bio(2) for 20 min", detailsAB)
	assert.Equal(t, "bio(1) overlaps break1(2) for 20 min", detailsBA)
}

func TestCheckOverlappingBreaks_MultiplePairsInEnumerationOrder(t *testing.T) {
	breaks := []models.BreakEntry{
		timedBreak(t, models.BreakTypeBreak1, 13, 0, 14, 0),
		timedBreak(t, models.BreakTypeBreak2, 13, 30, 14, 30),
		timedBreak(t, models.BreakTypeBio, 13, 45, 13, 55),
	}

	has, details := CheckOverlappingBreaks(breaks)
	assert.True(t, has)
	assert.Equal(t,
		"break1(1) overlaps break2(2) for 30 min; "+
			"break1(1) overlaps bio(3) for 10 min; "+
			"break2(2) overlaps bio(3) for 10 min",
		details)
}

func TestCheckOverlappingBreaks_ContainedInterval(t *testing.T) {
	breaks := []models.BreakEntry{
		timedBreak(t, models.BreakTypeBreak1, 13, 0, 14, 0),
		timedBreak(t, models.BreakTypeBio, 13, 20, 13, 30),
	}

	has, details := CheckOverlappingBreaks(breaks)
	assert.True(t, has)
	assert.Equal(t, "break1(1) overlaps bio(2) for 10 min", details)
}
