package tzutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("UTC"))
	assert.True(t, IsValid("Asia/Kolkata"))
	assert.True(t, IsValid("America/New_York"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("Mars/Olympus_Mons"))
}

func TestNowIn_UnknownZoneFallsBackToUTC(t *testing.T) {
	now := NowIn("Nowhere/Nothing")
	assert.Equal(t, time.UTC, now.Location())
}

func TestToZone(t *testing.T) {
	utc := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	kolkata := ToZone(utc, "Asia/Kolkata")
	assert.Equal(t, 17, kolkata.Hour())
	assert.Equal(t, 30, kolkata.Minute())
	assert.True(t, kolkata.Equal(utc))

	// unknown label leaves the value untouched
	same := ToZone(utc, "Nowhere/Nothing")
	assert.Equal(t, utc, same)
}

func TestDateOf(t *testing.T) {
	moment := time.Date(2025, 6, 2, 23, 59, 58, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), DateOf(moment))

	midnight := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight, DateOf(midnight))
}
